// Package lang dispatches source files to the per-language tree-sitter
// analyzer that recovers declarations and unresolved reference sites
// from them.
package lang

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dusk-indust/dimpact/internal/errs"
	"github.com/dusk-indust/dimpact/internal/symbol"
)

// UnresolvedRef is a syntactic reference site before name resolution:
// the textual target name, an optional qualifier (C::n / C.n), whether
// the site is a method-call receiver, and the Symbol enclosing it.
type UnresolvedRef struct {
	Name      string
	Kind      symbol.RefKind
	Path      string
	Line      int
	Qualifier string
	IsMethod  bool
	From      symbol.ID
}

// Extractor walks a parsed tree and produces the declarations and
// reference sites found in it. Implementations are purely syntactic:
// they never resolve imports, aliases, or generics.
type Extractor interface {
	Extract(root *tree_sitter.Node, source []byte, path string) ([]symbol.Symbol, []UnresolvedRef)
}

// Analyzer parses and extracts for exactly one Language.
type Analyzer struct {
	Lang      symbol.Language
	grammar   *tree_sitter.Language
	extractor Extractor
}

// ParseErrorCount is incremented whenever an analyzer recovers a partial
// tree. It is the per-file error counter exposed to observability
// (ParseRecovered never aborts the run): read it via ParseErrors.
var ParseErrorCount struct {
	mu    sync.Mutex
	value int
}

func recordParseError() {
	ParseErrorCount.mu.Lock()
	ParseErrorCount.value++
	ParseErrorCount.mu.Unlock()
}

// ParseErrors returns the running total of files recovered from a
// partial parse tree since process start. Callers that want a per-run
// count should snapshot this before and after the run and diff it.
func ParseErrors() int {
	ParseErrorCount.mu.Lock()
	defer ParseErrorCount.mu.Unlock()
	return ParseErrorCount.value
}

// Symbols parses src and returns every declaration the extractor finds.
// Parse errors never fail the file: whatever the partial tree recovers
// is returned, and the per-file error counter is bumped.
func (a *Analyzer) Symbols(path string, src []byte) ([]symbol.Symbol, error) {
	syms, _, err := a.extract(path, src)
	return syms, err
}

// References returns the unresolved reference sites paired with their
// enclosing declaration. symbols is accepted for interface symmetry
// with the language-analyzer contract; extraction recomputes enclosure
// itself from the parsed tree, which is cheaper than re-walking twice.
func (a *Analyzer) References(path string, src []byte, _ []symbol.Symbol) ([]UnresolvedRef, error) {
	_, refs, err := a.extract(path, src)
	return refs, err
}

// Analyze parses src once and returns both the declarations and the
// unresolved reference sites found in it, avoiding the double parse a
// separate Symbols+References call pair would incur.
func (a *Analyzer) Analyze(path string, src []byte) ([]symbol.Symbol, []UnresolvedRef, error) {
	return a.extract(path, src)
}

func (a *Analyzer) extract(path string, src []byte) ([]symbol.Symbol, []UnresolvedRef, error) {
	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(a.grammar); err != nil {
		return nil, nil, errs.New(errs.IO, "lang.Analyzer.extract", fmt.Errorf("set grammar for %s: %w", a.Lang, err))
	}
	tree := parser.Parse(src, nil)
	if tree == nil {
		return nil, nil, errs.New(errs.IO, "lang.Analyzer.extract", fmt.Errorf("%s: parser returned no tree", path))
	}
	defer tree.Close()
	root := tree.RootNode()
	if root.HasError() {
		recordParseError()
	}
	syms, refs := a.extractor.Extract(root, src, path)
	return syms, refs, nil
}

// Registry dispatches files to analyzers by extension, and explicit
// seeds by declared language.
type Registry struct {
	analyzers map[symbol.Language]*Analyzer
}

// NewRegistry builds the five-language registry: Rust, Ruby, JavaScript,
// TypeScript, and TSX (a grammar variant of TypeScript).
func NewRegistry() *Registry {
	r := &Registry{analyzers: make(map[symbol.Language]*Analyzer)}
	r.register(symbol.Rust, rustGrammar(), &rustExtractor{})
	r.register(symbol.Ruby, rubyGrammar(), &rubyExtractor{})
	r.register(symbol.JavaScript, javascriptGrammar(), &jsExtractor{lang: symbol.JavaScript})
	r.register(symbol.TypeScript, typescriptGrammar(), &jsExtractor{lang: symbol.TypeScript})
	r.register(symbol.TSX, tsxGrammar(), &jsExtractor{lang: symbol.TSX})
	return r
}

func (r *Registry) register(lang symbol.Language, grammar *tree_sitter.Language, extractor Extractor) {
	r.analyzers[lang] = &Analyzer{Lang: lang, grammar: grammar, extractor: extractor}
}

// Languages returns every language this registry can analyze.
func (r *Registry) Languages() []symbol.Language {
	return symbol.Languages
}

// For returns the analyzer for lang, or nil if unsupported.
func (r *Registry) For(lang symbol.Language) *Analyzer {
	return r.analyzers[lang]
}

// LanguageForPath guesses a Language from a file extension. It returns
// "" for unrecognized extensions, which the walker treats as excluded.
func LanguageForPath(path string) symbol.Language {
	switch filepath.Ext(path) {
	case ".rs":
		return symbol.Rust
	case ".rb":
		return symbol.Ruby
	case ".js", ".mjs", ".cjs", ".jsx":
		return symbol.JavaScript
	case ".ts":
		return symbol.TypeScript
	case ".tsx":
		return symbol.TSX
	default:
		return ""
	}
}

// ForPath resolves the analyzer for path by extension.
func (r *Registry) ForPath(path string) *Analyzer {
	lang := LanguageForPath(path)
	if lang == "" {
		return nil
	}
	return r.For(lang)
}

// Close is a no-op kept for symmetry with components that hold native
// handles; tree-sitter parsers here are created per Extract call and
// closed immediately after use.
func (r *Registry) Close(_ context.Context) error { return nil }
