// Package resolve implements the symbol resolution policy: the
// tie-break ladder that turns a syntactic reference site into zero,
// one, or several reference edges.
package resolve

import (
	"path"
	"strings"

	"github.com/dusk-indust/dimpact/internal/lang"
	"github.com/dusk-indust/dimpact/internal/symbol"
)

// Index is a workspace-wide lookup over every Symbol recovered from
// analysis, keyed for the tie-break ladder below.
type Index struct {
	byName map[string][]symbol.Symbol
}

// NewIndex builds an Index over every known declaration.
func NewIndex(symbols []symbol.Symbol) *Index {
	idx := &Index{byName: make(map[string][]symbol.Symbol)}
	for _, s := range symbols {
		idx.byName[s.Name] = append(idx.byName[s.Name], s)
	}
	return idx
}

// Resolve applies the five-step tie-break ladder to ref and returns one
// Reference per surviving candidate. An unqualified name with no
// candidates at all yields no edge; this is not an error — it is the
// common case for references to symbols outside the analyzed workspace
// (standard library calls, external crates/packages).
func Resolve(ref lang.UnresolvedRef, idx *Index) []symbol.Reference {
	candidates, ok := idx.byName[ref.Name]
	if !ok || len(candidates) == 0 {
		return nil
	}
	candidates = filterByCallShape(candidates, ref.IsMethod)
	if len(candidates) == 0 {
		return nil
	}

	// Step 1: receiver type inferred from a trivial local assignment
	// narrows to that type's methods.
	if ref.Qualifier != "" {
		candidates = narrowIfNonEmpty(candidates, func(s symbol.Symbol) bool {
			return s.Container == ref.Qualifier
		})
	}

	// Step 2: prefer the reference site's own file.
	candidates = narrowIfNonEmpty(candidates, func(s symbol.Symbol) bool {
		return s.Path == ref.Path
	})

	// Step 3: prefer the longest shared directory prefix with the
	// reference site's path.
	if len(candidates) > 1 {
		candidates = narrowToLongestSharedDir(candidates, ref.Path)
	}

	// Step 4: prefer a plain function over a method when the call is
	// unqualified.
	if !ref.IsMethod && len(candidates) > 1 {
		candidates = narrowIfNonEmpty(candidates, func(s symbol.Symbol) bool {
			return s.Kind == symbol.KindFn
		})
	}

	// Step 5: any remaining ambiguity fans out — one edge per candidate.
	// This over-approximates on purpose: a missed edge is a silent gap
	// in impact analysis, a spurious one is merely noise.
	refs := make([]symbol.Reference, 0, len(candidates))
	for _, c := range candidates {
		refs = append(refs, symbol.Reference{From: ref.From, To: c.ID, Kind: ref.Kind})
	}
	return refs
}

func filterByCallShape(candidates []symbol.Symbol, isMethod bool) []symbol.Symbol {
	var out []symbol.Symbol
	for _, c := range candidates {
		if isMethod {
			if c.Kind == symbol.KindMethod {
				out = append(out, c)
			}
			continue
		}
		if c.Kind == symbol.KindFn || c.Kind == symbol.KindMethod {
			out = append(out, c)
		}
	}
	return out
}

func narrowIfNonEmpty(candidates []symbol.Symbol, keep func(symbol.Symbol) bool) []symbol.Symbol {
	var narrowed []symbol.Symbol
	for _, c := range candidates {
		if keep(c) {
			narrowed = append(narrowed, c)
		}
	}
	if len(narrowed) > 0 {
		return narrowed
	}
	return candidates
}

func narrowToLongestSharedDir(candidates []symbol.Symbol, refPath string) []symbol.Symbol {
	refDir := path.Dir(refPath)
	best := -1
	depths := make([]int, len(candidates))
	for i, c := range candidates {
		d := sharedDirDepth(refDir, path.Dir(c.Path))
		depths[i] = d
		if d > best {
			best = d
		}
	}
	var narrowed []symbol.Symbol
	for i, c := range candidates {
		if depths[i] == best {
			narrowed = append(narrowed, c)
		}
	}
	return narrowed
}

func sharedDirDepth(a, b string) int {
	aParts := strings.Split(strings.Trim(a, "/"), "/")
	bParts := strings.Split(strings.Trim(b, "/"), "/")
	depth := 0
	for depth < len(aParts) && depth < len(bParts) && aParts[depth] == bParts[depth] {
		depth++
	}
	return depth
}

// ResolveAll resolves every ref against idx, returning the deduplicated
// edge set. Duplicate edges (same from/to/kind) collapse to one.
func ResolveAll(refs []lang.UnresolvedRef, idx *Index) []symbol.Reference {
	seen := make(map[symbol.Reference]struct{})
	var out []symbol.Reference
	for _, ref := range refs {
		for _, r := range Resolve(ref, idx) {
			if _, dup := seen[r]; dup {
				continue
			}
			seen[r] = struct{}{}
			out = append(out, r)
		}
	}
	return out
}
