package lang

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"

	"github.com/dusk-indust/dimpact/internal/symbol"
)

func rustGrammar() *tree_sitter.Language {
	return tree_sitter.NewLanguage(tree_sitter_rust.Language())
}

// rustExtractor recovers fn/struct/enum/trait/impl-methods/mod
// declarations and call-expression reference sites from Rust source.
type rustExtractor struct{}

func (e *rustExtractor) Extract(root *tree_sitter.Node, source []byte, path string) ([]symbol.Symbol, []UnresolvedRef) {
	w := &rustWalk{source: source, path: path, hints: make(map[string]string)}
	cursor := root.Walk()
	defer cursor.Close()
	w.walk(cursor)
	return w.symbols, w.refs
}

type rustWalk struct {
	source  []byte
	path    string
	stack   enclosingStack
	hints   map[string]string // local var name -> constructor type, trivial same-function scope
	symbols []symbol.Symbol
	refs    []UnresolvedRef
}

func (w *rustWalk) walk(cursor *tree_sitter.TreeCursor) {
	node := cursor.Node()
	pushed := false

	switch node.Kind() {
	case "function_item":
		if sym := w.namedSymbol(node, symbol.KindFn, ""); sym != nil {
			w.symbols = append(w.symbols, *sym)
			w.stack.push(sym.ID)
			pushed = true
		}
	case "struct_item":
		w.emitNamed(node, symbol.KindStruct, "")
	case "enum_item":
		w.emitNamed(node, symbol.KindEnum, "")
	case "trait_item":
		w.emitNamed(node, symbol.KindTrait, "")
	case "mod_item":
		w.emitNamed(node, symbol.KindMod, "")
	case "impl_item":
		w.walkImpl(node)
		return
	case "let_declaration":
		w.recordLetHint(node)
	case "call_expression":
		w.emitCall(node)
	}

	if cursor.GotoFirstChild() {
		w.walk(cursor)
		for cursor.GotoNextSibling() {
			w.walk(cursor)
		}
		cursor.GotoParent()
	}

	if pushed {
		w.stack.pop()
	}
}

func (w *rustWalk) namedSymbol(node *tree_sitter.Node, kind symbol.Kind, container string) *symbol.Symbol {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := nameNode.Utf8Text(w.source)
	if name == "" {
		return nil
	}
	startLine := int(node.StartPosition().Row) + 1
	sym := symbol.Symbol{
		Language:  symbol.Rust,
		Path:      w.path,
		Kind:      kind,
		Name:      name,
		LineStart: startLine,
		LineEnd:   int(node.EndPosition().Row) + 1,
		Container: container,
	}
	sym.ID = symbol.ID{
		Language:  symbol.Rust,
		Path:      w.path,
		Kind:      kind,
		Name:      name,
		Line:      startLine,
		Container: container,
	}
	return &sym
}

func (w *rustWalk) emitNamed(node *tree_sitter.Node, kind symbol.Kind, container string) {
	if sym := w.namedSymbol(node, kind, container); sym != nil {
		w.symbols = append(w.symbols, *sym)
	}
}

// walkImpl extracts methods inside an impl body, container-qualified by
// the impl target type, and pushes each method as the enclosing
// declaration while its body is walked.
func (w *rustWalk) walkImpl(node *tree_sitter.Node) {
	typeNode := node.ChildByFieldName("type")
	container := ""
	if typeNode != nil {
		container = typeNode.Utf8Text(w.source)
	}
	bodyNode := node.ChildByFieldName("body")
	if bodyNode == nil {
		return
	}
	for i := uint(0); i < bodyNode.ChildCount(); i++ {
		child := bodyNode.Child(i)
		if child == nil || child.Kind() != "function_item" {
			continue
		}
		if sym := w.namedSymbol(child, symbol.KindMethod, container); sym != nil {
			w.symbols = append(w.symbols, *sym)
			// Method bodies are walked here rather than by the generic
			// cursor-based recursion (the impl_item case returns early),
			// so enclosure is pushed/popped around each one explicitly.
			w.walkMethodBody(child, sym.ID)
		}
	}
}

// walkMethodBody walks node's children (not node itself, which is the
// method's own function_item and would otherwise re-match the
// function_item case and push a second, spurious Fn symbol).
func (w *rustWalk) walkMethodBody(node *tree_sitter.Node, id symbol.ID) {
	w.stack.push(id)
	defer w.stack.pop()
	cursor := node.Walk()
	defer cursor.Close()
	if cursor.GotoFirstChild() {
		w.walk(cursor)
		for cursor.GotoNextSibling() {
			w.walk(cursor)
		}
	}
}

// recordLetHint captures `let x = Type::new(...)`-shaped bindings so a
// later `x.method()` call can be biased toward Type's methods, per the
// receiver-type resolution tie-break.
func (w *rustWalk) recordLetHint(node *tree_sitter.Node) {
	pattern := node.ChildByFieldName("pattern")
	value := node.ChildByFieldName("value")
	if pattern == nil || value == nil || pattern.Kind() != "identifier" {
		return
	}
	if value.Kind() != "call_expression" {
		return
	}
	fn := value.ChildByFieldName("function")
	if fn == nil || fn.Kind() != "scoped_identifier" {
		return
	}
	text := fn.Utf8Text(w.source)
	path := fn.ChildByFieldName("path")
	if path == nil {
		return
	}
	typeName := path.Utf8Text(w.source)
	if typeName == "" || text == "" {
		return
	}
	w.hints[pattern.Utf8Text(w.source)] = typeName
}

func (w *rustWalk) emitCall(node *tree_sitter.Node) {
	fnNode := node.ChildByFieldName("function")
	if fnNode == nil {
		return
	}
	from, ok := w.stack.top()
	if !ok {
		return
	}
	line := int(node.StartPosition().Row) + 1

	switch fnNode.Kind() {
	case "identifier":
		name := fnNode.Utf8Text(w.source)
		if name == "" {
			return
		}
		w.refs = append(w.refs, UnresolvedRef{
			Name: name, Kind: symbol.RefCall, Path: w.path, Line: line, From: from,
		})
	case "scoped_identifier":
		path := fnNode.ChildByFieldName("path")
		nameNode := fnNode.ChildByFieldName("name")
		if nameNode == nil {
			return
		}
		qualifier := ""
		if path != nil {
			qualifier = path.Utf8Text(w.source)
		}
		w.refs = append(w.refs, UnresolvedRef{
			Name: nameNode.Utf8Text(w.source), Kind: symbol.RefCall, Path: w.path, Line: line,
			Qualifier: qualifier, From: from,
		})
	case "field_expression":
		valueNode := fnNode.ChildByFieldName("value")
		fieldNode := fnNode.ChildByFieldName("field")
		if fieldNode == nil {
			return
		}
		qualifier := ""
		if valueNode != nil && valueNode.Kind() == "identifier" {
			if hint, ok := w.hints[valueNode.Utf8Text(w.source)]; ok {
				qualifier = hint
			}
		}
		w.refs = append(w.refs, UnresolvedRef{
			Name: fieldNode.Utf8Text(w.source), Kind: symbol.RefCall, Path: w.path, Line: line,
			Qualifier: qualifier, IsMethod: true, From: from,
		})
	}
}
