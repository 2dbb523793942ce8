package lang

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/dusk-indust/dimpact/internal/symbol"
)

func javascriptGrammar() *tree_sitter.Language {
	return tree_sitter.NewLanguage(tree_sitter_javascript.Language())
}

func typescriptGrammar() *tree_sitter.Language {
	return tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
}

func tsxGrammar() *tree_sitter.Language {
	return tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTSX())
}

// jsExtractor recovers function/class/interface/type/enum declarations,
// arrow functions assigned to a named binding, class methods, and
// call-expression reference sites from JavaScript, TypeScript, and TSX
// source. The three grammars share node-kind vocabulary for everything
// but interface/type/enum, which simply never occur in plain JS trees.
type jsExtractor struct {
	lang symbol.Language
}

func (e *jsExtractor) Extract(root *tree_sitter.Node, source []byte, path string) ([]symbol.Symbol, []UnresolvedRef) {
	w := &jsWalk{source: source, path: path, lang: e.lang, hints: make(map[string]string)}
	var containers []string
	w.walk(root, &containers)
	return w.symbols, w.refs
}

type jsWalk struct {
	source  []byte
	path    string
	lang    symbol.Language
	stack   enclosingStack
	hints   map[string]string
	symbols []symbol.Symbol
	refs    []UnresolvedRef
}

func (w *jsWalk) container(containers *[]string) string {
	if len(*containers) == 0 {
		return ""
	}
	return (*containers)[len(*containers)-1]
}

func (w *jsWalk) walk(node *tree_sitter.Node, containers *[]string) {
	switch node.Kind() {
	case "function_declaration":
		w.declare(node, symbol.KindFn, "", containers, true)
		return
	case "class_declaration":
		w.walkClass(node, containers)
		return
	case "interface_declaration":
		w.declare(node, symbol.KindInterface, "", containers, false)
	case "type_alias_declaration":
		w.declare(node, symbol.KindType, "", containers, false)
	case "enum_declaration":
		w.declare(node, symbol.KindEnum, "", containers, false)
	case "lexical_declaration", "variable_declaration":
		w.walkLexical(node, containers)
		return
	case "variable_declarator":
		w.recordNewHint(node)
	case "call_expression":
		w.emitCall(node, containers)
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		if child := node.Child(i); child != nil {
			w.walk(child, containers)
		}
	}
}

func (w *jsWalk) declare(node *tree_sitter.Node, kind symbol.Kind, container string, containers *[]string, pushEnclosure bool) *symbol.Symbol {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		for i := uint(0); i < node.ChildCount(); i++ {
			if child := node.Child(i); child != nil {
				w.walk(child, containers)
			}
		}
		return nil
	}
	name := nameNode.Utf8Text(w.source)
	startLine := int(node.StartPosition().Row) + 1
	sym := symbol.Symbol{
		Language: w.lang, Path: w.path, Kind: kind, Name: name,
		LineStart: startLine, LineEnd: int(node.EndPosition().Row) + 1, Container: container,
	}
	sym.ID = symbol.ID{
		Language: w.lang, Path: w.path, Kind: kind, Name: name, Line: startLine, Container: container,
	}
	w.symbols = append(w.symbols, sym)

	if pushEnclosure {
		w.stack.push(sym.ID)
		for i := uint(0); i < node.ChildCount(); i++ {
			if child := node.Child(i); child != nil {
				w.walk(child, containers)
			}
		}
		w.stack.pop()
	}
	return &sym
}

func (w *jsWalk) walkClass(node *tree_sitter.Node, containers *[]string) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		for i := uint(0); i < node.ChildCount(); i++ {
			if child := node.Child(i); child != nil {
				w.walk(child, containers)
			}
		}
		return
	}
	name := nameNode.Utf8Text(w.source)
	container := w.container(containers)
	startLine := int(node.StartPosition().Row) + 1
	sym := symbol.Symbol{
		Language: w.lang, Path: w.path, Kind: symbol.KindClass, Name: name,
		LineStart: startLine, LineEnd: int(node.EndPosition().Row) + 1, Container: container,
	}
	sym.ID = symbol.ID{
		Language: w.lang, Path: w.path, Kind: symbol.KindClass, Name: name, Line: startLine, Container: container,
	}
	w.symbols = append(w.symbols, sym)

	*containers = append(*containers, name)
	w.stack.push(sym.ID)
	body := node.ChildByFieldName("body")
	if body != nil {
		for i := uint(0); i < body.ChildCount(); i++ {
			child := body.Child(i)
			if child == nil {
				continue
			}
			if child.Kind() == "method_definition" {
				w.declareMethod(child, name, containers)
				continue
			}
			w.walk(child, containers)
		}
	}
	w.stack.pop()
	*containers = (*containers)[:len(*containers)-1]
}

func (w *jsWalk) declareMethod(node *tree_sitter.Node, className string, containers *[]string) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Utf8Text(w.source)
	startLine := int(node.StartPosition().Row) + 1
	sym := symbol.Symbol{
		Language: w.lang, Path: w.path, Kind: symbol.KindMethod, Name: name,
		LineStart: startLine, LineEnd: int(node.EndPosition().Row) + 1, Container: className,
	}
	sym.ID = symbol.ID{
		Language: w.lang, Path: w.path, Kind: symbol.KindMethod, Name: name, Line: startLine, Container: className,
	}
	w.symbols = append(w.symbols, sym)

	w.stack.push(sym.ID)
	for i := uint(0); i < node.ChildCount(); i++ {
		if child := node.Child(i); child != nil {
			w.walk(child, containers)
		}
	}
	w.stack.pop()
}

// walkLexical looks for arrow-function-valued declarators:
// `const foo = () => { ... }` / `let bar = function() {}`.
func (w *jsWalk) walkLexical(node *tree_sitter.Node, containers *[]string) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil || child.Kind() != "variable_declarator" {
			continue
		}
		valueNode := child.ChildByFieldName("value")
		nameNode := child.ChildByFieldName("name")
		if valueNode == nil || nameNode == nil {
			continue
		}
		if valueNode.Kind() != "arrow_function" && valueNode.Kind() != "function_expression" {
			w.recordNewHint(child)
			continue
		}
		name := nameNode.Utf8Text(w.source)
		container := w.container(containers)
		startLine := int(child.StartPosition().Row) + 1
		sym := symbol.Symbol{
			Language: w.lang, Path: w.path, Kind: symbol.KindFn, Name: name,
			LineStart: startLine, LineEnd: int(child.EndPosition().Row) + 1, Container: container,
		}
		sym.ID = symbol.ID{
			Language: w.lang, Path: w.path, Kind: symbol.KindFn, Name: name, Line: startLine, Container: container,
		}
		w.symbols = append(w.symbols, sym)

		w.stack.push(sym.ID)
		w.walk(valueNode, containers)
		w.stack.pop()
	}
}

// recordNewHint captures `const x = new Type(...)` so a later
// `x.method()` call can be biased toward Type's methods.
func (w *jsWalk) recordNewHint(declarator *tree_sitter.Node) {
	nameNode := declarator.ChildByFieldName("name")
	valueNode := declarator.ChildByFieldName("value")
	if nameNode == nil || valueNode == nil || nameNode.Kind() != "identifier" || valueNode.Kind() != "new_expression" {
		return
	}
	ctor := valueNode.ChildByFieldName("constructor")
	if ctor == nil {
		return
	}
	w.hints[nameNode.Utf8Text(w.source)] = ctor.Utf8Text(w.source)
}

func (w *jsWalk) emitCall(node *tree_sitter.Node, containers *[]string) {
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
		w.refs = append(w.refs, UnresolvedRef{Name: name, Kind: symbol.RefCall, Path: w.path, Line: line, From: from})
	case "member_expression":
		objectNode := fnNode.ChildByFieldName("object")
		propertyNode := fnNode.ChildByFieldName("property")
		if propertyNode == nil {
			return
		}
		qualifier := ""
		if objectNode != nil {
			switch objectNode.Kind() {
			case "identifier":
				if hint, ok := w.hints[objectNode.Utf8Text(w.source)]; ok {
					qualifier = hint
				}
			case "this":
				qualifier = w.container(containers)
			}
		}
		w.refs = append(w.refs, UnresolvedRef{
			Name: propertyNode.Utf8Text(w.source), Kind: symbol.RefCall, Path: w.path, Line: line,
			Qualifier: qualifier, IsMethod: true, From: from,
		})
	}
}
