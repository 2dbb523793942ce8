package lang

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_ruby "github.com/tree-sitter/tree-sitter-ruby/bindings/go"

	"github.com/dusk-indust/dimpact/internal/symbol"
)

func rubyGrammar() *tree_sitter.Language {
	return tree_sitter.NewLanguage(tree_sitter_ruby.Language())
}

// rubyExtractor recovers class/module/def declarations and call
// reference sites from Ruby source.
type rubyExtractor struct{}

func (e *rubyExtractor) Extract(root *tree_sitter.Node, source []byte, path string) ([]symbol.Symbol, []UnresolvedRef) {
	w := &rubyWalk{source: source, path: path, hints: make(map[string]string)}
	var containers []string
	w.walk(root, &containers)
	return w.symbols, w.refs
}

type rubyWalk struct {
	source  []byte
	path    string
	stack   enclosingStack
	hints   map[string]string
	symbols []symbol.Symbol
	refs    []UnresolvedRef
}

func (w *rubyWalk) currentContainer(containers *[]string) string {
	if len(*containers) == 0 {
		return ""
	}
	return (*containers)[len(*containers)-1]
}

func (w *rubyWalk) walk(node *tree_sitter.Node, containers *[]string) {
	switch node.Kind() {
	case "class":
		w.walkContainer(node, symbol.KindClass, containers)
		return
	case "module":
		w.walkContainer(node, symbol.KindMod, containers)
		return
	case "method", "singleton_method":
		w.walkMethod(node, containers)
		return
	case "assignment":
		w.recordAssignHint(node)
	case "call":
		w.emitCall(node)
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		if child := node.Child(i); child != nil {
			w.walk(child, containers)
		}
	}
}

// walkContainer handles class/module: emits the container declaration,
// pushes it both onto the enclosing stack (for any top-level statements
// directly in its body) and the container-name stack (for qualifying
// nested methods), then walks children.
func (w *rubyWalk) walkContainer(node *tree_sitter.Node, kind symbol.Kind, containers *[]string) {
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
	startLine := int(node.StartPosition().Row) + 1
	container := w.currentContainer(containers)
	sym := symbol.Symbol{
		Language: symbol.Ruby, Path: w.path, Kind: kind, Name: name,
		LineStart: startLine, LineEnd: int(node.EndPosition().Row) + 1, Container: container,
	}
	sym.ID = symbol.ID{
		Language: symbol.Ruby, Path: w.path, Kind: kind, Name: name, Line: startLine, Container: container,
	}
	w.symbols = append(w.symbols, sym)

	qualified := name
	if container != "" {
		qualified = container + "::" + name
	}
	*containers = append(*containers, qualified)
	w.stack.push(sym.ID)
	for i := uint(0); i < node.ChildCount(); i++ {
		if child := node.Child(i); child != nil {
			w.walk(child, containers)
		}
	}
	w.stack.pop()
	*containers = (*containers)[:len(*containers)-1]
}

func (w *rubyWalk) walkMethod(node *tree_sitter.Node, containers *[]string) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Utf8Text(w.source)
	container := w.currentContainer(containers)
	kind := symbol.KindFn
	if container != "" {
		kind = symbol.KindMethod
	}
	startLine := int(node.StartPosition().Row) + 1
	sym := symbol.Symbol{
		Language: symbol.Ruby, Path: w.path, Kind: kind, Name: name,
		LineStart: startLine, LineEnd: int(node.EndPosition().Row) + 1, Container: container,
	}
	sym.ID = symbol.ID{
		Language: symbol.Ruby, Path: w.path, Kind: kind, Name: name, Line: startLine, Container: container,
	}
	w.symbols = append(w.symbols, sym)

	w.stack.push(sym.ID)
	defer w.stack.pop()
	for i := uint(0); i < node.ChildCount(); i++ {
		if child := node.Child(i); child != nil {
			w.walk(child, containers)
		}
	}
}

// recordAssignHint captures `x = Type.new` so a later `x.method` call
// can be biased toward Type's methods.
func (w *rubyWalk) recordAssignHint(node *tree_sitter.Node) {
	left := node.ChildByFieldName("left")
	right := node.ChildByFieldName("right")
	if left == nil || right == nil || left.Kind() != "identifier" || right.Kind() != "call" {
		return
	}
	method := right.ChildByFieldName("method")
	receiver := right.ChildByFieldName("receiver")
	if method == nil || receiver == nil || method.Utf8Text(w.source) != "new" {
		return
	}
	w.hints[left.Utf8Text(w.source)] = receiver.Utf8Text(w.source)
}

func (w *rubyWalk) emitCall(node *tree_sitter.Node) {
	methodNode := node.ChildByFieldName("method")
	if methodNode == nil {
		return
	}
	from, ok := w.stack.top()
	if !ok {
		return
	}
	name := methodNode.Utf8Text(w.source)
	if name == "" {
		return
	}
	line := int(node.StartPosition().Row) + 1
	qualifier := ""
	isMethod := false
	if receiver := node.ChildByFieldName("receiver"); receiver != nil {
		isMethod = true
		if receiver.Kind() == "identifier" {
			if hint, ok := w.hints[receiver.Utf8Text(w.source)]; ok {
				qualifier = hint
			}
		} else if receiver.Kind() == "constant" {
			qualifier = receiver.Utf8Text(w.source)
		}
	}
	w.refs = append(w.refs, UnresolvedRef{
		Name: name, Kind: symbol.RefCall, Path: w.path, Line: line,
		Qualifier: qualifier, IsMethod: isMethod, From: from,
	})
}
