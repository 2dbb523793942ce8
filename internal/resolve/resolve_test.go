package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/dimpact/internal/lang"
	"github.com/dusk-indust/dimpact/internal/symbol"
)

func sym(path, name string, kind symbol.Kind, line int, container string) symbol.Symbol {
	return symbol.Symbol{
		ID:        symbol.ID{Language: symbol.Rust, Path: path, Kind: kind, Name: name, Line: line, Container: container},
		Language:  symbol.Rust,
		Path:      path,
		Kind:      kind,
		Name:      name,
		LineStart: line,
		LineEnd:   line + 5,
		Container: container,
	}
}

func TestResolveUnqualifiedCallPrefersSameFile(t *testing.T) {
	caller := sym("src/b.rs", "bar", symbol.KindFn, 5, "")
	here := sym("src/b.rs", "foo", symbol.KindFn, 1, "")
	elsewhere := sym("src/c.rs", "foo", symbol.KindFn, 1, "")
	idx := NewIndex([]symbol.Symbol{here, elsewhere})

	ref := lang.UnresolvedRef{Name: "foo", Kind: symbol.RefCall, Path: "src/b.rs", Line: 6, From: caller.ID}
	refs := Resolve(ref, idx)
	require.Len(t, refs, 1)
	assert.Equal(t, here.ID, refs[0].To)
}

func TestResolveAmbiguousCallFansOut(t *testing.T) {
	caller := sym("src/c.rs", "caller", symbol.KindFn, 1, "")
	a := sym("src/a.rs", "save", symbol.KindMethod, 1, "Widget")
	b := sym("src/b.rs", "save", symbol.KindMethod, 1, "Gadget")
	idx := NewIndex([]symbol.Symbol{a, b})

	ref := lang.UnresolvedRef{Name: "save", Kind: symbol.RefCall, Path: "src/c.rs", Line: 2, IsMethod: true, From: caller.ID}
	refs := Resolve(ref, idx)
	require.Len(t, refs, 2)
}

func TestResolveQualifierNarrowsToReceiverType(t *testing.T) {
	caller := sym("src/c.rs", "caller", symbol.KindFn, 1, "")
	wNew := sym("src/a.rs", "save", symbol.KindMethod, 1, "Widget")
	gNew := sym("src/b.rs", "save", symbol.KindMethod, 1, "Gadget")
	idx := NewIndex([]symbol.Symbol{wNew, gNew})

	ref := lang.UnresolvedRef{Name: "save", Kind: symbol.RefCall, Path: "src/c.rs", Line: 2, IsMethod: true, Qualifier: "Widget", From: caller.ID}
	refs := Resolve(ref, idx)
	require.Len(t, refs, 1)
	assert.Equal(t, wNew.ID, refs[0].To)
}

func TestResolveUnqualifiedPrefersFnOverMethod(t *testing.T) {
	caller := sym("src/c.rs", "caller", symbol.KindFn, 1, "")
	fn := sym("src/z.rs", "helper", symbol.KindFn, 1, "")
	method := sym("src/y.rs", "helper", symbol.KindMethod, 1, "Thing")
	idx := NewIndex([]symbol.Symbol{fn, method})

	ref := lang.UnresolvedRef{Name: "helper", Kind: symbol.RefCall, Path: "src/c.rs", Line: 2, IsMethod: false, From: caller.ID}
	refs := Resolve(ref, idx)
	require.Len(t, refs, 1)
	assert.Equal(t, fn.ID, refs[0].To)
}

func TestResolveNoCandidatesYieldsNoEdge(t *testing.T) {
	caller := sym("src/c.rs", "caller", symbol.KindFn, 1, "")
	idx := NewIndex(nil)
	ref := lang.UnresolvedRef{Name: "unknown", Kind: symbol.RefCall, Path: "src/c.rs", Line: 2, From: caller.ID}
	assert.Empty(t, Resolve(ref, idx))
}

func TestResolveAllDeduplicates(t *testing.T) {
	caller := sym("src/c.rs", "caller", symbol.KindFn, 1, "")
	target := sym("src/a.rs", "foo", symbol.KindFn, 1, "")
	idx := NewIndex([]symbol.Symbol{target})

	refs := []lang.UnresolvedRef{
		{Name: "foo", Kind: symbol.RefCall, Path: "src/c.rs", Line: 2, From: caller.ID},
		{Name: "foo", Kind: symbol.RefCall, Path: "src/c.rs", Line: 3, From: caller.ID},
	}
	out := ResolveAll(refs, idx)
	require.Len(t, out, 1)
	assert.Equal(t, target.ID, out[0].To)
}
