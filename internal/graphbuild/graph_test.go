package graphbuild

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/dimpact/internal/symbol"
)

func mkID(name string) symbol.ID {
	return symbol.ID{Language: symbol.Rust, Path: "src/a.rs", Kind: symbol.KindFn, Name: name, Line: 1}
}

func TestNewDropsDanglingEdges(t *testing.T) {
	a := mkID("a")
	ghost := mkID("ghost")
	syms := []symbol.Symbol{{ID: a, Path: "src/a.rs", Name: "a", Kind: symbol.KindFn, LineStart: 1, LineEnd: 2}}
	refs := []symbol.Reference{{From: a, To: ghost, Kind: symbol.RefCall}}

	g := New(syms, refs)
	assert.Empty(t, g.Edges)
	assert.Empty(t, g.Neighbors(a, Callees))
}

func TestNewDeduplicatesMultiEdges(t *testing.T) {
	a, b := mkID("a"), mkID("b")
	syms := []symbol.Symbol{
		{ID: a, Path: "src/a.rs", Name: "a", Kind: symbol.KindFn, LineStart: 1, LineEnd: 2},
		{ID: b, Path: "src/a.rs", Name: "b", Kind: symbol.KindFn, LineStart: 3, LineEnd: 4},
	}
	refs := []symbol.Reference{
		{From: a, To: b, Kind: symbol.RefCall},
		{From: a, To: b, Kind: symbol.RefCall},
	}
	g := New(syms, refs)
	require.Len(t, g.Edges, 1) // the second identical edge is dropped on insertion
	assert.Len(t, g.Neighbors(a, Callees), 1)
}

func TestNeighborsBothDirections(t *testing.T) {
	a, b := mkID("a"), mkID("b")
	syms := []symbol.Symbol{
		{ID: a, Path: "src/a.rs", Name: "a", Kind: symbol.KindFn, LineStart: 1, LineEnd: 2},
		{ID: b, Path: "src/a.rs", Name: "b", Kind: symbol.KindFn, LineStart: 3, LineEnd: 4},
	}
	refs := []symbol.Reference{{From: a, To: b, Kind: symbol.RefCall}}
	g := New(syms, refs)

	_, aToB := g.Neighbors(a, Callees)[b]
	assert.True(t, aToB)
	_, bToA := g.Neighbors(b, Callers)[a]
	assert.True(t, bToA)
}
