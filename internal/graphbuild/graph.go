// Package graphbuild assembles the workspace reference graph from
// cached Symbols and Edges: two adjacency maps over SymbolIds, with
// dangling edges (whose target isn't in this workspace snapshot)
// dropped during construction.
package graphbuild

import "github.com/dusk-indust/dimpact/internal/symbol"

// Graph is a directed multigraph over SymbolIds, represented as forward
// (callees) and reverse (callers) adjacency maps. Multi-edges between
// the same pair are deduplicated on insertion.
type Graph struct {
	Symbols map[symbol.ID]symbol.Symbol
	Callees map[symbol.ID]map[symbol.ID]struct{}
	Callers map[symbol.ID]map[symbol.ID]struct{}
	Edges   []symbol.Reference
}

// New builds a Graph from every Symbol and Reference known to the
// current workspace snapshot. References whose target is not present
// in symbols are dropped as dangling.
func New(symbols []symbol.Symbol, refs []symbol.Reference) *Graph {
	g := &Graph{
		Symbols: make(map[symbol.ID]symbol.Symbol, len(symbols)),
		Callees: make(map[symbol.ID]map[symbol.ID]struct{}),
		Callers: make(map[symbol.ID]map[symbol.ID]struct{}),
	}
	for _, s := range symbols {
		g.Symbols[s.ID] = s
	}
	for _, r := range refs {
		if _, ok := g.Symbols[r.To]; !ok {
			continue // dangling reference: target outside the workspace snapshot
		}
		if _, ok := g.Symbols[r.From]; !ok {
			continue
		}
		g.addEdge(r)
	}
	return g
}

func (g *Graph) addEdge(r symbol.Reference) {
	if g.Callees[r.From] == nil {
		g.Callees[r.From] = make(map[symbol.ID]struct{})
	}
	if _, dup := g.Callees[r.From][r.To]; dup {
		return
	}
	g.Callees[r.From][r.To] = struct{}{}

	if g.Callers[r.To] == nil {
		g.Callers[r.To] = make(map[symbol.ID]struct{})
	}
	g.Callers[r.To][r.From] = struct{}{}

	g.Edges = append(g.Edges, r)
}

// Neighbors returns the adjacency set for id in the given direction.
func (g *Graph) Neighbors(id symbol.ID, direction Direction) map[symbol.ID]struct{} {
	switch direction {
	case Callees:
		return g.Callees[id]
	case Callers:
		return g.Callers[id]
	default:
		return nil
	}
}

// Direction selects which adjacency map a traversal follows.
type Direction string

const (
	Callees Direction = "callees"
	Callers Direction = "callers"
)
