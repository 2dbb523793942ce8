// Package impact runs the bounded breadth-first propagation that turns
// a seed set into the impacted set, in either traversal direction, with
// optional per-seed partitioning and edge inclusion.
package impact

import (
	"context"
	"sort"

	"github.com/dusk-indust/dimpact/internal/graphbuild"
	"github.com/dusk-indust/dimpact/internal/symbol"
)

// Direction selects which adjacency the BFS follows. Both is the union
// of two independent BFS traversals seeded identically — not a single
// BFS sharing one visited set across directions, which would under-
// report depth for nodes reachable both ways.
type Direction string

const (
	Callers Direction = "callers"
	Callees Direction = "callees"
	Both    Direction = "both"
)

// DefaultMaxDepth encodes "unbounded" as a large but finite ceiling, so
// the BFS loop invariant (bounded hop count) never needs a special case.
const DefaultMaxDepth = 1 << 20

// Options configures one impact run.
type Options struct {
	Direction Direction
	MaxDepth  int
	WithEdges bool
	PerSeed   bool
}

// SeedPartition is one seed's independently-computed impact, reported
// when Options.PerSeed is set. With Direction=Both, the caller and
// callee partitions are reported separately rather than merged.
type SeedPartition struct {
	Seed    symbol.ID
	Callers []symbol.ID
	Callees []symbol.ID
}

// Output is the result of one impact run.
type Output struct {
	Seeds    []symbol.ID
	Impacted []symbol.ID
	Edges    []symbol.Reference
	PerSeed  []SeedPartition
}

// Run executes the impact algorithm over g from seeds under opts.
// Seeds are always excluded from Impacted (self-exclusion). Impacted
// and Edges are sorted by canonical SymbolId string for deterministic
// output.
func Run(ctx context.Context, g *graphbuild.Graph, seeds []symbol.ID, opts Options) Output {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	impactedSet := bfsUnion(ctx, g, seeds, opts.Direction, maxDepth)
	impacted := make([]symbol.ID, 0, len(impactedSet))
	for id := range impactedSet {
		impacted = append(impacted, id)
	}
	symbol.SortIDs(impacted)

	out := Output{Seeds: append([]symbol.ID(nil), seeds...), Impacted: impacted}
	symbol.SortIDs(out.Seeds)

	if opts.WithEdges {
		out.Edges = edgesWithin(g, seeds, impactedSet)
	}
	if opts.PerSeed {
		out.PerSeed = perSeedPartitions(ctx, g, seeds, opts.Direction, maxDepth)
	}
	return out
}

// bfsUnion computes the impacted set (seeds excluded) for the whole
// seed set, unioning independent callers/callees traversals when
// Direction is Both.
func bfsUnion(ctx context.Context, g *graphbuild.Graph, seeds []symbol.ID, direction Direction, maxDepth int) map[symbol.ID]struct{} {
	union := make(map[symbol.ID]struct{})
	switch direction {
	case Callers:
		for id := range bfs(ctx, g, seeds, graphbuild.Callers, maxDepth) {
			union[id] = struct{}{}
		}
	case Callees:
		for id := range bfs(ctx, g, seeds, graphbuild.Callees, maxDepth) {
			union[id] = struct{}{}
		}
	case Both:
		for id := range bfs(ctx, g, seeds, graphbuild.Callers, maxDepth) {
			union[id] = struct{}{}
		}
		for id := range bfs(ctx, g, seeds, graphbuild.Callees, maxDepth) {
			union[id] = struct{}{}
		}
	}
	return union
}

// bfs runs one breadth-first traversal from seeds, following direction,
// bounded by maxDepth hops, and returns every node reached (seeds
// excluded — they seed the frontier but are never themselves impacted).
// ctx is checked once per dequeued node, so a cancelled run stops
// between hops rather than mid-expansion.
func bfs(ctx context.Context, g *graphbuild.Graph, seeds []symbol.ID, direction graphbuild.Direction, maxDepth int) map[symbol.ID]struct{} {
	type frontierNode struct {
		id    symbol.ID
		depth int
	}
	seen := make(map[symbol.ID]struct{}, len(seeds))
	queue := make([]frontierNode, 0, len(seeds))
	for _, s := range seeds {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		queue = append(queue, frontierNode{id: s, depth: 0})
	}

	impacted := make(map[symbol.ID]struct{})
	for len(queue) > 0 {
		if ctx.Err() != nil {
			return impacted
		}
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}
		for nb := range g.Neighbors(cur.id, direction) {
			if _, dup := seen[nb]; dup {
				continue
			}
			seen[nb] = struct{}{}
			impacted[nb] = struct{}{}
			queue = append(queue, frontierNode{id: nb, depth: cur.depth + 1})
		}
	}
	return impacted
}

// edgesWithin returns every Graph edge whose endpoints are both in
// seeds ∪ impacted, sorted by (from, to) canonical string.
func edgesWithin(g *graphbuild.Graph, seeds []symbol.ID, impacted map[symbol.ID]struct{}) []symbol.Reference {
	inSet := make(map[symbol.ID]struct{}, len(seeds)+len(impacted))
	for _, s := range seeds {
		inSet[s] = struct{}{}
	}
	for id := range impacted {
		inSet[id] = struct{}{}
	}

	var edges []symbol.Reference
	for _, e := range g.Edges {
		_, fromOK := inSet[e.From]
		_, toOK := inSet[e.To]
		if fromOK && toOK {
			edges = append(edges, e)
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From.String() != edges[j].From.String() {
			return edges[i].From.String() < edges[j].From.String()
		}
		return edges[i].To.String() < edges[j].To.String()
	})
	return edges
}

func perSeedPartitions(ctx context.Context, g *graphbuild.Graph, seeds []symbol.ID, direction Direction, maxDepth int) []SeedPartition {
	partitions := make([]SeedPartition, 0, len(seeds))
	for _, seed := range seeds {
		p := SeedPartition{Seed: seed}
		if direction == Callers || direction == Both {
			ids := setToSortedIDs(bfs(ctx, g, []symbol.ID{seed}, graphbuild.Callers, maxDepth))
			p.Callers = ids
		}
		if direction == Callees || direction == Both {
			ids := setToSortedIDs(bfs(ctx, g, []symbol.ID{seed}, graphbuild.Callees, maxDepth))
			p.Callees = ids
		}
		partitions = append(partitions, p)
	}
	sort.Slice(partitions, func(i, j int) bool {
		return partitions[i].Seed.String() < partitions[j].Seed.String()
	})
	return partitions
}

func setToSortedIDs(set map[symbol.ID]struct{}) []symbol.ID {
	ids := make([]symbol.ID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	symbol.SortIDs(ids)
	return ids
}
