package diffparse

import "github.com/dusk-indust/dimpact/internal/symbol"

// ChangedRanges projects parsed file diffs into per-path added/removed
// line sets. Added lines are tracked in new-path coordinates, removed
// lines in old-path coordinates, per the diff parser's contract.
func ChangedRanges(files []FileChanges) []*symbol.ChangedRange {
	ranges := make([]*symbol.ChangedRange, 0, len(files))
	for _, f := range files {
		if f.Binary {
			continue
		}
		cr := symbol.NewChangedRange(f.Path())
		for _, h := range f.Hunks {
			for _, line := range h.Lines {
				switch line.Op {
				case Added:
					cr.AddedLines[line.NewLine] = struct{}{}
				case Removed:
					cr.RemovedLines[line.OldLine] = struct{}{}
				}
			}
		}
		ranges = append(ranges, cr)
	}
	return ranges
}

// ChangedSet intersects each ChangedRange's added lines against the
// current workspace's Symbols, producing the deduplicated, deterministically
// ordered changed set. Removed lines never participate: a pure deletion
// diff contributes nothing, since the declaration no longer exists in
// the new tree. A changed file with no recognized declarations (e.g. a
// comment-only diff) contributes no symbols — this is not an error.
func ChangedSet(ranges []*symbol.ChangedRange, workspace []symbol.Symbol) []symbol.Symbol {
	byPath := make(map[string][]symbol.Symbol)
	for _, s := range workspace {
		byPath[s.Path] = append(byPath[s.Path], s)
	}

	seen := make(map[symbol.ID]struct{})
	var out []symbol.Symbol
	for _, cr := range ranges {
		for _, s := range byPath[cr.Path] {
			if !cr.Intersects(s.LineStart, s.LineEnd) {
				continue
			}
			if _, dup := seen[s.ID]; dup {
				continue
			}
			seen[s.ID] = struct{}{}
			out = append(out, s)
		}
	}
	symbol.SortSymbols(out)
	return out
}
