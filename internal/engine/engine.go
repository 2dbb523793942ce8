// Package engine orchestrates one analysis run: enumerate the
// workspace, re-analyze whatever the cache reports as stale, resolve
// references against the full symbol table, and assemble the graph the
// impact algorithm walks. It is the thin glue between the package-level
// primitives (walker, lang, resolve, cache, graphbuild, impact) and the
// command-line entrypoint.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/dimpact/internal/cache"
	"github.com/dusk-indust/dimpact/internal/diffparse"
	"github.com/dusk-indust/dimpact/internal/errs"
	"github.com/dusk-indust/dimpact/internal/graphbuild"
	"github.com/dusk-indust/dimpact/internal/impact"
	"github.com/dusk-indust/dimpact/internal/lang"
	"github.com/dusk-indust/dimpact/internal/resolve"
	"github.com/dusk-indust/dimpact/internal/symbol"
	"github.com/dusk-indust/dimpact/internal/walker"
)

// Engine ties one workspace root to one cache and one language registry.
type Engine struct {
	Root        string
	Registry    *lang.Registry
	Cache       *cache.Cache
	Concurrency int // analyzer worker-pool width; <=0 means GOMAXPROCS
}

// New builds an Engine rooted at root.
func New(root string, registry *lang.Registry, c *cache.Cache) *Engine {
	return &Engine{Root: root, Registry: registry, Cache: c}
}

type analyzed struct {
	path    string
	lang    symbol.Language
	hash    string
	mtime   int64
	symbols []symbol.Symbol
	refs    []lang.UnresolvedRef
	err     error
}

// Refresh walks the workspace, re-analyzes every file whose content hash
// no longer matches the cache, drops rows for files that vanished from
// disk, and re-resolves references for exactly the files that changed.
// Symbol replacement (phase one) and edge resolution (phase two) are
// deliberately separate cache transactions: edges must be resolved
// against the complete post-update symbol table, which phase one alone
// does not yet contain for files analyzed earlier in the same run.
func (e *Engine) Refresh(ctx context.Context, ignoreDirs []string) error {
	w, err := walker.New(e.Root, ignoreDirs)
	if err != nil {
		return err
	}
	paths, err := w.Walk()
	if err != nil {
		return err
	}
	present := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		present[p] = struct{}{}
	}

	cached, err := e.Cache.LoadFileRows()
	if err != nil {
		return err
	}

	var stale []string
	for _, p := range paths {
		row, ok := cached[p]
		if !ok {
			stale = append(stale, p)
			continue
		}
		data, rerr := os.ReadFile(e.pathOn(p))
		if rerr != nil {
			stale = append(stale, p)
			continue
		}
		if !row.Fresh(cache.HashContent(data), 0) {
			stale = append(stale, p)
		}
	}
	var deleted []string
	for cachedPath := range cached {
		if _, ok := present[cachedPath]; !ok {
			deleted = append(deleted, cachedPath)
		}
	}

	if len(stale) == 0 && len(deleted) == 0 {
		return nil
	}

	errsBefore := lang.ParseErrors()
	results, err := e.analyzeAll(ctx, stale)
	if err != nil {
		return err
	}
	if recovered := lang.ParseErrors() - errsBefore; recovered > 0 {
		log.Printf("engine: refresh recovered %d file(s) from a partial parse tree", recovered)
	}

	updates := make([]cache.PathUpdate, 0, len(results)+len(deleted))
	for _, r := range results {
		if r.err != nil {
			log.Printf("engine: skipping %s: %v", r.path, r.err)
			continue
		}
		updates = append(updates, cache.PathUpdate{
			Path: r.path, Language: r.lang, ContentHash: r.hash, MTime: r.mtime,
			Present: true, Symbols: r.symbols,
		})
	}
	for _, p := range deleted {
		updates = append(updates, cache.PathUpdate{Path: p, Present: false})
	}
	if err := e.Cache.UpdatePaths(updates); err != nil {
		if !isCacheIO(err) {
			return err
		}
		log.Printf("engine: cache write failed persistently, continuing in cache-disabled mode this run: %v", err)
		return nil
	}

	allSymbols, _, err := e.Cache.LoadGraph()
	if err != nil {
		return err
	}
	idx := resolve.NewIndex(allSymbols)

	for _, r := range results {
		if r.err != nil {
			continue
		}
		edges := resolve.ResolveAll(r.refs, idx)
		if err := e.Cache.ReplaceEdges(r.path, edges); err != nil {
			if !isCacheIO(err) {
				return err
			}
			log.Printf("engine: cache write failed persistently for %s, continuing in cache-disabled mode: %v", r.path, err)
			continue
		}
	}
	return nil
}

// isCacheIO reports whether err is a persistent cache write failure that
// withRetry already retried once, per the CacheIo disposition: the caller
// degrades to cache-disabled mode for this run rather than aborting it.
func isCacheIO(err error) bool {
	var e *errs.Error
	return errors.As(err, &e) && e.Kind == errs.CacheIO
}

// Verify reports the cache's staleness against the workspace on disk
// without mutating anything: stale paths are cached under a content
// hash that no longer matches the file, missing paths are cached but no
// longer present at all. It is a read-only counterpart to Refresh, for
// a dry-run check of whether a refresh would do any work.
func (e *Engine) Verify(ignoreDirs []string) (stale, missing []string, err error) {
	w, err := walker.New(e.Root, ignoreDirs)
	if err != nil {
		return nil, nil, err
	}
	paths, err := w.Walk()
	if err != nil {
		return nil, nil, err
	}
	current := make(map[string]string, len(paths))
	for _, p := range paths {
		data, rerr := os.ReadFile(e.pathOn(p))
		if rerr != nil {
			continue
		}
		current[p] = cache.HashContent(data)
	}
	return e.Cache.Verify(current)
}

func (e *Engine) pathOn(relPath string) string {
	if e.Root == "" {
		return relPath
	}
	return e.Root + string(os.PathSeparator) + relPath
}

// analyzeAll runs the per-file analyzer over paths under a bounded
// worker pool, checking ctx between files so a cancelled run stops
// promptly rather than draining the whole queue.
func (e *Engine) analyzeAll(ctx context.Context, paths []string) ([]analyzed, error) {
	results := make([]analyzed, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	limit := e.Concurrency
	if limit <= 0 {
		limit = defaultConcurrency()
	}
	g.SetLimit(limit)

	var mu sync.Mutex
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			a, _ := e.analyzeOne(p)
			mu.Lock()
			results[i] = a
			mu.Unlock()
			return nil // per-file errors are recorded, not propagated: one bad file must not abort the run
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *Engine) analyzeOne(relPath string) (analyzed, error) {
	l := lang.LanguageForPath(relPath)
	an := e.Registry.For(l)
	if an == nil {
		return analyzed{path: relPath, lang: l, err: fmt.Errorf("engine: no analyzer for %s", relPath)}, nil
	}
	data, err := os.ReadFile(e.pathOn(relPath))
	if err != nil {
		return analyzed{path: relPath, lang: l, err: errs.New(errs.IO, "engine.analyzeOne", err)}, nil
	}
	info, err := os.Stat(e.pathOn(relPath))
	var mtime int64
	if err == nil {
		mtime = info.ModTime().Unix()
	}
	syms, refs, err := an.Analyze(relPath, data)
	if err != nil {
		return analyzed{path: relPath, lang: l, err: err}, nil
	}
	return analyzed{
		path: relPath, lang: l, hash: cache.HashContent(data), mtime: mtime,
		symbols: syms, refs: refs,
	}, nil
}

func defaultConcurrency() int {
	return runtime.GOMAXPROCS(0)
}

// Graph assembles the in-memory reference graph from the current cache
// contents.
func (e *Engine) Graph() (*graphbuild.Graph, error) {
	syms, refs, err := e.Cache.LoadGraph()
	if err != nil {
		return nil, err
	}
	return graphbuild.New(syms, refs), nil
}

// Impact refreshes nothing by itself — callers run Refresh first — and
// runs the impact algorithm over the current cache snapshot.
func (e *Engine) Impact(ctx context.Context, seeds []symbol.ID, opts impact.Options) (impact.Output, error) {
	g, err := e.Graph()
	if err != nil {
		return impact.Output{}, err
	}
	return impact.Run(ctx, g, seeds, opts), nil
}

// SeedsFromDiff turns a unified diff into the changed-symbol seed set:
// parse the diff, project added lines per file, and intersect against
// the current cached workspace symbols.
func (e *Engine) SeedsFromDiff(diffText string) ([]symbol.ID, error) {
	files, err := diffparse.Parse(diffText)
	if err != nil {
		return nil, err
	}
	ranges := diffparse.ChangedRanges(files)
	workspace, _, err := e.Cache.LoadGraph()
	if err != nil {
		return nil, err
	}
	changed := diffparse.ChangedSet(ranges, workspace)
	ids := make([]symbol.ID, 0, len(changed))
	for _, s := range changed {
		ids = append(ids, s.ID)
	}
	return ids, nil
}
