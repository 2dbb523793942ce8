package cache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/dimpact/internal/symbol"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	dir := t.TempDir()
	paths := Paths{Dir: dir, DB: filepath.Join(dir, "index.db")}
	c, err := Open(paths, "test")
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestResolvePathsLocalAndOverride(t *testing.T) {
	p := ResolvePaths(Local, "", "/repo")
	assert.Contains(t, p.Dir, "/repo")
	assert.Contains(t, p.Dir, SchemaVersion)

	override := ResolvePaths(Local, "/tmp/custom-cache", "/repo")
	assert.Equal(t, "/tmp/custom-cache", override.Dir)
}

func TestResolvePathsGlobalKeyedByRepo(t *testing.T) {
	a := ResolvePaths(Global, "", "/repo/one")
	b := ResolvePaths(Global, "", "/repo/two")
	assert.NotEqual(t, a.Dir, b.Dir)
}

func TestOpenCreatesSchemaAndStatsAreZero(t *testing.T) {
	c := openTestCache(t)
	stats, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
}

func TestUpdatePathsInsertsAndReplaceEdgesTwoPhase(t *testing.T) {
	c := openTestCache(t)

	fooID := symbol.ID{Language: symbol.Rust, Path: "src/a.rs", Kind: symbol.KindFn, Name: "foo", Line: 1}
	barID := symbol.ID{Language: symbol.Rust, Path: "src/b.rs", Kind: symbol.KindFn, Name: "bar", Line: 1}

	err := c.UpdatePaths([]PathUpdate{
		{
			Path: "src/a.rs", Language: symbol.Rust, ContentHash: "h1", Present: true,
			Symbols: []symbol.Symbol{{ID: fooID, Path: "src/a.rs", Name: "foo", Kind: symbol.KindFn, LineStart: 1, LineEnd: 3}},
		},
		{
			Path: "src/b.rs", Language: symbol.Rust, ContentHash: "h2", Present: true,
			Symbols: []symbol.Symbol{{ID: barID, Path: "src/b.rs", Name: "bar", Kind: symbol.KindFn, LineStart: 1, LineEnd: 3}},
		},
	})
	require.NoError(t, err)

	stats, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Files)
	assert.Equal(t, 2, stats.Symbols)
	assert.Equal(t, 0, stats.Edges)

	err = c.ReplaceEdges("src/a.rs", []symbol.Reference{{From: fooID, To: barID, Kind: symbol.RefCall}})
	require.NoError(t, err)

	stats, err = c.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Edges)

	syms, refs, err := c.LoadGraph()
	require.NoError(t, err)
	assert.Len(t, syms, 2)
	require.Len(t, refs, 1)
	assert.Equal(t, fooID, refs[0].From)
	assert.Equal(t, barID, refs[0].To)
}

func TestUpdatePathsAbsentDropsRow(t *testing.T) {
	c := openTestCache(t)
	fooID := symbol.ID{Language: symbol.Rust, Path: "src/a.rs", Kind: symbol.KindFn, Name: "foo", Line: 1}
	require.NoError(t, c.UpdatePaths([]PathUpdate{
		{Path: "src/a.rs", Language: symbol.Rust, ContentHash: "h1", Present: true,
			Symbols: []symbol.Symbol{{ID: fooID, Path: "src/a.rs", Name: "foo", Kind: symbol.KindFn, LineStart: 1, LineEnd: 3}}},
	}))
	require.NoError(t, c.UpdatePaths([]PathUpdate{{Path: "src/a.rs", Present: false}}))

	stats, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
}

func TestVerifyReportsStaleAndMissing(t *testing.T) {
	c := openTestCache(t)
	fooID := symbol.ID{Language: symbol.Rust, Path: "src/a.rs", Kind: symbol.KindFn, Name: "foo", Line: 1}
	require.NoError(t, c.UpdatePaths([]PathUpdate{
		{Path: "src/a.rs", Language: symbol.Rust, ContentHash: "h1", Present: true,
			Symbols: []symbol.Symbol{{ID: fooID, Path: "src/a.rs", Name: "foo", Kind: symbol.KindFn, LineStart: 1, LineEnd: 3}}},
	}))

	stale, missing, err := c.Verify(map[string]string{"src/a.rs": "h2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"src/a.rs"}, stale)
	assert.Empty(t, missing)

	stale, missing, err = c.Verify(map[string]string{})
	require.NoError(t, err)
	assert.Empty(t, stale)
	assert.Equal(t, []string{"src/a.rs"}, missing)
}

func TestHashContentDeterministic(t *testing.T) {
	assert.Equal(t, HashContent([]byte("hello")), HashContent([]byte("hello")))
	assert.NotEqual(t, HashContent([]byte("hello")), HashContent([]byte("world")))
}
