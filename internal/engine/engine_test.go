package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/dimpact/internal/cache"
	"github.com/dusk-indust/dimpact/internal/graphbuild"
	"github.com/dusk-indust/dimpact/internal/impact"
	"github.com/dusk-indust/dimpact/internal/lang"
	"github.com/dusk-indust/dimpact/internal/symbol"
)

func findByName(t *testing.T, g *graphbuild.Graph, name string) symbol.ID {
	t.Helper()
	for id, s := range g.Symbols {
		if s.Name == name {
			return id
		}
	}
	t.Fatalf("symbol %q not found in graph", name)
	return symbol.ID{}
}

func newTestEngine(t *testing.T, root string) *Engine {
	t.Helper()
	dir := t.TempDir()
	paths := cache.Paths{Dir: dir, DB: filepath.Join(dir, "index.db")}
	c, err := cache.Open(paths, "test")
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return New(root, lang.NewRegistry(), c)
}

func writeSource(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

const widgetRust = `
fn helper() {}

struct Widget {
    value: i32,
}

impl Widget {
    fn save(&self) {
        helper();
    }
}
`

func TestRefreshBuildsGraphAndResolvesEdges(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "src/widget.rs", widgetRust)

	e := newTestEngine(t, root)
	require.NoError(t, e.Refresh(context.Background(), nil))

	stats, err := e.Cache.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Files)
	assert.True(t, stats.Symbols >= 2)
	assert.Equal(t, 1, stats.Edges) // save -> helper, resolved in the same refresh

	g, err := e.Graph()
	require.NoError(t, err)
	assert.Len(t, g.Edges, 1)
}

func TestRefreshIsIdempotentWhenUnchanged(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "src/widget.rs", widgetRust)

	e := newTestEngine(t, root)
	require.NoError(t, e.Refresh(context.Background(), nil))
	statsBefore, err := e.Cache.Stats()
	require.NoError(t, err)

	require.NoError(t, e.Refresh(context.Background(), nil))
	statsAfter, err := e.Cache.Stats()
	require.NoError(t, err)
	assert.Equal(t, statsBefore, statsAfter)
}

func TestRefreshDropsDeletedFiles(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "src/widget.rs", widgetRust)

	e := newTestEngine(t, root)
	require.NoError(t, e.Refresh(context.Background(), nil))

	require.NoError(t, os.Remove(filepath.Join(root, "src/widget.rs")))
	require.NoError(t, e.Refresh(context.Background(), nil))

	stats, err := e.Cache.Stats()
	require.NoError(t, err)
	assert.Equal(t, cache.Stats{}, stats)
}

func TestImpactFindsCalleesAfterRefresh(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "src/widget.rs", widgetRust)

	e := newTestEngine(t, root)
	require.NoError(t, e.Refresh(context.Background(), nil))

	g, err := e.Graph()
	require.NoError(t, err)

	saveID := findByName(t, g, "save")
	helperID := findByName(t, g, "helper")
	out, err := e.Impact(context.Background(), []symbol.ID{saveID}, impact.Options{Direction: impact.Callees})
	require.NoError(t, err)
	assert.Contains(t, out.Impacted, helperID)
}

func TestVerifyReportsStaleAndMissingWithoutMutatingCache(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "src/widget.rs", widgetRust)

	e := newTestEngine(t, root)
	require.NoError(t, e.Refresh(context.Background(), nil))

	statsBefore, err := e.Cache.Stats()
	require.NoError(t, err)

	stale, missing, err := e.Verify(nil)
	require.NoError(t, err)
	assert.Empty(t, stale)
	assert.Empty(t, missing)

	writeSource(t, root, "src/widget.rs", widgetRust+"\nfn extra() {}\n")
	stale, missing, err = e.Verify(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/widget.rs"}, stale)
	assert.Empty(t, missing)

	statsAfter, err := e.Cache.Stats()
	require.NoError(t, err)
	assert.Equal(t, statsBefore, statsAfter) // Verify never writes

	require.NoError(t, os.Remove(filepath.Join(root, "src/widget.rs")))
	_, missing, err = e.Verify(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/widget.rs"}, missing)
}

func TestSeedsFromDiffIntersectsWorkspaceSymbols(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "src/widget.rs", widgetRust)

	e := newTestEngine(t, root)
	require.NoError(t, e.Refresh(context.Background(), nil))

	diffText := "diff --git a/src/widget.rs b/src/widget.rs\n" +
		"index 1111111..2222222 100644\n" +
		"--- a/src/widget.rs\n+++ b/src/widget.rs\n" +
		"@@ -8,5 +8,6 @@\n" +
		" impl Widget {\n" +
		"     fn save(&self) {\n" +
		"         helper();\n" +
		"+        helper();\n" +
		"     }\n" +
		" }\n"
	seeds, err := e.SeedsFromDiff(diffText)
	require.NoError(t, err)
	require.NotEmpty(t, seeds)
}
