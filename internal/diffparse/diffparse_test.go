package diffparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/dimpact/internal/symbol"
)

const simpleDiff = `diff --git a/src/a.rs b/src/a.rs
index 1111111..2222222 100644
--- a/src/a.rs
+++ b/src/a.rs
@@ -8,4 +8,5 @@ fn foo() {
 fn foo() {
     let x = 1;
+    let y = 2;
     x
 }
`

func TestParseSimpleDiff(t *testing.T) {
	files, err := Parse(simpleDiff)
	require.NoError(t, err)
	require.Len(t, files, 1)

	f := files[0]
	assert.Equal(t, "src/a.rs", f.Path())
	require.Len(t, f.Hunks, 1)

	var added []int
	for _, l := range f.Hunks[0].Lines {
		if l.Op == Added {
			added = append(added, l.NewLine)
		}
	}
	assert.Equal(t, []int{10}, added)
}

const renameDiff = `diff --git a/src/old.rs b/src/new.rs
similarity index 90%
rename from src/old.rs
rename to src/new.rs
index 1111111..2222222 100644
--- a/src/old.rs
+++ b/src/new.rs
@@ -1,2 +1,3 @@
 fn foo() {
+    let y = 2;
 }
`

func TestParseRenamePlusEditUsesNewPath(t *testing.T) {
	files, err := Parse(renameDiff)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "src/new.rs", files[0].Path())
}

func TestChangedRangesAndSet(t *testing.T) {
	files, err := Parse(simpleDiff)
	require.NoError(t, err)
	ranges := ChangedRanges(files)
	require.Len(t, ranges, 1)
	_, added := ranges[0].AddedLines[10]
	assert.True(t, added)

	workspace := []symbol.Symbol{
		{ID: symbol.ID{Language: symbol.Rust, Path: "src/a.rs", Kind: symbol.KindFn, Name: "foo", Line: 8},
			Path: "src/a.rs", LineStart: 8, LineEnd: 12, Name: "foo", Kind: symbol.KindFn},
		{ID: symbol.ID{Language: symbol.Rust, Path: "src/a.rs", Kind: symbol.KindFn, Name: "bar", Line: 20},
			Path: "src/a.rs", LineStart: 20, LineEnd: 25, Name: "bar", Kind: symbol.KindFn},
	}
	changed := ChangedSet(ranges, workspace)
	require.Len(t, changed, 1)
	assert.Equal(t, "foo", changed[0].Name)
}

func TestParseMalformedHunkInOneFileAbortsWholeStream(t *testing.T) {
	diff := `diff --git a/src/a.rs b/src/a.rs
index 1111111..2222222 100644
--- a/src/a.rs
+++ b/src/a.rs
@@ -8,4 +8,5 @@ fn foo() {
 fn foo() {
     let x = 1;
+    let y = 2;
     x
 }
diff --git a/src/b.rs b/src/b.rs
index 3333333..4444444 100644
--- a/src/b.rs
+++ b/src/b.rs
@@ garbage hunk header @@
 fn bar() {}
`
	_, err := Parse(diff)
	assert.Error(t, err)
}

func TestParseBinaryMarker(t *testing.T) {
	diff := `diff --git a/img.png b/img.png
index 1111111..2222222 100644
Binary files a/img.png and b/img.png differ
`
	files, err := Parse(diff)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.True(t, files[0].Binary)
}
