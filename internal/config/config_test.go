package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsZeroValue(t *testing.T) {
	opts, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, &Options{}, opts)
}

func TestLoadParsesYAML(t *testing.T) {
	dir := t.TempDir()
	content := "direction: both\nmaxDepth: 3\nwithEdges: true\nignoreDirs:\n  - vendor\n  - generated\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "impact.yml"), []byte(content), 0o644))

	opts, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "both", opts.Direction)
	assert.Equal(t, 3, opts.MaxDepth)
	assert.True(t, opts.WithEdges)
	assert.Equal(t, []string{"vendor", "generated"}, opts.IgnoreDirs)
}

func TestLoadPrefersYmlOverYaml(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "impact.yml"), []byte("direction: callers\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "impact.yaml"), []byte("direction: callees\n"), 0o644))

	opts, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "callers", opts.Direction)
}
