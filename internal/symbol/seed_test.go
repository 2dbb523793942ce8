package symbol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeedsCanonicalList(t *testing.T) {
	ids, err := ParseSeeds("rust:src/a.rs:fn:foo:10,rust:src/b.rs:fn:bar:5")
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, "foo", ids[0].Name)
	assert.Equal(t, "bar", ids[1].Name)
}

func TestParseSeedsNewlineSeparated(t *testing.T) {
	ids, err := ParseSeeds("rust:src/a.rs:fn:foo:10\nrust:src/b.rs:fn:bar:5\n")
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}

func TestParseSeedsJSONStrings(t *testing.T) {
	ids, err := ParseSeeds(`["rust:src/a.rs:fn:foo:10"]`)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, "foo", ids[0].Name)
}

func TestParseSeedsJSONObjects(t *testing.T) {
	ids, err := ParseSeeds(`[{"lang":"ruby","path":"lib/x.rb","kind":"method","name":"run","line":20,"container":"Foo"}]`)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, "Foo", ids[0].Container)
	assert.Equal(t, Ruby, ids[0].Language)
}

func TestParseSeedsRejectsMixedLanguages(t *testing.T) {
	_, err := ParseSeeds("rust:src/a.rs:fn:foo:10,ruby:lib/x.rb:method:run:5")
	assert.Error(t, err)
}

func TestParseSeedsRejectsEmpty(t *testing.T) {
	_, err := ParseSeeds("   ")
	assert.Error(t, err)
}
