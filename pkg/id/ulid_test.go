package id

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	g := NewGenerator()

	id := g.Generate()
	assert.Len(t, id, 26)
	assert.True(t, IsValid(id))
}

func TestGenerateUnique(t *testing.T) {
	g := NewGenerator()

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := g.Generate()
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestGenerateMonotonic(t *testing.T) {
	g := NewGenerator()

	ids := g.GenerateN(100)
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)

	assert.Equal(t, sorted, ids)
}

func TestTime(t *testing.T) {
	g := NewGenerator()

	id := g.Generate()
	ts, err := Time(id)
	require.NoError(t, err)
	assert.False(t, ts.IsZero())
}

func TestIsValid(t *testing.T) {
	assert.False(t, IsValid(""))
	assert.False(t, IsValid("not-a-ulid"))
	assert.False(t, IsValid("0000000000000000000000000!"))
}
