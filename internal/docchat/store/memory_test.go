package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChunks() []*Chunk {
	return []*Chunk{
		{ID: "01A", DocumentID: "doc1", DocumentName: "a.md", Content: "alpha", Embedding: []float32{1, 0}},
		{ID: "01B", DocumentID: "doc1", DocumentName: "a.md", Content: "beta", Embedding: []float32{0.9, 0.1}},
		{ID: "01C", DocumentID: "doc2", DocumentName: "b.md", Content: "gamma", Embedding: []float32{0, 1}},
	}
}

func TestSearchRanksBySimilarity(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.ReplaceAll(ctx, testChunks()))

	results, err := s.Search(ctx, []float32{1, 0}, 2, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "01A", results[0].ID)
	assert.Equal(t, "01B", results[1].ID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestSearchMinScore(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.ReplaceAll(ctx, testChunks()))

	// Orthogonal chunk normalizes to 0.5; require more than that.
	results, err := s.Search(ctx, []float32{1, 0}, 10, 0.6)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Score, 0.6)
	}
}

func TestSearchStableTieBreak(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.ReplaceAll(ctx, []*Chunk{
		{ID: "02B", Content: "second", Embedding: []float32{1, 0}},
		{ID: "02A", Content: "first", Embedding: []float32{1, 0}},
	}))

	results, err := s.Search(ctx, []float32{1, 0}, 2, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "02A", results[0].ID)
	assert.Equal(t, "02B", results[1].ID)
}

func TestSearchEmptyQuery(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.ReplaceAll(ctx, testChunks()))

	results, err := s.Search(ctx, nil, 5, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestReplaceAllSwapsContents(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.ReplaceAll(ctx, testChunks()))

	require.NoError(t, s.ReplaceAll(ctx, []*Chunk{
		{ID: "03A", DocumentID: "doc3", Content: "only", Embedding: []float32{1, 1}},
	}))

	stats, err := s.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Documents)
	assert.Equal(t, 1, stats.Chunks)
	assert.Equal(t, 2, stats.EmbeddingDim)
	assert.False(t, stats.LastBuilt.IsZero())
}

func TestInsertAndAll(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, testChunks()[:2]))
	require.NoError(t, s.Insert(ctx, testChunks()[2:]))

	all, err := s.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestClosedStore(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Close(ctx))

	assert.ErrorIs(t, s.ReplaceAll(ctx, nil), ErrClosed)
	assert.ErrorIs(t, s.Insert(ctx, nil), ErrClosed)

	_, err := s.Search(ctx, []float32{1}, 1, 0)
	assert.ErrorIs(t, err, ErrClosed)

	_, err = s.All(ctx)
	assert.ErrorIs(t, err, ErrClosed)

	_, err = s.GetStats(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}
