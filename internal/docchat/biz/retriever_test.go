package biz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/docchat/internal/docchat/store"
	retrievalopts "github.com/kart-io/docchat/pkg/options/retrieval"
)

func seedStore(t *testing.T, embedder *fakeEmbedder, contents ...string) store.VectorStore {
	t.Helper()

	chunks := testChunks(contents...)
	embeddings, err := embedder.Embed(context.Background(), contents)
	require.NoError(t, err)
	for i, chunk := range chunks {
		chunk.Embedding = embeddings[i]
	}

	st := store.NewMemoryStore()
	require.NoError(t, st.ReplaceAll(context.Background(), chunks))
	return st
}

func keywordFor(contents ...string) func() KeywordSearcher {
	idx := BuildKeywordIndex(testChunks(contents...))
	return func() KeywordSearcher { return idx }
}

func TestRetrieverEmbeddingMode(t *testing.T) {
	embedder := newFakeEmbedder()
	contents := []string{
		"redis is the cache backend",
		"gophers dig tunnels under the garden",
	}
	st := seedStore(t, embedder, contents...)

	r := NewRetriever(&RetrieverConfig{Mode: retrievalopts.ModeEmbedding, TopK: 5}, st, embedder, keywordFor(contents...))

	results, err := r.Retrieve(context.Background(), "tell me about the redis cache", 0)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "chunk-000", results[0].ID)
	assert.InDelta(t, 1.0, results[0].Score, 0.05)
}

func TestRetrieverKeywordMode(t *testing.T) {
	contents := []string{
		"redis is the cache backend",
		"gophers dig tunnels under the garden",
	}

	r := NewRetriever(&RetrieverConfig{Mode: retrievalopts.ModeKeyword, TopK: 5}, store.NewMemoryStore(), nil, keywordFor(contents...))

	results, err := r.Retrieve(context.Background(), "gophers", 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "chunk-001", results[0].ID)
}

func TestRetrieverFallsBackOnEmbeddingFailure(t *testing.T) {
	embedder := newFakeEmbedder()
	contents := []string{
		"redis is the cache backend",
		"gophers dig tunnels under the garden",
	}
	st := seedStore(t, embedder, contents...)

	// Index embeddings succeeded; every later call fails.
	embedder.failAfter = embedder.calls

	r := NewRetriever(&RetrieverConfig{Mode: retrievalopts.ModeEmbedding, TopK: 5}, st, embedder, keywordFor(contents...))

	results, err := r.Retrieve(context.Background(), "redis cache", 0)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "chunk-000", results[0].ID)
}

func TestRetrieverTopKOverride(t *testing.T) {
	contents := []string{
		"retrieval one",
		"retrieval two",
		"retrieval three",
	}

	r := NewRetriever(&RetrieverConfig{Mode: retrievalopts.ModeKeyword, TopK: 3}, store.NewMemoryStore(), nil, keywordFor(contents...))

	results, err := r.Retrieve(context.Background(), "retrieval", 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestRetrieverNilKeywordIndex(t *testing.T) {
	r := NewRetriever(&RetrieverConfig{Mode: retrievalopts.ModeKeyword, TopK: 5}, store.NewMemoryStore(), nil, func() KeywordSearcher { return nil })

	results, err := r.Retrieve(context.Background(), "anything", 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRetrieverCancelledContextNotRetried(t *testing.T) {
	embedder := newFakeEmbedder()
	embedder.failAll = true

	r := NewRetriever(&RetrieverConfig{Mode: retrievalopts.ModeEmbedding, TopK: 5}, store.NewMemoryStore(), embedder, keywordFor("some content"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Retrieve(ctx, "anything", 0)
	assert.Error(t, err)
}
