package biz

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/docchat/internal/docchat/loader"
	"github.com/kart-io/docchat/internal/docchat/store"
	retrievalopts "github.com/kart-io/docchat/pkg/options/retrieval"
)

func writeCorpus(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func newTestIndexer(t *testing.T, mode string, embedder *fakeEmbedder, dir string) (*Indexer, store.VectorStore) {
	t.Helper()

	st := store.NewMemoryStore()
	ix, err := NewIndexer(
		&IndexerConfig{Mode: mode, EmbedWorkers: 2},
		loader.New(dir),
		NewChunker(&ChunkerConfig{ChunkSize: 200, ChunkOverlap: 20}),
		st,
		embedder,
	)
	require.NoError(t, err)
	t.Cleanup(ix.Close)
	return ix, st
}

func TestIndexerRebuildKeywordMode(t *testing.T) {
	dir := writeCorpus(t, map[string]string{
		"guide.md": "# Caching\n\nAnswers are cached in Redis keyed by the question hash.",
		"notes.txt": "Gophers dig tunnels under the garden all summer long.",
	})

	ix, st := newTestIndexer(t, retrievalopts.ModeKeyword, nil, dir)

	resp, err := ix.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Documents)
	assert.Equal(t, 2, resp.Chunks)

	kw := ix.Keyword()
	require.NotNil(t, kw)
	results, err := kw.Search(context.Background(), "redis", 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "guide.md", results[0].DocumentName)

	docs := ix.Documents()
	require.Len(t, docs, 2)
	assert.Equal(t, "guide.md", docs[0].Name)
	assert.Equal(t, 1, docs[0].Chunks)

	stats, err := st.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Chunks)
	assert.Zero(t, stats.EmbeddingDim)
}

func TestIndexerRebuildEmbeddingMode(t *testing.T) {
	dir := writeCorpus(t, map[string]string{
		"guide.md": "# Caching\n\nAnswers are cached in Redis keyed by the question hash.",
	})

	embedder := newFakeEmbedder()
	ix, st := newTestIndexer(t, retrievalopts.ModeEmbedding, embedder, dir)

	_, err := ix.Rebuild(context.Background())
	require.NoError(t, err)

	chunks, err := st.All(context.Background())
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.NotEmpty(t, chunks[0].Embedding)

	stats, err := st.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(embedder.vocabulary), stats.EmbeddingDim)
}

func TestIndexerFailedRebuildKeepsOldIndex(t *testing.T) {
	dir := writeCorpus(t, map[string]string{
		"guide.md": "# Caching\n\nAnswers are cached in Redis keyed by the question hash.",
	})

	embedder := newFakeEmbedder()
	ix, st := newTestIndexer(t, retrievalopts.ModeEmbedding, embedder, dir)

	_, err := ix.Rebuild(context.Background())
	require.NoError(t, err)

	embedder.failAll = true
	_, err = ix.Rebuild(context.Background())
	require.Error(t, err)

	// The previous snapshot stays searchable.
	chunks, err := st.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, chunks, 1)
	assert.NotNil(t, ix.Keyword())
}

func TestIndexerRebuildSingleFlight(t *testing.T) {
	dir := writeCorpus(t, map[string]string{
		"notes.txt": "Gophers dig tunnels under the garden all summer long.",
	})

	ix, _ := newTestIndexer(t, retrievalopts.ModeKeyword, nil, dir)

	ix.building.Store(true)
	_, err := ix.Rebuild(context.Background())
	assert.ErrorIs(t, err, ErrRebuildInProgress)

	ix.building.Store(false)
	_, err = ix.Rebuild(context.Background())
	assert.NoError(t, err)
}

func TestIndexerKeywordNilBeforeFirstRebuild(t *testing.T) {
	dir := writeCorpus(t, map[string]string{
		"notes.txt": "Gophers dig tunnels under the garden all summer long.",
	})

	ix, _ := newTestIndexer(t, retrievalopts.ModeKeyword, nil, dir)
	assert.Nil(t, ix.Keyword())
	assert.Nil(t, ix.Documents())
}

func TestIndexerMissingCorpusDir(t *testing.T) {
	ix, _ := newTestIndexer(t, retrievalopts.ModeKeyword, nil, filepath.Join(t.TempDir(), "missing"))

	_, err := ix.Rebuild(context.Background())
	assert.Error(t, err)
}
