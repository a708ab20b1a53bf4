package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/kart-io/docchat/pkg/utils/textutil"
)

// ErrClosed is returned after the store has been closed.
var ErrClosed = errors.New("store: store is closed")

// MemoryStore is an in-memory VectorStore. Search is a single-pass scan
// over all chunks, which is the right trade-off for a corpus that is
// rebuilt wholesale and fits comfortably in memory.
type MemoryStore struct {
	mu        sync.RWMutex
	chunks    []*Chunk
	lastBuilt time.Time
	closed    bool
}

var _ VectorStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// ReplaceAll atomically swaps the index contents.
func (s *MemoryStore) ReplaceAll(_ context.Context, chunks []*Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	replacement := make([]*Chunk, len(chunks))
	copy(replacement, chunks)
	s.chunks = replacement
	s.lastBuilt = time.Now()

	return nil
}

// Insert appends chunks to the index.
func (s *MemoryStore) Insert(_ context.Context, chunks []*Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	s.chunks = append(s.chunks, chunks...)
	return nil
}

// Search scores every chunk against the query embedding and returns the
// topK best, normalized to [0, 1]. Ties break on chunk ID so results are
// stable across identical queries.
func (s *MemoryStore) Search(ctx context.Context, embedding []float32, topK int, minScore float64) ([]*SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	if topK <= 0 || len(embedding) == 0 {
		return nil, nil
	}

	results := make([]*SearchResult, 0, len(s.chunks))
	for _, chunk := range s.chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(chunk.Embedding) == 0 {
			continue
		}

		score := textutil.NormalizeCosineSimilarity(
			textutil.CosineSimilarity(embedding, chunk.Embedding))
		if score < minScore {
			continue
		}

		results = append(results, &SearchResult{Chunk: *chunk, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if len(results) > topK {
		results = results[:topK]
	}

	return results, nil
}

// All returns a snapshot of every indexed chunk.
func (s *MemoryStore) All(_ context.Context) ([]*Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	snapshot := make([]*Chunk, len(s.chunks))
	copy(snapshot, s.chunks)
	return snapshot, nil
}

// GetStats returns index statistics.
func (s *MemoryStore) GetStats(_ context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	docs := make(map[string]bool)
	dim := 0
	for _, chunk := range s.chunks {
		docs[chunk.DocumentID] = true
		if dim == 0 && len(chunk.Embedding) > 0 {
			dim = len(chunk.Embedding)
		}
	}

	return &Stats{
		Documents:    len(docs),
		Chunks:       len(s.chunks),
		EmbeddingDim: dim,
		LastBuilt:    s.lastBuilt,
	}, nil
}

// Close releases the index. Further calls fail with ErrClosed.
func (s *MemoryStore) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.chunks = nil
	return nil
}
