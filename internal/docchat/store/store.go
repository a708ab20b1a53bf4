// Package store provides the passage index backing retrieval.
package store

import (
	"context"
	"time"
)

// Chunk is one indexed passage.
type Chunk struct {
	// ID is the chunk identifier (a ULID).
	ID string
	// DocumentID identifies the source document.
	DocumentID string
	// DocumentName is the source file name.
	DocumentName string
	// Section is the markdown section title, if any.
	Section string
	// Content is the passage text.
	Content string
	// Embedding is the passage embedding, nil in keyword mode.
	Embedding []float32
}

// SearchResult is a scored passage.
type SearchResult struct {
	Chunk
	// Score is the normalized relevance score in [0, 1].
	Score float64
}

// Stats describes the current index contents.
type Stats struct {
	// Documents is the number of distinct documents.
	Documents int
	// Chunks is the number of indexed chunks.
	Chunks int
	// EmbeddingDim is the embedding dimensionality, zero when the index
	// holds no embeddings.
	EmbeddingDim int
	// LastBuilt is when the index contents were last replaced.
	LastBuilt time.Time
}

// VectorStore is the passage index. Implementations must be safe for
// concurrent use; Search runs while ReplaceAll may be swapping contents.
type VectorStore interface {
	// ReplaceAll atomically swaps the index contents. Searches either see
	// the old snapshot or the new one, never a mix.
	ReplaceAll(ctx context.Context, chunks []*Chunk) error

	// Insert appends chunks to the index.
	Insert(ctx context.Context, chunks []*Chunk) error

	// Search returns up to topK chunks by embedding similarity, best
	// first. Chunks scoring below minScore are excluded.
	Search(ctx context.Context, embedding []float32, topK int, minScore float64) ([]*SearchResult, error)

	// All returns a snapshot of every indexed chunk.
	All(ctx context.Context) ([]*Chunk, error)

	// GetStats returns index statistics.
	GetStats(ctx context.Context) (*Stats, error)

	// Close releases the index.
	Close(ctx context.Context) error
}
