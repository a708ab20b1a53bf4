package biz

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/docchat/internal/docchat/loader"
	"github.com/kart-io/docchat/internal/docchat/store"
	"github.com/kart-io/docchat/internal/model"
	"github.com/kart-io/docchat/pkg/llm"
	retrievalopts "github.com/kart-io/docchat/pkg/options/retrieval"
	"github.com/kart-io/docchat/pkg/pool"
)

// ErrRebuildInProgress is returned when a rebuild is requested while one
// is already running.
var ErrRebuildInProgress = errors.New("index rebuild already in progress")

// embedBatchSize is how many chunks are embedded per provider call.
const embedBatchSize = 16

// IndexerConfig configures index building.
type IndexerConfig struct {
	// Mode is the retrieval mode; embeddings are only computed in
	// embedding mode.
	Mode string
	// EmbedWorkers is the number of concurrent embedding calls.
	EmbedWorkers int
}

// Indexer builds the passage index from the corpus directory. Rebuilds
// are single-flight and atomic: a failed rebuild leaves the previous
// index in place, and searches never see a half-built index.
type Indexer struct {
	config        *IndexerConfig
	loader        *loader.Loader
	chunker       *Chunker
	vectorStore   store.VectorStore
	embedProvider llm.EmbeddingProvider
	embedPool     *pool.Pool

	building atomic.Bool
	keyword  atomic.Pointer[KeywordIndex]
	docs     atomic.Pointer[[]*model.DocumentInfo]
}

// NewIndexer creates an Indexer. embedProvider may be nil in keyword mode.
func NewIndexer(config *IndexerConfig, ld *loader.Loader, chunker *Chunker, vectorStore store.VectorStore, embedProvider llm.EmbeddingProvider) (*Indexer, error) {
	if config == nil {
		config = &IndexerConfig{Mode: retrievalopts.ModeEmbedding}
	}

	ix := &Indexer{
		config:        config,
		loader:        ld,
		chunker:       chunker,
		vectorStore:   vectorStore,
		embedProvider: embedProvider,
	}

	if config.Mode == retrievalopts.ModeEmbedding && embedProvider != nil {
		p, err := pool.New("embedding", pool.EmbeddingConfig(config.EmbedWorkers))
		if err != nil {
			return nil, err
		}
		ix.embedPool = p
	}

	return ix, nil
}

// Keyword returns the keyword index for the current snapshot, or nil
// before the first successful rebuild.
func (ix *Indexer) Keyword() KeywordSearcher {
	idx := ix.keyword.Load()
	if idx == nil {
		return nil
	}
	return idx
}

// Documents returns the documents in the current snapshot.
func (ix *Indexer) Documents() []*model.DocumentInfo {
	docs := ix.docs.Load()
	if docs == nil {
		return nil
	}
	return *docs
}

// Close releases the embedding pool.
func (ix *Indexer) Close() {
	if ix.embedPool != nil {
		ix.embedPool.Release()
	}
}

// Rebuild loads the corpus, chunks it, embeds the chunks in embedding
// mode, and swaps the new index in. Concurrent calls beyond the first
// fail with ErrRebuildInProgress.
func (ix *Indexer) Rebuild(ctx context.Context) (*model.ReloadResponse, error) {
	if !ix.building.CompareAndSwap(false, true) {
		return nil, ErrRebuildInProgress
	}
	defer ix.building.Store(false)

	start := time.Now()

	docs, err := ix.loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}

	var chunks []*store.Chunk
	docInfos := make([]*model.DocumentInfo, 0, len(docs))
	for _, doc := range docs {
		docChunks := ix.chunker.Chunk(doc)
		chunks = append(chunks, docChunks...)
		docInfos = append(docInfos, &model.DocumentInfo{
			ID:        doc.ID,
			Name:      doc.Name,
			Path:      doc.Path,
			Chunks:    len(docChunks),
			SizeBytes: doc.SizeBytes,
			ModTime:   doc.ModTime,
		})
	}

	if ix.config.Mode == retrievalopts.ModeEmbedding && ix.embedProvider != nil {
		if err := ix.embedChunks(ctx, chunks); err != nil {
			return nil, fmt.Errorf("failed to embed chunks: %w", err)
		}
	}

	if err := ix.vectorStore.ReplaceAll(ctx, chunks); err != nil {
		return nil, fmt.Errorf("failed to replace index contents: %w", err)
	}
	ix.keyword.Store(BuildKeywordIndex(chunks))
	ix.docs.Store(&docInfos)

	elapsed := time.Since(start)
	logger.Infow("Index rebuilt",
		"documents", len(docs),
		"chunks", len(chunks),
		"mode", ix.config.Mode,
		"elapsed", elapsed.String(),
	)

	return &model.ReloadResponse{
		Documents: len(docs),
		Chunks:    len(chunks),
		ElapsedMs: elapsed.Milliseconds(),
	}, nil
}

// embedChunks computes embeddings for all chunks, batched and in
// parallel. The first batch error aborts the rebuild.
func (ix *Indexer) embedChunks(ctx context.Context, chunks []*store.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	for batchStart := 0; batchStart < len(chunks); batchStart += embedBatchSize {
		batchEnd := batchStart + embedBatchSize
		if batchEnd > len(chunks) {
			batchEnd = len(chunks)
		}
		batch := chunks[batchStart:batchEnd]

		wg.Add(1)
		task := func() {
			defer wg.Done()

			mu.Lock()
			aborted := firstErr != nil
			mu.Unlock()
			if aborted {
				return
			}

			texts := make([]string, len(batch))
			for i, chunk := range batch {
				texts[i] = chunk.Content
			}

			embeddings, err := ix.embedProvider.Embed(ctx, texts)
			if err == nil && len(embeddings) != len(batch) {
				err = fmt.Errorf("provider returned %d embeddings for %d texts", len(embeddings), len(batch))
			}
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}

			for i, embedding := range embeddings {
				batch[i].Embedding = embedding
			}
		}

		if ix.embedPool != nil {
			if err := ix.embedPool.Submit(task); err != nil {
				wg.Done()
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				break
			}
		} else {
			task()
		}
	}

	wg.Wait()
	return firstErr
}
