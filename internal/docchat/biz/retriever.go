package biz

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"

	"github.com/kart-io/docchat/internal/docchat/store"
	"github.com/kart-io/docchat/pkg/llm"
	retrievalopts "github.com/kart-io/docchat/pkg/options/retrieval"
)

// KeywordSearcher scores passages by term overlap. The indexer supplies
// the current index snapshot.
type KeywordSearcher interface {
	Search(ctx context.Context, query string, topK int, minScore float64) ([]*store.SearchResult, error)
}

// RetrieverConfig configures passage retrieval.
type RetrieverConfig struct {
	// Mode selects the scoring strategy (embedding or keyword).
	Mode string
	// TopK is the default number of passages to return.
	TopK int
	// MinScore excludes passages scoring below this threshold.
	MinScore float64
}

// Retriever finds the passages most relevant to a question. In embedding
// mode the question is embedded and scored by cosine similarity against
// the index; keyword mode scores by TF-IDF term overlap. An embedding
// failure degrades to keyword scoring rather than failing the request.
type Retriever struct {
	config        *RetrieverConfig
	vectorStore   store.VectorStore
	embedProvider llm.EmbeddingProvider
	keyword       func() KeywordSearcher
}

// NewRetriever creates a Retriever. keyword must return the current
// keyword index snapshot; embedProvider may be nil in keyword mode.
func NewRetriever(config *RetrieverConfig, vectorStore store.VectorStore, embedProvider llm.EmbeddingProvider, keyword func() KeywordSearcher) *Retriever {
	if config == nil {
		config = &RetrieverConfig{
			Mode: retrievalopts.ModeEmbedding,
			TopK: 5,
		}
	}
	return &Retriever{
		config:        config,
		vectorStore:   vectorStore,
		embedProvider: embedProvider,
		keyword:       keyword,
	}
}

// Mode returns the configured retrieval mode.
func (r *Retriever) Mode() string {
	return r.config.Mode
}

// EmbeddingProviderName returns the embedding provider name, or "" when
// none is configured.
func (r *Retriever) EmbeddingProviderName() string {
	if r.embedProvider == nil {
		return ""
	}
	return r.embedProvider.Name()
}

// Retrieve returns up to topK passages relevant to the question, best
// first. A topK of zero or less uses the configured default.
func (r *Retriever) Retrieve(ctx context.Context, question string, topK int) ([]*store.SearchResult, error) {
	if topK <= 0 {
		topK = r.config.TopK
	}

	if r.config.Mode == retrievalopts.ModeKeyword || r.embedProvider == nil {
		return r.retrieveKeyword(ctx, question, topK)
	}

	results, err := r.retrieveEmbedding(ctx, question, topK)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		logger.Warnw("Embedding retrieval failed, falling back to keyword scoring",
			"error", err.Error(),
		)
		return r.retrieveKeyword(ctx, question, topK)
	}

	return results, nil
}

func (r *Retriever) retrieveEmbedding(ctx context.Context, question string, topK int) ([]*store.SearchResult, error) {
	embedding, err := r.embedProvider.EmbedSingle(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	results, err := r.vectorStore.Search(ctx, embedding, topK, r.config.MinScore)
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}

	return results, nil
}

func (r *Retriever) retrieveKeyword(ctx context.Context, question string, topK int) ([]*store.SearchResult, error) {
	searcher := r.keyword()
	if searcher == nil {
		return nil, nil
	}
	return searcher.Search(ctx, question, topK, r.config.MinScore)
}
