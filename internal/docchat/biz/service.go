package biz

import (
	"context"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/docchat/internal/docchat/metrics"
	"github.com/kart-io/docchat/internal/docchat/store"
	"github.com/kart-io/docchat/internal/model"
	"github.com/kart-io/docchat/pkg/llm"
)

// Service orchestrates the chat pipeline: answer cache, retrieval,
// generation, and index lifecycle.
type Service struct {
	retriever   *Retriever
	generator   *Generator
	indexer     *Indexer
	cache       *AnswerCache
	vectorStore store.VectorStore
	metrics     *metrics.Metrics
}

// NewService creates a Service.
func NewService(retriever *Retriever, generator *Generator, indexer *Indexer, cache *AnswerCache, vectorStore store.VectorStore) *Service {
	return &Service{
		retriever:   retriever,
		generator:   generator,
		indexer:     indexer,
		cache:       cache,
		vectorStore: vectorStore,
		metrics:     metrics.Get(),
	}
}

// Chat answers a question grounded on the indexed corpus. Cached answers
// are returned without retrieval or generation.
func (s *Service) Chat(ctx context.Context, req *model.ChatRequest) (*model.ChatResponse, error) {
	start := time.Now()

	if cached, err := s.cache.Get(ctx, req.Question); err == nil && cached != nil {
		cached.Cached = true
		cached.ElapsedMs = time.Since(start).Milliseconds()
		s.metrics.RecordChat(true, nil)
		return cached, nil
	}

	results, err := s.retrieve(ctx, req.Question, req.TopK)
	if err != nil {
		s.metrics.RecordChat(false, err)
		return nil, err
	}

	llmStart := time.Now()
	genResp, err := s.generator.Generate(ctx, req.Question, results)
	if len(results) > 0 {
		usage := tokenUsage(genResp)
		promptTokens, completionTokens := 0, 0
		if usage != nil {
			promptTokens = usage.PromptTokens
			completionTokens = usage.CompletionTokens
		}
		s.metrics.RecordLLMCall(time.Since(llmStart), promptTokens, completionTokens, err)
	}
	if err != nil {
		s.metrics.RecordChat(false, err)
		return nil, err
	}

	resp := &model.ChatResponse{
		Answer:     genResp.Content,
		Sources:    toChunkSources(results),
		Cached:     false,
		ElapsedMs:  time.Since(start).Milliseconds(),
		TokenUsage: tokenUsage(genResp),
	}

	if err := s.cache.Set(ctx, req.Question, resp); err != nil {
		logger.Warnw("Failed to cache answer", "error", err.Error())
	}

	s.metrics.RecordChat(false, nil)
	return resp, nil
}

// Retrieve returns the passages most relevant to a question without
// calling the LLM.
func (s *Service) Retrieve(ctx context.Context, req *model.RetrieveRequest) (*model.RetrieveResponse, error) {
	start := time.Now()

	results, err := s.retrieve(ctx, req.Question, req.TopK)
	if err != nil {
		return nil, err
	}

	return &model.RetrieveResponse{
		Results:   toChunkSources(results),
		Mode:      s.retriever.Mode(),
		ElapsedMs: time.Since(start).Milliseconds(),
	}, nil
}

func (s *Service) retrieve(ctx context.Context, question string, topK int) ([]*store.SearchResult, error) {
	start := time.Now()
	results, err := s.retriever.Retrieve(ctx, question, topK)
	s.metrics.RecordRetrieval(time.Since(start), len(results), err)
	return results, err
}

// Reload rebuilds the index from the corpus directory and clears the
// answer cache, since cached answers may cite passages that no longer
// exist.
func (s *Service) Reload(ctx context.Context) (*model.ReloadResponse, error) {
	resp, err := s.indexer.Rebuild(ctx)
	s.metrics.RecordReload(err)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Clear(ctx); err != nil {
		logger.Warnw("Failed to clear answer cache after rebuild", "error", err.Error())
	}

	return resp, nil
}

// Documents lists the documents in the current index snapshot.
func (s *Service) Documents(ctx context.Context) []*model.DocumentInfo {
	docs := s.indexer.Documents()
	if docs == nil {
		return []*model.DocumentInfo{}
	}
	return docs
}

// Stats reports index contents, request counters, and cache counters.
func (s *Service) Stats(ctx context.Context) (*model.StatsResponse, error) {
	indexStats, err := s.vectorStore.GetStats(ctx)
	if err != nil {
		return nil, err
	}

	resp := &model.StatsResponse{
		Documents:    indexStats.Documents,
		Chunks:       indexStats.Chunks,
		EmbeddingDim: indexStats.EmbeddingDim,
		Mode:         s.retriever.Mode(),
		LastBuilt:    indexStats.LastBuilt,
		Requests:     s.metrics.Snapshot(),
	}

	providers := make(map[string]string)
	if name := s.generator.ProviderName(); name != "" {
		providers["chat"] = name
	}
	if name := s.retriever.EmbeddingProviderName(); name != "" {
		providers["embedding"] = name
	}
	if len(providers) > 0 {
		resp.Providers = providers
	}

	if cacheStats, err := s.cache.GetStats(ctx); err == nil && cacheStats != nil {
		resp.Cache = cacheStats
	}

	return resp, nil
}

// Close releases the service resources.
func (s *Service) Close() {
	s.indexer.Close()
}

func toChunkSources(results []*store.SearchResult) []model.ChunkSource {
	sources := make([]model.ChunkSource, 0, len(results))
	for _, result := range results {
		sources = append(sources, model.ChunkSource{
			DocumentName: result.DocumentName,
			Section:      result.Section,
			Content:      result.Content,
			Score:        result.Score,
		})
	}
	return sources
}

func tokenUsage(resp *llm.GenerateResponse) *model.TokenUsage {
	if resp == nil || resp.TokenUsage == nil {
		return nil
	}
	return &model.TokenUsage{
		PromptTokens:     resp.TokenUsage.PromptTokens,
		CompletionTokens: resp.TokenUsage.CompletionTokens,
		TotalTokens:      resp.TokenUsage.TotalTokens,
	}
}
