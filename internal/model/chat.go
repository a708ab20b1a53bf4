// Package model defines the request and response types shared between the
// handler and biz layers.
package model

import "time"

// ChatRequest is the body of POST /v1/chat.
type ChatRequest struct {
	// Question is the user question.
	Question string `json:"question" binding:"required"`

	// TopK overrides the configured number of passages when positive.
	TopK int `json:"top_k,omitempty"`
}

// ChatResponse is the body returned by POST /v1/chat.
type ChatResponse struct {
	// Answer is the generated answer text.
	Answer string `json:"answer"`

	// Sources lists the passages the answer was grounded on.
	Sources []ChunkSource `json:"sources"`

	// Cached reports whether the answer was served from the cache.
	Cached bool `json:"cached"`

	// ElapsedMs is the total handling time in milliseconds.
	ElapsedMs int64 `json:"elapsed_ms"`

	// TokenUsage reports LLM token consumption when available.
	TokenUsage *TokenUsage `json:"token_usage,omitempty"`
}

// TokenUsage mirrors provider token accounting.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// RetrieveRequest is the body of POST /v1/retrieve.
type RetrieveRequest struct {
	// Question is the query text to score passages against.
	Question string `json:"question" binding:"required"`

	// TopK overrides the configured number of passages when positive.
	TopK int `json:"top_k,omitempty"`
}

// ChunkSource is one retrieved passage with its provenance.
type ChunkSource struct {
	// DocumentName is the source file name.
	DocumentName string `json:"document_name"`

	// Section is the markdown section title, if any.
	Section string `json:"section,omitempty"`

	// Content is the passage text.
	Content string `json:"content"`

	// Score is the normalized relevance score in [0, 1].
	Score float64 `json:"score"`
}

// RetrieveResponse is the body returned by POST /v1/retrieve.
type RetrieveResponse struct {
	// Results are the scored passages, best first.
	Results []ChunkSource `json:"results"`

	// Mode is the scoring mode used (embedding or keyword).
	Mode string `json:"mode"`

	// ElapsedMs is the handling time in milliseconds.
	ElapsedMs int64 `json:"elapsed_ms"`
}

// DocumentInfo describes one loaded corpus document.
type DocumentInfo struct {
	// ID is the stable document identifier derived from its path.
	ID string `json:"id"`

	// Name is the file name.
	Name string `json:"name"`

	// Path is the path relative to the corpus directory.
	Path string `json:"path"`

	// Chunks is the number of chunks produced from the document.
	Chunks int `json:"chunks"`

	// SizeBytes is the raw file size.
	SizeBytes int64 `json:"size_bytes"`

	// ModTime is the file modification time.
	ModTime time.Time `json:"mod_time"`
}

// ReloadResponse is the body returned by POST /v1/reload.
type ReloadResponse struct {
	// Documents is the number of documents indexed.
	Documents int `json:"documents"`

	// Chunks is the number of chunks indexed.
	Chunks int `json:"chunks"`

	// ElapsedMs is the rebuild duration in milliseconds.
	ElapsedMs int64 `json:"elapsed_ms"`
}

// StatsResponse is the body returned by GET /v1/stats.
type StatsResponse struct {
	// Documents is the number of indexed documents.
	Documents int `json:"documents"`

	// Chunks is the number of indexed chunks.
	Chunks int `json:"chunks"`

	// EmbeddingDim is the embedding dimensionality, zero in keyword mode.
	EmbeddingDim int `json:"embedding_dim"`

	// Mode is the active retrieval mode.
	Mode string `json:"mode"`

	// LastBuilt is when the index was last rebuilt.
	LastBuilt time.Time `json:"last_built"`

	// Providers names the configured providers by role.
	Providers map[string]string `json:"providers,omitempty"`

	// Requests holds request counters.
	Requests map[string]int64 `json:"requests"`

	// Cache holds cache counters when the cache is enabled.
	Cache map[string]int64 `json:"cache,omitempty"`
}
