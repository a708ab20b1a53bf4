package biz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/docchat/internal/docchat/store"
	"github.com/kart-io/docchat/pkg/llm"
)

func searchResults(chunks ...*store.Chunk) []*store.SearchResult {
	results := make([]*store.SearchResult, len(chunks))
	for i, chunk := range chunks {
		results[i] = &store.SearchResult{Chunk: *chunk, Score: 0.9}
	}
	return results
}

func TestGeneratorNoContext(t *testing.T) {
	chat := &fakeChatProvider{answer: "should not be called"}
	g := NewGenerator(nil, chat)

	resp, err := g.Generate(context.Background(), "anything", nil)
	require.NoError(t, err)
	assert.Equal(t, NoContextAnswer, resp.Content)
	assert.Zero(t, chat.promptCount())
}

func TestGeneratorCallsProvider(t *testing.T) {
	chat := &fakeChatProvider{
		answer: "Redis backs the answer cache.",
		usage:  &llm.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}
	g := NewGenerator(nil, chat)

	results := searchResults(&store.Chunk{
		ID:           "chunk-001",
		DocumentName: "guide.md",
		Section:      "Caching",
		Content:      "Answers are cached in Redis keyed by the question hash.",
	})

	resp, err := g.Generate(context.Background(), "how are answers cached?", results)
	require.NoError(t, err)
	assert.Equal(t, "Redis backs the answer cache.", resp.Content)
	require.NotNil(t, resp.TokenUsage)
	assert.Equal(t, 15, resp.TokenUsage.TotalTokens)

	prompt := chat.lastPrompt()
	assert.Contains(t, prompt, "how are answers cached?")
	assert.Contains(t, prompt, "Answers are cached in Redis")
}

func TestGeneratorProviderError(t *testing.T) {
	chat := &fakeChatProvider{err: errors.New("model overloaded")}
	g := NewGenerator(nil, chat)

	_, err := g.Generate(context.Background(), "question", searchResults(&store.Chunk{
		ID:      "chunk-001",
		Content: "some grounded content",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestGeneratorBuildPrompt(t *testing.T) {
	g := NewGenerator(&GeneratorConfig{
		PromptTemplate: "CTX:\n{{context}}\nQ: {{question}}",
	}, &fakeChatProvider{})

	results := searchResults(
		&store.Chunk{ID: "a", DocumentName: "guide.md", Section: "Setup", Content: "first passage"},
		&store.Chunk{ID: "b", DocumentName: "notes.txt", Content: "second passage"},
	)

	prompt := g.BuildPrompt("what now?", results)
	assert.Contains(t, prompt, "[Source 1: guide.md / Setup]\nfirst passage")
	assert.Contains(t, prompt, "[Source 2: notes.txt]\nsecond passage")
	assert.Contains(t, prompt, "Q: what now?")
	assert.NotContains(t, prompt, "{{context}}")
	assert.NotContains(t, prompt, "{{question}}")
}
