package biz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kart-io/docchat/internal/docchat/store"
	"github.com/kart-io/docchat/pkg/llm"
)

// fakeEmbedder embeds text deterministically: the vector encodes which of
// a fixed vocabulary's terms appear in the text, so related texts score
// high cosine similarity.
type fakeEmbedder struct {
	mu         sync.Mutex
	vocabulary []string
	calls      int
	failAll    bool
	failAfter  int
}

func newFakeEmbedder(vocabulary ...string) *fakeEmbedder {
	if len(vocabulary) == 0 {
		vocabulary = []string{"redis", "cache", "index", "retrieval", "gopher"}
	}
	return &fakeEmbedder{vocabulary: vocabulary, failAfter: -1}
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	calls := f.calls
	f.mu.Unlock()

	if f.failAll || (f.failAfter >= 0 && calls > f.failAfter) {
		return nil, errors.New("embedding backend unavailable")
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = f.vector(text)
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (f *fakeEmbedder) Name() string { return "fake" }

func (f *fakeEmbedder) vector(text string) []float32 {
	lower := strings.ToLower(text)
	vec := make([]float32, len(f.vocabulary))
	for i, term := range f.vocabulary {
		vec[i] = float32(strings.Count(lower, term))
	}
	return vec
}

// fakeChatProvider records the prompts it receives.
type fakeChatProvider struct {
	mu      sync.Mutex
	answer  string
	err     error
	usage   *llm.TokenUsage
	prompts []string
}

func (f *fakeChatProvider) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	return f.answer, f.err
}

func (f *fakeChatProvider) Generate(ctx context.Context, prompt string, systemPrompt string) (*llm.GenerateResponse, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	return &llm.GenerateResponse{Content: f.answer, TokenUsage: f.usage}, nil
}

func (f *fakeChatProvider) Name() string { return "fake" }

func (f *fakeChatProvider) promptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func (f *fakeChatProvider) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

func testChunks(contents ...string) []*store.Chunk {
	chunks := make([]*store.Chunk, len(contents))
	for i, content := range contents {
		chunks[i] = &store.Chunk{
			ID:           fmt.Sprintf("chunk-%03d", i),
			DocumentID:   "doc-1",
			DocumentName: "guide.md",
			Content:      content,
		}
	}
	return chunks
}
