package biz

import (
	"context"
	"fmt"
	"strings"

	"github.com/kart-io/docchat/internal/docchat/store"
	"github.com/kart-io/docchat/pkg/llm"
	retrievalopts "github.com/kart-io/docchat/pkg/options/retrieval"
)

// Prompt template placeholders.
const (
	contextPlaceholder  = "{{context}}"
	questionPlaceholder = "{{question}}"
)

// NoContextAnswer is returned when retrieval finds nothing relevant. The
// LLM is not called in that case, so it cannot invent an answer from
// nothing.
const NoContextAnswer = "I could not find anything relevant to your question in the loaded documents."

// GeneratorConfig configures answer generation.
type GeneratorConfig struct {
	// PromptTemplate wraps the retrieved context and question. It must
	// contain the {{context}} and {{question}} placeholders.
	PromptTemplate string
}

// Generator turns retrieved passages and a question into a grounded
// prompt and obtains the answer from the chat provider.
type Generator struct {
	config       *GeneratorConfig
	chatProvider llm.ChatProvider
}

// NewGenerator creates a Generator.
func NewGenerator(config *GeneratorConfig, chatProvider llm.ChatProvider) *Generator {
	if config == nil || config.PromptTemplate == "" {
		config = &GeneratorConfig{PromptTemplate: retrievalopts.DefaultSystemPrompt}
	}
	return &Generator{
		config:       config,
		chatProvider: chatProvider,
	}
}

// ProviderName returns the chat provider name.
func (g *Generator) ProviderName() string {
	if g.chatProvider == nil {
		return ""
	}
	return g.chatProvider.Name()
}

// Generate produces an answer grounded on the given passages.
func (g *Generator) Generate(ctx context.Context, question string, results []*store.SearchResult) (*llm.GenerateResponse, error) {
	if len(results) == 0 {
		return &llm.GenerateResponse{Content: NoContextAnswer}, nil
	}

	prompt := g.BuildPrompt(question, results)

	resp, err := g.chatProvider.Generate(ctx, prompt, "")
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	return resp, nil
}

// BuildPrompt renders the prompt template with the passages and question.
// Each passage is labeled with its source so the model can cite it.
func (g *Generator) BuildPrompt(question string, results []*store.SearchResult) string {
	var sb strings.Builder
	for i, result := range results {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(fmt.Sprintf("[Source %d: %s", i+1, result.DocumentName))
		if result.Section != "" {
			sb.WriteString(" / " + result.Section)
		}
		sb.WriteString("]\n")
		sb.WriteString(result.Content)
	}

	prompt := g.config.PromptTemplate
	prompt = strings.ReplaceAll(prompt, contextPlaceholder, sb.String())
	prompt = strings.ReplaceAll(prompt, questionPlaceholder, question)
	return prompt
}
