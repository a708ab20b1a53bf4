package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name string
}

func (f *fakeProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (f *fakeProvider) EmbedSingle(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (f *fakeProvider) Chat(_ context.Context, _ []Message) (string, error) {
	return "chat", nil
}

func (f *fakeProvider) Generate(_ context.Context, _, _ string) (*GenerateResponse, error) {
	return &GenerateResponse{Content: "generated"}, nil
}

func (f *fakeProvider) Name() string {
	return f.name
}

func TestRegisterAndNewProvider(t *testing.T) {
	RegisterProvider("fake-full", func(_ map[string]any) (Provider, error) {
		return &fakeProvider{name: "fake-full"}, nil
	})

	p, err := NewProvider("fake-full", nil)
	require.NoError(t, err)
	assert.Equal(t, "fake-full", p.Name())
}

func TestNewProviderUnknown(t *testing.T) {
	_, err := NewProvider("does-not-exist", nil)
	assert.Error(t, err)

	_, err = NewEmbeddingProvider("does-not-exist", nil)
	assert.Error(t, err)

	_, err = NewChatProvider("does-not-exist", nil)
	assert.Error(t, err)
}

func TestDedicatedFactoryPrecedence(t *testing.T) {
	RegisterProvider("fake-both", func(_ map[string]any) (Provider, error) {
		return &fakeProvider{name: "full"}, nil
	})
	RegisterEmbeddingProvider("fake-both", func(_ map[string]any) (EmbeddingProvider, error) {
		return &fakeProvider{name: "embedding-only"}, nil
	})

	ep, err := NewEmbeddingProvider("fake-both", nil)
	require.NoError(t, err)
	assert.Equal(t, "embedding-only", ep.Name())

	// No dedicated chat factory, falls back to the full provider.
	cp, err := NewChatProvider("fake-both", nil)
	require.NoError(t, err)
	assert.Equal(t, "full", cp.Name())
}

func TestListProviders(t *testing.T) {
	RegisterProvider("fake-list", func(_ map[string]any) (Provider, error) {
		return &fakeProvider{name: "fake-list"}, nil
	})

	names := ListProviders()
	assert.Contains(t, names, "fake-list")
}
