package biz

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/docchat/internal/docchat/loader"
)

func TestChunkerMarkdownSections(t *testing.T) {
	content := "Intro paragraph long enough to keep around.\n\n" +
		"# Setup\n\nInstall the binary and point it at your corpus directory.\n\n" +
		"# Usage\n\nAsk questions over HTTP and read the cited sources back."

	chunker := NewChunker(&ChunkerConfig{ChunkSize: 200, ChunkOverlap: 20})
	chunks := chunker.Chunk(&loader.Document{
		ID:      "doc-1",
		Name:    "guide.md",
		Content: content,
	})

	require.Len(t, chunks, 3)

	sections := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		sections = append(sections, chunk.Section)
		assert.Equal(t, "doc-1", chunk.DocumentID)
		assert.Equal(t, "guide.md", chunk.DocumentName)
		assert.NotEmpty(t, chunk.ID)
	}
	assert.Equal(t, []string{"Introduction", "Setup", "Usage"}, sections)
}

func TestChunkerPlainTextSingleSection(t *testing.T) {
	chunker := NewChunker(nil)
	chunks := chunker.Chunk(&loader.Document{
		ID:      "doc-2",
		Name:    "notes.txt",
		Content: "# Not a header in plain text, just a line of notes to keep.",
	})

	require.Len(t, chunks, 1)
	assert.Empty(t, chunks[0].Section)
	assert.Contains(t, chunks[0].Content, "plain text")
}

func TestChunkerOverlappingWindows(t *testing.T) {
	content := strings.Repeat("abcdefghij", 30)

	chunker := NewChunker(&ChunkerConfig{ChunkSize: 100, ChunkOverlap: 20})
	chunks := chunker.Chunk(&loader.Document{
		ID:      "doc-3",
		Name:    "big.txt",
		Content: content,
	})

	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len([]rune(chunk.Content)), 100)
	}

	// Consecutive windows share the overlap region.
	first := chunks[0].Content
	second := chunks[1].Content
	assert.True(t, strings.HasPrefix(second, first[len(first)-20:]))
}

func TestChunkerDropsTinyFragments(t *testing.T) {
	chunker := NewChunker(nil)
	chunks := chunker.Chunk(&loader.Document{
		ID:      "doc-4",
		Name:    "short.txt",
		Content: "too short",
	})
	assert.Empty(t, chunks)
}

func TestChunkerIDsAreUnique(t *testing.T) {
	chunker := NewChunker(&ChunkerConfig{ChunkSize: 50, ChunkOverlap: 10})
	chunks := chunker.Chunk(&loader.Document{
		ID:      "doc-5",
		Name:    "long.txt",
		Content: strings.Repeat("the quick brown fox jumps over the lazy dog ", 20),
	})

	require.Greater(t, len(chunks), 2)
	seen := make(map[string]bool, len(chunks))
	for _, chunk := range chunks {
		assert.False(t, seen[chunk.ID], "duplicate chunk ID %s", chunk.ID)
		seen[chunk.ID] = true
	}
}
