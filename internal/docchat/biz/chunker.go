// Package biz implements the document indexing, retrieval, and answer
// generation pipeline.
package biz

import (
	"path/filepath"
	"strings"

	"github.com/kart-io/docchat/internal/docchat/loader"
	"github.com/kart-io/docchat/internal/docchat/store"
	"github.com/kart-io/docchat/pkg/id"
	"github.com/kart-io/docchat/pkg/utils/textutil"
)

// minChunkRunes drops fragments too short to carry meaning, such as a
// stray header or a trailing sentence fragment.
const minChunkRunes = 20

// ChunkerConfig configures document chunking.
type ChunkerConfig struct {
	// ChunkSize is the chunk window size in runes.
	ChunkSize int
	// ChunkOverlap is the overlap between consecutive windows in runes.
	ChunkOverlap int
}

// Chunker splits documents into indexable passages. Markdown documents are
// first split at headers so chunks do not straddle section boundaries;
// each section is then windowed with overlap.
type Chunker struct {
	config *ChunkerConfig
	idgen  *id.Generator
}

// NewChunker creates a Chunker.
func NewChunker(config *ChunkerConfig) *Chunker {
	if config == nil {
		config = &ChunkerConfig{ChunkSize: 512, ChunkOverlap: 50}
	}
	return &Chunker{
		config: config,
		idgen:  id.NewGenerator(),
	}
}

// Chunk splits a document into passages. Chunk IDs are ULIDs, so the IDs
// of one build sort in creation order.
func (c *Chunker) Chunk(doc *loader.Document) []*store.Chunk {
	var chunks []*store.Chunk

	for _, section := range c.sections(doc) {
		for _, text := range textutil.SplitIntoChunks(section.Content, c.config.ChunkSize, c.config.ChunkOverlap) {
			text = strings.TrimSpace(text)
			if len([]rune(text)) < minChunkRunes {
				continue
			}

			chunks = append(chunks, &store.Chunk{
				ID:           c.idgen.Generate(),
				DocumentID:   doc.ID,
				DocumentName: doc.Name,
				Section:      section.Title,
				Content:      text,
			})
		}
	}

	return chunks
}

// sections splits markdown documents at their headers. Non-markdown
// documents become a single untitled section.
func (c *Chunker) sections(doc *loader.Document) []textutil.MarkdownSection {
	switch strings.ToLower(filepath.Ext(doc.Name)) {
	case ".md", ".mdx", ".markdown":
		if sections := textutil.ExtractMarkdownSections(doc.Content); len(sections) > 0 {
			return sections
		}
	}
	return []textutil.MarkdownSection{{Content: doc.Content}}
}
