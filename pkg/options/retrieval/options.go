// Package retrieval provides corpus and retrieval configuration options.
package retrieval

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kart-io/docchat/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Retrieval modes.
const (
	// ModeEmbedding scores passages by embedding cosine similarity.
	ModeEmbedding = "embedding"
	// ModeKeyword scores passages by TF-IDF weighted keyword overlap.
	ModeKeyword = "keyword"
)

// Options contains corpus loading and retrieval configuration.
type Options struct {
	// CorpusDir is the directory scanned for source documents.
	CorpusDir string `json:"corpus-dir" mapstructure:"corpus-dir"`

	// Mode selects the scoring strategy (embedding or keyword).
	Mode string `json:"mode" mapstructure:"mode"`

	// ChunkSize is the size of text chunks in runes.
	ChunkSize int `json:"chunk-size" mapstructure:"chunk-size"`

	// ChunkOverlap is the overlap between consecutive chunks in runes.
	ChunkOverlap int `json:"chunk-overlap" mapstructure:"chunk-overlap"`

	// TopK is the number of passages returned from similarity search.
	TopK int `json:"top-k" mapstructure:"top-k"`

	// MinScore discards passages scoring below this threshold.
	MinScore float64 `json:"min-score" mapstructure:"min-score"`

	// SystemPrompt is the prompt template wrapped around retrieved context.
	SystemPrompt string `json:"system-prompt" mapstructure:"system-prompt"`

	// Watch enables automatic index rebuilds when the corpus changes on disk.
	Watch bool `json:"watch" mapstructure:"watch"`

	// EmbedWorkers is the number of concurrent embedding calls during an
	// index rebuild.
	EmbedWorkers int `json:"embed-workers" mapstructure:"embed-workers"`
}

// DefaultSystemPrompt is the default prompt template. The {{context}} and
// {{question}} placeholders are replaced at query time.
const DefaultSystemPrompt = `You are a helpful assistant that answers questions based on the provided context.
Use the following context to answer the question. If you cannot find the answer in the context, say so.
Always cite the source documents when providing information.

Context:
{{context}}

Question: {{question}}

Answer:`

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		CorpusDir:    "./corpus",
		Mode:         ModeEmbedding,
		ChunkSize:    512,
		ChunkOverlap: 50,
		TopK:         5,
		MinScore:     0.0,
		SystemPrompt: DefaultSystemPrompt,
		EmbedWorkers: 4,
	}
}

// AddFlags adds flags for retrieval options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.CorpusDir, options.Join(prefixes...)+"retrieval.corpus-dir", o.CorpusDir, "Directory scanned for source documents.")
	fs.StringVar(&o.Mode, options.Join(prefixes...)+"retrieval.mode", o.Mode, "Passage scoring mode (embedding or keyword).")
	fs.IntVar(&o.ChunkSize, options.Join(prefixes...)+"retrieval.chunk-size", o.ChunkSize, "Size of text chunks in runes.")
	fs.IntVar(&o.ChunkOverlap, options.Join(prefixes...)+"retrieval.chunk-overlap", o.ChunkOverlap, "Overlap between consecutive chunks in runes.")
	fs.IntVar(&o.TopK, options.Join(prefixes...)+"retrieval.top-k", o.TopK, "Number of passages returned from similarity search.")
	fs.Float64Var(&o.MinScore, options.Join(prefixes...)+"retrieval.min-score", o.MinScore, "Minimum passage score to include in results.")
	fs.BoolVar(&o.Watch, options.Join(prefixes...)+"retrieval.watch", o.Watch, "Rebuild the index automatically when the corpus changes.")
	fs.IntVar(&o.EmbedWorkers, options.Join(prefixes...)+"retrieval.embed-workers", o.EmbedWorkers, "Number of concurrent embedding calls during an index rebuild.")
}

// Validate validates the retrieval options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.CorpusDir == "" {
		errs = append(errs, fmt.Errorf("retrieval.corpus-dir cannot be empty"))
	}
	if o.Mode != ModeEmbedding && o.Mode != ModeKeyword {
		errs = append(errs, fmt.Errorf("retrieval.mode must be %q or %q, got %q", ModeEmbedding, ModeKeyword, o.Mode))
	}
	if o.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("retrieval.chunk-size must be positive"))
	}
	if o.ChunkOverlap < 0 {
		errs = append(errs, fmt.Errorf("retrieval.chunk-overlap cannot be negative"))
	}
	if o.ChunkOverlap >= o.ChunkSize {
		errs = append(errs, fmt.Errorf("retrieval.chunk-overlap must be smaller than retrieval.chunk-size"))
	}
	if o.TopK <= 0 {
		errs = append(errs, fmt.Errorf("retrieval.top-k must be positive"))
	}
	if o.MinScore < 0 || o.MinScore > 1 {
		errs = append(errs, fmt.Errorf("retrieval.min-score must be in [0, 1]"))
	}
	if o.EmbedWorkers <= 0 {
		errs = append(errs, fmt.Errorf("retrieval.embed-workers must be positive"))
	}
	return errs
}

// Complete completes the retrieval options with defaults.
func (o *Options) Complete() error {
	if o.SystemPrompt == "" {
		o.SystemPrompt = DefaultSystemPrompt
	}
	return nil
}
