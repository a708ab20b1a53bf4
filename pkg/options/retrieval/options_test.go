package retrieval

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOptionsDefaults(t *testing.T) {
	o := NewOptions()

	assert.Equal(t, ModeEmbedding, o.Mode)
	assert.Equal(t, 512, o.ChunkSize)
	assert.Equal(t, 50, o.ChunkOverlap)
	assert.Equal(t, 5, o.TopK)
	assert.Equal(t, 4, o.EmbedWorkers)
	assert.Empty(t, o.Validate())
}

func TestOptionsFlags(t *testing.T) {
	o := NewOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	o.AddFlags(fs)

	require.NoError(t, fs.Parse([]string{
		"--retrieval.mode=keyword",
		"--retrieval.embed-workers=8",
	}))

	assert.Equal(t, ModeKeyword, o.Mode)
	assert.Equal(t, 8, o.EmbedWorkers)
	assert.Empty(t, o.Validate())
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
		errMsg string
	}{
		{
			name:   "empty corpus dir",
			mutate: func(o *Options) { o.CorpusDir = "" },
			errMsg: "corpus-dir",
		},
		{
			name:   "unknown mode",
			mutate: func(o *Options) { o.Mode = "hybrid" },
			errMsg: "retrieval.mode",
		},
		{
			name:   "overlap not smaller than chunk size",
			mutate: func(o *Options) { o.ChunkOverlap = o.ChunkSize },
			errMsg: "chunk-overlap",
		},
		{
			name:   "min score out of range",
			mutate: func(o *Options) { o.MinScore = 1.5 },
			errMsg: "min-score",
		},
		{
			name:   "zero embed workers",
			mutate: func(o *Options) { o.EmbedWorkers = 0 },
			errMsg: "embed-workers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOptions()
			tt.mutate(o)

			errs := o.Validate()
			require.NotEmpty(t, errs)
			assert.Contains(t, errs[0].Error(), tt.errMsg)
		})
	}
}

func TestCompleteRestoresPrompt(t *testing.T) {
	o := NewOptions()
	o.SystemPrompt = ""

	require.NoError(t, o.Complete())
	assert.Equal(t, DefaultSystemPrompt, o.SystemPrompt)
}
