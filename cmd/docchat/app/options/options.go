// Package options contains flags and options for initializing the docchat server.
package options

import (
	"errors"
	"fmt"
	"time"

	docchat "github.com/kart-io/docchat/internal/docchat"
	cliflag "github.com/kart-io/docchat/pkg/app/cliflag"
	cacheopts "github.com/kart-io/docchat/pkg/options/cache"
	llmopts "github.com/kart-io/docchat/pkg/options/llm"
	logopts "github.com/kart-io/docchat/pkg/options/logger"
	middlewareopts "github.com/kart-io/docchat/pkg/options/middleware"
	retrievalopts "github.com/kart-io/docchat/pkg/options/retrieval"
	httpopts "github.com/kart-io/docchat/pkg/options/server/http"
)

// ServerOptions contains the configuration options for the server.
type ServerOptions struct {
	// HTTPOptions contains HTTP server configuration.
	HTTPOptions *httpopts.Options `json:"http" mapstructure:"http"`

	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// EmbeddingOptions contains embedding provider configuration.
	EmbeddingOptions *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// ChatOptions contains chat provider configuration.
	ChatOptions *llmopts.ProviderOptions `json:"chat" mapstructure:"chat"`

	// RetrievalOptions contains corpus and retrieval configuration.
	RetrievalOptions *retrievalopts.Options `json:"retrieval" mapstructure:"retrieval"`

	// CacheOptions contains answer cache configuration.
	CacheOptions *cacheopts.Options `json:"cache" mapstructure:"cache"`

	// MiddlewareOptions contains HTTP middleware configuration.
	MiddlewareOptions *middlewareopts.Options `json:"middleware" mapstructure:"middleware"`

	// ShutdownTimeout is the timeout for graceful shutdown.
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
}

// NewServerOptions creates a ServerOptions instance with default values.
func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		HTTPOptions:       httpopts.NewOptions(),
		LogOptions:        logopts.NewOptions(),
		EmbeddingOptions:  llmopts.NewEmbeddingOptions(),
		ChatOptions:       llmopts.NewChatOptions(),
		RetrievalOptions:  retrievalopts.NewOptions(),
		CacheOptions:      cacheopts.NewOptions(),
		MiddlewareOptions: middlewareopts.NewOptions(),
		ShutdownTimeout:   30 * time.Second,
	}
}

// Flags returns flags for a specific server by section name.
func (o *ServerOptions) Flags() (fss cliflag.NamedFlagSets) {
	o.HTTPOptions.AddFlags(fss.FlagSet("http"))
	o.LogOptions.AddFlags(fss.FlagSet("log"))
	o.EmbeddingOptions.AddFlags(fss.FlagSet("embedding"), "embedding.")
	o.ChatOptions.AddFlags(fss.FlagSet("chat"), "chat.")
	o.RetrievalOptions.AddFlags(fss.FlagSet("retrieval"))
	o.CacheOptions.AddFlags(fss.FlagSet("cache"))
	o.MiddlewareOptions.AddFlags(fss.FlagSet("middleware"))

	fs := fss.FlagSet("misc")
	fs.DurationVar(&o.ShutdownTimeout, "shutdown-timeout", o.ShutdownTimeout, "Graceful shutdown timeout")

	return fss
}

// Complete completes all the required options.
func (o *ServerOptions) Complete() error {
	if err := o.HTTPOptions.Complete(); err != nil {
		return err
	}
	if err := o.EmbeddingOptions.Complete(); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if err := o.ChatOptions.Complete(); err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	if err := o.RetrievalOptions.Complete(); err != nil {
		return fmt.Errorf("retrieval: %w", err)
	}
	if err := o.CacheOptions.Complete(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return o.MiddlewareOptions.Complete()
}

// Validate checks whether the options in ServerOptions are valid.
func (o *ServerOptions) Validate() error {
	var errs []error

	errs = append(errs, o.HTTPOptions.Validate()...)
	if err := o.LogOptions.Validate(); err != nil {
		errs = append(errs, err)
	}
	if o.RetrievalOptions.Mode == retrievalopts.ModeEmbedding {
		errs = append(errs, o.EmbeddingOptions.Validate()...)
	}
	errs = append(errs, o.ChatOptions.Validate()...)
	errs = append(errs, o.RetrievalOptions.Validate()...)
	errs = append(errs, o.CacheOptions.Validate()...)
	errs = append(errs, o.MiddlewareOptions.Validate()...)

	return errors.Join(errs...)
}

// Config builds a docchat.Config based on ServerOptions.
func (o *ServerOptions) Config() (*docchat.Config, error) {
	return &docchat.Config{
		HTTPOptions:       o.HTTPOptions,
		LogOptions:        o.LogOptions,
		EmbeddingOptions:  o.EmbeddingOptions,
		ChatOptions:       o.ChatOptions,
		RetrievalOptions:  o.RetrievalOptions,
		CacheOptions:      o.CacheOptions,
		MiddlewareOptions: o.MiddlewareOptions,
		ShutdownTimeout:   o.ShutdownTimeout,
	}, nil
}
