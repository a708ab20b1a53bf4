// Package middleware provides HTTP middleware configuration options.
package middleware

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/docchat/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains middleware configuration for the HTTP server.
type Options struct {
	// CORS configures cross origin resource sharing.
	CORS *CORSOptions `json:"cors" mapstructure:"cors"`

	// RequestTimeout bounds request handling for chat and retrieve calls.
	RequestTimeout time.Duration `json:"request-timeout" mapstructure:"request-timeout"`

	// LoggerSkipPaths lists paths excluded from access logging.
	LoggerSkipPaths []string `json:"logger-skip-paths" mapstructure:"logger-skip-paths"`
}

// CORSOptions configures the CORS middleware.
type CORSOptions struct {
	// Enabled turns the middleware on.
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// AllowOrigins lists allowed origins. "*" allows any origin.
	AllowOrigins []string `json:"allow-origins" mapstructure:"allow-origins"`

	// AllowMethods lists allowed HTTP methods.
	AllowMethods []string `json:"allow-methods" mapstructure:"allow-methods"`

	// AllowHeaders lists allowed request headers.
	AllowHeaders []string `json:"allow-headers" mapstructure:"allow-headers"`

	// MaxAge is how long preflight results may be cached.
	MaxAge time.Duration `json:"max-age" mapstructure:"max-age"`
}

// NewOptions creates default middleware options.
func NewOptions() *Options {
	return &Options{
		CORS: &CORSOptions{
			Enabled:      true,
			AllowOrigins: []string{"*"},
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
			MaxAge:       12 * time.Hour,
		},
		RequestTimeout:  60 * time.Second,
		LoggerSkipPaths: []string{"/healthz", "/metrics"},
	}
}

// AddFlags adds flags for middleware options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	if o.CORS == nil {
		o.CORS = NewOptions().CORS
	}
	fs.BoolVar(&o.CORS.Enabled, options.Join(prefixes...)+"middleware.cors.enabled", o.CORS.Enabled, "Enable CORS middleware.")
	fs.StringSliceVar(&o.CORS.AllowOrigins, options.Join(prefixes...)+"middleware.cors.allow-origins", o.CORS.AllowOrigins, "Allowed CORS origins.")
	fs.DurationVar(&o.RequestTimeout, options.Join(prefixes...)+"middleware.request-timeout", o.RequestTimeout, "Per-request handling timeout.")
	fs.StringSliceVar(&o.LoggerSkipPaths, options.Join(prefixes...)+"middleware.logger-skip-paths", o.LoggerSkipPaths, "Paths excluded from access logging.")
}

// Validate validates the middleware options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("middleware.request-timeout must be positive"))
	}
	if o.CORS != nil && o.CORS.Enabled && len(o.CORS.AllowOrigins) == 0 {
		errs = append(errs, fmt.Errorf("middleware.cors.allow-origins cannot be empty when CORS is enabled"))
	}
	return errs
}

// Complete completes the middleware options with defaults.
func (o *Options) Complete() error {
	if o.CORS == nil {
		o.CORS = NewOptions().CORS
	}
	return nil
}
