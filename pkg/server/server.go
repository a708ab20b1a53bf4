// Package server provides the HTTP server with lifecycle management.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/docchat/pkg/middleware"
	httpopts "github.com/kart-io/docchat/pkg/options/server/http"
)

// Server wraps a gin engine in an http.Server with graceful shutdown.
type Server struct {
	engine          *gin.Engine
	httpServer      *http.Server
	shutdownTimeout time.Duration
	onShutdown      []func()
}

// Option configures a Server.
type Option func(*Server)

// WithShutdownTimeout sets how long a graceful shutdown may take.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.shutdownTimeout = d
	}
}

// WithShutdownHook registers a function run after the HTTP server stops.
// Hooks run in registration order.
func WithShutdownHook(fn func()) Option {
	return func(s *Server) {
		s.onShutdown = append(s.onShutdown, fn)
	}
}

// New creates a Server listening per the HTTP options. The engine comes
// with no middleware installed; callers attach middleware and routes via
// Engine().
func New(opts *httpopts.Options, options ...Option) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	s := &Server{
		engine: engine,
		httpServer: &http.Server{
			Addr:         opts.Addr,
			Handler:      engine,
			ReadTimeout:  opts.ReadTimeout,
			WriteTimeout: opts.WriteTimeout,
			IdleTimeout:  opts.IdleTimeout,
		},
		shutdownTimeout: 10 * time.Second,
	}

	for _, opt := range options {
		opt(s)
	}

	if opts.StaticDir != "" {
		s.serveStatic(opts.StaticDir)
	}

	return s
}

// Engine returns the underlying gin engine for route registration.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// serveStatic serves a directory of static assets at the web root, with
// index.html as the default document. Unmatched GET paths fall back to
// files in the directory, so assets referenced from index.html at root
// paths (/app.css, /app.js) resolve.
func (s *Server) serveStatic(dir string) {
	s.engine.StaticFile("/", filepath.Join(dir, "index.html"))
	s.engine.Static("/static", dir)

	s.engine.NoRoute(func(c *gin.Context) {
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
			path := filepath.Join(dir, filepath.Clean("/"+c.Request.URL.Path))
			if fi, err := os.Stat(path); err == nil && !fi.IsDir() {
				c.File(path)
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"code": 404, "message": "not found"})
	})
}

// Run starts the server and blocks until SIGINT/SIGTERM or a listen error.
// Shutdown drains in-flight requests for up to the shutdown timeout, then
// runs the registered hooks.
func (s *Server) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("HTTP server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)

	for _, fn := range s.onShutdown {
		fn()
	}

	if err != nil {
		return err
	}

	logger.Info("HTTP server stopped")
	return nil
}

// RequestTimeout returns a middleware that attaches a deadline to the
// request context. Handlers translate deadline exceeded into 408.
func RequestTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// DefaultMiddleware returns the standard middleware chain in the order it
// should be installed.
func DefaultMiddleware(loggerSkipPaths []string, cors *middleware.CORSConfig) []gin.HandlerFunc {
	chain := []gin.HandlerFunc{
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.LoggerWithConfig(middleware.LoggerConfig{SkipPaths: loggerSkipPaths}),
	}
	if cors != nil {
		chain = append(chain, middleware.CORSWithConfig(*cors))
	}
	return chain
}
