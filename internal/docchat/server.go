// Package docchat provides the document chat server implementation.
package docchat

import (
	"context"
	"fmt"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/docchat/internal/docchat/biz"
	"github.com/kart-io/docchat/internal/docchat/handler"
	"github.com/kart-io/docchat/internal/docchat/loader"
	"github.com/kart-io/docchat/internal/docchat/router"
	"github.com/kart-io/docchat/internal/docchat/store"
	"github.com/kart-io/docchat/internal/docchat/watcher"
	"github.com/kart-io/docchat/pkg/app"
	"github.com/kart-io/docchat/pkg/llm"
	"github.com/kart-io/docchat/pkg/middleware"
	cacheopts "github.com/kart-io/docchat/pkg/options/cache"
	llmopts "github.com/kart-io/docchat/pkg/options/llm"
	logopts "github.com/kart-io/docchat/pkg/options/logger"
	middlewareopts "github.com/kart-io/docchat/pkg/options/middleware"
	retrievalopts "github.com/kart-io/docchat/pkg/options/retrieval"
	httpopts "github.com/kart-io/docchat/pkg/options/server/http"
	"github.com/kart-io/docchat/pkg/server"

	// Register LLM providers.
	_ "github.com/kart-io/docchat/pkg/llm/ollama"
	_ "github.com/kart-io/docchat/pkg/llm/openai"
)

// Name is the name of the application.
const Name = "docchat"

// Config contains application-related configurations.
type Config struct {
	HTTPOptions       *httpopts.Options
	LogOptions        *logopts.Options
	EmbeddingOptions  *llmopts.ProviderOptions
	ChatOptions       *llmopts.ProviderOptions
	RetrievalOptions  *retrievalopts.Options
	CacheOptions      *cacheopts.Options
	MiddlewareOptions *middlewareopts.Options
	ShutdownTimeout   time.Duration
}

// Server represents the document chat server.
type Server struct {
	srv     *server.Server
	service *biz.Service
	watcher *watcher.Watcher
}

// NewServer initializes and returns a new Server instance.
func (cfg *Config) NewServer(ctx context.Context) (*Server, error) {
	printBanner()

	cfg.LogOptions.AddInitialField("service.name", Name)
	cfg.LogOptions.AddInitialField("service.version", app.GetVersion())
	if err := cfg.LogOptions.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting docchat service...")

	vectorStore := store.NewMemoryStore()
	logger.Info("Vector store initialized")

	redisClient, answerCache := cfg.newAnswerCache(ctx)

	embedProvider, chatProvider, err := cfg.newProviders()
	if err != nil {
		return nil, err
	}

	corpusLoader := loader.New(cfg.RetrievalOptions.CorpusDir)
	chunker := biz.NewChunker(&biz.ChunkerConfig{
		ChunkSize:    cfg.RetrievalOptions.ChunkSize,
		ChunkOverlap: cfg.RetrievalOptions.ChunkOverlap,
	})

	indexer, err := biz.NewIndexer(
		&biz.IndexerConfig{
			Mode:         cfg.RetrievalOptions.Mode,
			EmbedWorkers: cfg.RetrievalOptions.EmbedWorkers,
		},
		corpusLoader, chunker, vectorStore, embedProvider,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize indexer: %w", err)
	}

	retriever := biz.NewRetriever(&biz.RetrieverConfig{
		Mode:     cfg.RetrievalOptions.Mode,
		TopK:     cfg.RetrievalOptions.TopK,
		MinScore: cfg.RetrievalOptions.MinScore,
	}, vectorStore, embedProvider, indexer.Keyword)

	generator := biz.NewGenerator(&biz.GeneratorConfig{
		PromptTemplate: cfg.RetrievalOptions.SystemPrompt,
	}, chatProvider)

	service := biz.NewService(retriever, generator, indexer, answerCache, vectorStore)

	if _, err := service.Reload(ctx); err != nil {
		return nil, fmt.Errorf("failed to build initial index: %w", err)
	}

	var corpusWatcher *watcher.Watcher
	if cfg.RetrievalOptions.Watch {
		corpusWatcher, err = watcher.New(cfg.RetrievalOptions.CorpusDir, 0, func(ctx context.Context) error {
			_, err := service.Reload(ctx)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to watch corpus directory: %w", err)
		}
	}

	srv := server.New(cfg.HTTPOptions,
		server.WithShutdownTimeout(cfg.ShutdownTimeout),
		server.WithShutdownHook(func() {
			if corpusWatcher != nil {
				_ = corpusWatcher.Close()
			}
			service.Close()
			if redisClient != nil {
				_ = redisClient.Close()
			}
		}),
	)

	engine := srv.Engine()
	engine.Use(server.DefaultMiddleware(cfg.MiddlewareOptions.LoggerSkipPaths, cfg.corsConfig())...)
	engine.Use(server.RequestTimeout(cfg.MiddlewareOptions.RequestTimeout))
	router.Register(engine, handler.NewDocChatHandler(service))

	return &Server{
		srv:     srv,
		service: service,
		watcher: corpusWatcher,
	}, nil
}

// Run starts the server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	if s.watcher != nil {
		s.watcher.Start(ctx)
	}
	return s.srv.Run()
}

// newProviders creates the embedding and chat providers from config. The
// embedding provider is skipped in keyword mode.
func (cfg *Config) newProviders() (llm.EmbeddingProvider, llm.ChatProvider, error) {
	var embedProvider llm.EmbeddingProvider
	if cfg.RetrievalOptions.Mode == retrievalopts.ModeEmbedding {
		var err error
		embedProvider, err = llm.NewEmbeddingProvider(cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.ToConfigMap())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
		}
		logger.Infow("Embedding provider initialized",
			"provider", cfg.EmbeddingOptions.Provider,
			"model", cfg.EmbeddingOptions.Model,
		)
	}

	chatProvider, err := llm.NewChatProvider(cfg.ChatOptions.Provider, cfg.ChatOptions.ToConfigMap())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize chat provider: %w", err)
	}
	logger.Infow("Chat provider initialized",
		"provider", cfg.ChatOptions.Provider,
		"model", cfg.ChatOptions.Model,
	)

	return embedProvider, chatProvider, nil
}

// newAnswerCache connects to Redis when the cache is enabled. An
// unreachable Redis disables the cache instead of failing startup.
func (cfg *Config) newAnswerCache(ctx context.Context) (*goredis.Client, *biz.AnswerCache) {
	if !cfg.CacheOptions.Enabled {
		logger.Info("Answer cache is disabled")
		return nil, biz.NewAnswerCache(nil, nil)
	}

	redisOpts := cfg.CacheOptions.Redis
	if redisOpts == nil {
		logger.Warn("Cache is enabled but no Redis configuration provided")
		return nil, biz.NewAnswerCache(nil, nil)
	}

	redisClient := goredis.NewClient(&goredis.Options{
		Addr:         redisOpts.Addr(),
		Password:     redisOpts.Password,
		DB:           redisOpts.Database,
		MaxRetries:   redisOpts.MaxRetries,
		PoolSize:     redisOpts.PoolSize,
		MinIdleConns: redisOpts.MinIdleConns,
		DialTimeout:  redisOpts.DialTimeout,
		ReadTimeout:  redisOpts.ReadTimeout,
		WriteTimeout: redisOpts.WriteTimeout,
	})

	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warnw("Failed to connect to redis, cache will be disabled", "error", err.Error())
		_ = redisClient.Close()
		return nil, biz.NewAnswerCache(nil, nil)
	}

	cache := biz.NewAnswerCache(redisClient, &biz.AnswerCacheConfig{
		Enabled:   true,
		TTL:       cfg.CacheOptions.TTL,
		KeyPrefix: cfg.CacheOptions.KeyPrefix,
	})
	logger.Infow("Redis answer cache initialized",
		"host", redisOpts.Host,
		"port", redisOpts.Port,
		"ttl", cfg.CacheOptions.TTL.String(),
	)
	return redisClient, cache
}

func (cfg *Config) corsConfig() *middleware.CORSConfig {
	corsOpts := cfg.MiddlewareOptions.CORS
	if corsOpts == nil || !corsOpts.Enabled {
		return nil
	}
	return &middleware.CORSConfig{
		AllowOrigins: corsOpts.AllowOrigins,
		AllowMethods: corsOpts.AllowMethods,
		AllowHeaders: corsOpts.AllowHeaders,
		MaxAge:       corsOpts.MaxAge,
	}
}

func printBanner() {
	fmt.Printf(`
     _                 _           _
  __| | ___   ___  ___| |__   __ _| |_
 / _` + "`" + ` |/ _ \ / __|/ __| '_ \ / _` + "`" + ` | __|
| (_| | (_) | (__| (__| | | | (_| | |_
 \__,_|\___/ \___|\___|_| |_|\__,_|\__|

 Version: %s
`, app.GetVersion())
}
