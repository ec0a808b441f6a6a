package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/openai/openai-go/v3"

	"qa-ensemble/internal/cache"
	"qa-ensemble/internal/config"
	"qa-ensemble/internal/ensemble"
	"qa-ensemble/internal/llm"
	"qa-ensemble/internal/logger"
	"qa-ensemble/internal/queue"
	"qa-ensemble/internal/store"
)

// Deps bundles common runtime dependencies for services.
type Deps struct {
	Config   config.Config
	Log      *slog.Logger
	LLM      llm.Client
	Pipeline *ensemble.Pipeline
	Cache    cache.Cache
	Store    store.Store
	Queue    queue.Queue // nil when QUEUE_PROVIDER=none

	closers []func() error
}

// Build loads env, config, and shared components.
func Build() (Deps, error) {
	// A .env file is optional; plain environment variables work too.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Deps{}, fmt.Errorf("failed to load environment variables: %w", err)
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return Deps{}, err
	}
	return New(cfg, logger.New(cfg.LogLevel))
}

// New builds every component from an already loaded config.
func New(cfg config.Config, log *slog.Logger) (Deps, error) {
	deps := Deps{Config: cfg, Log: log}

	llmClient, err := buildLLM(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize LLM: %w", err)
	}
	deps.LLM = llmClient
	if c, ok := llmClient.(interface{ Close() error }); ok {
		deps.closers = append(deps.closers, c.Close)
	}

	deps.Cache = buildCache(cfg, log)
	deps.closers = append(deps.closers, deps.Cache.Close)

	pipeline, err := buildPipeline(cfg, log, llmClient, deps.Cache)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize pipeline: %w", err)
	}
	deps.Pipeline = pipeline

	st, err := buildStore(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize store: %w", err)
	}
	deps.Store = st
	if c, ok := st.(interface{ Close() error }); ok {
		deps.closers = append(deps.closers, c.Close)
	}

	q, nc, err := buildQueue(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize queue: %w", err)
	}
	deps.Queue = q
	if nc != nil {
		deps.closers = append(deps.closers, func() error { nc.Close(); return nil })
	}
	return deps, nil
}

// Close releases connections held by the components.
func (d Deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PipelineConfig maps runtime config onto the ensemble settings.
func PipelineConfig(cfg config.Config, directives []ensemble.Directive) ensemble.Config {
	return ensemble.Config{
		Directives:         directives,
		SystemMessage:      cfg.SystemMessage,
		RewriteTemperature: cfg.RewriteTemperature,
		SampleTemperature:  cfg.SampleTemperature,
		MaxTokens:          cfg.MaxTokens,
		Timeout:            cfg.Timeout,
		MaxParallelCalls:   cfg.MaxParallelCalls,
	}
}

func buildPipeline(cfg config.Config, log *slog.Logger, client llm.Client, c cache.Cache) (*ensemble.Pipeline, error) {
	directives := ensemble.DefaultDirectives()
	if cfg.DirectivesFile != "" {
		loaded, err := ensemble.LoadDirectives(cfg.DirectivesFile)
		if err != nil {
			return nil, err
		}
		directives = loaded
		log.Info("loaded directives", "file", cfg.DirectivesFile, "count", len(directives))
	}
	pcfg := PipelineConfig(cfg, directives)

	var opts []ensemble.Option
	if cfg.CacheProvider != "none" {
		fingerprint := ensemble.Fingerprint(cfg.LLMProvider, modelName(cfg), pcfg)
		opts = append(opts, ensemble.WithCache(c, fingerprint, time.Duration(cfg.CacheTTL)*time.Second))
	}
	return ensemble.New(client, pcfg, log, opts...)
}

func modelName(cfg config.Config) string {
	switch cfg.LLMProvider {
	case "gemini":
		return cfg.GeminiModel
	case "stub":
		return cfg.StubAnswer
	default:
		return cfg.LLMModel
	}
}

func buildLLM(cfg config.Config, log *slog.Logger) (llm.Client, error) {
	switch cfg.LLMProvider {
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER=openai")
		}
		client, err := llm.NewOpenAIClient(cfg.OpenAIKey, cfg.APIBase, openai.ChatModel(cfg.LLMModel))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenAI client: %w", err)
		}
		log.Info("using OpenAI LLM client", "model", cfg.LLMModel, "base_url", cfg.APIBase)
		return client, nil
	case "gemini":
		if cfg.GeminiKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required when LLM_PROVIDER=gemini")
		}
		client, err := llm.NewGeminiClient(context.Background(), cfg.GeminiKey, cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
		}
		log.Info("using Gemini LLM client", "model", cfg.GeminiModel)
		return client, nil
	case "stub":
		log.Warn("using stub LLM client; every completion returns a fixed reply", "reply", cfg.StubAnswer)
		return llm.NewStubClient(cfg.StubAnswer), nil
	default:
		return nil, fmt.Errorf("invalid LLM_PROVIDER: %s (valid options: openai, gemini, stub)", cfg.LLMProvider)
	}
}

// buildCache never fails: an unreachable Redis only costs recomputation.
func buildCache(cfg config.Config, log *slog.Logger) cache.Cache {
	if cfg.CacheProvider != "redis" {
		return cache.NewNoOpCache()
	}
	c, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Warn("redis unavailable, answers will not be cached", "addr", cfg.RedisAddr, "err", err)
		return cache.NewNoOpCache()
	}
	log.Info("using Redis answer cache", "addr", cfg.RedisAddr, "ttl_seconds", cfg.CacheTTL)
	return c
}

func buildStore(cfg config.Config, log *slog.Logger) (store.Store, error) {
	switch cfg.StoreProvider {
	case "memory":
		log.Info("using in-memory store")
		return store.NewMemory(), nil
	case "postgres":
		if cfg.DBURL == "" {
			return nil, fmt.Errorf("DB_URL is required when STORE_PROVIDER=postgres")
		}
		db, err := store.NewPostgres(cfg.DBURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres: %w", err)
		}
		log.Info("using Postgres store")
		return db, nil
	default:
		return nil, fmt.Errorf("invalid STORE_PROVIDER: %s (valid options: memory, postgres)", cfg.StoreProvider)
	}
}

func buildQueue(cfg config.Config, log *slog.Logger) (queue.Queue, *nats.Conn, error) {
	switch cfg.QueueProvider {
	case "none", "":
		return nil, nil, nil
	case "nats":
		if cfg.QueueURL == "" {
			return nil, nil, fmt.Errorf("QUEUE_URL is required when QUEUE_PROVIDER=nats")
		}
		nc, err := nats.Connect(cfg.QueueURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		log.Info("using NATS queue")
		return queue.NewNATS(log, nc), nc, nil
	default:
		return nil, nil, fmt.Errorf("invalid QUEUE_PROVIDER: %s (valid options: none, nats)", cfg.QueueProvider)
	}
}
