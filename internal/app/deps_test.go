package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qa-ensemble/internal/cache"
	"qa-ensemble/internal/config"
	"qa-ensemble/internal/llm"
	"qa-ensemble/internal/logger"
	"qa-ensemble/internal/store"
)

func stubConfig(t *testing.T) config.Config {
	t.Helper()
	t.Setenv("LLM_PROVIDER", "stub")
	cfg := config.Load()
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestNewWithStubProvider(t *testing.T) {
	deps, err := New(stubConfig(t), logger.Discard())
	require.NoError(t, err)
	defer deps.Close()

	assert.IsType(t, &llm.StubClient{}, deps.LLM)
	assert.IsType(t, &store.MemoryStore{}, deps.Store)
	assert.IsType(t, &cache.NoOpCache{}, deps.Cache)
	assert.Nil(t, deps.Queue)

	results, err := deps.Pipeline.Run(context.Background(), []string{"What is 6 times 7?"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "42", results[0].Final)
	assert.Len(t, results[0].Variants, 4)
}

func TestNewRejectsMissingCredentials(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"openai without key", func(c *config.Config) { c.LLMProvider = "openai"; c.OpenAIKey = "" }, "OPENAI_API_KEY"},
		{"gemini without key", func(c *config.Config) { c.LLMProvider = "gemini"; c.GeminiKey = "" }, "GEMINI_API_KEY"},
		{"postgres without url", func(c *config.Config) { c.StoreProvider = "postgres"; c.DBURL = "" }, "DB_URL"},
		{"nats without url", func(c *config.Config) { c.QueueProvider = "nats"; c.QueueURL = "" }, "QUEUE_URL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := stubConfig(t)
			tt.mutate(&cfg)
			_, err := New(cfg, logger.Discard())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNewLoadsDirectivesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "directives.yaml")
	body := "directives:\n  - name: terse\n    instruction: Rewrite this tersely.\n  - name: formal\n    instruction: Rewrite this formally.\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg := stubConfig(t)
	cfg.DirectivesFile = path
	deps, err := New(cfg, logger.Discard())
	require.NoError(t, err)

	r := deps.Pipeline.Answer(context.Background(), "Q?")
	assert.Len(t, r.Variants, 2)
}

func TestRedisFallsBackToNoOp(t *testing.T) {
	cfg := stubConfig(t)
	cfg.CacheProvider = "redis"
	cfg.RedisAddr = "127.0.0.1:1"

	deps, err := New(cfg, logger.Discard())
	require.NoError(t, err)
	assert.IsType(t, &cache.NoOpCache{}, deps.Cache)
}
