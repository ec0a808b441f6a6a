package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
)

// Config holds runtime configuration. Everything the pipeline needs is passed
// into constructors from here; nothing reads the environment after Load.
type Config struct {
	// Server
	Port     int    `env:"PORT" envDefault:"8080" validate:"min=1,max=65535"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Generation service
	LLMProvider   string        `env:"LLM_PROVIDER" envDefault:"openai" validate:"oneof=openai gemini stub"` // "stub" answers locally, for testing
	OpenAIKey     string        `env:"OPENAI_API_KEY"`
	APIBase       string        `env:"API_BASE"` // any OpenAI-compatible endpoint, e.g. a vLLM server
	LLMModel      string        `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	GeminiKey     string        `env:"GEMINI_API_KEY"`
	GeminiModel   string        `env:"GEMINI_MODEL" envDefault:"gemini-1.5-flash"`
	StubAnswer    string        `env:"STUB_ANSWER" envDefault:"42"`
	SystemMessage string        `env:"SYSTEM_MESSAGE" envDefault:"You are a helpful assistant. Reply with only the final answer, no explanation."`
	MaxTokens     int           `env:"MAX_TOKENS" envDefault:"256" validate:"min=1"`
	Timeout       time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s"`

	// Ensemble
	RewriteTemperature float64 `env:"REWRITE_TEMPERATURE" envDefault:"0" validate:"min=0,max=2"`
	SampleTemperature  float64 `env:"SAMPLE_TEMPERATURE" envDefault:"0.9" validate:"min=0,max=2"`
	MaxParallelCalls   int     `env:"MAX_PARALLEL_CALLS" envDefault:"1" validate:"min=1"`
	DirectivesFile     string  `env:"DIRECTIVES_FILE"` // YAML; built-in reading-level directives when empty

	// Batch files
	InputPath       string `env:"INPUT_PATH" envDefault:"questions.json"`
	OutputPath      string `env:"OUTPUT_PATH" envDefault:"answers.json"`
	MaxAnswerLength int    `env:"MAX_ANSWER_LENGTH" envDefault:"5000" validate:"min=1"`

	// Store
	StoreProvider string `env:"STORE_PROVIDER" envDefault:"memory" validate:"oneof=memory postgres"`
	DBURL         string `env:"DB_URL"`

	// Queue
	QueueProvider string `env:"QUEUE_PROVIDER" envDefault:"none" validate:"oneof=none nats"`
	QueueURL      string `env:"QUEUE_URL"`

	// Cache
	CacheProvider string `env:"CACHE_PROVIDER" envDefault:"none" validate:"oneof=none redis"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	CacheTTL      int    `env:"CACHE_TTL" envDefault:"86400"` // seconds
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	return cfg
}

var validate = validator.New()

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
