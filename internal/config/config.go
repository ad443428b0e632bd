package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/futig/advisor-backend/internal/entity"
	pkgRetry "github.com/futig/advisor-backend/internal/pkg/retry"
	"github.com/joho/godotenv"
)

const (
	EmbeddingProviderNone   = "none"
	EmbeddingProviderOpenAI = "openai"
	EmbeddingProviderOllama = "ollama"

	IndexBackendFlat       = "flat"
	IndexBackendBruteForce = "bruteforce"
)

// Config holds the application configuration
type Config struct {
	// Server configuration
	ServerAddr         string        `env:"SERVER_ADDR,notEmpty"`
	ServerReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	ServerWriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"120s"`
	ServerIdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`
	HandlerTimeout     time.Duration `env:"SERVER_HANDLER_TIMEOUT" envDefault:"90s"`

	// Database configuration, persistence is disabled when the URL is empty
	DatabaseURL         string        `env:"DATABASE_URL"`
	DBMaxConns          int           `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns          int           `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`

	// History writes are retried; a failed write only drops the query_id
	HistoryRetry pkgRetry.RetryConfig `envPrefix:"HISTORY_RETRY_"`

	// Logging configuration
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Core components
	EmbeddingCfg  EmbeddingConfig   `envPrefix:"EMBEDDING_"`
	IndexCfg      VectorIndexConfig `envPrefix:"VECTOR_INDEX_"`
	PipelineCfg   PipelineConfig    `envPrefix:"PIPELINE_"`
	GenerationCfg GenerationConfig  `envPrefix:"GENERATION_"`

	// Generation backends
	LocalBackendCfg  LocalBackendConfig  `envPrefix:"LOCAL_"`
	RemoteBackendCfg RemoteBackendConfig `envPrefix:"REMOTE_"`

	WorkerPoolCfg WorkerPoolConfig `envPrefix:"WORKER_POOL_"`
	SeedCfg       SeedConfig       `envPrefix:"SEED_"`
	APICfg        APIConfig        `envPrefix:"API_"`

	// Telegram bot configuration (optional)
	TelegramCfg TelegramConfig `envPrefix:"TELEGRAM_"`

	// Environment (set from flag, not from env var)
	Environment string
}

type EmbeddingConfig struct {
	HTTPClientConfig
	Provider    string               `env:"PROVIDER" envDefault:"none"`
	Model       string               `env:"MODEL" envDefault:"nomic-embed-text"`
	Endpoint    string               `env:"ENDPOINT"`
	Dimension   int                  `env:"DIMENSION" envDefault:"384"`
	BatchSize   int                  `env:"BATCH_SIZE" envDefault:"32"`
	Concurrency int                  `env:"CONCURRENCY" envDefault:"4"`
	CacheTTL    time.Duration        `env:"CACHE_TTL" envDefault:"30m"`
	Retry       pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

func (c EmbeddingConfig) Enabled() bool {
	return c.Provider != "" && c.Provider != EmbeddingProviderNone
}

// SupportedDimension reports whether n is a vector width the service accepts
func SupportedDimension(n int) bool {
	return n == 384 || n == 768
}

type VectorIndexConfig struct {
	Backend string `env:"BACKEND" envDefault:"flat"`
}

type PipelineConfig struct {
	TopK int `env:"TOP_K" envDefault:"3"`
}

type GenerationConfig struct {
	Backend          string            `env:"BACKEND" envDefault:"mock"`
	// CategoryBackends overrides the backend per category, e.g. "legal:remote,health:local"
	CategoryBackends map[string]string `env:"CATEGORY_BACKENDS"`
	FallbackEnabled  bool              `env:"FALLBACK_ENABLED" envDefault:"true"`
	StreamDelay      time.Duration     `env:"STREAM_DELAY" envDefault:"50ms"`
	MaxTokens        int               `env:"MAX_TOKENS" envDefault:"256"`
	Temperature      float64           `env:"TEMPERATURE" envDefault:"0.7"`
	TopP             float64           `env:"TOP_P" envDefault:"0.9"`
}

// SelectedBackend returns the default backend identifier
func (c GenerationConfig) SelectedBackend() entity.BackendKind {
	return entity.BackendKind(strings.ToLower(strings.TrimSpace(c.Backend)))
}

// Overrides returns the parsed per-category backend overrides
func (c GenerationConfig) Overrides() (map[entity.Category]entity.BackendKind, error) {
	out := make(map[entity.Category]entity.BackendKind, len(c.CategoryBackends))
	for rawCategory, rawBackend := range c.CategoryBackends {
		category, err := entity.ParseCategory(rawCategory)
		if err != nil {
			return nil, fmt.Errorf("category override %q: %w", rawCategory, err)
		}
		backend := entity.BackendKind(strings.ToLower(strings.TrimSpace(rawBackend)))
		if err := backend.Validate(); err != nil {
			return nil, fmt.Errorf("category override %q: %w", rawCategory, err)
		}
		out[category] = backend
	}
	return out, nil
}

type LocalBackendConfig struct {
	HTTPClientConfig
	ModelPath          string               `env:"MODEL_PATH"`
	ModelName          string               `env:"MODEL_NAME" envDefault:"llama-3.2-korean-bllossom-3b-q4_k_m"`
	CompletionEndpoint string               `env:"COMPLETION_ENDPOINT" envDefault:"/completion"`
	HealthEndpoint     string               `env:"HEALTH_ENDPOINT" envDefault:"/health"`
	InferenceTimeout   time.Duration        `env:"INFERENCE_TIMEOUT" envDefault:"120s"`
	TopK               int                  `env:"TOP_K" envDefault:"40"`
	RepeatPenalty      float64              `env:"REPEAT_PENALTY" envDefault:"1.1"`
	Stop               []string             `env:"STOP" envDefault:"Q:,User:"`
	Retry              pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

func (c LocalBackendConfig) Enabled() bool {
	return c.ModelPath != ""
}

type RemoteBackendConfig struct {
	HTTPClientConfig
	Endpoint string `env:"ENDPOINT" envDefault:"/v1/chat/completions"`
	Model    string `env:"MODEL"`
}

func (c RemoteBackendConfig) Enabled() bool {
	return c.Url != ""
}

type WorkerPoolConfig struct {
	Size        int `env:"SIZE" envDefault:"4"`
	MaxBlocking int `env:"MAX_BLOCKING" envDefault:"64"`
}

type SeedConfig struct {
	Path  string `env:"DATA_PATH" envDefault:"data/seed.json"`
	Watch bool   `env:"WATCH" envDefault:"false"`
}

type APIConfig struct {
	MaxQuestionLength int    `env:"MAX_QUESTION_LENGTH" envDefault:"2000"`
	HistoryLimit      int    `env:"HISTORY_LIMIT" envDefault:"20"`
	MaxHistoryLimit   int    `env:"MAX_HISTORY_LIMIT" envDefault:"100"`
	PDFFontPath       string `env:"PDF_FONT_PATH"`
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	BotToken           string               `env:"BOT_TOKEN"`
	UpdateTimeout      int                  `env:"UPDATE_TIMEOUT" envDefault:"60"`
	RateLimitPerMinute int                  `env:"RATE_LIMIT_PER_MINUTE" envDefault:"20"`
	RateLimitBurst     int                  `env:"RATE_LIMIT_BURST" envDefault:"5"`
	ShutdownTimeout    int                  `env:"SHUTDOWN_TIMEOUT" envDefault:"30"` // seconds
	StateTTL           time.Duration        `env:"STATE_TTL" envDefault:"24h"`
	SendRetry          pkgRetry.RetryConfig `envPrefix:"SEND_RETRY_"`
}

type HTTPClientConfig struct {
	RequestTimeout        time.Duration `env:"TIMEOUT" envDefault:"30s"`
	ConnTimeout           time.Duration `env:"CONN_TIMEOUT" envDefault:"5s"`
	KeepAlive             time.Duration `env:"KEEP_ALIVE" envDefault:"90s"`
	IdleConnTimeout       time.Duration `env:"IDLE_CONN_TIMEOUT" envDefault:"90s"`
	ResponseHeaderTimeout time.Duration `env:"RESPONSE_HEADER_TIMEOUT" envDefault:"30s"`
	Token                 string        `env:"TOKEN"`
	Url                   string        `env:"SERVICE_URL"`
}

// PersistenceEnabled reports whether query history is stored
func (c *Config) PersistenceEnabled() bool {
	return c.DatabaseURL != ""
}

// LoadConfig reads the -env flag and loads the matching configuration
func LoadConfig() (*Config, error) {
	envFlag := flag.String("env", "local", "Environment to run (local, prod, or custom)")
	flag.Parse()

	return Load(*envFlag)
}

// Load loads configuration for the named environment without touching flags
func Load(environment string) (*Config, error) {
	envFile := getEnvFile(environment)
	// Try to load env file, but don't fail if it's missing.
	// In containerized/prod environments variables are usually set externally.
	if err := godotenv.Load(envFile); err != nil {
		fmt.Printf("Warning: could not load %s file (this is ok if env vars are set externally): %v\n", envFile, err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	cfg.Environment = environment

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	var errors []string

	// Embedding
	if !SupportedDimension(cfg.EmbeddingCfg.Dimension) {
		errors = append(errors, fmt.Sprintf("EMBEDDING_DIMENSION must be 384 or 768, got %d", cfg.EmbeddingCfg.Dimension))
	}
	switch cfg.EmbeddingCfg.Provider {
	case EmbeddingProviderNone, "":
	case EmbeddingProviderOpenAI, EmbeddingProviderOllama:
		if cfg.EmbeddingCfg.Url == "" {
			errors = append(errors, "EMBEDDING_SERVICE_URL is required when EMBEDDING_PROVIDER is set")
		}
	default:
		errors = append(errors, fmt.Sprintf("EMBEDDING_PROVIDER must be one of none, openai, ollama, got %q", cfg.EmbeddingCfg.Provider))
	}
	if cfg.EmbeddingCfg.BatchSize < 1 {
		errors = append(errors, fmt.Sprintf("EMBEDDING_BATCH_SIZE must be positive, got %d", cfg.EmbeddingCfg.BatchSize))
	}
	if cfg.EmbeddingCfg.Concurrency < 1 {
		errors = append(errors, fmt.Sprintf("EMBEDDING_CONCURRENCY must be positive, got %d", cfg.EmbeddingCfg.Concurrency))
	}

	// Vector index and pipeline
	if cfg.IndexCfg.Backend != IndexBackendFlat && cfg.IndexCfg.Backend != IndexBackendBruteForce {
		errors = append(errors, fmt.Sprintf("VECTOR_INDEX_BACKEND must be flat or bruteforce, got %q", cfg.IndexCfg.Backend))
	}
	if cfg.PipelineCfg.TopK < 1 || cfg.PipelineCfg.TopK > 20 {
		errors = append(errors, fmt.Sprintf("PIPELINE_TOP_K must be between 1 and 20, got %d", cfg.PipelineCfg.TopK))
	}

	// Generation backend selection
	errors = append(errors, validateGeneration(cfg)...)

	if cfg.WorkerPoolCfg.Size < 1 {
		errors = append(errors, fmt.Sprintf("WORKER_POOL_SIZE must be positive, got %d", cfg.WorkerPoolCfg.Size))
	}
	if cfg.APICfg.MaxQuestionLength < 1 {
		errors = append(errors, fmt.Sprintf("API_MAX_QUESTION_LENGTH must be positive, got %d", cfg.APICfg.MaxQuestionLength))
	}
	if cfg.APICfg.HistoryLimit < 1 || cfg.APICfg.HistoryLimit > cfg.APICfg.MaxHistoryLimit {
		errors = append(errors, fmt.Sprintf("API_HISTORY_LIMIT must be between 1 and API_MAX_HISTORY_LIMIT(%d), got %d", cfg.APICfg.MaxHistoryLimit, cfg.APICfg.HistoryLimit))
	}

	// Validate Database configuration
	if cfg.PersistenceEnabled() {
		if cfg.DBMaxConns < 1 || cfg.DBMaxConns > 200 {
			errors = append(errors, fmt.Sprintf("DB_MAX_CONNS must be between 1 and 200, got %d", cfg.DBMaxConns))
		}

		if cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns {
			errors = append(errors, fmt.Sprintf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS(%d), got %d", cfg.DBMaxConns, cfg.DBMinConns))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation errors:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

func validateGeneration(cfg *Config) []string {
	var errors []string
	gen := cfg.GenerationCfg

	referenced := map[entity.BackendKind]bool{}

	selected := gen.SelectedBackend()
	if err := selected.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("GENERATION_BACKEND: %v", err))
	} else {
		referenced[selected] = true
	}

	overrides, err := gen.Overrides()
	if err != nil {
		errors = append(errors, fmt.Sprintf("GENERATION_CATEGORY_BACKENDS: %v", err))
	}
	for _, backend := range overrides {
		referenced[backend] = true
	}

	if referenced[entity.BackendRemote] && !cfg.RemoteBackendCfg.Enabled() {
		errors = append(errors, "REMOTE_SERVICE_URL is required when the remote backend is selected")
	}
	if referenced[entity.BackendLocal] {
		if !cfg.LocalBackendCfg.Enabled() {
			errors = append(errors, "LOCAL_MODEL_PATH is required when the local backend is selected")
		}
		if cfg.LocalBackendCfg.Url == "" {
			errors = append(errors, "LOCAL_SERVICE_URL is required when the local backend is selected")
		}
	}

	if gen.MaxTokens < 1 {
		errors = append(errors, fmt.Sprintf("GENERATION_MAX_TOKENS must be positive, got %d", gen.MaxTokens))
	}
	if gen.Temperature < 0 || gen.Temperature > 1 {
		errors = append(errors, fmt.Sprintf("GENERATION_TEMPERATURE must be within [0,1], got %g", gen.Temperature))
	}
	if gen.TopP < 0 || gen.TopP > 1 {
		errors = append(errors, fmt.Sprintf("GENERATION_TOP_P must be within [0,1], got %g", gen.TopP))
	}
	if gen.StreamDelay < 0 {
		errors = append(errors, "GENERATION_STREAM_DELAY must not be negative")
	}

	return errors
}

// Validate checks the settings only the Telegram bot needs
func (c *TelegramConfig) Validate() error {
	var errors []string

	if c.BotToken == "" {
		errors = append(errors, "TELEGRAM_BOT_TOKEN is required")
	}

	if c.RateLimitPerMinute < 1 || c.RateLimitPerMinute > 60 {
		errors = append(errors, fmt.Sprintf("TELEGRAM_RATE_LIMIT_PER_MINUTE must be between 1 and 60, got %d", c.RateLimitPerMinute))
	}

	if c.RateLimitBurst < 1 || c.RateLimitBurst > 20 {
		errors = append(errors, fmt.Sprintf("TELEGRAM_RATE_LIMIT_BURST must be between 1 and 20, got %d", c.RateLimitBurst))
	}

	if c.ShutdownTimeout < 1 || c.ShutdownTimeout > 300 {
		errors = append(errors, fmt.Sprintf("TELEGRAM_SHUTDOWN_TIMEOUT must be between 1 and 300 seconds, got %d", c.ShutdownTimeout))
	}

	if len(errors) > 0 {
		return fmt.Errorf("telegram configuration errors:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

func getEnvFile(environment string) string {
	switch environment {
	case "prod", "production":
		return ".env.prod"
	case "local", "dev", "development":
		return ".env.local"
	default:
		return fmt.Sprintf(".env.%s", environment)
	}
}
