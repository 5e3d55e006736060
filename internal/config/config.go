package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Vector store backends.
const (
	BackendPGVector = "pgvector"
	BackendQdrant   = "qdrant"
	BackendMemory   = "memory"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Debug       bool   `envconfig:"DEBUG" default:"false"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	VectorBackend string `envconfig:"VECTOR_BACKEND" default:"pgvector"`

	DatabaseURL string `envconfig:"DATABASE_URL"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"10"`
	DBMinConns  int32  `envconfig:"DB_MIN_CONNS" default:"1"`

	QdrantURL        string `envconfig:"QDRANT_URL" default:"http://localhost:6333"`
	QdrantAPIKey     string `envconfig:"QDRANT_API_KEY"`
	QdrantCollection string `envconfig:"QDRANT_COLLECTION" default:"guardian_policies"`

	LLMAPIKey      string  `envconfig:"LLM_API_KEY"`
	LLMBaseURL     string  `envconfig:"LLM_BASE_URL" default:"https://api.cerebras.ai/v1"`
	LLMModel       string  `envconfig:"LLM_MODEL" default:"llama-4-scout-17b-16e-instruct"`
	LLMTemperature float32 `envconfig:"LLM_TEMPERATURE" default:"0.2"`

	EmbeddingAPIKey     string `envconfig:"EMBEDDING_API_KEY"`
	EmbeddingBaseURL    string `envconfig:"EMBEDDING_BASE_URL" default:"http://localhost:8081/v1"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL" default:"sentence-transformers/all-mpnet-base-v2"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"768"`
	EmbeddingBatchSize  int    `envconfig:"EMBEDDING_BATCH_SIZE" default:"64"`

	ExaAPIKey    string  `envconfig:"EXA_API_KEY"`
	ExaBaseURL   string  `envconfig:"EXA_BASE_URL" default:"https://api.exa.ai"`
	ExaRateLimit float64 `envconfig:"EXA_RATE_LIMIT" default:"5"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"guardian-documents"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	SentryDSN string `envconfig:"SENTRY_DSN"`

	PromptsFile string `envconfig:"PROMPTS_FILE"`

	// APIToken protects every route except /health when set.
	APIToken       string   `envconfig:"API_TOKEN"`
	MaxUploadBytes int64    `envconfig:"MAX_UPLOAD_BYTES" default:"26214400"`
	CORSOrigins    []string `envconfig:"CORS_ORIGINS" default:"*"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("GUARDIAN", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Validate checks settings that depend on each other.
func (c *Config) Validate() error {
	c.VectorBackend = strings.ToLower(strings.TrimSpace(c.VectorBackend))
	switch c.VectorBackend {
	case BackendPGVector:
		if c.DatabaseURL == "" {
			return fmt.Errorf("required key DATABASE_URL missing value for vector backend %q", c.VectorBackend)
		}
	case BackendQdrant:
		if c.QdrantURL == "" {
			return fmt.Errorf("required key QDRANT_URL missing value for vector backend %q", c.VectorBackend)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown vector backend %q (expected pgvector, qdrant or memory)", c.VectorBackend)
	}

	if c.EmbeddingDimensions <= 0 {
		return fmt.Errorf("EMBEDDING_DIMENSIONS must be positive, got %d", c.EmbeddingDimensions)
	}
	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasWebSearch() bool {
	return c.ExaAPIKey != ""
}

func (c *Config) HasSentry() bool {
	return c.SentryDSN != ""
}

func (c *Config) HasAPIToken() bool {
	return c.APIToken != ""
}
