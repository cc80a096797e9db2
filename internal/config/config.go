// Package config loads the process configuration from a YAML file overlaid
// with environment variables, mirroring the teacher's config.LoadConfig:
// read file, unmarshal, apply defaults, report via pterm.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pterm/pterm"
	"gopkg.in/yaml.v3"
)

// PostgresConfig configures the relational store (containers, documents,
// chunks, jobs, job_events, embedding cache, diagnostics).
type PostgresConfig struct {
	DSN             string `yaml:"dsn"`
	MaxConns        int32  `yaml:"max_conns"`
	MaxConnLifetime string `yaml:"max_conn_lifetime"`
	MaxConnIdle     string `yaml:"max_conn_idle"`
}

// QdrantConfig configures the primary vector store backend.
type QdrantConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	UseTLS bool   `yaml:"use_tls"`
	APIKey string `yaml:"api_key,omitempty"`
}

// RedisConfig configures the optional embedding-cache fronting cache.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db"`
}

// ObjectStoreConfig configures the S3/MinIO-compatible blob store.
type ObjectStoreConfig struct {
	Bucket                string `yaml:"bucket"`
	Prefix                string `yaml:"prefix,omitempty"`
	Region                string `yaml:"region"`
	Endpoint              string `yaml:"endpoint,omitempty"`
	ForcePathStyle        bool   `yaml:"force_path_style"`
	AccessKey             string `yaml:"access_key,omitempty"`
	SecretKey             string `yaml:"secret_key,omitempty"`
	TLSInsecureSkipVerify bool   `yaml:"tls_insecure_skip_verify,omitempty"`
	SSE                   SSEConfig `yaml:"sse,omitempty"`
}

// SSEConfig configures server-side encryption on objects written to S3.
type SSEConfig struct {
	Mode     string `yaml:"mode,omitempty"` // "", "sse-s3", "sse-kms"
	KMSKeyID string `yaml:"kms_key_id,omitempty"`
}

// EmbeddingConfig configures the text/image embedding provider.
type EmbeddingConfig struct {
	Provider     string  `yaml:"provider"` // "openai", "genai", "http"
	Host         string  `yaml:"host,omitempty"`
	APIKey       string  `yaml:"api_key,omitempty"`
	Model        string  `yaml:"model"`
	Dimensions   int     `yaml:"dimensions"`
	BatchSize    int     `yaml:"batch_size"`
	RateLimitRPS float64 `yaml:"rate_limit_rps"`
	CacheTTL     string  `yaml:"cache_ttl"`
}

// RerankerConfig configures the optional remote cross-encoder reranker.
type RerankerConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Host      string `yaml:"host,omitempty"`
	APIKey    string `yaml:"api_key,omitempty"`
	CacheSize int    `yaml:"cache_size"`
	CacheTTL  string `yaml:"cache_ttl"`
}

// LLMConfig configures the dual-provider LLM abstraction used for graph
// entity extraction and NL-to-graph-query translation.
type LLMConfig struct {
	Provider     string  `yaml:"provider"` // "anthropic", "openai"
	Model        string  `yaml:"model"`
	AnthropicKey string  `yaml:"anthropic_key,omitempty"`
	OpenAIKey    string  `yaml:"openai_key,omitempty"`
	Temperature  float64 `yaml:"temperature"`
}

// JobQueueConfig configures the at-least-once dispatch worker pool.
type JobQueueConfig struct {
	PollInterval      string `yaml:"poll_interval"`
	VisibilityTimeout string `yaml:"visibility_timeout"`
	MaxRetries        int    `yaml:"max_retries"`
	Workers           int    `yaml:"workers"`
}

// RetrievalConfig configures hybrid retrieval fusion and budget knobs.
type RetrievalConfig struct {
	RRFK               int     `yaml:"rrf_k"`
	LexicalWeight      float64 `yaml:"lexical_weight"`
	VectorWeight       float64 `yaml:"vector_weight"`
	FreshnessLambda    float64 `yaml:"freshness_lambda"`
	DedupThreshold     float64 `yaml:"dedup_threshold"`
	DiversifyLambdaDoc float64 `yaml:"diversify_lambda_doc"`
	DiversifyLambdaSrc float64 `yaml:"diversify_lambda_src"`
	LatencyBudgetMS    int64   `yaml:"latency_budget_ms"`
	DefaultTopK        int     `yaml:"default_top_k"`
}

// TelemetryConfig controls OpenTelemetry metrics/traces and the optional
// ClickHouse diagnostics sink.
type TelemetryConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Endpoint        string `yaml:"endpoint"`
	Insecure        bool   `yaml:"insecure"`
	ServiceName     string `yaml:"service_name"`
	ClickHouseDSN   string `yaml:"clickhouse_dsn,omitempty"`
	ClickHouseTable string `yaml:"clickhouse_table,omitempty"`
}

// Config is the top-level process configuration.
type Config struct {
	Host        string            `yaml:"host"`
	Port        int               `yaml:"port"`
	Postgres    PostgresConfig    `yaml:"postgres"`
	Qdrant      QdrantConfig      `yaml:"qdrant"`
	Redis       RedisConfig       `yaml:"redis"`
	ObjectStore ObjectStoreConfig `yaml:"object_store"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Reranker    RerankerConfig    `yaml:"reranker"`
	LLM         LLMConfig         `yaml:"llm"`
	JobQueue    JobQueueConfig    `yaml:"job_queue"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	OTel        TelemetryConfig   `yaml:"otel"`
}

// LoadConfig reads filename, unmarshals it, overlays a .env file (if
// present) and CORECTX_-prefixed environment variables, then applies
// defaults for anything left unset.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		pterm.Error.Printf("error reading config file: %v\n", err)
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		pterm.Error.Printf("error unmarshaling config: %v\n", err)
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	_ = godotenv.Load() // optional, missing .env is not an error
	overlayEnv(&cfg)
	applyDefaults(&cfg)

	pterm.Success.Println("configuration loaded successfully")
	return &cfg, nil
}

// overlayEnv lets deploy-time secrets win over whatever is checked into the
// YAML file. Only the fields that are plausibly secrets or environment-
// specific are overlaid; structural config stays YAML-only.
func overlayEnv(cfg *Config) {
	if v := os.Getenv("CORECTX_POSTGRES_DSN"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("CORECTX_QDRANT_HOST"); v != "" {
		cfg.Qdrant.Host = v
	}
	if v := os.Getenv("CORECTX_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("CORECTX_S3_ACCESS_KEY"); v != "" {
		cfg.ObjectStore.AccessKey = v
	}
	if v := os.Getenv("CORECTX_S3_SECRET_KEY"); v != "" {
		cfg.ObjectStore.SecretKey = v
	}
	if v := os.Getenv("CORECTX_EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("CORECTX_ANTHROPIC_KEY"); v != "" {
		cfg.LLM.AnthropicKey = v
	}
	if v := os.Getenv("CORECTX_OPENAI_KEY"); v != "" {
		cfg.LLM.OpenAIKey = v
	}
	if v := os.Getenv("CORECTX_CLICKHOUSE_DSN"); v != "" {
		cfg.OTel.ClickHouseDSN = v
	}
	if v := os.Getenv("CORECTX_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Host == "" {
		cfg.Host = "0.0.0.0"
	}
	if cfg.Port <= 0 {
		cfg.Port = 8088
	}
	if cfg.Postgres.MaxConns <= 0 {
		cfg.Postgres.MaxConns = 8
	}
	if cfg.Postgres.MaxConnLifetime == "" {
		cfg.Postgres.MaxConnLifetime = "1h"
	}
	if cfg.Postgres.MaxConnIdle == "" {
		cfg.Postgres.MaxConnIdle = "5m"
	}
	if cfg.Qdrant.Port <= 0 {
		cfg.Qdrant.Port = 6334
	}
	if cfg.Embedding.Dimensions <= 0 {
		cfg.Embedding.Dimensions = 768
	}
	if cfg.Embedding.BatchSize <= 0 {
		cfg.Embedding.BatchSize = 32
	}
	if cfg.Embedding.RateLimitRPS <= 0 {
		cfg.Embedding.RateLimitRPS = 5
	}
	if cfg.Embedding.CacheTTL == "" {
		cfg.Embedding.CacheTTL = "720h"
	}
	if cfg.Reranker.CacheSize <= 0 {
		cfg.Reranker.CacheSize = 2048
	}
	if cfg.Reranker.CacheTTL == "" {
		cfg.Reranker.CacheTTL = "10m"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "claude-sonnet-4-5"
	}
	if strings.TrimSpace(cfg.LLM.Provider) == "" {
		cfg.LLM.Provider = "anthropic"
	}
	if cfg.JobQueue.PollInterval == "" {
		cfg.JobQueue.PollInterval = "2s"
	}
	if cfg.JobQueue.VisibilityTimeout == "" {
		cfg.JobQueue.VisibilityTimeout = "5m"
	}
	if cfg.JobQueue.MaxRetries <= 0 {
		cfg.JobQueue.MaxRetries = 5
	}
	if cfg.JobQueue.Workers <= 0 {
		cfg.JobQueue.Workers = 4
	}
	if cfg.Retrieval.RRFK <= 0 {
		cfg.Retrieval.RRFK = 60
	}
	if cfg.Retrieval.LexicalWeight <= 0 && cfg.Retrieval.VectorWeight <= 0 {
		cfg.Retrieval.LexicalWeight = 0.4
		cfg.Retrieval.VectorWeight = 0.6
	}
	if cfg.Retrieval.FreshnessLambda <= 0 {
		cfg.Retrieval.FreshnessLambda = 0.02
	}
	if cfg.Retrieval.DedupThreshold <= 0 {
		cfg.Retrieval.DedupThreshold = 0.96
	}
	if cfg.Retrieval.DiversifyLambdaDoc <= 0 {
		cfg.Retrieval.DiversifyLambdaDoc = 0.75
	}
	if cfg.Retrieval.DiversifyLambdaSrc <= 0 {
		cfg.Retrieval.DiversifyLambdaSrc = 0.25
	}
	if cfg.Retrieval.LatencyBudgetMS <= 0 {
		cfg.Retrieval.LatencyBudgetMS = 1200
	}
	if cfg.Retrieval.DefaultTopK <= 0 {
		cfg.Retrieval.DefaultTopK = 10
	}
	if cfg.OTel.ServiceName == "" {
		cfg.OTel.ServiceName = "corectx"
	}
	if cfg.OTel.ClickHouseTable == "" {
		cfg.OTel.ClickHouseTable = "corectx_diagnostics"
	}
}
