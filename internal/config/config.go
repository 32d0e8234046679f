// Package config loads mnemo configuration from a YAML file with
// environment-variable overrides layered on top.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config is the full configuration tree.
type Config struct {
	Database  Database  `yaml:"database"`
	Embedding Embedding `yaml:"embedding"`
	Retrieval Retrieval `yaml:"retrieval"`
	Tracing   Tracing   `yaml:"tracing"`
}

// Database selects the storage backend.
type Database struct {
	// Mode is "sqlite" (default, embedded) or "postgres".
	Mode        string `yaml:"mode" env:"MNEMO_DB_MODE"`
	SQLitePath  string `yaml:"sqlite_path" env:"MNEMO_SQLITE_PATH"`
	PostgresDSN string `yaml:"postgres_dsn" env:"MNEMO_POSTGRES_DSN"`
}

// Embedding configures the embedding provider and its caches.
type Embedding struct {
	// Provider is "openai" or "mock" (tests, offline runs).
	Provider   string `yaml:"provider" env:"MNEMO_EMBEDDING_PROVIDER"`
	APIKey     string `yaml:"api_key" env:"OPENAI_API_KEY"`
	BaseURL    string `yaml:"base_url" env:"MNEMO_EMBEDDING_BASE_URL"`
	Model      string `yaml:"model" env:"MNEMO_EMBEDDING_MODEL"`
	Dimensions int    `yaml:"dimensions" env:"MNEMO_EMBEDDING_DIMENSIONS"`
	CacheSize  int    `yaml:"cache_size"`
	// RedisAddr enables the shared Redis embedding cache when set.
	RedisAddr string `yaml:"redis_addr" env:"MNEMO_REDIS_ADDR"`
}

// Retrieval tunes the pipeline.
type Retrieval struct {
	TopK           int     `yaml:"top_k"`
	MaxTotalTokens int     `yaml:"max_total_tokens"`
	MaxItems       int     `yaml:"max_items"`
	MaxPerSource   int     `yaml:"max_per_source"`
	MaxItemTokens  int     `yaml:"max_item_tokens"`
	DedupThreshold float64 `yaml:"dedup_threshold"`
	// KeywordMatch is "any" (OR, default) or "all" (AND).
	KeywordMatch string `yaml:"keyword_match" env:"MNEMO_KEYWORD_MATCH"`
}

// Tracing configures the optional OTLP exporter.
type Tracing struct {
	Endpoint    string `yaml:"endpoint" env:"MNEMO_OTLP_ENDPOINT"`
	Protocol    string `yaml:"protocol" env:"MNEMO_OTLP_PROTOCOL"` // "grpc" (default) or "http"
	Insecure    bool   `yaml:"insecure" env:"MNEMO_OTLP_INSECURE"`
	ServiceName string `yaml:"service_name"`
}

// Load reads the YAML file at path (a missing file is fine, defaults apply),
// overlays environment variables, and normalizes.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(raw, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// Defaults only.
		default:
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("env overlay: %w", err)
	}

	cfg.normalize()
	return cfg, nil
}

// DefaultPath is the conventional config location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "mnemo.yaml"
	}
	return filepath.Join(home, ".mnemo", "config.yaml")
}
