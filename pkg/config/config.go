// Package config loads the extraction pipeline configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"statement_extraction/pkg/core/agent"
)

// Config holds all configuration for the pipeline and its CLI.
type Config struct {
	LLM       agent.Config    `yaml:"llm"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Timeouts  TimeoutConfig   `yaml:"timeouts"`
	Selection SelectionConfig `yaml:"selection"`
	Reformat  ReformatConfig  `yaml:"reformat"`
	Prompts   PromptsConfig   `yaml:"prompts"`
	Database  DatabaseConfig  `yaml:"database"`
	Audit     AuditConfig     `yaml:"audit"`
	Log       LogConfig       `yaml:"log"`
}

// Retrieval backends.
const (
	BackendMemory   = "memory"
	BackendPgVector = "pgvector"
)

// RetrievalConfig selects and tunes the vector index.
type RetrievalConfig struct {
	Backend        string `yaml:"backend"` // memory | pgvector
	TopK           int    `yaml:"top_k"`
	EmbeddingModel string `yaml:"embedding_model"`
	EmbeddingURL   string `yaml:"embedding_base_url"`
	Table          string `yaml:"table"`
}

// TimeoutConfig holds one timeout per external call.
type TimeoutConfig struct {
	Retrieval time.Duration `yaml:"retrieval"`
	Selection time.Duration `yaml:"selection"`
	Reformat  time.Duration `yaml:"reformat"`
}

type SelectionConfig struct {
	Retry *bool `yaml:"retry"`
}

// RetryOrDefault returns whether the bounded selection retry is on; defaults to true when unset.
func (s SelectionConfig) RetryOrDefault() bool {
	if s.Retry != nil {
		return *s.Retry
	}
	return true
}

type ReformatConfig struct {
	OutputFormat           string `yaml:"output_format"` // html | markdown
	EnforceNumericFidelity *bool  `yaml:"enforce_numeric_fidelity"`
}

// EnforceOrDefault returns whether the numeric check runs; defaults to true when unset.
func (r ReformatConfig) EnforceOrDefault() bool {
	if r.EnforceNumericFidelity != nil {
		return *r.EnforceNumericFidelity
	}
	return true
}

type PromptsConfig struct {
	Dir string `yaml:"dir"` // optional override directory
}

type DatabaseConfig struct {
	URL string `yaml:"url"` // falls back to DATABASE_URL
}

type AuditConfig struct {
	Dir string `yaml:"dir"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads and parses the config file at path and applies defaults.
// An empty path yields the defaults alone.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.Retrieval.Backend {
	case BackendMemory, BackendPgVector:
	default:
		return fmt.Errorf("retrieval.backend %q must be %s or %s", c.Retrieval.Backend, BackendMemory, BackendPgVector)
	}
	if c.Retrieval.TopK < 1 {
		return fmt.Errorf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK)
	}
	switch c.Reformat.OutputFormat {
	case "html", "markdown":
	default:
		return fmt.Errorf("reformat.output_format %q must be html or markdown", c.Reformat.OutputFormat)
	}
	for name, d := range map[string]time.Duration{
		"retrieval": c.Timeouts.Retrieval,
		"selection": c.Timeouts.Selection,
		"reformat":  c.Timeouts.Reformat,
	} {
		if d < 0 {
			return fmt.Errorf("timeouts.%s must not be negative", name)
		}
	}
	if c.LLM.ActiveProvider == "" {
		return fmt.Errorf("llm.active_provider is required")
	}
	return nil
}

// DatabaseURL returns the configured URL or DATABASE_URL.
func (c *Config) DatabaseURL() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	return os.Getenv("DATABASE_URL")
}
