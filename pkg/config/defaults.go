package config

import (
	"strings"
	"time"

	"statement_extraction/pkg/core/retrieval"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.LLM.ActiveProvider == "" {
		cfg.LLM.ActiveProvider = "openai"
	}
	if cfg.Retrieval.Backend == "" {
		cfg.Retrieval.Backend = BackendMemory
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = retrieval.DefaultTopK
	}
	if cfg.Retrieval.EmbeddingModel == "" {
		cfg.Retrieval.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.Retrieval.Table == "" {
		cfg.Retrieval.Table = "statement_elements"
	}
	if cfg.Timeouts.Retrieval == 0 {
		cfg.Timeouts.Retrieval = 30 * time.Second
	}
	if cfg.Timeouts.Selection == 0 {
		cfg.Timeouts.Selection = 60 * time.Second
	}
	if cfg.Timeouts.Reformat == 0 {
		cfg.Timeouts.Reformat = 120 * time.Second
	}
	cfg.Reformat.OutputFormat = strings.ToLower(strings.TrimSpace(cfg.Reformat.OutputFormat))
	if cfg.Reformat.OutputFormat == "" {
		cfg.Reformat.OutputFormat = "html"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}
