// Package config loads and validates provlens configuration from YAML,
// environment variables and defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/provlens/provlens/internal/version"
)

// Config is the full provlens configuration.
type Config struct {
	Embedding struct {
		Provider  string  `yaml:"provider"`
		Model     string  `yaml:"model"`
		BaseURL   string  `yaml:"base_url"`
		APIKey    string  `yaml:"api_key"`
		Dimension int     `yaml:"dimension"`
		RateLimit float64 `yaml:"rate_limit"`
	} `yaml:"embedding"`

	Index struct {
		Backend string `yaml:"backend"`
	} `yaml:"index"`

	Pipeline struct {
		Strategy            string `yaml:"chunking_strategy"` // "simple" or "semantic"
		ChunkSize           int    `yaml:"chunk_size"`
		ChunkOverlap        int    `yaml:"chunk_overlap"`
		Normalize           bool   `yaml:"normalize"`
		NormalizeAggressive bool   `yaml:"normalize_aggressive"`
		Dedupe              bool   `yaml:"dedupe"`
	} `yaml:"pipeline"`

	Retrieval struct {
		TopK       int     `yaml:"top_k"`
		GraphDepth int     `yaml:"graph_depth"`
		MinScore   float64 `yaml:"min_score"`
	} `yaml:"retrieval"`

	Ingest struct {
		Include []string `yaml:"include"`
		Ignore  []string `yaml:"ignore"`
	} `yaml:"ingest"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.Embedding.Provider = "ollama"
	cfg.Index.Backend = "flat"
	cfg.Pipeline.Strategy = "semantic"
	cfg.Pipeline.ChunkSize = 1000
	cfg.Pipeline.ChunkOverlap = 200
	cfg.Pipeline.Normalize = true
	cfg.Pipeline.Dedupe = true
	cfg.Retrieval.TopK = 5
	cfg.Retrieval.GraphDepth = 1
	return cfg
}

// Load reads configuration for a dataset root. When path is empty it
// tries provlens.yaml in the root, then the storage directory. A missing
// file yields defaults. Environment variables override file values.
func Load(root, path string) (*Config, error) {
	if path == "" {
		for _, loc := range []string{
			filepath.Join(root, "provlens.yaml"),
			filepath.Join(root, version.StorageDir, "config.yaml"),
		} {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		applyDefaults(cfg)
	}

	mergeEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills unset values after a partial YAML file.
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = def.Embedding.Provider
	}
	if cfg.Index.Backend == "" {
		cfg.Index.Backend = def.Index.Backend
	}
	if cfg.Pipeline.Strategy == "" {
		cfg.Pipeline.Strategy = def.Pipeline.Strategy
	}
	if cfg.Pipeline.ChunkSize == 0 {
		cfg.Pipeline.ChunkSize = def.Pipeline.ChunkSize
	}
	// Default overlap only when it stays below the configured chunk size.
	if cfg.Pipeline.ChunkOverlap == 0 && def.Pipeline.ChunkOverlap < cfg.Pipeline.ChunkSize {
		cfg.Pipeline.ChunkOverlap = def.Pipeline.ChunkOverlap
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = def.Retrieval.TopK
	}
}

func mergeEnv(cfg *Config) {
	if v := os.Getenv("PROVLENS_EMBED_PROVIDER"); v != "" {
		cfg.Embedding.Provider = v
	}
	if v := os.Getenv("PROVLENS_EMBED_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("PROVLENS_EMBED_URL"); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = v
	}
}

// Validate rejects malformed configuration at load time.
func (c *Config) Validate() error {
	switch c.Embedding.Provider {
	case "ollama", "openai":
	default:
		return fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider)
	}
	switch c.Index.Backend {
	case "flat":
	default:
		return fmt.Errorf("unknown index backend %q", c.Index.Backend)
	}
	switch c.Pipeline.Strategy {
	case "simple", "semantic":
	default:
		return fmt.Errorf("unknown chunking strategy %q", c.Pipeline.Strategy)
	}
	if c.Pipeline.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.Pipeline.ChunkSize)
	}
	if c.Pipeline.ChunkOverlap < 0 || c.Pipeline.ChunkOverlap >= c.Pipeline.ChunkSize {
		return fmt.Errorf("chunk overlap %d must be in [0, chunk size %d)", c.Pipeline.ChunkOverlap, c.Pipeline.ChunkSize)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("top_k must be positive, got %d", c.Retrieval.TopK)
	}
	if c.Retrieval.GraphDepth < 0 {
		return fmt.Errorf("graph_depth must not be negative, got %d", c.Retrieval.GraphDepth)
	}
	return nil
}

// WriteDefault writes a default config file, used by init.
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
