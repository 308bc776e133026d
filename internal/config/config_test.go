package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	cfg, err := Load(t.TempDir(), "")
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.Equal(t, "flat", cfg.Index.Backend)
	assert.Equal(t, "semantic", cfg.Pipeline.Strategy)
	assert.Equal(t, 1000, cfg.Pipeline.ChunkSize)
	assert.Equal(t, 200, cfg.Pipeline.ChunkOverlap)
	assert.True(t, cfg.Pipeline.Normalize)
	assert.True(t, cfg.Pipeline.Dedupe)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, 1, cfg.Retrieval.GraphDepth)
}

func TestLoad_FindsRootConfigFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "provlens.yaml"), []byte(`
pipeline:
  chunking_strategy: simple
  chunk_size: 500
  chunk_overlap: 50
retrieval:
  top_k: 3
`), 0o644))

	cfg, err := Load(root, "")
	require.NoError(t, err)
	assert.Equal(t, "simple", cfg.Pipeline.Strategy)
	assert.Equal(t, 500, cfg.Pipeline.ChunkSize)
	assert.Equal(t, 50, cfg.Pipeline.ChunkOverlap)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	// Unspecified sections keep their defaults.
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
}

func TestLoad_FallsBackToStorageDirConfig(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, ".provlens")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
embedding:
  provider: openai
  model: text-embedding-3-small
`), 0o644))

	cfg, err := Load(root, "")
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
}

func TestLoad_PartialFileGetsDefaults(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "provlens.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
pipeline:
  chunk_size: 100
`), 0o644))

	cfg, err := Load(root, path)
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Pipeline.ChunkSize)
	// Default overlap of 200 would violate overlap < size, so it stays 0.
	assert.Equal(t, 0, cfg.Pipeline.ChunkOverlap)
	assert.Equal(t, "semantic", cfg.Pipeline.Strategy)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PROVLENS_EMBED_PROVIDER", "openai")
	t.Setenv("PROVLENS_EMBED_MODEL", "custom-model")
	t.Setenv("PROVLENS_EMBED_URL", "http://localhost:9999")
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg, err := Load(t.TempDir(), "")
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, "custom-model", cfg.Embedding.Model)
	assert.Equal(t, "http://localhost:9999", cfg.Embedding.BaseURL)
	assert.Equal(t, "sk-env", cfg.Embedding.APIKey)
}

func TestLoad_FileAPIKeyBeatsEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "provlens.yaml"), []byte(`
embedding:
  api_key: sk-file
`), 0o644))

	cfg, err := Load(root, "")
	require.NoError(t, err)
	assert.Equal(t, "sk-file", cfg.Embedding.APIKey)
}

func TestLoad_ExplicitPathMissing(t *testing.T) {
	_, err := Load(t.TempDir(), "/nonexistent/provlens.yaml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	mutate := func(f func(*Config)) *Config {
		cfg := Default()
		f(cfg)
		return cfg
	}

	cases := []struct {
		name string
		cfg  *Config
	}{
		{"bad provider", mutate(func(c *Config) { c.Embedding.Provider = "mystery" })},
		{"bad backend", mutate(func(c *Config) { c.Index.Backend = "hnsw" })},
		{"bad strategy", mutate(func(c *Config) { c.Pipeline.Strategy = "recursive" })},
		{"zero chunk size", mutate(func(c *Config) { c.Pipeline.ChunkSize = 0 })},
		{"overlap at size", mutate(func(c *Config) { c.Pipeline.ChunkOverlap = c.Pipeline.ChunkSize })},
		{"negative overlap", mutate(func(c *Config) { c.Pipeline.ChunkOverlap = -1 })},
		{"zero top_k", mutate(func(c *Config) { c.Retrieval.TopK = 0 })},
		{"negative depth", mutate(func(c *Config) { c.Retrieval.GraphDepth = -1 })},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, tc.cfg.Validate())
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestWriteDefault_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".provlens", "config.yaml")
	require.NoError(t, WriteDefault(path))

	cfg, err := Load(filepath.Dir(filepath.Dir(path)), path)
	require.NoError(t, err)
	assert.Equal(t, Default().Pipeline, cfg.Pipeline)
	assert.Equal(t, Default().Retrieval, cfg.Retrieval)
}
