package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/scriptorium/ai"
	"github.com/poiesic/scriptorium/core"
)

// unsetAfter removes keys that godotenv may have written into the process environment.
func unsetAfter(t *testing.T, keys ...string) {
	t.Cleanup(func() {
		for _, k := range keys {
			os.Unsetenv(k)
		}
	})
}

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()

	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, BlobFS, cfg.BlobBackend)
	assert.Equal(t, filepath.Join("./data", "blobs"), cfg.BlobDir)
	assert.Equal(t, ai.ProviderOpenAI, cfg.EmbeddingProvider)
	assert.Equal(t, core.DefaultChunkSize, cfg.ChunkSize)
	assert.Equal(t, core.DefaultChunkOverlap, cfg.ChunkOverlap)
	assert.Equal(t, core.DefaultMaxFileSize, cfg.MaxFileSize)
	assert.Equal(t, 60*time.Second, cfg.EmbeddingTimeout)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.False(t, cfg.HasExtraction())
	require.NoError(t, cfg.Validate())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("SCRIPTORIUM_DATA_DIR", "/var/lib/scriptorium")
	t.Setenv("SCRIPTORIUM_BLOB_BACKEND", "MinIO")
	t.Setenv("SCRIPTORIUM_MINIO_ENDPOINT", "localhost:9000")
	t.Setenv("SCRIPTORIUM_MINIO_SECURE", "true")
	t.Setenv("SCRIPTORIUM_CHUNK_SIZE", "256")
	t.Setenv("SCRIPTORIUM_CHUNK_OVERLAP", "32")
	t.Setenv("SCRIPTORIUM_EMBEDDING_TIMEOUT", "5s")
	t.Setenv("SCRIPTORIUM_CORS_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("SCRIPTORIUM_EXTRACTION_URL", "https://extract.example")
	t.Setenv("SCRIPTORIUM_EXTRACTION_API_KEY", "secret")

	cfg := FromEnv()
	assert.Equal(t, "/var/lib/scriptorium", cfg.DataDir)
	assert.Equal(t, filepath.Join("/var/lib/scriptorium", "blobs"), cfg.BlobDir)
	assert.Equal(t, BlobMinIO, cfg.BlobBackend)
	assert.True(t, cfg.MinIOSecure)
	assert.Equal(t, 256, cfg.ChunkSize)
	assert.Equal(t, 5*time.Second, cfg.EmbeddingTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, filepath.Join("/var/lib/scriptorium", "db"), cfg.DatabasePath())
	require.NoError(t, cfg.Validate())

	opts := cfg.ProcessingOptions()
	assert.Equal(t, 256, opts.ChunkSize)
	assert.Equal(t, 32, opts.ChunkOverlap)
	assert.True(t, opts.OCREnabled, "OCR follows the extraction service")

	ext := cfg.ExtractionConfig()
	assert.Equal(t, "https://extract.example", ext.BaseURL)
	assert.Equal(t, "secret", ext.APIKey)
}

func TestMalformedValuesFallBack(t *testing.T) {
	t.Setenv("SCRIPTORIUM_CHUNK_SIZE", "lots")
	t.Setenv("SCRIPTORIUM_IN_MEMORY", "maybe")
	t.Setenv("SCRIPTORIUM_EMBEDDING_TIMEOUT", "soon")

	cfg := FromEnv()
	assert.Equal(t, core.DefaultChunkSize, cfg.ChunkSize)
	assert.False(t, cfg.InMemory)
	assert.Equal(t, 60*time.Second, cfg.EmbeddingTimeout)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte(
		"SCRIPTORIUM_LISTEN_ADDR=:9999\nSCRIPTORIUM_EMBEDDING_MODEL=from-file\n"), 0o600))
	unsetAfter(t, "SCRIPTORIUM_LISTEN_ADDR")
	t.Setenv("SCRIPTORIUM_EMBEDDING_MODEL", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, "from-env", cfg.EmbeddingModel, "the environment wins over the file")
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	assert.NotNil(t, cfg)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown blob backend", func(c *Config) { c.BlobBackend = "tape" }},
		{"fs without dir", func(c *Config) { c.BlobDir = "" }},
		{"s3 without bucket", func(c *Config) { c.BlobBackend = BlobS3 }},
		{"minio without endpoint", func(c *Config) { c.BlobBackend = BlobMinIO }},
		{"unknown provider", func(c *Config) { c.EmbeddingProvider = "carrier-pigeon" }},
		{"gemini without key", func(c *Config) { c.EmbeddingProvider = ai.ProviderGemini }},
		{"extraction url without key", func(c *Config) { c.ExtractionURL = "https://x" }},
		{"bad max size", func(c *Config) { c.MaxFileSize = "huge" }},
		{"overlap above size", func(c *Config) { c.ChunkSize = 10; c.ChunkOverlap = 20 }},
		{"zero concurrency", func(c *Config) { c.EmbeddingConcurrency = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := FromEnv()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	t.Run("memory backend", func(t *testing.T) {
		cfg := FromEnv()
		cfg.BlobBackend = BlobMemory
		cfg.BlobDir = ""
		assert.NoError(t, cfg.Validate())
	})
}
