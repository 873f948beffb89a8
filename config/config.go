// Package config loads process configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/poiesic/scriptorium/ai"
	"github.com/poiesic/scriptorium/core"
	"github.com/poiesic/scriptorium/extraction"
	"github.com/poiesic/scriptorium/filetype"
)

// Blob backends.
const (
	BlobFS     = "fs"
	BlobS3     = "s3"
	BlobMinIO  = "minio"
	BlobMemory = "memory"
)

// DefaultEnvFile is read by Load when no file is named.
const DefaultEnvFile = ".env"

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the process configuration. Every field maps to one SCRIPTORIUM_*
// variable except the AWS credentials, which use the AWS names.
type Config struct {
	DataDir  string
	InMemory bool

	BlobBackend string
	BlobDir     string

	S3Bucket     string
	S3Region     string
	S3Endpoint   string
	AWSAccessKey string
	AWSSecretKey string

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOSecure    bool

	EmbeddingProvider    string
	EmbeddingHost        string
	EmbeddingModel       string
	EmbeddingAPIKey      string
	MultimodalModel      string
	EmbeddingTimeout     time.Duration
	EmbeddingConcurrency int
	EmbeddingBatchSize   int

	ExtractionURL    string
	ExtractionAPIKey string

	PostgresURL string

	MaxFileSize  string
	ChunkSize    int
	ChunkOverlap int
	PoolSize     int

	ListenAddr  string
	CORSOrigins []string
}

// Load reads envFile (DefaultEnvFile when empty) if it exists, then builds a
// Config from the environment. Variables already set in the environment win
// over the file.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
		slog.Debug("loaded env file", "path", envFile)
	}
	return FromEnv(), nil
}

// FromEnv builds a Config from environment variables and defaults.
func FromEnv() *Config {
	dataDir := getEnv("SCRIPTORIUM_DATA_DIR", "./data")
	return &Config{
		DataDir:  dataDir,
		InMemory: getEnvBool("SCRIPTORIUM_IN_MEMORY", false),

		BlobBackend: strings.ToLower(getEnv("SCRIPTORIUM_BLOB_BACKEND", BlobFS)),
		BlobDir:     getEnv("SCRIPTORIUM_BLOB_DIR", filepath.Join(dataDir, "blobs")),

		S3Bucket:     getEnv("SCRIPTORIUM_S3_BUCKET", ""),
		S3Region:     getEnv("SCRIPTORIUM_S3_REGION", "us-east-2"),
		S3Endpoint:   getEnv("SCRIPTORIUM_S3_ENDPOINT", ""),
		AWSAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AWSSecretKey: getEnv("AWS_SECRET_KEY", ""),

		MinIOEndpoint:  getEnv("SCRIPTORIUM_MINIO_ENDPOINT", ""),
		MinIOAccessKey: getEnv("SCRIPTORIUM_MINIO_ACCESS_KEY", ""),
		MinIOSecretKey: getEnv("SCRIPTORIUM_MINIO_SECRET_KEY", ""),
		MinIOBucket:    getEnv("SCRIPTORIUM_MINIO_BUCKET", "scriptorium"),
		MinIOSecure:    getEnvBool("SCRIPTORIUM_MINIO_SECURE", false),

		EmbeddingProvider:    strings.ToLower(getEnv("SCRIPTORIUM_EMBEDDING_PROVIDER", ai.ProviderOpenAI)),
		EmbeddingHost:        getEnv("SCRIPTORIUM_EMBEDDING_HOST", "http://localhost:11434/v1"),
		EmbeddingModel:       getEnv("SCRIPTORIUM_EMBEDDING_MODEL", "embeddinggemma"),
		EmbeddingAPIKey:      getEnv("SCRIPTORIUM_EMBEDDING_API_KEY", ""),
		MultimodalModel:      getEnv("SCRIPTORIUM_MULTIMODAL_MODEL", ""),
		EmbeddingTimeout:     getEnvDuration("SCRIPTORIUM_EMBEDDING_TIMEOUT", 60*time.Second),
		EmbeddingConcurrency: getEnvInt("SCRIPTORIUM_EMBEDDING_CONCURRENCY", 4),
		EmbeddingBatchSize:   getEnvInt("SCRIPTORIUM_EMBEDDING_BATCH_SIZE", 128),

		ExtractionURL:    getEnv("SCRIPTORIUM_EXTRACTION_URL", ""),
		ExtractionAPIKey: getEnv("SCRIPTORIUM_EXTRACTION_API_KEY", ""),

		PostgresURL: getEnv("SCRIPTORIUM_POSTGRES_URL", ""),

		MaxFileSize:  getEnv("SCRIPTORIUM_MAX_FILE_SIZE", core.DefaultMaxFileSize),
		ChunkSize:    getEnvInt("SCRIPTORIUM_CHUNK_SIZE", core.DefaultChunkSize),
		ChunkOverlap: getEnvInt("SCRIPTORIUM_CHUNK_OVERLAP", core.DefaultChunkOverlap),
		PoolSize:     getEnvInt("SCRIPTORIUM_POOL_SIZE", 0),

		ListenAddr:  getEnv("SCRIPTORIUM_LISTEN_ADDR", ":8080"),
		CORSOrigins: getEnvList("SCRIPTORIUM_CORS_ORIGINS", []string{"*"}),
	}
}

// Validate checks that the configuration is complete and consistent.
func (c *Config) Validate() error {
	switch c.BlobBackend {
	case BlobFS:
		if c.BlobDir == "" {
			return fmt.Errorf("%w: blob dir is required for the fs backend", ErrInvalidConfig)
		}
	case BlobS3:
		if c.S3Bucket == "" || c.S3Region == "" {
			return fmt.Errorf("%w: s3 bucket and region are required", ErrInvalidConfig)
		}
	case BlobMinIO:
		if c.MinIOEndpoint == "" || c.MinIOBucket == "" {
			return fmt.Errorf("%w: minio endpoint and bucket are required", ErrInvalidConfig)
		}
	case BlobMemory:
	default:
		return fmt.Errorf("%w: unknown blob backend %q", ErrInvalidConfig, c.BlobBackend)
	}

	if !c.InMemory && c.DataDir == "" {
		return fmt.Errorf("%w: data dir is required", ErrInvalidConfig)
	}
	if err := c.AIConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if (c.ExtractionURL == "") != (c.ExtractionAPIKey == "") {
		return fmt.Errorf("%w: extraction URL and API key must be set together", ErrInvalidConfig)
	}
	if _, err := filetype.ParseSize(c.MaxFileSize); err != nil {
		return fmt.Errorf("%w: max file size: %v", ErrInvalidConfig, err)
	}
	if err := c.ProcessingOptions().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.EmbeddingConcurrency < 1 || c.EmbeddingBatchSize < 1 {
		return fmt.Errorf("%w: embedding concurrency and batch size must be positive", ErrInvalidConfig)
	}
	return nil
}

// ProcessingOptions returns the default per-document options derived from c.
func (c *Config) ProcessingOptions() core.ProcessingOptions {
	opts := core.DefaultProcessingOptions()
	opts.ChunkSize = c.ChunkSize
	opts.ChunkOverlap = c.ChunkOverlap
	opts.MaxFileSize = c.MaxFileSize
	opts.EmbeddingModel = c.EmbeddingModel
	opts.OCREnabled = c.HasExtraction()
	return opts
}

// AIConfig returns the embedding provider configuration.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithProvider(c.EmbeddingProvider),
		ai.WithEmbeddingHost(c.EmbeddingHost),
		ai.WithEmbeddingModel(c.EmbeddingModel),
		ai.WithAPIKey(c.EmbeddingAPIKey),
		ai.WithMultimodalModel(c.MultimodalModel),
		ai.WithRequestTimeout(c.EmbeddingTimeout),
	)
}

// HasExtraction reports whether a remote extraction service is configured.
func (c *Config) HasExtraction() bool {
	return c.ExtractionURL != "" && c.ExtractionAPIKey != ""
}

// ExtractionConfig returns the extraction client configuration.
func (c *Config) ExtractionConfig() extraction.Config {
	return extraction.Config{BaseURL: c.ExtractionURL, APIKey: c.ExtractionAPIKey}
}

// DatabasePath is where the Badger stores live.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "db")
}

// getEnv reads an environment variable with a default fallback.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("env value is not an int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("env value is not a bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("env value is not a duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

// getEnvList splits a comma-separated value, dropping empty entries.
func getEnvList(key string, def []string) []string {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
