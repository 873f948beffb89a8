package core

import "fmt"

const (
	DefaultChunkSize    = 512
	DefaultChunkOverlap = 50
	DefaultMaxFileSize  = "100MB"
	DefaultOCRLanguage  = "eng"
)

// ProcessingOptions controls a single ingestion run.
type ProcessingOptions struct {
	ChunkSize      int    // token budget per chunk
	ChunkOverlap   int    // token budget carried into the next chunk; 0 disables overlap
	EmbeddingModel string // informational; the embedder decides the actual model
	ExtractTables  bool
	ExtractImages  bool
	OCREnabled     bool
	OCRLanguage    string
	MaxFileSize    string // human-readable limit such as "100MB"
}

// DefaultProcessingOptions returns the options used when a caller supplies none.
func DefaultProcessingOptions() ProcessingOptions {
	return ProcessingOptions{
		ChunkSize:     DefaultChunkSize,
		ChunkOverlap:  DefaultChunkOverlap,
		ExtractTables: true,
		OCREnabled:    true,
		OCRLanguage:   DefaultOCRLanguage,
		MaxFileSize:   DefaultMaxFileSize,
	}
}

// Validate checks the chunk budgets.
func (o ProcessingOptions) Validate() error {
	if o.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidOptions, o.ChunkSize)
	}
	if o.ChunkOverlap < 0 {
		return fmt.Errorf("%w: chunk overlap must not be negative, got %d", ErrInvalidOptions, o.ChunkOverlap)
	}
	if o.ChunkOverlap > o.ChunkSize {
		return fmt.Errorf("%w: chunk overlap %d exceeds chunk size %d", ErrInvalidOptions, o.ChunkOverlap, o.ChunkSize)
	}
	return nil
}
