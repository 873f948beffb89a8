package storage

import (
	"context"
	"time"

	"github.com/poiesic/scriptorium/core"
)

// ChunkFilter narrows chunk queries. A zero DocumentID means all documents.
type ChunkFilter struct {
	DocumentID core.ID
}

// Scoped reports whether the filter restricts results to a single document.
func (f ChunkFilter) Scoped() bool {
	return f.DocumentID != 0
}

// BlobStore holds the raw bytes of uploaded files.
type BlobStore interface {
	// Get returns the bytes stored under ref.
	// Returns ErrNotFound if nothing is stored there.
	Get(ctx context.Context, ref string) ([]byte, error)

	// Put stores data under ref, replacing any previous content.
	Put(ctx context.Context, ref string, data []byte, contentType string) error
}

// DocumentStore persists document records.
// Implementations must be thread-safe and support concurrent access.
type DocumentStore interface {
	// Create stores a new document. A zero Id is replaced with the next sequence value.
	// Sets CreatedAt and UpdatedAt if not already set.
	Create(ctx context.Context, doc *core.Document) (*core.Document, error)

	// Get retrieves a document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	Get(ctx context.Context, id core.ID) (*core.Document, error)

	// UpdateStatus sets the status and error message. Repeating the same update is harmless.
	UpdateStatus(ctx context.Context, id core.ID, status core.DocumentStatus, errMsg string) error

	// UpdateProcessingComplete marks the document completed and records the run's results.
	// The metadata is merged into the existing metadata.
	UpdateProcessingComplete(ctx context.Context, id core.ID, chunkCount int, processingTime time.Duration, metadata map[string]string) error

	// List returns documents ordered by ID, newest first, up to limit (0 = all).
	List(ctx context.Context, limit int) ([]*core.Document, error)

	// Close releases resources held by the store.
	Close() error
}

// JobStore persists one processing job per document, keyed by document ID.
type JobStore interface {
	// Create stores a fresh job in the pending stage, replacing any earlier job of the document.
	Create(ctx context.Context, docID core.ID) (*core.ProcessingJob, error)

	// Get retrieves the job of a document.
	// Returns ErrNotFound if the document has no job.
	Get(ctx context.Context, docID core.ID) (*core.ProcessingJob, error)

	// UpdateProgress records the current stage and progress.
	UpdateProgress(ctx context.Context, docID core.ID, stage core.Stage, progress int) error

	// Complete moves the job to the completed stage with progress 100.
	Complete(ctx context.Context, docID core.ID) error

	// SetError moves the job to the error stage, keeping its last progress.
	SetError(ctx context.Context, docID core.ID, msg string) error

	// Close releases resources held by the store.
	Close() error
}

// ChunkStore persists chunks and answers vector and keyword queries over them.
type ChunkStore interface {
	// Create stores chunk and assigns it an ID.
	Create(ctx context.Context, chunk *core.Chunk) (*core.Chunk, error)

	// Get retrieves a chunk by ID.
	// Returns ErrNotFound if the chunk doesn't exist.
	Get(ctx context.Context, id core.ID) (*core.Chunk, error)

	// VectorSearch returns up to limit chunks ordered by cosine similarity to embedding, highest first.
	VectorSearch(ctx context.Context, embedding []float32, limit int, filter ChunkFilter) ([]*core.ScoredChunk, error)

	// KeywordSearch returns up to limit chunks whose content contains query, ignoring case.
	KeywordSearch(ctx context.Context, query string, limit int, filter ChunkFilter) ([]*core.Chunk, error)

	// ListByDocument returns the chunks of a document in chunk index order.
	ListByDocument(ctx context.Context, docID core.ID) ([]*core.Chunk, error)

	// Scan returns up to limit chunks with IDs greater than afterID, in ID order.
	Scan(ctx context.Context, afterID core.ID, limit int) ([]*core.Chunk, error)

	// UpdateEmbeddings replaces the embedding fields of existing chunks.
	// Returns ErrNotFound if any chunk doesn't exist.
	UpdateEmbeddings(ctx context.Context, chunks ...*core.Chunk) error

	// Close releases resources held by the store.
	Close() error
}

// QueryHistoryStore records executed searches.
type QueryHistoryStore interface {
	// Record stores a query record and assigns it an ID.
	Record(ctx context.Context, record *core.QueryRecord) error

	// Recent returns up to limit records, most recent first.
	Recent(ctx context.Context, limit int) ([]*core.QueryRecord, error)

	// Close releases resources held by the store.
	Close() error
}
