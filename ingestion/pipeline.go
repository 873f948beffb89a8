package ingestion

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/scriptorium/blob"
	"github.com/poiesic/scriptorium/chunker"
	"github.com/poiesic/scriptorium/core"
	"github.com/poiesic/scriptorium/embedding"
	"github.com/poiesic/scriptorium/filetype"
	"github.com/poiesic/scriptorium/parser"
	"github.com/poiesic/scriptorium/storage"
)

const (
	DefaultStoreBatchSize     = 10
	DefaultMultimodalChunkCap = 50
)

// Dependencies are the collaborators a Pipeline drives. Resolver, Parsers and
// Chunker get default instances when nil; the rest are required.
type Dependencies struct {
	Blobs     storage.BlobStore
	Documents storage.DocumentStore
	Jobs      storage.JobStore
	Chunks    storage.ChunkStore
	Resolver  *filetype.Resolver
	Parsers   *parser.Registry
	Chunker   *chunker.Chunker
	Batcher   *embedding.Batcher
}

// Pipeline processes uploaded documents into embedded chunks.
type Pipeline struct {
	deps               Dependencies
	pool               *ants.Pool
	poolSize           int
	storeBatchSize     int
	multimodalChunkCap int
	logger             *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets how many documents Submit processes concurrently.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		p.poolSize = size
		return nil
	}
}

// WithStoreBatchSize sets how many chunks are written in parallel during storing.
// Default is 10.
func WithStoreBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		p.storeBatchSize = size
		return nil
	}
}

// WithMultimodalChunkCap sets the largest chunk count for which page images are
// used during embedding. Default is 50.
func WithMultimodalChunkCap(n int) Option {
	return func(p *Pipeline) error {
		p.multimodalChunkCap = n
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a pipeline over deps.
func NewPipeline(deps Dependencies, opts ...Option) (*Pipeline, error) {
	switch {
	case deps.Blobs == nil:
		return nil, ErrBlobStoreRequired
	case deps.Documents == nil:
		return nil, ErrDocumentStoreRequired
	case deps.Jobs == nil:
		return nil, ErrJobStoreRequired
	case deps.Chunks == nil:
		return nil, ErrChunkStoreRequired
	case deps.Batcher == nil:
		return nil, ErrBatcherRequired
	}

	p := &Pipeline{
		deps:               deps,
		poolSize:           max(runtime.NumCPU()/2, 1),
		storeBatchSize:     DefaultStoreBatchSize,
		multimodalChunkCap: DefaultMultimodalChunkCap,
		logger:             slog.Default().With("component", "ingestion"),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	if p.deps.Resolver == nil {
		resolver, err := filetype.NewResolver(filetype.WithLogger(p.logger))
		if err != nil {
			return nil, err
		}
		p.deps.Resolver = resolver
	}
	if p.deps.Parsers == nil {
		p.deps.Parsers = parser.NewDefaultRegistry(nil, parser.WithLogger(p.logger))
	}
	if p.deps.Chunker == nil {
		p.deps.Chunker = chunker.New(chunker.WithLogger(p.logger))
	}

	pool, err := ants.NewPool(p.poolSize)
	if err != nil {
		return nil, err
	}
	p.pool = pool
	return p, nil
}

// Ingest validates an upload, stores its bytes and creates a pending Document.
// Oversized or empty buffers fail with *core.ValidationError before anything is stored.
func (p *Pipeline) Ingest(ctx context.Context, fileName string, buf []byte, opts core.ProcessingOptions) (*core.Document, error) {
	info, err := p.deps.Resolver.Validate(buf, fileName, opts.MaxFileSize)
	if err != nil {
		return nil, err
	}

	ref := blob.NewKey(fileName)
	if err := p.deps.Blobs.Put(ctx, ref, buf, info.MimeType); err != nil {
		return nil, &core.StoreError{Op: "put blob", Cause: err}
	}

	doc, err := p.deps.Documents.Create(ctx, &core.Document{
		FileName:    fileName,
		FileType:    info.MimeType,
		Extension:   info.Extension,
		FileSize:    info.Size,
		ContentHash: info.Hash,
		BlobRef:     ref,
		Status:      core.DocumentPending,
	})
	if err != nil {
		return nil, err
	}
	p.logger.Info("document uploaded", "document", doc.Id, "file", fileName, "type", info.MimeType, "size", info.Size)
	return doc, nil
}

// Process runs the document through every stage and returns once it is
// completed or failed. On failure the document and its job are marked as
// errored and the original error is returned.
func (p *Pipeline) Process(ctx context.Context, docID core.ID, opts core.ProcessingOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	doc, err := p.deps.Documents.Get(ctx, docID)
	if err != nil {
		return err
	}

	start := time.Now()
	if _, err := p.deps.Jobs.Create(ctx, docID); err != nil {
		return err
	}
	if err := p.deps.Documents.UpdateStatus(ctx, docID, core.DocumentProcessing, ""); err != nil {
		return p.fail(ctx, docID, err)
	}

	r := newRun(p, doc, opts)
	result, err := r.execute(ctx)
	if err != nil {
		return p.fail(ctx, docID, err)
	}

	elapsed := time.Since(start)
	if err := p.deps.Documents.UpdateProcessingComplete(ctx, docID, result.chunkCount, elapsed, result.metadata); err != nil {
		return p.fail(ctx, docID, err)
	}
	if err := p.deps.Jobs.Complete(ctx, docID); err != nil {
		return p.fail(ctx, docID, err)
	}

	p.logger.Info("document processed", "document", docID, "chunks", result.chunkCount, "elapsed", elapsed)
	return nil
}

// Submit schedules Process on the worker pool. onDone, when set, receives the
// result of the run.
func (p *Pipeline) Submit(docID core.ID, opts core.ProcessingOptions, onDone func(error)) error {
	return p.pool.Submit(func() {
		err := p.Process(context.Background(), docID, opts)
		if err != nil {
			p.logger.Error("document processing failed", "document", docID, "err", err)
		}
		if onDone != nil {
			onDone(err)
		}
	})
}

// Running returns the number of documents currently being processed by the pool.
func (p *Pipeline) Running() int {
	return p.pool.Running()
}

// Release releases the worker pool. The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

// fail records cause on the job and the document and returns it unchanged.
// Bookkeeping failures are logged; they never replace the original error.
func (p *Pipeline) fail(ctx context.Context, docID core.ID, cause error) error {
	ctx = context.WithoutCancel(ctx)
	msg := cause.Error()
	if err := p.deps.Jobs.SetError(ctx, docID, msg); err != nil {
		p.logger.Warn("could not record job error", "document", docID, "err", err)
	}
	if err := p.deps.Documents.UpdateStatus(ctx, docID, core.DocumentError, msg); err != nil {
		p.logger.Warn("could not record document error", "document", docID, "err", err)
	}
	return cause
}
