// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package scriptorium wires document ingestion and retrieval into one handle.
package scriptorium

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/scriptorium/ai"
	"github.com/poiesic/scriptorium/ai/gemini"
	"github.com/poiesic/scriptorium/ai/openai"
	"github.com/poiesic/scriptorium/blob"
	"github.com/poiesic/scriptorium/config"
	"github.com/poiesic/scriptorium/embedding"
	"github.com/poiesic/scriptorium/extraction"
	"github.com/poiesic/scriptorium/filetype"
	"github.com/poiesic/scriptorium/ingestion"
	"github.com/poiesic/scriptorium/parser"
	"github.com/poiesic/scriptorium/search"
	"github.com/poiesic/scriptorium/storage"
	"github.com/poiesic/scriptorium/storage/badger"
	"github.com/poiesic/scriptorium/storage/postgres"
)

// Database owns every store and service of a running instance.
type Database struct {
	cfg      *config.Config
	stores   *badger.Stores
	chunks   storage.ChunkStore
	pgChunks *postgres.ChunkStore
	blobs    storage.BlobStore
	provider ai.AIProvider
	embedder ai.Embedder
	batcher  *embedding.Batcher
	resolver *filetype.Resolver
	pipeline *ingestion.Pipeline
	engine   *search.Engine
	logger   *slog.Logger
}

// DatabaseOption configures Open.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	provider   ai.AIProvider
	embedder   ai.Embedder
	blobs      storage.BlobStore
	chunks     storage.ChunkStore
	extraction parser.ExtractionProvider
	inMemory   bool
	logger     *slog.Logger
}

// WithProvider uses provider instead of building one from the config.
// The database closes it.
func WithProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// WithEmbedder uses embedder instead of building a provider from the config.
func WithEmbedder(embedder ai.Embedder) DatabaseOption {
	return func(o *databaseOptions) {
		o.embedder = embedder
	}
}

// WithBlobStore uses blobs instead of the configured blob backend.
func WithBlobStore(blobs storage.BlobStore) DatabaseOption {
	return func(o *databaseOptions) {
		o.blobs = blobs
	}
}

// WithChunkStore uses chunks instead of the Badger or Postgres chunk store.
// The caller keeps ownership and closes it.
func WithChunkStore(chunks storage.ChunkStore) DatabaseOption {
	return func(o *databaseOptions) {
		o.chunks = chunks
	}
}

// WithExtractionProvider sets the PDF extraction service.
func WithExtractionProvider(p parser.ExtractionProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.extraction = p
	}
}

// WithInMemory keeps the Badger stores in memory regardless of the config.
func WithInMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		o.logger = logger
	}
}

// Open validates cfg and builds every component. The caller must Close the result.
func Open(ctx context.Context, cfg *config.Config, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db := &Database{cfg: cfg, logger: options.logger.With("component", "database")}
	if err := db.open(ctx, options); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (db *Database) open(ctx context.Context, options *databaseOptions) error {
	cfg := db.cfg
	logger := options.logger

	var err error
	inMemory := cfg.InMemory || options.inMemory
	if db.stores, err = badger.OpenStores(cfg.DatabasePath(), inMemory); err != nil {
		return fmt.Errorf("open stores: %w", err)
	}

	switch {
	case options.chunks != nil:
		db.chunks = options.chunks
	case cfg.PostgresURL != "":
		if db.pgChunks, err = postgres.Open(ctx, cfg.PostgresURL, postgres.WithLogger(logger)); err != nil {
			return fmt.Errorf("open postgres chunk store: %w", err)
		}
		db.chunks = db.pgChunks
	default:
		db.chunks = db.stores.Chunks
	}

	if db.blobs = options.blobs; db.blobs == nil {
		if db.blobs, err = openBlobStore(ctx, cfg, inMemory); err != nil {
			return fmt.Errorf("open blob store: %w", err)
		}
	}

	if db.embedder = options.embedder; db.embedder == nil {
		if db.provider = options.provider; db.provider == nil {
			if db.provider, err = newProvider(ctx, cfg.AIConfig()); err != nil {
				return fmt.Errorf("create embedding provider: %w", err)
			}
		}
		db.embedder = db.provider.Embedder()
	}

	db.batcher, err = embedding.NewBatcher(db.embedder,
		embedding.WithBatchSize(cfg.EmbeddingBatchSize),
		embedding.WithConcurrency(cfg.EmbeddingConcurrency),
		embedding.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	if db.resolver, err = filetype.NewResolver(filetype.WithMaxSize(cfg.MaxFileSize), filetype.WithLogger(logger)); err != nil {
		return err
	}

	extractor := options.extraction
	if extractor == nil && cfg.HasExtraction() {
		client, err := extraction.NewClient(cfg.ExtractionConfig(), extraction.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("create extraction client: %w", err)
		}
		extractor = client
	}
	parsers := parser.NewDefaultRegistry(parser.NewPDFParser(extractor, parser.WithLogger(logger)), parser.WithLogger(logger))

	db.pipeline, err = ingestion.NewPipeline(ingestion.Dependencies{
		Blobs:     db.blobs,
		Documents: db.stores.Documents,
		Jobs:      db.stores.Jobs,
		Chunks:    db.chunks,
		Resolver:  db.resolver,
		Parsers:   parsers,
		Batcher:   db.batcher,
	}, pipelineOptions(cfg, logger)...)
	if err != nil {
		return err
	}

	db.engine, err = search.NewEngine(db.batcher, db.chunks, db.stores.Documents, db.stores.History,
		search.WithLogger(logger), search.WithCallTimeout(cfg.EmbeddingTimeout))
	return err
}

func pipelineOptions(cfg *config.Config, logger *slog.Logger) []ingestion.Option {
	opts := []ingestion.Option{ingestion.WithLogger(logger)}
	if cfg.PoolSize > 0 {
		opts = append(opts, ingestion.WithPoolSize(cfg.PoolSize))
	}
	return opts
}

func openBlobStore(ctx context.Context, cfg *config.Config, inMemory bool) (storage.BlobStore, error) {
	switch cfg.BlobBackend {
	case config.BlobMemory:
		return blob.NewMemoryStore(), nil
	case config.BlobS3:
		return blob.NewS3Store(ctx, blob.S3Config{
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.AWSAccessKey,
			SecretKey: cfg.AWSSecretKey,
			Endpoint:  cfg.S3Endpoint,
		})
	case config.BlobMinIO:
		return blob.NewMinIOStore(ctx, blob.MinIOConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			Secure:    cfg.MinIOSecure,
		})
	default:
		if inMemory {
			return blob.NewMemoryStore(), nil
		}
		return blob.NewFSStore(cfg.BlobDir)
	}
}

func newProvider(ctx context.Context, cfg *ai.Config) (ai.AIProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case ai.ProviderGemini:
		return gemini.NewProvider(ctx, cfg)
	default:
		return openai.NewProvider(cfg)
	}
}

// Close stops the worker pools, then closes the provider and the stores.
func (db *Database) Close() error {
	var errs []error
	if db.pipeline != nil {
		db.pipeline.Release()
	}
	if db.batcher != nil {
		db.batcher.Close()
	}
	if db.provider != nil {
		if err := db.provider.Close(); err != nil {
			db.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	if db.pgChunks != nil {
		if err := db.pgChunks.Close(); err != nil {
			db.logger.Error("error closing postgres chunk store", "err", err)
			errs = append(errs, err)
		}
	}
	if db.stores != nil {
		if err := db.stores.Close(); err != nil {
			db.logger.Error("error closing backend storage", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Config returns the configuration the database was opened with.
func (db *Database) Config() *config.Config {
	return db.cfg
}

func (db *Database) Pipeline() *ingestion.Pipeline {
	return db.pipeline
}

func (db *Database) Engine() *search.Engine {
	return db.engine
}

func (db *Database) Documents() storage.DocumentStore {
	return db.stores.Documents
}

func (db *Database) Jobs() storage.JobStore {
	return db.stores.Jobs
}

// Chunks returns the chunk store in use: Postgres when configured, Badger otherwise.
func (db *Database) Chunks() storage.ChunkStore {
	return db.chunks
}

func (db *Database) History() storage.QueryHistoryStore {
	return db.stores.History
}

func (db *Database) Blobs() storage.BlobStore {
	return db.blobs
}

func (db *Database) Resolver() *filetype.Resolver {
	return db.resolver
}

// Embedder returns the raw embedder, for re-embedding.
func (db *Database) Embedder() ai.Embedder {
	return db.embedder
}
