// Package postgres implements storage.ChunkStore on PostgreSQL with the pgvector extension.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"github.com/poiesic/scriptorium/core"
	"github.com/poiesic/scriptorium/storage"
)

// KeywordScanLimit caps how many chunks an unscoped keyword search inspects.
const KeywordScanLimit = 1000

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	id                  BIGSERIAL PRIMARY KEY,
	document_id         BIGINT NOT NULL,
	chunk_index         INTEGER NOT NULL,
	content             TEXT NOT NULL,
	tokens              INTEGER NOT NULL DEFAULT 0,
	chunk_type          SMALLINT NOT NULL,
	span_start          INTEGER,
	span_end            INTEGER,
	embedding           vector,
	embedding_model     TEXT NOT NULL DEFAULT '',
	embedding_dimension INTEGER NOT NULL DEFAULT 0,
	metadata            JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS chunks_document_idx ON chunks (document_id, chunk_index);
`

const chunkColumns = `id, document_id, chunk_index, content, tokens, chunk_type, span_start, span_end,
	embedding, embedding_model, embedding_dimension, metadata, created_at`

// ChunkStore implements storage.ChunkStore on a pgx connection pool.
type ChunkStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ storage.ChunkStore = (*ChunkStore)(nil)

// Option configures a ChunkStore.
type Option func(*ChunkStore)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *ChunkStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open connects to databaseURL, makes sure the vector extension and the chunks
// table exist, and returns a ChunkStore over a pool with pgvector types registered.
func Open(ctx context.Context, databaseURL string, opts ...Option) (*ChunkStore, error) {
	if err := ensureExtension(ctx, databaseURL); err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %w", err)
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	s := &ChunkStore{pool: pool, logger: slog.Default().With("component", "postgres-chunks")}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	s.logger.Info("connected to postgres chunk store")
	return s, nil
}

// ensureExtension creates the vector extension before any pooled connection
// tries to register its types.
func ensureExtension(ctx context.Context, databaseURL string) error {
	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(ctx)
	if _, err := conn.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}
	return nil
}

// EnsureSchema creates the chunks table and its index if missing.
func (s *ChunkStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return &core.StoreError{Op: "ensure schema", Cause: err}
	}
	return nil
}

// Close closes the pool.
func (s *ChunkStore) Close() error {
	s.pool.Close()
	return nil
}

// Create inserts chunk and assigns its ID.
func (s *ChunkStore) Create(ctx context.Context, chunk *core.Chunk) (*core.Chunk, error) {
	meta, err := encodeMetadata(chunk.Metadata)
	if err != nil {
		return nil, &core.StoreError{Op: "create chunk", Cause: err}
	}
	var spanStart, spanEnd *int
	if chunk.Span != nil {
		spanStart, spanEnd = &chunk.Span.Start, &chunk.Span.End
	}
	if chunk.CreatedAt.IsZero() {
		chunk.CreatedAt = time.Now().UTC()
	}

	const q = `
		INSERT INTO chunks (document_id, chunk_index, content, tokens, chunk_type, span_start, span_end,
			embedding, embedding_model, embedding_dimension, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`
	var id int64
	err = s.pool.QueryRow(ctx, q,
		int64(chunk.DocumentID), chunk.ChunkIndex, chunk.Content, chunk.Tokens, int(chunk.Type),
		spanStart, spanEnd, toVector(chunk.Embedding), chunk.EmbeddingModel, len(chunk.Embedding),
		meta, chunk.CreatedAt,
	).Scan(&id)
	if err != nil {
		return nil, &core.StoreError{Op: "create chunk", Cause: err}
	}
	chunk.Id = core.ID(id)
	chunk.EmbeddingDimension = len(chunk.Embedding)
	return chunk, nil
}

// Get retrieves a chunk by ID.
func (s *ChunkStore) Get(ctx context.Context, id core.ID) (*core.Chunk, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+chunkColumns+` FROM chunks WHERE id = $1`, int64(id))
	chunk, err := scanChunk(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, &core.StoreError{Op: "get chunk", Cause: err}
	}
	return chunk, nil
}

// VectorSearch orders chunks by pgvector cosine distance to embedding.
func (s *ChunkStore) VectorSearch(ctx context.Context, embedding []float32, limit int, filter storage.ChunkFilter) ([]*core.ScoredChunk, error) {
	if limit <= 0 || len(embedding) == 0 {
		return nil, storage.ErrInvalidQuery
	}

	args := []any{pgvector.NewVector(embedding), len(embedding), limit}
	where := `embedding IS NOT NULL AND embedding_dimension = $2`
	if filter.Scoped() {
		where += ` AND document_id = $4`
		args = append(args, int64(filter.DocumentID))
	}
	q := `SELECT ` + chunkColumns + `, 1 - (embedding <=> $1) AS score
		FROM chunks WHERE ` + where + `
		ORDER BY embedding <=> $1
		LIMIT $3`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, &core.StoreError{Op: "vector search", Cause: err}
	}
	defer rows.Close()

	var results []*core.ScoredChunk
	for rows.Next() {
		var score float64
		chunk, err := scanChunk(rows, &score)
		if err != nil {
			return nil, &core.StoreError{Op: "vector search", Cause: err}
		}
		results = append(results, &core.ScoredChunk{Chunk: chunk, Score: float32(score)})
	}
	if err := rows.Err(); err != nil {
		return nil, &core.StoreError{Op: "vector search", Cause: err}
	}
	return results, nil
}

// KeywordSearch matches content with ILIKE. Unscoped searches look at the first
// KeywordScanLimit chunks by ID; scoped searches look at every chunk of the document.
func (s *ChunkStore) KeywordSearch(ctx context.Context, query string, limit int, filter storage.ChunkFilter) ([]*core.Chunk, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}
	needle := strings.TrimSpace(query)
	if needle == "" {
		return nil, nil
	}
	pattern := "%" + escapeLike(needle) + "%"

	var q string
	var args []any
	if filter.Scoped() {
		q = `SELECT ` + chunkColumns + ` FROM chunks
			WHERE document_id = $1 AND content ILIKE $2
			ORDER BY chunk_index LIMIT $3`
		args = []any{int64(filter.DocumentID), pattern, limit}
	} else {
		q = `SELECT ` + chunkColumns + ` FROM (
				SELECT * FROM chunks ORDER BY id LIMIT $1
			) c
			WHERE content ILIKE $2
			ORDER BY id LIMIT $3`
		args = []any{KeywordScanLimit, pattern, limit}
	}
	return s.queryChunks(ctx, "keyword search", q, args...)
}

// ListByDocument returns the chunks of a document in chunk index order.
func (s *ChunkStore) ListByDocument(ctx context.Context, docID core.ID) ([]*core.Chunk, error) {
	return s.queryChunks(ctx, "list chunks",
		`SELECT `+chunkColumns+` FROM chunks WHERE document_id = $1 ORDER BY chunk_index`, int64(docID))
}

// Scan returns up to limit chunks with IDs greater than afterID.
func (s *ChunkStore) Scan(ctx context.Context, afterID core.ID, limit int) ([]*core.Chunk, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}
	return s.queryChunks(ctx, "scan chunks",
		`SELECT `+chunkColumns+` FROM chunks WHERE id > $1 ORDER BY id LIMIT $2`, int64(afterID), limit)
}

// UpdateEmbeddings rewrites the embedding columns of existing chunks in one transaction.
func (s *ChunkStore) UpdateEmbeddings(ctx context.Context, chunks ...*core.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return &core.StoreError{Op: "update embeddings", Cause: err}
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, c := range chunks {
		batch.Queue(`
			UPDATE chunks SET embedding = $2, embedding_model = $3, embedding_dimension = $4
			WHERE id = $1`,
			int64(c.Id), toVector(c.Embedding), c.EmbeddingModel, len(c.Embedding))
	}

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		tag, err := br.Exec()
		if err != nil {
			br.Close()
			return &core.StoreError{Op: "update embeddings", Cause: fmt.Errorf("batch exec %d: %w", i, err)}
		}
		if tag.RowsAffected() == 0 {
			br.Close()
			return storage.ErrNotFound
		}
	}
	if err := br.Close(); err != nil {
		return &core.StoreError{Op: "update embeddings", Cause: err}
	}
	if err := tx.Commit(ctx); err != nil {
		return &core.StoreError{Op: "update embeddings", Cause: err}
	}
	return nil
}

func (s *ChunkStore) queryChunks(ctx context.Context, op, q string, args ...any) ([]*core.Chunk, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, &core.StoreError{Op: op, Cause: err}
	}
	defer rows.Close()

	var chunks []*core.Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, &core.StoreError{Op: op, Cause: err}
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.StoreError{Op: op, Cause: err}
	}
	return chunks, nil
}

// scanChunk reads the chunkColumns projection followed by any extra destinations.
func scanChunk(row pgx.Row, extra ...any) (*core.Chunk, error) {
	var (
		c                  core.Chunk
		id, docID          int64
		chunkType          int
		spanStart, spanEnd *int
		vec                *pgvector.Vector
		meta               []byte
	)
	dest := []any{&id, &docID, &c.ChunkIndex, &c.Content, &c.Tokens, &chunkType, &spanStart, &spanEnd,
		&vec, &c.EmbeddingModel, &c.EmbeddingDimension, &meta, &c.CreatedAt}
	dest = append(dest, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	c.Id = core.ID(id)
	c.DocumentID = core.ID(docID)
	c.Type = core.ChunkType(chunkType)
	if spanStart != nil && spanEnd != nil {
		c.Span = &core.Span{Start: *spanStart, End: *spanEnd}
	}
	if vec != nil {
		c.Embedding = vec.Slice()
	}
	c.CreatedAt = c.CreatedAt.UTC()
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &c.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
		if len(c.Metadata) == 0 {
			c.Metadata = nil
		}
	}
	return &c, nil
}

func toVector(v []float32) *pgvector.Vector {
	if len(v) == 0 {
		return nil
	}
	vec := pgvector.NewVector(v)
	return &vec
}

func encodeMetadata(m map[string]string) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// escapeLike escapes the LIKE wildcards in s so it matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
