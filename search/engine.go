package search

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/poiesic/scriptorium/core"
	"github.com/poiesic/scriptorium/embedding"
	"github.com/poiesic/scriptorium/storage"
)

const (
	DefaultLimit        = 10
	DefaultAlpha        = 0.7
	DefaultHistoryLimit = 10
	DefaultCallTimeout  = 30 * time.Second

	// candidateFactor is how many vector candidates are fetched per requested result.
	candidateFactor = 2
)

// SearchOptions controls a vector search.
type SearchOptions struct {
	Limit      int     // maximum results; 0 means DefaultLimit
	DocumentID core.ID // zero searches all documents
	Threshold  float32 // minimum cosine similarity; 0 disables filtering
}

// HybridOptions controls a hybrid search.
// Alpha weighs the vector score against the keyword rank: 1 ranks purely by
// vector similarity, 0 purely by keyword rank.
type HybridOptions struct {
	Limit      int
	DocumentID core.ID
	Alpha      float32
}

// DefaultHybridOptions returns options with DefaultLimit and DefaultAlpha.
func DefaultHybridOptions() HybridOptions {
	return HybridOptions{Limit: DefaultLimit, Alpha: DefaultAlpha}
}

// Response is the outcome of a search.
type Response struct {
	Results       []*core.SearchResult
	ExecutionTime time.Duration
}

// Engine answers vector and hybrid queries over stored chunks.
// It is safe for concurrent use.
type Engine struct {
	batcher      *embedding.Batcher
	chunks       storage.ChunkStore
	documents    storage.DocumentStore
	history      storage.QueryHistoryStore
	monitor      SearchMonitor
	historyLimit int
	callTimeout  time.Duration
	logger       *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// WithMonitor installs hooks that observe every search. Hooks of a hybrid
// search may be called from more than one goroutine.
func WithMonitor(monitor SearchMonitor) Option {
	return func(e *Engine) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		e.monitor = monitor
		return nil
	}
}

// WithHistoryLimit sets how many top results are written to the query history.
// Default is 10.
func WithHistoryLimit(n int) Option {
	return func(e *Engine) error {
		if n < 0 {
			n = 0
		}
		e.historyLimit = n
		return nil
	}
}

// WithCallTimeout bounds the query embedding call, including any wait for a
// free batcher worker.
// Default is 30s.
func WithCallTimeout(timeout time.Duration) Option {
	return func(e *Engine) error {
		if timeout > 0 {
			e.callTimeout = timeout
		}
		return nil
	}
}

// NewEngine creates a search engine. Queries are embedded through batcher so
// they share its concurrency cap with ingestion. history may be nil, in which
// case queries are not recorded.
func NewEngine(
	batcher *embedding.Batcher,
	chunks storage.ChunkStore,
	documents storage.DocumentStore,
	history storage.QueryHistoryStore,
	opts ...Option,
) (*Engine, error) {
	if batcher == nil {
		return nil, ErrBatcherRequired
	}
	if chunks == nil {
		return nil, ErrChunkStoreRequired
	}
	if documents == nil {
		return nil, ErrDocumentStoreRequired
	}

	e := &Engine{
		batcher:      batcher,
		chunks:       chunks,
		documents:    documents,
		history:      history,
		monitor:      &noopMonitor{},
		historyLimit: DefaultHistoryLimit,
		callTimeout:  DefaultCallTimeout,
		logger:       slog.Default().With("component", "search"),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// CosineSimilarity returns the cosine of the angle between a and b, in [-1, 1].
// It is 0 when the lengths differ or either vector has zero norm.
func CosineSimilarity(a, b []float32) float32 {
	return core.CosineSimilarity(a, b)
}

// Search embeds query and returns the stored chunks most similar to it, highest
// score first. An empty query yields an empty response rather than an error.
func (e *Engine) Search(ctx context.Context, query string, opts SearchOptions) (*Response, error) {
	start := time.Now()
	query = strings.TrimSpace(query)
	if query == "" {
		return &Response{Results: []*core.SearchResult{}, ExecutionTime: time.Since(start)}, nil
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	e.monitor.Start(query, core.SearchVector)
	scored, err := e.vectorSearch(ctx, query, limit, opts.DocumentID)
	if err != nil {
		return nil, err
	}

	results := make([]*core.SearchResult, 0, len(scored))
	for _, sc := range scored {
		if opts.Threshold > 0 && sc.Score < opts.Threshold {
			continue
		}
		results = append(results, &core.SearchResult{
			Chunk:       sc.Chunk,
			Score:       sc.Score,
			VectorScore: sc.Score,
		})
	}
	sortResults(results)
	if len(results) > limit {
		results = results[:limit]
	}

	e.joinDocuments(ctx, results)
	elapsed := time.Since(start)
	e.record(ctx, query, core.SearchVector, opts.DocumentID, results, elapsed)
	e.monitor.Finish(results)

	e.logger.Debug("vector search", "query", query, "candidates", len(scored), "results", len(results), "elapsed", elapsed)
	return &Response{Results: results, ExecutionTime: elapsed}, nil
}

// HybridSearch runs a vector search and a keyword search concurrently and fuses
// them per chunk: a vector hit contributes alpha*score and a keyword hit
// contributes (1-alpha)/rank, where rank starts at 1. Chunks found by both
// accumulate both contributions.
func (e *Engine) HybridSearch(ctx context.Context, query string, opts HybridOptions) (*Response, error) {
	start := time.Now()
	query = strings.TrimSpace(query)
	if query == "" {
		return &Response{Results: []*core.SearchResult{}, ExecutionTime: time.Since(start)}, nil
	}
	if opts.Alpha < 0 || opts.Alpha > 1 {
		return nil, &core.ValidationError{Field: "alpha", Reason: "must be between 0 and 1"}
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	filter := storage.ChunkFilter{DocumentID: opts.DocumentID}

	e.monitor.Start(query, core.SearchHybrid)

	var vectorHits []*core.ScoredChunk
	var keywordHits []*core.Chunk
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		vectorHits, err = e.vectorSearch(gctx, query, limit, opts.DocumentID)
		return err
	})
	g.Go(func() error {
		var err error
		keywordHits, err = e.chunks.KeywordSearch(gctx, query, candidateFactor*limit, filter)
		if err != nil {
			return err
		}
		e.monitor.AfterKeywordSearch(keywordHits)
		return nil
	})
	if err := g.Wait(); err != nil {
		e.logger.Error("hybrid search failed", "query", query, "err", err)
		return nil, err
	}

	results := fuse(vectorHits, keywordHits, opts.Alpha)
	if len(results) > limit {
		results = results[:limit]
	}

	e.joinDocuments(ctx, results)
	elapsed := time.Since(start)
	e.record(ctx, query, core.SearchHybrid, opts.DocumentID, results, elapsed)
	e.monitor.Finish(results)

	e.logger.Debug("hybrid search", "query", query, "vector_hits", len(vectorHits),
		"keyword_hits", len(keywordHits), "results", len(results), "alpha", opts.Alpha, "elapsed", elapsed)
	return &Response{Results: results, ExecutionTime: elapsed}, nil
}

// vectorSearch embeds query, fetches candidateFactor*limit neighbors and
// rescores them with exact cosine similarity.
func (e *Engine) vectorSearch(ctx context.Context, query string, limit int, docID core.ID) ([]*core.ScoredChunk, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	vector, err := e.batcher.EmbedQuery(callCtx, query)
	cancel()
	if err != nil {
		e.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}
	e.monitor.AfterQueryEmbedding(len(vector))

	candidates, err := e.chunks.VectorSearch(ctx, vector, candidateFactor*limit, storage.ChunkFilter{DocumentID: docID})
	if err != nil {
		e.logger.Error("error querying for similar chunks", "err", err)
		return nil, err
	}
	for _, c := range candidates {
		c.Score = CosineSimilarity(vector, c.Chunk.Embedding)
	}
	e.monitor.AfterVectorSearch(candidates)
	return candidates, nil
}

// fuse merges vector and keyword hits by chunk ID. Ties keep first-seen order,
// vector hits before keyword-only hits.
func fuse(vectorHits []*core.ScoredChunk, keywordHits []*core.Chunk, alpha float32) []*core.SearchResult {
	byID := make(map[core.ID]*core.SearchResult, len(vectorHits)+len(keywordHits))
	results := make([]*core.SearchResult, 0, len(vectorHits)+len(keywordHits))

	get := func(chunk *core.Chunk) *core.SearchResult {
		if r, ok := byID[chunk.Id]; ok {
			return r
		}
		r := &core.SearchResult{Chunk: chunk}
		byID[chunk.Id] = r
		results = append(results, r)
		return r
	}

	for _, hit := range vectorHits {
		r := get(hit.Chunk)
		r.VectorScore = hit.Score
		r.Score += alpha * hit.Score
	}
	for i, chunk := range keywordHits {
		r := get(chunk)
		r.KeywordScore = 1 / float32(i+1)
		r.Score += (1 - alpha) * r.KeywordScore
	}

	sortResults(results)
	return results
}

func sortResults(results []*core.SearchResult) {
	slices.SortStableFunc(results, func(a, b *core.SearchResult) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})
}

// joinDocuments attaches the owning document to each result. A missing
// document leaves the result without one.
func (e *Engine) joinDocuments(ctx context.Context, results []*core.SearchResult) {
	docs := make(map[core.ID]*core.Document)
	for _, r := range results {
		id := r.Chunk.DocumentID
		doc, seen := docs[id]
		if !seen {
			var err error
			doc, err = e.documents.Get(ctx, id)
			if err != nil {
				e.logger.Warn("could not load document for result", "document", id, "err", err)
				doc = nil
			}
			docs[id] = doc
		}
		r.Document = doc
	}
}

// record writes the query and its top results to the history. Failures are logged only.
func (e *Engine) record(ctx context.Context, query string, mode core.SearchMode, docID core.ID, results []*core.SearchResult, elapsed time.Duration) {
	if e.history == nil {
		return
	}
	top := results[:min(len(results), e.historyLimit)]
	rec := &core.QueryRecord{
		Query:          query,
		Mode:           mode,
		DocumentID:     docID,
		ResultChunkIDs: make([]core.ID, len(top)),
		Scores:         make([]float32, len(top)),
		ExecutionTime:  elapsed,
	}
	for i, r := range top {
		rec.ResultChunkIDs[i] = r.Chunk.Id
		rec.Scores[i] = r.Score
	}
	if err := e.history.Record(context.WithoutCancel(ctx), rec); err != nil {
		e.logger.Warn("could not record query", "query", query, "err", err)
	}
}
