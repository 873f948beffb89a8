package badger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/poiesic/scriptorium/core"
	"github.com/poiesic/scriptorium/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStores(t *testing.T) *Stores {
	t.Helper()
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { stores.Close() })
	return stores
}

func TestDocumentStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newStores(t)

	doc, err := s.Documents.Create(ctx, &core.Document{FileName: "a.txt", Metadata: map[string]string{"source": "upload"}})
	require.NoError(t, err)
	assert.NotZero(t, doc.Id)
	assert.Equal(t, core.DocumentPending, doc.Status)
	assert.False(t, doc.CreatedAt.IsZero())

	require.NoError(t, s.Documents.UpdateStatus(ctx, doc.Id, core.DocumentProcessing, ""))
	// idempotent
	require.NoError(t, s.Documents.UpdateStatus(ctx, doc.Id, core.DocumentProcessing, ""))

	require.NoError(t, s.Documents.UpdateProcessingComplete(ctx, doc.Id, 4, 2*time.Second, map[string]string{"pageCount": "2"}))

	got, err := s.Documents.Get(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, core.DocumentCompleted, got.Status)
	assert.Equal(t, 4, got.ChunkCount)
	assert.Equal(t, 2*time.Second, got.ProcessingTime)
	assert.Equal(t, map[string]string{"source": "upload", "pageCount": "2"}, got.Metadata)

	_, err = s.Documents.Get(ctx, 999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, s.Documents.UpdateStatus(ctx, 999, core.DocumentError, "x"), storage.ErrNotFound)
}

func TestDocumentStoreListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newStores(t)

	var ids []core.ID
	for i := 0; i < 3; i++ {
		doc, err := s.Documents.Create(ctx, &core.Document{FileName: fmt.Sprintf("%d.txt", i)})
		require.NoError(t, err)
		ids = append(ids, doc.Id)
	}

	docs, err := s.Documents.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, ids[2], docs[0].Id)
	assert.Equal(t, ids[0], docs[2].Id)

	docs, err = s.Documents.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestJobStoreStateMachine(t *testing.T) {
	ctx := context.Background()
	s := newStores(t)

	job, err := s.Jobs.Create(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, core.StagePending, job.Stage)

	require.NoError(t, s.Jobs.UpdateProgress(ctx, 7, core.StageDownloading, 0))
	require.NoError(t, s.Jobs.UpdateProgress(ctx, 7, core.StageParsing, 20))

	// skipping a stage is rejected
	err = s.Jobs.UpdateProgress(ctx, 7, core.StageStoring, 80)
	assert.ErrorIs(t, err, core.ErrIllegalTransition)

	require.NoError(t, s.Jobs.SetError(ctx, 7, "parser exploded"))
	got, err := s.Jobs.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, core.StageError, got.Stage)
	assert.Equal(t, 20, got.Progress)
	assert.Equal(t, "parser exploded", got.Error)
	require.NotNil(t, got.CompletedAt)

	// error is absorbing
	assert.ErrorIs(t, s.Jobs.UpdateProgress(ctx, 7, core.StageChunking, 40), core.ErrIllegalTransition)
	assert.ErrorIs(t, s.Jobs.Complete(ctx, 7), core.ErrIllegalTransition)

	_, err = s.Jobs.Get(ctx, 8)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestJobStoreComplete(t *testing.T) {
	ctx := context.Background()
	s := newStores(t)

	_, err := s.Jobs.Create(ctx, 1)
	require.NoError(t, err)
	for _, stage := range []core.Stage{core.StageDownloading, core.StageParsing, core.StageChunking, core.StageEmbedding, core.StageStoring} {
		require.NoError(t, s.Jobs.UpdateProgress(ctx, 1, stage, stage.Progress()))
	}
	require.NoError(t, s.Jobs.Complete(ctx, 1))

	job, err := s.Jobs.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, core.StageCompleted, job.Stage)
	assert.Equal(t, 100, job.Progress)
	assert.ErrorIs(t, s.Jobs.SetError(ctx, 1, "late"), core.ErrIllegalTransition)
}

func addChunk(t *testing.T, s *Stores, docID core.ID, index int, content string, vec []float32) *core.Chunk {
	t.Helper()
	chunk, err := s.Chunks.Create(context.Background(), &core.Chunk{
		DocumentID: docID, ChunkIndex: index, Content: content, Type: core.ChunkText,
		Embedding: vec, EmbeddingDimension: len(vec), EmbeddingModel: "test",
	})
	require.NoError(t, err)
	return chunk
}

func TestChunkStoreVectorSearch(t *testing.T) {
	ctx := context.Background()
	s := newStores(t)

	best := addChunk(t, s, 1, 0, "exact", []float32{1, 0, 0})
	near := addChunk(t, s, 1, 1, "near", []float32{0.9, 0.1, 0})
	addChunk(t, s, 2, 0, "far", []float32{0, 0, 1})
	addChunk(t, s, 2, 1, "no vector", nil)
	addChunk(t, s, 2, 2, "other model", []float32{1, 0})

	results, err := s.Chunks.VectorSearch(ctx, []float32{1, 0, 0}, 10, storage.ChunkFilter{})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, best.Id, results[0].Chunk.Id)
	assert.Equal(t, near.Id, results[1].Chunk.Id)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)

	scoped, err := s.Chunks.VectorSearch(ctx, []float32{1, 0, 0}, 10, storage.ChunkFilter{DocumentID: 2})
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, "far", scoped[0].Chunk.Content)

	limited, err := s.Chunks.VectorSearch(ctx, []float32{1, 0, 0}, 1, storage.ChunkFilter{})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	_, err = s.Chunks.VectorSearch(ctx, []float32{1, 0, 0}, 0, storage.ChunkFilter{})
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func TestChunkStoreKeywordSearch(t *testing.T) {
	ctx := context.Background()
	s := newStores(t)

	addChunk(t, s, 1, 0, "The Quick brown fox", nil)
	addChunk(t, s, 1, 1, "lazy dog", nil)
	addChunk(t, s, 2, 0, "quick silver", nil)

	all, err := s.Chunks.KeywordSearch(ctx, "QUICK", 10, storage.ChunkFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	scoped, err := s.Chunks.KeywordSearch(ctx, "quick", 10, storage.ChunkFilter{DocumentID: 2})
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, "quick silver", scoped[0].Content)

	limited, err := s.Chunks.KeywordSearch(ctx, "quick", 1, storage.ChunkFilter{})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := s.Chunks.KeywordSearch(ctx, "   ", 10, storage.ChunkFilter{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestChunkStoreKeywordScanCap(t *testing.T) {
	ctx := context.Background()
	s := newStores(t)

	for i := 0; i < KeywordScanLimit; i++ {
		addChunk(t, s, 1, i, "filler", nil)
	}
	addChunk(t, s, 1, KeywordScanLimit, "needle", nil)

	unscoped, err := s.Chunks.KeywordSearch(ctx, "needle", 10, storage.ChunkFilter{})
	require.NoError(t, err)
	assert.Empty(t, unscoped, "unscoped search stops after the scan cap")

	scoped, err := s.Chunks.KeywordSearch(ctx, "needle", 10, storage.ChunkFilter{DocumentID: 1})
	require.NoError(t, err)
	assert.Len(t, scoped, 1)
}

func TestChunkStoreListScanAndUpdate(t *testing.T) {
	ctx := context.Background()
	s := newStores(t)

	// insert out of index order
	c2 := addChunk(t, s, 5, 2, "two", []float32{1})
	c0 := addChunk(t, s, 5, 0, "zero", []float32{1})
	c1 := addChunk(t, s, 5, 1, "one", []float32{1})
	addChunk(t, s, 6, 0, "other", []float32{1})

	listed, err := s.Chunks.ListByDocument(ctx, 5)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, []core.ID{c0.Id, c1.Id, c2.Id}, []core.ID{listed[0].Id, listed[1].Id, listed[2].Id})

	page, err := s.Chunks.Scan(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Less(t, page[0].Id, page[1].Id)
	rest, err := s.Chunks.Scan(ctx, page[1].Id, 10)
	require.NoError(t, err)
	assert.Len(t, rest, 2)

	c0.Embedding = []float32{0.5, 0.5}
	c0.EmbeddingModel = "new-model"
	require.NoError(t, s.Chunks.UpdateEmbeddings(ctx, c0))
	got, err := s.Chunks.Get(ctx, c0.Id)
	require.NoError(t, err)
	assert.Equal(t, "new-model", got.EmbeddingModel)
	assert.Equal(t, 2, got.EmbeddingDimension)
	assert.Equal(t, "zero", got.Content)

	assert.ErrorIs(t, s.Chunks.UpdateEmbeddings(ctx, &core.Chunk{Id: 9999}), storage.ErrNotFound)
}

func TestQueryHistoryRecent(t *testing.T) {
	ctx := context.Background()
	s := newStores(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.History.Record(ctx, &core.QueryRecord{Query: fmt.Sprintf("q%d", i), Mode: core.SearchVector}))
	}

	recent, err := s.History.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "q2", recent[0].Query)
	assert.Equal(t, "q1", recent[1].Query)
}
