package storage

import (
	"testing"
	"time"

	"github.com/poiesic/scriptorium/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalID(t *testing.T) {
	for _, id := range []core.ID{0, 42, core.ID(18446744073709551615), core.IDFromContent("test content")} {
		decoded, err := UnmarshalID(MarshalID(id))
		require.NoError(t, err)
		assert.Equal(t, id, decoded)
	}

	_, err := UnmarshalID(nil)
	assert.ErrorIs(t, err, ErrTruncatedData)
}

func TestChunkRecord(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	t.Run("span and embedding survive", func(t *testing.T) {
		chunk := &core.Chunk{
			Id:                 7,
			DocumentID:         3,
			Content:            "Dr. Smith went home.",
			ChunkIndex:         2,
			Tokens:             5,
			Type:               core.ChunkText,
			Span:               &core.Span{Start: 10, End: 30},
			Embedding:          []float32{0.25, -1.5, 0},
			EmbeddingModel:     "embeddinggemma",
			EmbeddingDimension: 3,
			Metadata:           map[string]string{"sentences": "1", "page": "4"},
			CreatedAt:          now,
		}
		decoded, err := UnmarshalChunk(MarshalChunk(chunk))
		require.NoError(t, err)
		assert.Equal(t, chunk, decoded)
	})

	t.Run("table chunk keeps nil span", func(t *testing.T) {
		chunk := &core.Chunk{Id: 1, DocumentID: 1, Content: "a | b", Type: core.ChunkTable}
		decoded, err := UnmarshalChunk(MarshalChunk(chunk))
		require.NoError(t, err)
		assert.Nil(t, decoded.Span)
		assert.True(t, decoded.CreatedAt.IsZero())
	})
}

func TestJobRecordCompletedAt(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	job := &core.ProcessingJob{DocumentID: 9, Stage: core.StageEmbedding, Progress: 60, StartedAt: now, UpdatedAt: now}

	decoded, err := UnmarshalJob(MarshalJob(job))
	require.NoError(t, err)
	assert.Nil(t, decoded.CompletedAt)
	assert.Equal(t, job, decoded)

	done := now.Add(time.Second)
	job.CompletedAt = &done
	job.Stage = core.StageCompleted
	decoded, err = UnmarshalJob(MarshalJob(job))
	require.NoError(t, err)
	require.NotNil(t, decoded.CompletedAt)
	assert.Equal(t, done, *decoded.CompletedAt)
}

func TestDocumentAndQueryRecords(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	doc := &core.Document{
		Id: 5, FileName: "report.pdf", FileType: "application/pdf", Extension: "pdf",
		FileSize: 1 << 20, ContentHash: "abc", BlobRef: "uploads/x.pdf",
		Status: core.DocumentError, Error: "parse failed", ChunkCount: 0,
		ProcessingTime: 1500 * time.Millisecond, Metadata: map[string]string{"pageCount": "3"},
		CreatedAt: now, UpdatedAt: now,
	}
	decodedDoc, err := UnmarshalDocument(MarshalDocument(doc))
	require.NoError(t, err)
	assert.Equal(t, doc, decodedDoc)

	rec := &core.QueryRecord{
		Id: 1, Query: "what is rag", Mode: core.SearchHybrid, DocumentID: 5,
		ResultChunkIDs: []core.ID{4, 2}, Scores: []float32{0.9, 0.4},
		ExecutionTime: 12 * time.Millisecond, CreatedAt: now,
	}
	decodedRec, err := UnmarshalQueryRecord(MarshalQueryRecord(rec))
	require.NoError(t, err)
	assert.Equal(t, rec, decodedRec)
}

func TestRecordLayout(t *testing.T) {
	chunk := core.Chunk{Id: 3, DocumentID: 1, Content: "one", Embedding: []float32{1, 0}}
	data := MarshalChunk(&chunk)

	// one version byte, then the generated chunk codec
	assert.Equal(t, byte(recordVersion), data[0])
	assert.Len(t, data, 1+core.ChunkMUS.Size(chunk))

	decoded, _, err := core.ChunkMUS.Unmarshal(data[1:])
	require.NoError(t, err)
	assert.Equal(t, chunk.Embedding, decoded.Embedding)
}

func TestEmptyCollectionsDecodeAsNil(t *testing.T) {
	doc, err := UnmarshalDocument(MarshalDocument(&core.Document{Id: 1, Metadata: map[string]string{}}))
	require.NoError(t, err)
	assert.Nil(t, doc.Metadata)

	chunk, err := UnmarshalChunk(MarshalChunk(&core.Chunk{Id: 2, Embedding: []float32{}}))
	require.NoError(t, err)
	assert.Nil(t, chunk.Embedding)
	assert.Nil(t, chunk.Metadata)

	rec, err := UnmarshalQueryRecord(MarshalQueryRecord(&core.QueryRecord{Id: 3, Query: "nothing found"}))
	require.NoError(t, err)
	assert.Nil(t, rec.ResultChunkIDs)
	assert.Nil(t, rec.Scores)
}

func TestTimesDecodeAsUTC(t *testing.T) {
	local := time.Date(2025, 3, 1, 9, 30, 0, 123456000, time.FixedZone("CET", 3600))
	job, err := UnmarshalJob(MarshalJob(&core.ProcessingJob{DocumentID: 1, StartedAt: local}))
	require.NoError(t, err)
	assert.Equal(t, time.UTC, job.StartedAt.Location())
	assert.True(t, local.Equal(job.StartedAt))
	assert.True(t, job.UpdatedAt.IsZero())
}

func TestUnmarshalCorruptData(t *testing.T) {
	data := MarshalChunk(&core.Chunk{Id: 1, Content: "hello world", Embedding: []float32{1, 2}})

	_, err := UnmarshalChunk(data[:len(data)/2])
	assert.ErrorIs(t, err, ErrSerializationFailed)

	_, err = UnmarshalChunk(append(data, 0x01))
	assert.ErrorIs(t, err, ErrSerializationFailed)

	// version byte
	bad := append([]byte{}, data...)
	bad[0] = 0x7f
	_, err = UnmarshalChunk(bad)
	assert.ErrorIs(t, err, ErrSerializationFailed)
}
