package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/poiesic/scriptorium/core"
)

type documentView struct {
	ID               core.ID           `json:"id"`
	FileName         string            `json:"file_name"`
	FileType         string            `json:"file_type"`
	Extension        string            `json:"extension"`
	FileSize         int64             `json:"file_size"`
	ContentHash      string            `json:"content_hash"`
	Status           string            `json:"status"`
	Error            string            `json:"error,omitempty"`
	ChunkCount       int               `json:"chunk_count"`
	ProcessingTimeMs int64             `json:"processing_time_ms"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

func newDocumentView(d *core.Document) *documentView {
	if d == nil {
		return nil
	}
	return &documentView{
		ID:               d.Id,
		FileName:         d.FileName,
		FileType:         d.FileType,
		Extension:        d.Extension,
		FileSize:         d.FileSize,
		ContentHash:      d.ContentHash,
		Status:           d.Status.String(),
		Error:            d.Error,
		ChunkCount:       d.ChunkCount,
		ProcessingTimeMs: d.ProcessingTime.Milliseconds(),
		Metadata:         d.Metadata,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

type jobView struct {
	DocumentID  core.ID    `json:"document_id"`
	Stage       string     `json:"stage"`
	Progress    int        `json:"progress"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func newJobView(j *core.ProcessingJob) *jobView {
	return &jobView{
		DocumentID:  j.DocumentID,
		Stage:       j.Stage.String(),
		Progress:    j.Progress,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
		Error:       j.Error,
		UpdatedAt:   j.UpdatedAt,
	}
}

// chunkView omits the embedding.
type chunkView struct {
	ID             core.ID           `json:"id"`
	DocumentID     core.ID           `json:"document_id"`
	Content        string            `json:"content"`
	ChunkIndex     int               `json:"chunk_index"`
	Tokens         int               `json:"tokens"`
	Type           string            `json:"type"`
	Span           *spanView         `json:"span,omitempty"`
	EmbeddingModel string            `json:"embedding_model,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

type spanView struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type resultView struct {
	Chunk        chunkView     `json:"chunk"`
	Document     *documentView `json:"document,omitempty"`
	Score        float32       `json:"score"`
	VectorScore  float32       `json:"vector_score"`
	KeywordScore float32       `json:"keyword_score"`
}

type searchView struct {
	Query           string       `json:"query"`
	Results         []resultView `json:"results"`
	ExecutionTimeMs int64        `json:"execution_time_ms"`
}

func newResultViews(results []*core.SearchResult) []resultView {
	views := make([]resultView, 0, len(results))
	for _, r := range results {
		c := r.Chunk
		var span *spanView
		if c.Span != nil {
			span = &spanView{Start: c.Span.Start, End: c.Span.End}
		}
		views = append(views, resultView{
			Chunk: chunkView{
				ID:             c.Id,
				DocumentID:     c.DocumentID,
				Content:        c.Content,
				ChunkIndex:     c.ChunkIndex,
				Tokens:         c.Tokens,
				Type:           c.Type.String(),
				Span:           span,
				EmbeddingModel: c.EmbeddingModel,
				Metadata:       c.Metadata,
			},
			Document:     newDocumentView(r.Document),
			Score:        r.Score,
			VectorScore:  r.VectorScore,
			KeywordScore: r.KeywordScore,
		})
	}
	return views
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
