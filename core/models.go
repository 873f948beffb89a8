package core

//go:generate go run ../cmd/musgen

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// Stores allocate IDs from sequences starting at 1; the zero ID means "none".
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// DocumentStatus is the lifecycle state of an uploaded document.
type DocumentStatus int

const (
	DocumentPending DocumentStatus = iota + 1
	DocumentProcessing
	DocumentCompleted
	DocumentError
)

func (s DocumentStatus) String() string {
	switch s {
	case DocumentPending:
		return "pending"
	case DocumentProcessing:
		return "processing"
	case DocumentCompleted:
		return "completed"
	case DocumentError:
		return "error"
	default:
		return "unknown"
	}
}

// Document is an uploaded file and its processing outcome.
type Document struct {
	Id             ID
	FileName       string
	FileType       string // MIME type resolved at upload
	Extension      string
	FileSize       int64
	ContentHash    string // hex digest of the raw bytes
	BlobRef        string // key of the raw bytes in the blob store
	Status         DocumentStatus
	Error          string
	ChunkCount     int
	ProcessingTime time.Duration
	Metadata       map[string]string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ProcessingJob tracks a single pipeline run for a document.
// There is at most one job per document; a new run replaces the previous one.
type ProcessingJob struct {
	DocumentID  ID
	Stage       Stage
	Progress    int
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
	UpdatedAt   time.Time
}

// Table is a header row plus data rows, all cells rendered as strings.
type Table struct {
	Name    string
	Headers []string
	Rows    [][]string
}

// PageImage references a rendered page image.
type PageImage struct {
	URL      string
	Page     int // 1-based
	MimeType string
}

// ParsedContent is the normalized output of a format parser.
// It is produced once per run and not modified afterwards.
type ParsedContent struct {
	Text     string
	Pages    []string
	Tables   []Table
	Images   []PageImage
	Metadata map[string]any
}

// HasImages reports whether page images were extracted.
func (p *ParsedContent) HasImages() bool {
	return p != nil && len(p.Images) > 0
}

// ChunkType distinguishes prose chunks from table chunks.
type ChunkType int

const (
	ChunkText ChunkType = iota + 1
	ChunkTable
)

func (t ChunkType) String() string {
	switch t {
	case ChunkText:
		return "text"
	case ChunkTable:
		return "table"
	default:
		return "unknown"
	}
}

// Span is a half-open [Start, End) byte range into a document's normalized text.
type Span struct {
	Start int
	End   int
}

// Chunk is a bounded span of document text, or one table, together with its embedding.
type Chunk struct {
	Id                 ID
	DocumentID         ID
	Content            string
	ChunkIndex         int
	Tokens             int
	Type               ChunkType
	Span               *Span // nil when the chunk has no position in the source text
	Embedding          []float32
	EmbeddingModel     string
	EmbeddingDimension int
	Metadata           map[string]string
	CreatedAt          time.Time
}

// ScoredChunk is a chunk returned by a store-level search together with its raw score.
type ScoredChunk struct {
	Chunk *Chunk
	Score float32
}

// SearchResult is a ranked chunk with its owning document joined in.
type SearchResult struct {
	Chunk        *Chunk
	Document     *Document
	Score        float32
	VectorScore  float32
	KeywordScore float32
}

// SearchMode identifies the retrieval strategy recorded in query history.
type SearchMode int

const (
	SearchVector SearchMode = iota + 1
	SearchHybrid
)

func (m SearchMode) String() string {
	switch m {
	case SearchVector:
		return "vector"
	case SearchHybrid:
		return "hybrid"
	default:
		return "unknown"
	}
}

// QueryRecord is an entry in the query history.
type QueryRecord struct {
	Id             ID
	Query          string
	Mode           SearchMode
	DocumentID     ID
	ResultChunkIDs []ID
	Scores         []float32
	ExecutionTime  time.Duration
	CreatedAt      time.Time
}

// FileInfo describes a validated upload.
type FileInfo struct {
	Name      string
	MimeType  string
	Extension string
	Size      int64
	Hash      string
}
