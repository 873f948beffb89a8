package badger

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/scriptorium/core"
	"github.com/poiesic/scriptorium/storage"
)

// KeywordScanLimit caps how many chunks an unscoped keyword search inspects.
const KeywordScanLimit = 1000

// ChunkStore implements storage.ChunkStore for BadgerDB.
// Vector search is an exact scan over stored embeddings.
type ChunkStore struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.ChunkStore = (*ChunkStore)(nil)

// NewChunkStore creates a new ChunkStore.
func NewChunkStore(backend *Backend) (*ChunkStore, error) {
	idSeq, err := backend.GetSequence(chunkIDSeq)
	if err != nil {
		return nil, err
	}
	return &ChunkStore{backend: backend, idSeq: idSeq}, nil
}

// Close releases the ID sequence.
func (s *ChunkStore) Close() error {
	return s.idSeq.Release()
}

// Create stores a chunk and its per-document index entry.
func (s *ChunkStore) Create(ctx context.Context, chunk *core.Chunk) (*core.Chunk, error) {
	err := s.backend.Update(func(tx *badger.Txn) error {
		if chunk.Id == 0 {
			id, err := nextID(s.idSeq)
			if err != nil {
				return err
			}
			chunk.Id = id
		}
		if chunk.CreatedAt.IsZero() {
			chunk.CreatedAt = time.Now().UTC()
		}
		if err := tx.Set(makeChunkKey(chunk.Id), storage.MarshalChunk(chunk)); err != nil {
			return err
		}
		indexKey := makeChunkDocumentKey(chunk.DocumentID, chunk.ChunkIndex, chunk.Id)
		return tx.Set(indexKey, storage.MarshalID(chunk.Id))
	})
	if err != nil {
		return nil, storeError("create chunk", err)
	}
	return chunk, nil
}

// Get retrieves a chunk by ID.
func (s *ChunkStore) Get(ctx context.Context, id core.ID) (*core.Chunk, error) {
	var chunk *core.Chunk
	err := s.backend.View(func(tx *badger.Txn) error {
		var err error
		chunk, err = readValue(tx, makeChunkKey(id), storage.UnmarshalChunk)
		if err != nil {
			return err
		}
		if chunk == nil {
			return storage.ErrNotFound
		}
		return nil
	})
	if err == storage.ErrNotFound {
		return nil, err
	}
	return chunk, storeError("get chunk", err)
}

// VectorSearch scores every candidate chunk by cosine similarity to embedding.
// Chunks without an embedding or with a different dimension are skipped.
func (s *ChunkStore) VectorSearch(ctx context.Context, embedding []float32, limit int, filter storage.ChunkFilter) ([]*core.ScoredChunk, error) {
	if limit <= 0 || len(embedding) == 0 {
		return nil, storage.ErrInvalidQuery
	}

	var results []*core.ScoredChunk
	err := s.backend.View(func(tx *badger.Txn) error {
		return forEachChunk(tx, filter, 0, func(chunk *core.Chunk) bool {
			if len(chunk.Embedding) != len(embedding) {
				return true
			}
			results = append(results, &core.ScoredChunk{
				Chunk: chunk,
				Score: core.CosineSimilarity(embedding, chunk.Embedding),
			})
			return true
		})
	})
	if err != nil {
		return nil, storeError("vector search", err)
	}

	// Sort by similarity descending
	slices.SortStableFunc(results, func(a, b *core.ScoredChunk) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// KeywordSearch returns chunks containing query, ignoring case.
// Unscoped searches inspect at most KeywordScanLimit chunks in ID order; scoped
// searches inspect every chunk of the document in chunk index order.
func (s *ChunkStore) KeywordSearch(ctx context.Context, query string, limit int, filter storage.ChunkFilter) ([]*core.Chunk, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil, nil
	}

	maxScan := KeywordScanLimit
	if filter.Scoped() {
		maxScan = 0
	}

	var results []*core.Chunk
	err := s.backend.View(func(tx *badger.Txn) error {
		return forEachChunk(tx, filter, maxScan, func(chunk *core.Chunk) bool {
			if strings.Contains(strings.ToLower(chunk.Content), needle) {
				results = append(results, chunk)
			}
			return len(results) < limit
		})
	})
	if err != nil {
		return nil, storeError("keyword search", err)
	}
	return results, nil
}

// ListByDocument returns the chunks of a document in chunk index order.
func (s *ChunkStore) ListByDocument(ctx context.Context, docID core.ID) ([]*core.Chunk, error) {
	var chunks []*core.Chunk
	err := s.backend.View(func(tx *badger.Txn) error {
		return forEachChunk(tx, storage.ChunkFilter{DocumentID: docID}, 0, func(chunk *core.Chunk) bool {
			chunks = append(chunks, chunk)
			return true
		})
	})
	return chunks, storeError("list chunks", err)
}

// Scan returns up to limit chunks with IDs greater than afterID.
func (s *ChunkStore) Scan(ctx context.Context, afterID core.ID, limit int) ([]*core.Chunk, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}
	var chunks []*core.Chunk
	err := s.backend.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(makeChunkKey(afterID + 1)); iter.Valid() && len(chunks) < limit; iter.Next() {
			chunk, err := decodeItem(iter.Item())
			if err != nil {
				return err
			}
			chunks = append(chunks, chunk)
		}
		return nil
	})
	return chunks, storeError("scan chunks", err)
}

// UpdateEmbeddings replaces embedding, model and dimension of existing chunks.
func (s *ChunkStore) UpdateEmbeddings(ctx context.Context, chunks ...*core.Chunk) error {
	err := s.backend.Update(func(tx *badger.Txn) error {
		for _, chunk := range chunks {
			key := makeChunkKey(chunk.Id)
			stored, err := readValue(tx, key, storage.UnmarshalChunk)
			if err != nil {
				return err
			}
			if stored == nil {
				return storage.ErrNotFound
			}
			stored.Embedding = chunk.Embedding
			stored.EmbeddingModel = chunk.EmbeddingModel
			stored.EmbeddingDimension = len(chunk.Embedding)
			if err := tx.Set(key, storage.MarshalChunk(stored)); err != nil {
				return err
			}
		}
		return nil
	})
	if err == storage.ErrNotFound {
		return err
	}
	return storeError("update embeddings", err)
}

func decodeItem(item *badger.Item) (*core.Chunk, error) {
	var chunk *core.Chunk
	err := item.Value(func(val []byte) error {
		var err error
		chunk, err = storage.UnmarshalChunk(val)
		return err
	})
	return chunk, err
}

// forEachChunk visits candidate chunks until fn returns false or maxScan chunks
// were visited (0 = no cap). Scoped filters walk the document index; otherwise
// all chunks are walked in ID order.
func forEachChunk(tx *badger.Txn, filter storage.ChunkFilter, maxScan int, fn func(*core.Chunk) bool) error {
	opts := badger.DefaultIteratorOptions
	if filter.Scoped() {
		opts.Prefix = makePartialChunkDocumentKey(filter.DocumentID)
		opts.PrefetchValues = false
	} else {
		opts.Prefix = []byte(chunkPrefix)
	}
	iter := tx.NewIterator(opts)
	defer iter.Close()

	visited := 0
	for iter.Rewind(); iter.Valid(); iter.Next() {
		if maxScan > 0 && visited >= maxScan {
			return nil
		}
		visited++

		var chunk *core.Chunk
		var err error
		if filter.Scoped() {
			chunk, err = readValue(tx, makeChunkKey(chunkIDFromIndexKey(iter.Item().Key())), storage.UnmarshalChunk)
		} else {
			chunk, err = decodeItem(iter.Item())
		}
		if err != nil {
			return err
		}
		if chunk == nil {
			continue
		}
		if !fn(chunk) {
			return nil
		}
	}
	return nil
}
