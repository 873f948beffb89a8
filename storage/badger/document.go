package badger

import (
	"context"
	"maps"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/scriptorium/core"
	"github.com/poiesic/scriptorium/storage"
)

// DocumentStore implements storage.DocumentStore for BadgerDB.
type DocumentStore struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.DocumentStore = (*DocumentStore)(nil)

// NewDocumentStore creates a new DocumentStore.
func NewDocumentStore(backend *Backend) (*DocumentStore, error) {
	idSeq, err := backend.GetSequence(documentIDSeq)
	if err != nil {
		return nil, err
	}
	return &DocumentStore{backend: backend, idSeq: idSeq}, nil
}

// Close releases the ID sequence.
func (s *DocumentStore) Close() error {
	return s.idSeq.Release()
}

// Create stores a new document.
func (s *DocumentStore) Create(ctx context.Context, doc *core.Document) (*core.Document, error) {
	err := s.backend.Update(func(tx *badger.Txn) error {
		if doc.Id == 0 {
			id, err := nextID(s.idSeq)
			if err != nil {
				return err
			}
			doc.Id = id
		}
		now := time.Now().UTC()
		if doc.CreatedAt.IsZero() {
			doc.CreatedAt = now
		}
		doc.UpdatedAt = now
		if doc.Status == 0 {
			doc.Status = core.DocumentPending
		}
		return tx.Set(makeDocumentKey(doc.Id), storage.MarshalDocument(doc))
	})
	if err != nil {
		return nil, storeError("create document", err)
	}
	return doc, nil
}

// Get retrieves a document by ID.
func (s *DocumentStore) Get(ctx context.Context, id core.ID) (*core.Document, error) {
	var doc *core.Document
	err := s.backend.View(func(tx *badger.Txn) error {
		var err error
		doc, err = readValue(tx, makeDocumentKey(id), storage.UnmarshalDocument)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}
		return nil
	})
	if err == storage.ErrNotFound {
		return nil, err
	}
	return doc, storeError("get document", err)
}

// modify applies fn to the stored document and writes it back.
func (s *DocumentStore) modify(op string, id core.ID, fn func(doc *core.Document)) error {
	err := s.backend.Update(func(tx *badger.Txn) error {
		key := makeDocumentKey(id)
		doc, err := readValue(tx, key, storage.UnmarshalDocument)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}
		fn(doc)
		doc.UpdatedAt = time.Now().UTC()
		return tx.Set(key, storage.MarshalDocument(doc))
	})
	if err == storage.ErrNotFound {
		return err
	}
	return storeError(op, err)
}

// UpdateStatus sets the status and error message of a document.
func (s *DocumentStore) UpdateStatus(ctx context.Context, id core.ID, status core.DocumentStatus, errMsg string) error {
	return s.modify("update document status", id, func(doc *core.Document) {
		doc.Status = status
		doc.Error = errMsg
	})
}

// UpdateProcessingComplete marks the document completed with the run's results.
func (s *DocumentStore) UpdateProcessingComplete(ctx context.Context, id core.ID, chunkCount int, processingTime time.Duration, metadata map[string]string) error {
	return s.modify("complete document", id, func(doc *core.Document) {
		doc.Status = core.DocumentCompleted
		doc.Error = ""
		doc.ChunkCount = chunkCount
		doc.ProcessingTime = processingTime
		if len(metadata) > 0 {
			if doc.Metadata == nil {
				doc.Metadata = make(map[string]string, len(metadata))
			}
			maps.Copy(doc.Metadata, metadata)
		}
	})
}

// List returns documents newest first, up to limit (0 = all).
func (s *DocumentStore) List(ctx context.Context, limit int) ([]*core.Document, error) {
	var docs []*core.Document
	err := s.backend.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(documentPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(seekLast(documentPrefix)); iter.Valid(); iter.Next() {
			if limit > 0 && len(docs) >= limit {
				break
			}
			var doc *core.Document
			err := iter.Item().Value(func(val []byte) error {
				var err error
				doc, err = storage.UnmarshalDocument(val)
				return err
			})
			if err != nil {
				return err
			}
			docs = append(docs, doc)
		}
		return nil
	})
	return docs, storeError("list documents", err)
}
