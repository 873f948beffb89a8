package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/scriptorium/core"
	"github.com/poiesic/scriptorium/storage"
)

// QueryHistoryStore implements storage.QueryHistoryStore for BadgerDB.
type QueryHistoryStore struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.QueryHistoryStore = (*QueryHistoryStore)(nil)

// NewQueryHistoryStore creates a new QueryHistoryStore.
func NewQueryHistoryStore(backend *Backend) (*QueryHistoryStore, error) {
	idSeq, err := backend.GetSequence(queryIDSeq)
	if err != nil {
		return nil, err
	}
	return &QueryHistoryStore{backend: backend, idSeq: idSeq}, nil
}

// Close releases the ID sequence.
func (s *QueryHistoryStore) Close() error {
	return s.idSeq.Release()
}

// Record stores a query record.
func (s *QueryHistoryStore) Record(ctx context.Context, record *core.QueryRecord) error {
	err := s.backend.Update(func(tx *badger.Txn) error {
		id, err := nextID(s.idSeq)
		if err != nil {
			return err
		}
		record.Id = id
		if record.CreatedAt.IsZero() {
			record.CreatedAt = time.Now().UTC()
		}
		return tx.Set(makeQueryKey(record.Id), storage.MarshalQueryRecord(record))
	})
	return storeError("record query", err)
}

// Recent returns up to limit records, most recent first.
func (s *QueryHistoryStore) Recent(ctx context.Context, limit int) ([]*core.QueryRecord, error) {
	var records []*core.QueryRecord
	err := s.backend.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(queryPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(seekLast(queryPrefix)); iter.Valid(); iter.Next() {
			if limit > 0 && len(records) >= limit {
				break
			}
			var record *core.QueryRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalQueryRecord(val)
				return err
			})
			if err != nil {
				return err
			}
			records = append(records, record)
		}
		return nil
	})
	return records, storeError("recent queries", err)
}
