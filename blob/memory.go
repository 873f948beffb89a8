package blob

import (
	"context"
	"slices"
	"sync"

	"github.com/poiesic/scriptorium/storage"
)

// MemoryStore keeps blobs in a map. Used by tests and --in-memory runs.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	types map[string]string
}

var _ storage.BlobStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: map[string][]byte{}, types: map[string]string{}}
}

// Get returns a copy of the bytes under ref.
func (m *MemoryStore) Get(ctx context.Context, ref string) ([]byte, error) {
	key, err := cleanRef(ref)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blobs[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return slices.Clone(data), nil
}

// Put stores a copy of data under ref.
func (m *MemoryStore) Put(ctx context.Context, ref string, data []byte, contentType string) error {
	key, err := cleanRef(ref)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = slices.Clone(data)
	m.types[key] = contentType
	return nil
}

// ContentType returns the content type recorded for ref.
func (m *MemoryStore) ContentType(ref string) string {
	key, err := cleanRef(ref)
	if err != nil {
		return ""
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.types[key]
}
