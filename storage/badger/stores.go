// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package badger

// Stores groups the Badger-backed stores that share one Backend.
type Stores struct {
	Backend   *Backend
	Documents *DocumentStore
	Jobs      *JobStore
	Chunks    *ChunkStore
	History   *QueryHistoryStore
}

// OpenStores opens a backend at path (or in memory) and creates every store on it.
func OpenStores(path string, inMemory bool) (*Stores, error) {
	backend, err := OpenBackend(path, inMemory)
	if err != nil {
		return nil, err
	}

	s := &Stores{Backend: backend, Jobs: NewJobStore(backend)}
	if s.Documents, err = NewDocumentStore(backend); err != nil {
		s.Close()
		return nil, err
	}
	if s.Chunks, err = NewChunkStore(backend); err != nil {
		s.Close()
		return nil, err
	}
	if s.History, err = NewQueryHistoryStore(backend); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// NewMemoryStores creates in-memory stores for testing.
// Caller must call Close when done.
func NewMemoryStores() (*Stores, error) {
	return OpenStores("", true)
}

// Close releases the stores' sequences, then closes the backend.
func (s *Stores) Close() error {
	if s.Documents != nil {
		_ = s.Documents.Close()
	}
	if s.Chunks != nil {
		_ = s.Chunks.Close()
	}
	if s.History != nil {
		_ = s.History.Close()
	}
	if s.Backend.IsClosed() {
		return nil
	}
	return s.Backend.Close()
}
