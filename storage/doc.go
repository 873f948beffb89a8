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


// Package storage defines the persistence interfaces for documents, jobs,
// chunks, query history and raw blobs.
//
// Implementations live in subpackages: storage/badger keeps everything in an
// embedded BadgerDB, storage/postgres keeps chunks in PostgreSQL with pgvector,
// and the blob package provides filesystem, S3, MinIO and in-memory blob stores.
//
// # Architecture
//
//   - DocumentStore: uploaded documents and their processing outcome
//   - JobStore: one processing job per document, with stage transitions enforced
//   - ChunkStore: chunks with embeddings, vector and keyword search
//   - QueryHistoryStore: executed queries, newest first
//   - BlobStore: raw uploaded bytes addressed by key
//
// # Usage
//
// Open every Badger store on one backend:
//
//	stores, err := badger.OpenStores("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer stores.Close()
//
// Use in tests with in-memory storage:
//
//	stores, err := badger.NewMemoryStores()
//
// # Thread Safety
//
// All store implementations must be safe for concurrent use.
//
// # Errors
//
// Lookups of missing entities return ErrNotFound, possibly wrapped.
// Malformed search parameters return ErrInvalidQuery.
package storage
