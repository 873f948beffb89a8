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
package reembed

import (
	"context"

	"github.com/poiesic/scriptorium/core"
	"github.com/poiesic/scriptorium/storage"
)

const (
	// DefaultBatchSize is the default number of chunks to fetch in each batch
	DefaultBatchSize = 100
)

// ChunkIterator walks every stored chunk in ID order, one page at a time.
type ChunkIterator struct {
	chunks    storage.ChunkStore
	batchSize int
	keep      func(*core.Chunk) bool
}

// NewChunkIterator creates a new chunk iterator.
// batchSize: number of chunks to fetch in each batch (DefaultBatchSize when <= 0)
// keep: optional predicate; chunks it rejects are skipped
func NewChunkIterator(chunks storage.ChunkStore, batchSize int, keep func(*core.Chunk) bool) *ChunkIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &ChunkIterator{
		chunks:    chunks,
		batchSize: batchSize,
		keep:      keep,
	}
}

// ForEach calls fn with each page of kept chunks. Pages hold at most batchSize
// chunks and may be smaller when the predicate skips some.
// Iteration stops on the first error from fn or when ctx is done.
func (it *ChunkIterator) ForEach(ctx context.Context, fn func([]*core.Chunk) error) error {
	var after core.ID
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := it.chunks.Scan(ctx, after, it.batchSize)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}
		after = page[len(page)-1].Id

		batch := it.filter(page)
		if len(batch) > 0 {
			if err := fn(batch); err != nil {
				return err
			}
		}
		if len(page) < it.batchSize {
			return nil
		}
	}
}

// Count returns the number of chunks ForEach would visit.
func (it *ChunkIterator) Count(ctx context.Context) (int, error) {
	total := 0
	err := it.ForEach(ctx, func(batch []*core.Chunk) error {
		total += len(batch)
		return nil
	})
	return total, err
}

func (it *ChunkIterator) filter(page []*core.Chunk) []*core.Chunk {
	if it.keep == nil {
		return page
	}
	kept := page[:0:0]
	for _, c := range page {
		if it.keep(c) {
			kept = append(kept, c)
		}
	}
	return kept
}
