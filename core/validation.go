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


package core

import (
	"fmt"
)

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - Content must not be empty
//   - DocumentID must be set
//   - ChunkIndex must not be negative
//   - Span, when present, must satisfy 0 <= Start <= End
//   - EmbeddingDimension must match len(Embedding) once an embedding is written
//
// NOT validated (assigned by the store):
//   - ID
//   - CreatedAt
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}

	if chunk.DocumentID == 0 {
		return fmt.Errorf("%w: document id is required", ErrInvalidChunk)
	}

	if chunk.ChunkIndex < 0 {
		return fmt.Errorf("%w: negative chunk index %d", ErrInvalidChunk, chunk.ChunkIndex)
	}

	if chunk.Span != nil && (chunk.Span.Start < 0 || chunk.Span.End < chunk.Span.Start) {
		return fmt.Errorf("%w: bad span [%d,%d)", ErrInvalidChunk, chunk.Span.Start, chunk.Span.End)
	}

	if len(chunk.Embedding) > 0 && chunk.EmbeddingDimension != len(chunk.Embedding) {
		return fmt.Errorf("%w: dimension %d does not match embedding length %d",
			ErrInvalidChunk, chunk.EmbeddingDimension, len(chunk.Embedding))
	}

	return nil
}

// ValidateDocument validates a Document before it is created.
//
// Validation rules:
//   - FileName must not be empty
//   - FileSize must not be negative
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.FileName == "" {
		return fmt.Errorf("%w: file name is required", ErrInvalidDocument)
	}

	if doc.FileSize < 0 {
		return fmt.Errorf("%w: negative file size", ErrInvalidDocument)
	}

	return nil
}

// ValidateTransition returns ErrIllegalTransition when next is not a legal successor of current.
func ValidateTransition(current, next Stage) error {
	if !current.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, current, next)
	}
	return nil
}
