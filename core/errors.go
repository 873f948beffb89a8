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
	"errors"
	"fmt"
)

// Domain validation errors
var (
	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidOptions indicates ProcessingOptions failed validation.
	ErrInvalidOptions = errors.New("invalid processing options")

	// ErrEmptyContent indicates the Content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrIllegalTransition indicates a stage change not permitted by the transition table.
	ErrIllegalTransition = errors.New("illegal stage transition")

	// ErrTooLarge indicates input above the configured size limit.
	ErrTooLarge = errors.New("input too large")
)

// ValidationError reports input that is oversized, empty, or otherwise unacceptable.
type ValidationError struct {
	Field  string
	Reason string
	Err    error // optional sentinel, such as ErrTooLarge
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// FormatError reports a value that does not follow its expected textual format.
type FormatError struct {
	Value  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid format %q: %s", e.Value, e.Reason)
}

// ParseError reports an unrecoverable failure while parsing a document format.
type ParseError struct {
	Format string
	Cause  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Format, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// EmbeddingError reports a failed embedding call. Batch is the zero-based batch index,
// or -1 when the failure is not tied to a batch.
type EmbeddingError struct {
	Batch int
	Cause error
}

func (e *EmbeddingError) Error() string {
	if e.Batch < 0 {
		return fmt.Sprintf("embedding failed: %v", e.Cause)
	}
	return fmt.Sprintf("embedding batch %d failed: %v", e.Batch, e.Cause)
}

func (e *EmbeddingError) Unwrap() error { return e.Cause }

// StoreError reports a persistence failure.
type StoreError struct {
	Op    string
	Cause error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Cause)
}

func (e *StoreError) Unwrap() error { return e.Cause }

// TimeoutError reports that polling an asynchronous operation exhausted its attempts.
type TimeoutError struct {
	Op       string
	Attempts int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %d attempts", e.Op, e.Attempts)
}
