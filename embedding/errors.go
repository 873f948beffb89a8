package embedding

import "errors"

var (
	// ErrEmbedderRequired is returned when NewBatcher receives a nil embedder.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrDimensionMismatch is returned when vectors of one call differ in length.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmptyVector is returned when a backend answers with a zero-length vector.
	ErrEmptyVector = errors.New("embedder returned an empty vector")
)
