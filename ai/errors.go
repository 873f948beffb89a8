package ai

import "errors"

var (
	// ErrMultimodalUnsupported is returned when multimodal input reaches an embedder without a multimodal model.
	ErrMultimodalUnsupported = errors.New("multimodal embeddings not configured")

	// ErrEmbeddingCountMismatch is returned when a backend answers with a different number of vectors than inputs.
	ErrEmbeddingCountMismatch = errors.New("embedding count does not match input count")
)
