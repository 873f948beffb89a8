package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// Model returns the identifier of the embedding model in use.
	// Chunks record it so that vectors from different models are never compared.
	Model() string
}

// MultimodalInput pairs a text with an image to embed into a single vector.
type MultimodalInput struct {
	Text     string
	ImageURL string
}

// MultimodalEmbedder embeds text and image pairs into the same space as text-only input.
// Implementations must be thread-safe for concurrent use.
type MultimodalEmbedder interface {
	// EmbedMultimodal embeds each input, preserving order.
	EmbedMultimodal(ctx context.Context, inputs []MultimodalInput) ([][]float32, error)

	// SupportsMultimodal reports whether a multimodal endpoint is configured.
	SupportsMultimodal() bool
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
