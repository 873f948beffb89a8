package openai

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/poiesic/scriptorium/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder implements ai.Embedder using OpenAI-compatible embedding APIs.
// When the config names a multimodal model it also implements ai.MultimodalEmbedder.
type Embedder struct {
	embedder   embeddings.Embedder
	model      string
	multimodal *multimodalClient
	logger     *slog.Logger
}

// newEmbedder is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Local OpenAI-compatible services accept any token
	token := config.APIKey
	if token == "" {
		token = "none"
	}

	httpClient := &http.Client{Timeout: config.RequestTimeout}
	client, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken(token),
		openai.WithEmbeddingModel(config.EmbeddingModel),
		openai.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	e := &Embedder{
		embedder: embedder,
		model:    config.EmbeddingModel,
		logger:   slog.Default().With("component", "openai-embedder"),
	}
	if config.MultimodalModel != "" {
		e.multimodal = newMultimodalClient(config.EmbeddingHost, token, config.MultimodalModel, httpClient)
	}
	return e, nil
}

// NewEmbedder creates a new embedder using the provided configuration.
//
// Returns ai.Embedder interface to enforce abstraction. Callers that need
// multimodal input type-assert to ai.MultimodalEmbedder.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// Model returns the configured embedding model.
func (e *Embedder) Model() string {
	return e.model
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	e.logger.Debug("generating embedding for single text", "length", len(text))

	embeddings, err := e.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		e.logger.Error("failed to generate embedding", "err", err)
		return nil, err
	}

	if len(embeddings) == 0 {
		e.logger.Warn("embedder returned empty result")
		return []float32{}, nil
	}

	return embeddings[0], nil
}

// EmbedTexts generates vector embeddings for multiple text strings in a batch.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	embeddings, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, err
	}

	return embeddings, nil
}

// SupportsMultimodal reports whether a multimodal model is configured.
func (e *Embedder) SupportsMultimodal() bool {
	return e.multimodal != nil
}

// EmbedMultimodal embeds text and image pairs through the multimodal endpoint.
func (e *Embedder) EmbedMultimodal(ctx context.Context, inputs []ai.MultimodalInput) ([][]float32, error) {
	if e.multimodal == nil {
		return nil, ai.ErrMultimodalUnsupported
	}
	e.logger.Debug("generating multimodal embeddings", "count", len(inputs))

	vectors, err := e.multimodal.embed(ctx, inputs)
	if err != nil {
		e.logger.Error("failed to generate multimodal embeddings", "count", len(inputs), "err", err)
		return nil, err
	}
	return vectors, nil
}
