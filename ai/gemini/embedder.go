// Package gemini implements ai.Embedder on top of the Google generative AI embedding API.
package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/generative-ai-go/genai"
	"github.com/poiesic/scriptorium/ai"
	"google.golang.org/api/option"
)

// DefaultModel is used when the config leaves EmbeddingModel empty.
const DefaultModel = "text-embedding-004"

// Embedder implements ai.Embedder using genai batch embeddings.
type Embedder struct {
	client    *genai.Client
	model     *genai.EmbeddingModel
	modelName string
	logger    *slog.Logger
}

// Provider implements ai.AIProvider for Gemini.
type Provider struct {
	embedder *Embedder
	logger   *slog.Logger
}

func newEmbedder(ctx context.Context, config *ai.Config) (*Embedder, error) {
	if config.EmbeddingModel == "" {
		config.EmbeddingModel = DefaultModel
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(config.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	return &Embedder{
		client:    client,
		model:     client.EmbeddingModel(config.EmbeddingModel),
		modelName: config.EmbeddingModel,
		logger:    slog.Default().With("component", "gemini-embedder"),
	}, nil
}

// NewProvider creates a Gemini-backed provider. The config must carry an API key.
func NewProvider(ctx context.Context, config *ai.Config) (ai.AIProvider, error) {
	config.Provider = ai.ProviderGemini
	embedder, err := newEmbedder(ctx, config)
	if err != nil {
		return nil, err
	}
	return &Provider{
		embedder: embedder,
		logger:   slog.Default().With("component", "gemini-provider"),
	}, nil
}

// Embedder returns the embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Close releases the underlying client.
func (p *Provider) Close() error {
	p.logger.Debug("closing Gemini provider")
	return p.embedder.client.Close()
}

// Model returns the configured embedding model.
func (e *Embedder) Model() string {
	return e.modelName
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	res, err := e.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		e.logger.Error("failed to generate embedding", "err", err)
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if res.Embedding == nil {
		return []float32{}, nil
	}
	return res.Embedding.Values, nil
}

// EmbedTexts embeds all texts in one BatchEmbedContents request.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	batch := e.model.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	resp, err := e.model.BatchEmbedContents(ctx, batch)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, fmt.Errorf("gemini batch embed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini batch embed: got %d vectors for %d texts: %w",
			len(resp.Embeddings), len(texts), ai.ErrEmbeddingCountMismatch)
	}

	out := make([][]float32, 0, len(resp.Embeddings))
	for _, emb := range resp.Embeddings {
		out = append(out, emb.Values)
	}
	return out, nil
}
