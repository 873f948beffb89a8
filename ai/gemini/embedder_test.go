package gemini

import (
	"context"
	"testing"

	"github.com/poiesic/scriptorium/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProviderRequiresAPIKey(t *testing.T) {
	_, err := NewProvider(context.Background(), ai.NewConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "APIKey")
}

func TestNewProviderDefaultsModel(t *testing.T) {
	cfg := &ai.Config{APIKey: "test-key"}
	provider, err := NewProvider(context.Background(), cfg)
	require.NoError(t, err)
	defer provider.Close()

	assert.Equal(t, ai.ProviderGemini, cfg.Provider)
	assert.Equal(t, DefaultModel, provider.Embedder().Model())
}

func TestEmbedTextsEmptyInput(t *testing.T) {
	e := &Embedder{}
	vectors, err := e.EmbedTexts(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
}
