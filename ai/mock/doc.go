// Package mock provides test double implementations of AI service interfaces.
//
// MockEmbedder implements both ai.Embedder and ai.MultimodalEmbedder so that
// ingestion and search can be tested without an embedding service.
//
// # Usage in Tests
//
//	mockEmbedder := mock.NewMockEmbedder()
//	mockEmbedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
//	    return nil, errors.New("backend down")
//	}
//
//	count := mockEmbedder.CallCount()
//
// # Default Behavior
//
// Vectors are deterministic unit vectors seeded by an FNV hash of the input,
// so identical text always embeds identically and cosine similarity of a text
// with itself is 1.
package mock
