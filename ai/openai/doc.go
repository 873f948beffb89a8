// Package openai provides AI service implementations using OpenAI-compatible APIs.
//
// Text embeddings go through the langchaingo openai client, so any
// OpenAI-compatible server works (Ollama, LocalAI, vLLM). When
// Config.MultimodalModel is set the embedder also posts {text, image}
// pairs to the same host's /embeddings endpoint.
//
// # Usage
//
//	config := ai.NewConfig(
//	    ai.WithEmbeddingHost("http://localhost:11434"), // /v1 added automatically
//	    ai.WithEmbeddingModel("embeddinggemma"),
//	)
//
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "sample text")
package openai
