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


// Package ai provides abstractions for the embedding services used by scriptorium.
//
// Ingestion embeds chunks and search embeds queries through the same
// Embedder, so vectors from both sides live in one space. Chunks record the
// model name returned by Embedder.Model.
//
// # Interfaces
//
//   - Embedder: Generates vector embeddings from text
//   - MultimodalEmbedder: Embeds text and image pairs into the same space
//   - AIProvider: Aggregates AI services for convenient initialization
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible APIs (Ollama, LocalAI, vLLM, OpenAI)
//   - ai/gemini: Google generative AI embeddings
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, openai.NewEmbedder) return
// INTERFACE types. Test utility constructors (mock.NewMockEmbedder) return
// CONCRETE types so tests can inject behavior and read call counts.
//
//	provider, err := openai.NewProvider(ai.NewConfig(ai.WithEmbeddingModel("nomic-embed-text")))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "Hello world")
//	if mm, ok := provider.Embedder().(ai.MultimodalEmbedder); ok && mm.SupportsMultimodal() {
//	    vectors, err := mm.EmbedMultimodal(ctx, []ai.MultimodalInput{{Text: "caption", ImageURL: url}})
//	}
package ai
