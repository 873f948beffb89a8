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


package chunker

import (
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/scriptorium/core"
)

// EstimateTokens approximates the token cost of s as ceil(characters / 4).
func EstimateTokens(s string) int {
	return tokensForRunes(utf8.RuneCountInString(s))
}

func tokensForRunes(n int) int {
	return (n + 3) / 4
}

// Chunker packs sentences into token-budgeted chunks.
// It holds no per-call state and is safe for concurrent use.
type Chunker struct {
	logger *slog.Logger
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Chunker) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Chunker.
func New(opts ...Option) *Chunker {
	c := &Chunker{logger: slog.Default().With("component", "chunker")}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Chunk splits parsed content into text chunks followed by one chunk per table.
// Chunk indices are contiguous from zero. DocumentID is left for the caller to set.
func (c *Chunker) Chunk(parsed *core.ParsedContent, opts core.ProcessingOptions) []*core.Chunk {
	if parsed == nil {
		return nil
	}
	size := opts.ChunkSize
	if size <= 0 {
		size = core.DefaultChunkSize
	}
	overlap := opts.ChunkOverlap
	if overlap < 0 {
		overlap = 0
	}

	chunks := c.ChunkText(parsed.Text, size, overlap)
	for i, table := range parsed.Tables {
		if chunk := tableChunk(table, i); chunk != nil {
			chunks = append(chunks, chunk)
		}
	}

	for i, chunk := range chunks {
		chunk.ChunkIndex = i
	}

	c.logger.Debug("chunked content", "chunks", len(chunks), "tables", len(parsed.Tables), "chunk_size", size, "overlap", overlap)
	return chunks
}

// ChunkText greedily packs the sentences of text into chunks of at most size tokens.
// When a chunk closes, the next one is seeded with trailing whole sentences of the
// closed chunk totalling at least overlap tokens. A sentence larger than size on
// its own becomes a single oversized chunk.
func (c *Chunker) ChunkText(text string, size, overlap int) []*core.Chunk {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []*core.Chunk
	var current []sentence

	for _, s := range sentences {
		if len(current) > 0 && joinedTokens(current, s) > size {
			chunks = append(chunks, textChunk(current))
			current = overlapSeed(current, overlap)
			for len(current) > 0 && joinedTokens(current, s) > size {
				current = current[1:]
			}
		}
		current = append(current, s)
	}
	chunks = append(chunks, textChunk(current))

	for i, chunk := range chunks {
		chunk.ChunkIndex = i
	}
	return chunks
}

// joinedTokens estimates the tokens of group followed by next, joined with single spaces.
func joinedTokens(group []sentence, next sentence) int {
	runes := next.runes
	for _, s := range group {
		runes += s.runes + 1
	}
	return tokensForRunes(runes)
}

// overlapSeed walks back over whole sentences of a closed chunk until they reach
// overlap tokens. The first sentence of the chunk is never reused.
func overlapSeed(group []sentence, overlap int) []sentence {
	if overlap <= 0 || len(group) < 2 {
		return nil
	}
	runes := 0
	start := len(group)
	for i := len(group) - 1; i >= 1; i-- {
		if start < len(group) {
			runes++
		}
		runes += group[i].runes
		start = i
		if tokensForRunes(runes) >= overlap {
			break
		}
	}
	seed := make([]sentence, len(group)-start)
	copy(seed, group[start:])
	return seed
}

func textChunk(group []sentence) *core.Chunk {
	parts := make([]string, len(group))
	for i, s := range group {
		parts[i] = s.text
	}
	content := strings.Join(parts, " ")
	return &core.Chunk{
		Content: content,
		Tokens:  EstimateTokens(content),
		Type:    core.ChunkText,
		Span:    &core.Span{Start: group[0].start, End: group[len(group)-1].end},
		Metadata: map[string]string{
			"sentences": strconv.Itoa(len(group)),
		},
	}
}

func tableChunk(table core.Table, index int) *core.Chunk {
	content := RenderTable(table)
	if content == "" {
		return nil
	}
	meta := map[string]string{"table_index": strconv.Itoa(index)}
	if table.Name != "" {
		meta["table_name"] = table.Name
	}
	return &core.Chunk{
		Content:  content,
		Tokens:   EstimateTokens(content),
		Type:     core.ChunkTable,
		Metadata: meta,
	}
}

// RenderTable renders a table as a header line followed by pipe-joined rows.
func RenderTable(table core.Table) string {
	var b strings.Builder
	if len(table.Headers) > 0 {
		b.WriteString(strings.Join(table.Headers, " | "))
	}
	for _, row := range table.Rows {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strings.Join(row, " | "))
	}
	return strings.TrimSpace(b.String())
}
