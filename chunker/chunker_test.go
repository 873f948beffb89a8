package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/poiesic/scriptorium/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedSentence returns a 42-character sentence (11 tokens).
func fixedSentence(i int) string {
	return fmt.Sprintf("Sentence %d %s.", i, strings.Repeat("x", 30))
}

func fiveSentences() (string, []string) {
	parts := make([]string, 5)
	for i := range parts {
		parts[i] = fixedSentence(i + 1)
	}
	return strings.Join(parts, " "), parts
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("a"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
	// runes, not bytes
	assert.Equal(t, 1, EstimateTokens("héllo"[:3]+"l"))
	assert.Equal(t, 2, EstimateTokens("ééééé"))
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "abbreviation is not a boundary",
			text: "Dr. Smith went home. He was tired.",
			want: []string{"Dr. Smith went home.", "He was tired."},
		},
		{
			name: "mixed terminators",
			text: "Really? Yes! Absolutely.",
			want: []string{"Really?", "Yes!", "Absolutely."},
		},
		{
			name: "e.g. and etc.",
			text: "Bring fruit, e.g. apples, pears, etc. and bread. Then leave.",
			want: []string{"Bring fruit, e.g. apples, pears, etc. and bread.", "Then leave."},
		},
		{
			name: "decimal numbers stay intact",
			text: "Pi is 3.14 roughly. Done.",
			want: []string{"Pi is 3.14 roughly.", "Done."},
		},
		{
			name: "initials",
			text: "J. R. Tolkien wrote books. They sold.",
			want: []string{"J. R. Tolkien wrote books.", "They sold."},
		},
		{
			name: "initials after a title",
			text: "Dr. J. Watson arrived. He sat.",
			want: []string{"Dr. J. Watson arrived.", "He sat."},
		},
		{
			name: "single letter ends a sentence",
			text: "Take vitamin C. It helps.",
			want: []string{"Take vitamin C.", "It helps."},
		},
		{
			name: "single letter before lowercase",
			text: "Use plan B. then stop.",
			want: []string{"Use plan B.", "then stop."},
		},
		{
			name: "trailing text without terminator",
			text: "First one.  Second without end",
			want: []string{"First one.", "Second without end"},
		},
		{
			name: "newline after terminator",
			text: "Line one.\nLine two.",
			want: []string{"Line one.", "Line two."},
		},
		{
			name: "blank",
			text: "   \n ",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitSentences(tt.text)
			var texts []string
			for _, s := range got {
				texts = append(texts, s.text)
				assert.Equal(t, s.text, tt.text[s.start:s.end], "offsets must address the sentence")
			}
			assert.Equal(t, tt.want, texts)
		})
	}
}

func TestChunkAbbreviationSingleChunk(t *testing.T) {
	c := New()
	text := "Dr. Smith went home. He was tired."
	chunks := c.Chunk(&core.ParsedContent{Text: text}, core.ProcessingOptions{ChunkSize: 100})

	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0].Content)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
	require.NotNil(t, chunks[0].Span)
	assert.Equal(t, core.Span{Start: 0, End: len(text)}, *chunks[0].Span)
	assert.Equal(t, core.ChunkText, chunks[0].Type)
}

func TestChunkOverlapPrefix(t *testing.T) {
	c := New()
	text, sentences := fiveSentences()

	chunks := c.ChunkText(text, 25, 5)
	require.GreaterOrEqual(t, len(chunks), 2)

	// first chunk holds sentences 1-2; the seed is sentence 2
	assert.Equal(t, sentences[0]+" "+sentences[1], chunks[0].Content)
	assert.True(t, strings.HasPrefix(chunks[1].Content, sentences[1]+" "), "second chunk %q", chunks[1].Content)
	assert.True(t, strings.HasSuffix(chunks[0].Content, sentences[1]))

	require.Len(t, chunks, 4)
	assert.Equal(t, sentences[3]+" "+sentences[4], chunks[3].Content)
}

func TestChunkWithoutOverlap(t *testing.T) {
	c := New()
	text, sentences := fiveSentences()

	chunks := c.ChunkText(text, 25, 0)
	require.Len(t, chunks, 3)

	// concatenation of chunk contents reproduces the sentence sequence
	var joined []string
	for _, chunk := range chunks {
		joined = append(joined, chunk.Content)
	}
	assert.Equal(t, strings.Join(sentences, " "), strings.Join(joined, " "))

	// spans are ordered and address the source text
	prevEnd := 0
	for _, chunk := range chunks {
		require.NotNil(t, chunk.Span)
		assert.GreaterOrEqual(t, chunk.Span.Start, prevEnd)
		assert.Equal(t, chunk.Content, text[chunk.Span.Start:chunk.Span.End])
		prevEnd = chunk.Span.End
	}
}

func TestChunkBudget(t *testing.T) {
	c := New()
	var parts []string
	for i := 0; i < 40; i++ {
		parts = append(parts, fmt.Sprintf("Short sentence %d has words.", i))
	}
	text := strings.Join(parts, " ")

	for _, size := range []int{8, 16, 33, 100} {
		chunks := c.ChunkText(text, size, size/4)
		for _, chunk := range chunks {
			if strings.Count(chunk.Content, ".") > 1 {
				assert.LessOrEqual(t, chunk.Tokens, size, "multi-sentence chunk exceeds budget")
			}
			assert.Equal(t, EstimateTokens(chunk.Content), chunk.Tokens)
		}
	}
}

func TestChunkSingleLetterSentenceEnds(t *testing.T) {
	c := New()
	text := "Take vitamin C. It helps a lot. I liked plan B. It was fine."

	chunks := c.ChunkText(text, 5, 0)
	require.Len(t, chunks, 4)
	assert.Equal(t, "Take vitamin C.", chunks[0].Content)
	assert.Equal(t, "I liked plan B.", chunks[2].Content)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, chunk.Tokens, 5)
	}
}

func TestChunkOversizedSentence(t *testing.T) {
	c := New()
	long := strings.Repeat("word ", 60) + "end."
	text := "Tiny one. " + long + " Tiny two."

	chunks := c.ChunkText(text, 10, 3)
	require.Len(t, chunks, 3)
	assert.Equal(t, "Tiny one.", chunks[0].Content)
	assert.Equal(t, long, chunks[1].Content)
	assert.Greater(t, chunks[1].Tokens, 10)
	assert.Equal(t, "Tiny two.", chunks[2].Content)
}

func TestChunkTables(t *testing.T) {
	c := New()
	parsed := &core.ParsedContent{
		Text: "Intro sentence. Another one.",
		Tables: []core.Table{
			{Name: "Sheet1", Headers: []string{"a", "b"}, Rows: [][]string{{"1", "2"}, {"3", "4"}}},
			{Name: "empty"},
		},
	}

	chunks := c.Chunk(parsed, core.ProcessingOptions{ChunkSize: 100})
	require.Len(t, chunks, 2)

	table := chunks[1]
	assert.Equal(t, core.ChunkTable, table.Type)
	assert.Nil(t, table.Span)
	assert.Equal(t, "a | b\n1 | 2\n3 | 4", table.Content)
	assert.Equal(t, 1, table.ChunkIndex)
	assert.Equal(t, "Sheet1", table.Metadata["table_name"])
}

func TestChunkIndicesContiguous(t *testing.T) {
	c := New()
	text, _ := fiveSentences()
	parsed := &core.ParsedContent{
		Text:   text,
		Tables: []core.Table{{Headers: []string{"h"}, Rows: [][]string{{"v"}}}},
	}
	chunks := c.Chunk(parsed, core.ProcessingOptions{ChunkSize: 25, ChunkOverlap: 5})
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.ChunkIndex)
	}
}

func TestChunkEmpty(t *testing.T) {
	c := New()
	assert.Empty(t, c.Chunk(nil, core.DefaultProcessingOptions()))
	assert.Empty(t, c.Chunk(&core.ParsedContent{Text: "  "}, core.DefaultProcessingOptions()))
}
