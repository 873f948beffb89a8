package badger

import (
	"bytes"
	"testing"

	"github.com/poiesic/scriptorium/core"
	"github.com/stretchr/testify/assert"
)

func TestIDKeysSortNumerically(t *testing.T) {
	ids := []core.ID{1, 2, 9, 10, 255, 256, 1 << 40}
	for i := 1; i < len(ids); i++ {
		prev := makeChunkKey(ids[i-1])
		next := makeChunkKey(ids[i])
		assert.Negative(t, bytes.Compare(prev, next), "%d should sort before %d", ids[i-1], ids[i])
	}
	assert.Equal(t, core.ID(1<<40), idFromKey(chunkPrefix, makeChunkKey(1<<40)))
}

func TestChunkDocumentKeyOrder(t *testing.T) {
	a := makeChunkDocumentKey(3, 1, 99)
	b := makeChunkDocumentKey(3, 2, 5)
	c := makeChunkDocumentKey(4, 0, 1)

	assert.Negative(t, bytes.Compare(a, b))
	assert.Negative(t, bytes.Compare(b, c))
	assert.True(t, bytes.HasPrefix(a, makePartialChunkDocumentKey(3)))
	assert.False(t, bytes.HasPrefix(c, makePartialChunkDocumentKey(3)))
	assert.Equal(t, core.ID(99), chunkIDFromIndexKey(a))
}

func TestPrefixesDoNotOverlap(t *testing.T) {
	chunk := makeChunkKey(1)
	index := makeChunkDocumentKey(1, 0, 1)
	assert.False(t, bytes.HasPrefix(index, []byte(chunkPrefix)))
	assert.False(t, bytes.HasPrefix(chunk, []byte(chunkDocumentPrefix)))
	assert.Positive(t, bytes.Compare(seekLast(documentPrefix), makeDocumentKey(^core.ID(0))))
}
