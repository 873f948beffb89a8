package badger

import (
	"encoding/binary"

	"github.com/poiesic/scriptorium/core"
)

// Key prefixes for different data types
const (
	documentPrefix      = "doc:"
	jobPrefix           = "job:"
	chunkPrefix         = "chk:"
	chunkDocumentPrefix = "chkdoc:"
	queryPrefix         = "qry:"

	documentIDSeq = "seq:doc"
	chunkIDSeq    = "seq:chk"
	queryIDSeq    = "seq:qry"
)

// idKey builds prefix followed by the BigEndian id so that keys sort by id.
func idKey(prefix string, id core.ID) []byte {
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// idFromKey extracts the id written by idKey.
func idFromKey(prefix string, key []byte) core.ID {
	if len(key) < len(prefix)+8 {
		return 0
	}
	return core.ID(binary.BigEndian.Uint64(key[len(prefix):]))
}

func makeDocumentKey(id core.ID) []byte {
	return idKey(documentPrefix, id)
}

func makeJobKey(docID core.ID) []byte {
	return idKey(jobPrefix, docID)
}

func makeChunkKey(id core.ID) []byte {
	return idKey(chunkPrefix, id)
}

func makeQueryKey(id core.ID) []byte {
	return idKey(queryPrefix, id)
}

// makeChunkDocumentKey generates a composite key for the per-document chunk index.
// Format: prefix:docID:chunkIndex:chunkID
func makeChunkDocumentKey(docID core.ID, chunkIndex int, chunkID core.ID) []byte {
	buf := make([]byte, len(chunkDocumentPrefix)+24)
	offset := copy(buf, chunkDocumentPrefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(docID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(chunkIndex))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(chunkID))
	return buf
}

// makePartialChunkDocumentKey generates the prefix covering all chunks of a document.
func makePartialChunkDocumentKey(docID core.ID) []byte {
	return idKey(chunkDocumentPrefix, docID)
}

// seekLast returns a key greater than every key carrying prefix, for reverse iteration.
func seekLast(prefix string) []byte {
	buf := make([]byte, len(prefix)+9)
	offset := copy(buf, prefix)
	for i := offset; i < len(buf); i++ {
		buf[i] = 0xff
	}
	return buf
}

// chunkIDFromIndexKey extracts the chunk id from a per-document index key.
func chunkIDFromIndexKey(key []byte) core.ID {
	if len(key) != len(chunkDocumentPrefix)+24 {
		return 0
	}
	return core.ID(binary.BigEndian.Uint64(key[len(chunkDocumentPrefix)+16:]))
}
