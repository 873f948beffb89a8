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


package storage

import (
	"fmt"

	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/scriptorium/core"
)

// recordVersion prefixes every encoded record so the layout can evolve.
const recordVersion uint64 = 1

func marshalRecord[T any](ser mus.Serializer[T], v T) []byte {
	buf := make([]byte, varint.Uint64.Size(recordVersion)+ser.Size(v))
	n := varint.Uint64.Marshal(recordVersion, buf)
	ser.Marshal(v, buf[n:])
	return buf
}

func unmarshalRecord[T any](ser mus.Serializer[T], data []byte) (v T, err error) {
	version, n, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return v, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	if version != recordVersion {
		return v, fmt.Errorf("%w: unsupported record version %d", ErrSerializationFailed, version)
	}
	v, m, err := ser.Unmarshal(data[n:])
	if err != nil {
		return v, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	if extra := len(data) - n - m; extra != 0 {
		return v, fmt.Errorf("%w: %d trailing bytes", ErrSerializationFailed, extra)
	}
	return v, nil
}

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, core.IDMUS.Size(id))
	core.IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	if len(data) == 0 {
		return 0, ErrTruncatedData
	}
	id, _, err := core.IDMUS.Unmarshal(data)
	return id, err
}

// MarshalDocument serializes a Document to bytes.
func MarshalDocument(doc *core.Document) []byte {
	return marshalRecord[core.Document](core.DocumentMUS, *doc)
}

// UnmarshalDocument deserializes a Document from bytes.
func UnmarshalDocument(data []byte) (*core.Document, error) {
	doc, err := unmarshalRecord[core.Document](core.DocumentMUS, data)
	if err != nil {
		return nil, err
	}
	doc.Metadata = nilIfEmpty(doc.Metadata)
	return &doc, nil
}

// MarshalJob serializes a ProcessingJob to bytes.
func MarshalJob(job *core.ProcessingJob) []byte {
	return marshalRecord[core.ProcessingJob](core.ProcessingJobMUS, *job)
}

// UnmarshalJob deserializes a ProcessingJob from bytes.
func UnmarshalJob(data []byte) (*core.ProcessingJob, error) {
	job, err := unmarshalRecord[core.ProcessingJob](core.ProcessingJobMUS, data)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// MarshalChunk serializes a Chunk to bytes.
func MarshalChunk(chunk *core.Chunk) []byte {
	return marshalRecord[core.Chunk](core.ChunkMUS, *chunk)
}

// UnmarshalChunk deserializes a Chunk from bytes.
func UnmarshalChunk(data []byte) (*core.Chunk, error) {
	chunk, err := unmarshalRecord[core.Chunk](core.ChunkMUS, data)
	if err != nil {
		return nil, err
	}
	if len(chunk.Embedding) == 0 {
		chunk.Embedding = nil
	}
	chunk.Metadata = nilIfEmpty(chunk.Metadata)
	return &chunk, nil
}

// MarshalQueryRecord serializes a QueryRecord to bytes.
func MarshalQueryRecord(record *core.QueryRecord) []byte {
	return marshalRecord[core.QueryRecord](core.QueryRecordMUS, *record)
}

// UnmarshalQueryRecord deserializes a QueryRecord from bytes.
func UnmarshalQueryRecord(data []byte) (*core.QueryRecord, error) {
	record, err := unmarshalRecord[core.QueryRecord](core.QueryRecordMUS, data)
	if err != nil {
		return nil, err
	}
	if len(record.ResultChunkIDs) == 0 {
		record.ResultChunkIDs = nil
	}
	if len(record.Scores) == 0 {
		record.Scores = nil
	}
	return &record, nil
}

// nilIfEmpty keeps decoded records equal to what was stored, since the codec
// always yields a non-nil map.
func nilIfEmpty(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	return m
}
