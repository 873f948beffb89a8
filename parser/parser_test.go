package parser

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/scriptorium/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubParser struct {
	name string
	mime string
	err  error
}

func (s *stubParser) Name() string { return s.name }
func (s *stubParser) CanHandle(mime string) bool { return mime == s.mime }
func (s *stubParser) Parse(ctx context.Context, buf []byte, opts core.ProcessingOptions) (*core.ParsedContent, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &core.ParsedContent{Text: string(buf)}, nil
}

func TestRegistryLookup(t *testing.T) {
	fallback := &stubParser{name: "fallback"}
	first := &stubParser{name: "first", mime: "a/b"}
	second := &stubParser{name: "second", mime: "a/b"}
	r := NewRegistry(fallback, first, second)

	assert.Same(t, first, r.Lookup("a/b"))
	assert.Same(t, fallback, r.Lookup("x/y"))
}

func TestRegistryParseWrapsErrors(t *testing.T) {
	r := NewRegistry(&stubParser{name: "broken", err: errors.New("bad bytes")})

	_, err := r.Parse(context.Background(), "x/y", []byte("data"), core.DefaultProcessingOptions())
	var pe *core.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "broken", pe.Format)
	assert.EqualError(t, pe.Cause, "bad bytes")
}

func TestRegistryParseRecordsParser(t *testing.T) {
	r := NewRegistry(&stubParser{name: "stub"})
	parsed, err := r.Parse(context.Background(), "x/y", []byte("data"), core.DefaultProcessingOptions())
	require.NoError(t, err)
	assert.Equal(t, "stub", parsed.Metadata["parser"])
}

func TestDefaultRegistry(t *testing.T) {
	r := NewDefaultRegistry(nil)

	tests := map[string]string{
		"application/pdf": FormatPDF,
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document": FormatDOCX,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       "spreadsheet",
		"text/csv":                 "spreadsheet",
		"text/markdown":            "text",
		"application/json":         "text",
		"application/octet-stream": "text",
	}
	for mime, want := range tests {
		assert.Equal(t, want, r.Lookup(mime).Name(), mime)
	}
}

func TestDefaultRegistryParsesCSV(t *testing.T) {
	r := NewDefaultRegistry(nil)
	parsed, err := r.Parse(context.Background(), "text/csv", []byte("a,b\n1,2\n"), core.DefaultProcessingOptions())
	require.NoError(t, err)
	require.Len(t, parsed.Tables, 1)
	assert.Equal(t, "spreadsheet", parsed.Metadata["parser"])
}
