package filetype

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/poiesic/scriptorium/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T, opts ...Option) *Resolver {
	t.Helper()
	r, err := NewResolver(opts...)
	require.NoError(t, err)
	return r
}

func TestDetect(t *testing.T) {
	r := newTestResolver(t)

	tests := []struct {
		name     string
		buf      []byte
		fileName string
		wantMime string
		wantExt  string
	}{
		{
			name:     "plain text",
			buf:      []byte("The quick brown fox jumps over the lazy dog.\n"),
			fileName: "notes.txt",
			wantMime: "text/plain",
			wantExt:  "txt",
		},
		{
			name:     "markdown refined by name",
			buf:      []byte("# Title\n\nSome body text.\n"),
			fileName: "README.md",
			wantMime: "text/markdown",
			wantExt:  "md",
		},
		{
			name:     "json content",
			buf:      []byte(`{"name": "widget", "count": 3}`),
			fileName: "data.bin",
			wantMime: "application/json",
			wantExt:  "json",
		},
		{
			name:     "pdf magic",
			buf:      []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<<>>\nendobj\n"),
			fileName: "report",
			wantMime: "application/pdf",
			wantExt:  "pdf",
		},
		{
			name:     "undetectable binary",
			buf:      []byte{0x8f, 0x00, 0x13, 0x37, 0x00, 0x9c, 0x01, 0x02, 0x00, 0x07},
			fileName: "blob",
			wantMime: MimeOctetStream,
			wantExt:  "bin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mime, ext := r.Detect(tt.buf, tt.fileName)
			assert.Equal(t, tt.wantMime, mime)
			assert.Equal(t, tt.wantExt, ext)
		})
	}
}

func TestDetectNeverEmpty(t *testing.T) {
	r := newTestResolver(t)
	inputs := [][]byte{
		nil,
		{},
		{0x00},
		bytes.Repeat([]byte{0xff}, 2000),
		[]byte("a"),
	}
	for _, buf := range inputs {
		mime, ext := r.Detect(buf, "")
		assert.NotEmpty(t, mime)
		assert.NotEmpty(t, ext)
	}
}

func TestIsMostlyPrintableThreshold(t *testing.T) {
	withControl := func(printable, control int) []byte {
		return append(bytes.Repeat([]byte("a"), printable), bytes.Repeat([]byte{0x01}, control)...)
	}
	// exactly 0.95 counts as text
	assert.True(t, isMostlyPrintable(withControl(95, 5)))
	assert.True(t, isMostlyPrintable(withControl(950, 50)))
	assert.True(t, isMostlyPrintable(withControl(19, 1)))
	assert.False(t, isMostlyPrintable(withControl(94, 6)))
	assert.False(t, isMostlyPrintable(withControl(949, 51)))
}

func TestIsMostlyPrintable(t *testing.T) {
	assert.True(t, isMostlyPrintable([]byte(strings.Repeat("printable text ", 100))))
	assert.False(t, isMostlyPrintable(nil))

	// 10% control bytes is below the 0.95 threshold
	mixed := append(bytes.Repeat([]byte("a"), 90), bytes.Repeat([]byte{0x01}, 10)...)
	assert.False(t, isMostlyPrintable(mixed))

	// only the first 1000 bytes are inspected
	tail := append(bytes.Repeat([]byte("a"), 1000), bytes.Repeat([]byte{0x01}, 500)...)
	assert.True(t, isMostlyPrintable(tail))
}

func TestHash(t *testing.T) {
	r := newTestResolver(t)
	h1 := r.Hash([]byte("hello"))
	h2 := r.Hash([]byte("hello"))
	h3 := r.Hash([]byte("hello!"))

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64)
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"100MB", 100 << 20, false},
		{"1gb", 1 << 30, false},
		{"512 KB", 512 << 10, false},
		{"10B", 10, false},
		{"1.5MB", 3 << 19, false},
		{"", 0, true},
		{"MB", 0, true},
		{"100", 0, true},
		{"100TB", 0, true},
		{"-5MB", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSize(tt.in)
			if tt.wantErr {
				var formatErr *core.FormatError
				require.True(t, errors.As(err, &formatErr), "want FormatError, got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate(t *testing.T) {
	r := newTestResolver(t, WithMaxSize("1KB"))

	t.Run("accepts small text", func(t *testing.T) {
		info, err := r.Validate([]byte("hello world"), "a.txt", "")
		require.NoError(t, err)
		assert.Equal(t, "text/plain", info.MimeType)
		assert.Equal(t, int64(11), info.Size)
		assert.Equal(t, r.Hash([]byte("hello world")), info.Hash)
		assert.Equal(t, "a.txt", info.Name)
	})

	t.Run("oversized fails with ValidationError", func(t *testing.T) {
		_, err := r.Validate(bytes.Repeat([]byte("a"), 1025), "big.txt", "")
		var validationErr *core.ValidationError
		require.True(t, errors.As(err, &validationErr), "got %v", err)
	})

	t.Run("explicit limit overrides default", func(t *testing.T) {
		_, err := r.Validate(bytes.Repeat([]byte("a"), 2000), "big.txt", "2KB")
		require.NoError(t, err)
	})

	t.Run("empty buffer fails", func(t *testing.T) {
		_, err := r.Validate(nil, "empty.txt", "")
		var validationErr *core.ValidationError
		require.True(t, errors.As(err, &validationErr))
	})

	t.Run("malformed limit fails with FormatError", func(t *testing.T) {
		_, err := r.Validate([]byte("x"), "a.txt", "lots")
		var formatErr *core.FormatError
		require.True(t, errors.As(err, &formatErr))
	})
}

func TestWithMaxSizeRejectsMalformed(t *testing.T) {
	_, err := NewResolver(WithMaxSize("huge"))
	require.Error(t, err)
}

func TestValidateOversizedWrapsErrTooLarge(t *testing.T) {
	r, err := NewResolver(WithMaxSize("1KB"))
	require.NoError(t, err)
	_, err = r.Validate(bytes.Repeat([]byte("a"), 2048), "big.txt", "")
	assert.ErrorIs(t, err, core.ErrTooLarge)

	_, err = r.Validate(nil, "empty.txt", "")
	assert.NotErrorIs(t, err, core.ErrTooLarge)
}
