package filetype

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-crypt/x/blake2b"
	"github.com/poiesic/scriptorium/core"
)

const (
	// MimeOctetStream is returned when content cannot be classified.
	MimeOctetStream = "application/octet-stream"
	// MimePlainText is returned for content that is mostly printable.
	MimePlainText = "text/plain"

	sniffWindow       = 1000
	printableRatioMin = 0.95
)

var sizePattern = regexp.MustCompile(`(?i)^\s*(\d+(?:\.\d+)?)\s*(B|KB|MB|GB)\s*$`)

var sizeUnits = map[string]float64{
	"B":  1,
	"KB": 1 << 10,
	"MB": 1 << 20,
	"GB": 1 << 30,
}

// textExtensions refines a generic text/plain sniff using the file name.
var textExtensions = map[string]string{
	"md":       "text/markdown",
	"markdown": "text/markdown",
	"csv":      "text/csv",
	"json":     "application/json",
	"html":     "text/html",
	"htm":      "text/html",
}

// Resolver classifies, hashes, and size-checks uploaded buffers.
// It is safe for concurrent use.
type Resolver struct {
	maxSize string
	logger  *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver) error

// WithMaxSize sets the default upload limit as a size string such as "100MB".
func WithMaxSize(size string) Option {
	return func(r *Resolver) error {
		if _, err := ParseSize(size); err != nil {
			return err
		}
		r.maxSize = size
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewResolver creates a Resolver with a 100MB default limit.
func NewResolver(opts ...Option) (*Resolver, error) {
	r := &Resolver{
		maxSize: core.DefaultMaxFileSize,
		logger:  slog.Default().With("component", "filetype"),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Detect returns the MIME type and extension (without the dot) for buf.
// Content sniffing takes precedence; the file name only refines generic text.
// Unclassifiable content is reported as application/octet-stream with extension "bin".
func (r *Resolver) Detect(buf []byte, fileName string) (string, string) {
	m := mimetype.Detect(buf)
	mimeType := baseType(m.String())
	ext := strings.TrimPrefix(m.Extension(), ".")

	if mimeType == MimeOctetStream || mimeType == "" {
		if isMostlyPrintable(buf) {
			return r.refineText(fileName)
		}
		return MimeOctetStream, "bin"
	}

	if mimeType == MimePlainText {
		return r.refineText(fileName)
	}

	if ext == "" {
		ext = extensionOf(fileName)
	}
	if ext == "" {
		ext = "bin"
	}
	return mimeType, ext
}

func (r *Resolver) refineText(fileName string) (string, string) {
	ext := extensionOf(fileName)
	if refined, ok := textExtensions[ext]; ok {
		return refined, ext
	}
	return MimePlainText, "txt"
}

// Hash returns the hex-encoded BLAKE2b-256 digest of buf.
func (r *Resolver) Hash(buf []byte) string {
	sum := blake2b.Sum256(buf)
	return hex.EncodeToString(sum[:])
}

// Validate checks buf against maxSize (or the resolver default when empty) and
// returns its classification. Oversized or empty input yields *core.ValidationError;
// a malformed maxSize yields *core.FormatError.
func (r *Resolver) Validate(buf []byte, fileName, maxSize string) (*core.FileInfo, error) {
	if maxSize == "" {
		maxSize = r.maxSize
	}
	limit, err := ParseSize(maxSize)
	if err != nil {
		return nil, err
	}

	size := int64(len(buf))
	if size == 0 {
		return nil, &core.ValidationError{Field: "file", Reason: "file is empty"}
	}
	if size > limit {
		r.logger.Warn("rejecting oversized upload", "file", fileName, "size", size, "limit", limit)
		reason := fmt.Sprintf("size %s exceeds limit %s", humanize.IBytes(uint64(size)), humanize.IBytes(uint64(limit)))
		return nil, &core.ValidationError{Field: "file", Reason: reason, Err: core.ErrTooLarge}
	}

	mimeType, ext := r.Detect(buf, fileName)
	return &core.FileInfo{
		Name:      fileName,
		MimeType:  mimeType,
		Extension: ext,
		Size:      size,
		Hash:      r.Hash(buf),
	}, nil
}

// ParseSize converts strings such as "100MB" or "1.5 GB" to bytes.
// Units are B, KB, MB, and GB with 1024-based multipliers.
func ParseSize(s string) (int64, error) {
	match := sizePattern.FindStringSubmatch(s)
	if match == nil {
		return 0, &core.FormatError{Value: s, Reason: "expected <number><B|KB|MB|GB>"}
	}
	n, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, &core.FormatError{Value: s, Reason: err.Error()}
	}
	return int64(n * sizeUnits[strings.ToUpper(match[2])]), nil
}

// isMostlyPrintable reports whether at least 95% of the runes in the first 1000 bytes are printable.
func isMostlyPrintable(buf []byte) bool {
	if len(buf) == 0 {
		return false
	}
	window := buf
	if len(window) > sniffWindow {
		window = window[:sniffWindow]
	}

	printable, total := 0, 0
	for len(window) > 0 {
		r, size := utf8.DecodeRune(window)
		// a multi-byte rune cut by the window boundary is not counted
		if r == utf8.RuneError && size == 1 && len(window) < utf8.UTFMax && !utf8.FullRune(window) {
			break
		}
		total++
		if r != utf8.RuneError && (unicode.IsPrint(r) || r == '\n' || r == '\r' || r == '\t') {
			printable++
		}
		window = window[size:]
	}
	if total == 0 {
		return false
	}
	return float64(printable)/float64(total) >= printableRatioMin
}

func baseType(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	return strings.TrimSpace(base)
}

func extensionOf(fileName string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
}
