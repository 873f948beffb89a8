package parser

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/scriptorium/core"
)

// Parser converts one family of formats.
type Parser interface {
	// Name identifies the format family in errors and logs.
	Name() string

	// CanHandle reports whether the parser accepts the MIME type.
	CanHandle(mimeType string) bool

	// Parse converts buf. Failures are returned as *core.ParseError.
	Parse(ctx context.Context, buf []byte, opts core.ProcessingOptions) (*core.ParsedContent, error)
}

// Option configures parsers built by this package.
type Option func(*settings)

type settings struct {
	logger      *slog.Logger
	renderPages int
	resolution  int
}

func newSettings(component string, opts []Option) settings {
	s := settings{
		logger:      slog.Default().With("component", component),
		renderPages: 3,
		resolution:  150,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRenderPages sets how many leading PDF pages are rendered to images. Default: 3.
func WithRenderPages(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.renderPages = n
		}
	}
}

// WithRenderResolution sets the DPI used for rendered page images. Default: 150.
func WithRenderResolution(dpi int) Option {
	return func(s *settings) {
		if dpi > 0 {
			s.resolution = dpi
		}
	}
}

// Registry dispatches buffers to parsers by MIME type.
type Registry struct {
	parsers  []Parser
	fallback Parser
}

// NewRegistry creates a registry that tries parsers in order and uses fallback
// when none of them accepts a type.
func NewRegistry(fallback Parser, parsers ...Parser) *Registry {
	return &Registry{parsers: parsers, fallback: fallback}
}

// NewDefaultRegistry registers the PDF, DOCX, spreadsheet and text parsers, with
// text as the fallback. A nil pdf parser is replaced by one without an
// extraction provider, which always uses local extraction.
func NewDefaultRegistry(pdf *PDFParser, opts ...Option) *Registry {
	if pdf == nil {
		pdf = NewPDFParser(nil, opts...)
	}
	text := NewTextParser(opts...)
	return NewRegistry(text,
		pdf,
		NewDOCXParser(opts...),
		NewSpreadsheetParser(opts...),
		text,
	)
}

// Lookup returns the parser for mimeType.
func (r *Registry) Lookup(mimeType string) Parser {
	for _, p := range r.parsers {
		if p.CanHandle(mimeType) {
			return p
		}
	}
	return r.fallback
}

// Parse looks up the parser for mimeType and runs it.
func (r *Registry) Parse(ctx context.Context, mimeType string, buf []byte, opts core.ProcessingOptions) (*core.ParsedContent, error) {
	p := r.Lookup(mimeType)
	parsed, err := p.Parse(ctx, buf, opts)
	if err != nil {
		var pe *core.ParseError
		if errors.As(err, &pe) {
			return nil, err
		}
		return nil, &core.ParseError{Format: p.Name(), Cause: err}
	}
	if parsed.Metadata == nil {
		parsed.Metadata = map[string]any{}
	}
	parsed.Metadata["parser"] = p.Name()
	return parsed, nil
}
