package parser

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/poiesic/scriptorium/chunker"
	"github.com/poiesic/scriptorium/core"
	"github.com/poiesic/scriptorium/extraction"
	"golang.org/x/sync/errgroup"
)

const (
	FormatPDF = "pdf"

	// fallbackMaxChars caps the output of the byte-scanning extractor.
	fallbackMaxChars = 50000
	// fallbackMinRun is the shortest printable run kept by the byte scanner.
	fallbackMinRun = 20
)

var parenRun = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)`)

// ExtractionProvider is the remote service used for PDF text, layout, tables and
// page images. *extraction.Client implements it.
type ExtractionProvider interface {
	Upload(ctx context.Context, name string, buf []byte) (string, error)
	ExtractText(ctx context.Context, url string, opts extraction.TextOptions) (*extraction.TextResult, error)
	DocumentInfo(ctx context.Context, url string) (map[string]string, error)
	ExtractStructured(ctx context.Context, url string) ([]extraction.PageText, error)
	RenderPages(ctx context.Context, url, pages string, resolution int) ([]string, error)
	ExtractTables(ctx context.Context, url string) ([][][]string, error)
}

var _ ExtractionProvider = (*extraction.Client)(nil)

// PDFParser extracts PDFs through an ExtractionProvider and degrades to local
// extraction when the provider is missing, disabled or failing.
type PDFParser struct {
	provider    ExtractionProvider
	renderPages int
	resolution  int
	logger      *slog.Logger
}

// NewPDFParser creates a PDFParser. provider may be nil.
func NewPDFParser(provider ExtractionProvider, opts ...Option) *PDFParser {
	s := newSettings("pdf-parser", opts)
	return &PDFParser{
		provider:    provider,
		renderPages: s.renderPages,
		resolution:  s.resolution,
		logger:      s.logger,
	}
}

func (p *PDFParser) Name() string { return FormatPDF }

func (p *PDFParser) CanHandle(mimeType string) bool {
	return mimeType == "application/pdf"
}

// Parse runs remote extraction and falls back to local extraction on any failure
// of the upload, text or info requests. Structured, image and table extraction
// are auxiliary: their failures are logged and leave the output empty.
func (p *PDFParser) Parse(ctx context.Context, buf []byte, opts core.ProcessingOptions) (*core.ParsedContent, error) {
	if p.provider == nil {
		return p.fallback(buf, "no extraction provider configured")
	}
	if !opts.OCREnabled {
		return p.fallback(buf, "remote extraction disabled")
	}

	parsed, err := p.remote(ctx, buf, opts)
	if err != nil {
		p.logger.Warn("remote pdf extraction failed, using local fallback", "error", err)
		return p.fallback(buf, "remote extraction failed: "+err.Error())
	}
	return parsed, nil
}

func (p *PDFParser) remote(ctx context.Context, buf []byte, opts core.ProcessingOptions) (*core.ParsedContent, error) {
	url, err := p.provider.Upload(ctx, "document.pdf", buf)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}

	var (
		text       *extraction.TextResult
		info       map[string]string
		structured []extraction.PageText
		images     []core.PageImage
		tables     []core.Table
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := p.provider.ExtractText(gctx, url, extraction.TextOptions{
			Language: opts.OCRLanguage,
			Unwrap:   true,
		})
		if err != nil {
			return fmt.Errorf("extract text: %w", err)
		}
		text = res
		return nil
	})
	g.Go(func() error {
		res, err := p.provider.DocumentInfo(gctx, url)
		if err != nil {
			return fmt.Errorf("document info: %w", err)
		}
		info = res
		return nil
	})
	if opts.ExtractTables {
		g.Go(func() error {
			res, err := p.provider.ExtractStructured(gctx, url)
			if err != nil {
				p.logger.Warn("structured extraction failed", "error", err)
				return nil
			}
			structured = res
			return nil
		})
		g.Go(func() error {
			res, err := p.provider.ExtractTables(gctx, url)
			if err != nil {
				p.logger.Warn("table extraction failed", "error", err)
				return nil
			}
			for _, rows := range res {
				if len(rows) == 0 {
					continue
				}
				tables = append(tables, newTable(fmt.Sprintf("table %d", len(tables)+1), rows))
			}
			return nil
		})
	}
	if opts.ExtractImages {
		g.Go(func() error {
			pages := fmt.Sprintf("0-%d", p.renderPages-1)
			urls, err := p.provider.RenderPages(gctx, url, pages, p.resolution)
			if err != nil {
				p.logger.Warn("page rendering failed", "error", err)
				return nil
			}
			for i, u := range urls {
				images = append(images, core.PageImage{URL: u, Page: i + 1, MimeType: "image/png"})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text.Text) == "" {
		return nil, fmt.Errorf("extract text: %w", ErrNoText)
	}

	content := []string{text.Text}
	if len(structured) > 0 {
		sort.SliceStable(structured, func(i, j int) bool { return structured[i].Page < structured[j].Page })
		for _, page := range structured {
			if body := strings.TrimSpace(page.Text); body != "" {
				content = append(content, fmt.Sprintf("## Page %d\n%s", page.Page, body))
			}
		}
	}
	for _, t := range tables {
		content = append(content, "## "+t.Name+"\n"+chunker.RenderTable(t))
	}

	meta := make(map[string]any, len(info)+6)
	for k, v := range info {
		meta[k] = v
	}
	meta["format"] = FormatPDF
	meta["extraction"] = "remote"
	meta["pageCount"] = text.PageCount
	meta["hasImages"] = len(images) > 0
	meta["hasTables"] = len(tables) > 0
	if opts.OCRLanguage != "" {
		meta["ocrLanguage"] = opts.OCRLanguage
	}

	parsed := &core.ParsedContent{
		Text:     strings.Join(content, "\n\n"),
		Pages:    text.Pages,
		Images:   images,
		Metadata: meta,
	}
	if opts.ExtractTables {
		parsed.Tables = tables
	}
	p.logger.Debug("extracted pdf remotely", "pages", text.PageCount, "tables", len(tables), "images", len(images))
	return parsed, nil
}

// fallback extracts text locally. It only fails when nothing readable is found.
func (p *PDFParser) fallback(buf []byte, reason string) (*core.ParsedContent, error) {
	meta := map[string]any{
		"format":     FormatPDF,
		"extraction": "fallback",
		"warning":    reason,
		"hasImages":  false,
		"hasTables":  false,
	}

	pages, err := localPDFText(buf)
	if err != nil {
		p.logger.Debug("pdf reader failed, scanning raw bytes", "error", err)
	}
	text := strings.TrimSpace(strings.Join(pages, "\n\n"))
	if text != "" {
		meta["pageCount"] = len(pages)
		meta["method"] = "reader"
		return &core.ParsedContent{Text: text, Pages: pages, Metadata: meta}, nil
	}

	text = ScanPDFText(buf)
	if text == "" {
		return nil, &core.ParseError{Format: FormatPDF, Cause: ErrNoText}
	}
	meta["method"] = "byte-scan"
	return &core.ParsedContent{Text: text, Metadata: meta}, nil
}

// localPDFText reads per-page plain text with the pure-Go PDF reader.
func localPDFText(buf []byte) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return nil, err
	}
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, strings.TrimSpace(text))
	}
	return pages, nil
}

// ScanPDFText pulls plausible text out of raw PDF bytes: printable ASCII runs of at
// least 20 characters inside stream bodies and parenthesized string literals.
func ScanPDFText(buf []byte) string {
	var parts []string
	seen := map[string]bool{}
	add := func(run string) {
		run = strings.Join(strings.Fields(run), " ")
		if len(run) >= fallbackMinRun && !seen[run] {
			seen[run] = true
			parts = append(parts, run)
		}
	}

	for _, m := range parenRun.FindAllSubmatch(buf, -1) {
		for _, run := range printableRuns(unescapePDFString(m[1])) {
			add(run)
		}
	}
	for _, body := range streamBodies(buf) {
		for _, run := range printableRuns(body) {
			if !strings.Contains(run, "(") {
				add(run)
			}
		}
	}

	text := strings.Join(parts, " ")
	if len(text) > fallbackMaxChars {
		text = text[:fallbackMaxChars]
	}
	return text
}

func streamBodies(buf []byte) [][]byte {
	var bodies [][]byte
	rest := buf
	for {
		start := bytes.Index(rest, []byte("stream"))
		if start < 0 {
			break
		}
		rest = rest[start+len("stream"):]
		end := bytes.Index(rest, []byte("endstream"))
		if end < 0 {
			break
		}
		bodies = append(bodies, rest[:end])
		rest = rest[end+len("endstream"):]
	}
	return bodies
}

func printableRuns(b []byte) []string {
	var runs []string
	start := -1
	for i, c := range b {
		if c >= 0x20 && c < 0x7f {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 && i-start >= fallbackMinRun {
			runs = append(runs, string(b[start:i]))
		}
		start = -1
	}
	if start >= 0 && len(b)-start >= fallbackMinRun {
		runs = append(runs, string(b[start:]))
	}
	return runs
}

func unescapePDFString(b []byte) []byte {
	if bytes.IndexByte(b, '\\') < 0 {
		return b
	}
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] != '\\' || i+1 == len(b) {
			out = append(out, b[i])
			continue
		}
		i++
		switch b[i] {
		case 'n', 'r', 't':
			out = append(out, ' ')
		case '(', ')', '\\':
			out = append(out, b[i])
		default:
			if b[i] >= '0' && b[i] <= '7' {
				j := i
				for j < len(b) && j < i+3 && b[j] >= '0' && b[j] <= '7' {
					j++
				}
				if v, err := strconv.ParseUint(string(b[i:j]), 8, 8); err == nil {
					out = append(out, byte(v))
				}
				i = j - 1
			}
		}
	}
	return out
}
