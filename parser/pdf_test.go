package parser

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/poiesic/scriptorium/core"
	"github.com/poiesic/scriptorium/extraction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider answers every call with canned data unless the matching error is set.
type fakeProvider struct {
	uploadErr     error
	textErr       error
	infoErr       error
	tablesErr     error
	renderErr     error
	renderedPages atomic.Value
	textOpts      atomic.Value
}

func (f *fakeProvider) Upload(ctx context.Context, name string, buf []byte) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return "https://files/doc.pdf", nil
}

func (f *fakeProvider) ExtractText(ctx context.Context, url string, opts extraction.TextOptions) (*extraction.TextResult, error) {
	f.textOpts.Store(opts)
	if f.textErr != nil {
		return nil, f.textErr
	}
	return &extraction.TextResult{Text: "Page one text.\n\nPage two text.", Pages: []string{"Page one text.", "Page two text."}, PageCount: 2}, nil
}

func (f *fakeProvider) DocumentInfo(ctx context.Context, url string) (map[string]string, error) {
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	return map[string]string{"Title": "Annual"}, nil
}

func (f *fakeProvider) ExtractStructured(ctx context.Context, url string) ([]extraction.PageText, error) {
	return []extraction.PageText{{Page: 2, Text: "second"}, {Page: 1, Text: "first"}}, nil
}

func (f *fakeProvider) RenderPages(ctx context.Context, url, pages string, resolution int) ([]string, error) {
	f.renderedPages.Store(pages)
	if f.renderErr != nil {
		return nil, f.renderErr
	}
	return []string{"https://img/1.png", "https://img/2.png"}, nil
}

func (f *fakeProvider) ExtractTables(ctx context.Context, url string) ([][][]string, error) {
	if f.tablesErr != nil {
		return nil, f.tablesErr
	}
	return [][][]string{{{"k", "v"}, {"a", "1"}}, {}}, nil
}

var samplePDF = []byte("%PDF-1.4\n1 0 obj\n<< /Length 60 >>\nstream\n" +
	"BT /F1 12 Tf 72 712 Td (The quarterly revenue grew by twelve percent) Tj ET\n" +
	"endstream\nendobj\n%%EOF\n")

func allOptions() core.ProcessingOptions {
	opts := core.DefaultProcessingOptions()
	opts.ExtractImages = true
	opts.ExtractTables = true
	return opts
}

func TestPDFParserRemote(t *testing.T) {
	provider := &fakeProvider{}
	p := NewPDFParser(provider)

	parsed, err := p.Parse(context.Background(), samplePDF, allOptions())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(parsed.Text, "Page one text.\n\nPage two text."))
	assert.Contains(t, parsed.Text, "## Page 1\nfirst\n\n## Page 2\nsecond")
	assert.Contains(t, parsed.Text, "## table 1\nk | v\na | 1")
	assert.Equal(t, []string{"Page one text.", "Page two text."}, parsed.Pages)

	require.Len(t, parsed.Tables, 1)
	require.Len(t, parsed.Images, 2)
	assert.Equal(t, core.PageImage{URL: "https://img/2.png", Page: 2, MimeType: "image/png"}, parsed.Images[1])
	assert.Equal(t, "0-2", provider.renderedPages.Load())

	opts := provider.textOpts.Load().(extraction.TextOptions)
	assert.Equal(t, core.DefaultOCRLanguage, opts.Language)
	assert.True(t, opts.Unwrap)

	assert.Equal(t, "remote", parsed.Metadata["extraction"])
	assert.Equal(t, "Annual", parsed.Metadata["Title"])
	assert.Equal(t, 2, parsed.Metadata["pageCount"])
	assert.Equal(t, true, parsed.Metadata["hasImages"])
	assert.Equal(t, true, parsed.Metadata["hasTables"])
}

func TestPDFParserAuxiliaryFailuresDegrade(t *testing.T) {
	provider := &fakeProvider{tablesErr: errors.New("boom"), renderErr: errors.New("boom")}
	p := NewPDFParser(provider)

	parsed, err := p.Parse(context.Background(), samplePDF, allOptions())
	require.NoError(t, err)
	assert.Equal(t, "remote", parsed.Metadata["extraction"])
	assert.Empty(t, parsed.Tables)
	assert.Empty(t, parsed.Images)
	assert.Equal(t, false, parsed.Metadata["hasTables"])
	assert.Equal(t, false, parsed.Metadata["hasImages"])
}

func TestPDFParserSkipsOptionalRequests(t *testing.T) {
	provider := &fakeProvider{}
	p := NewPDFParser(provider, WithRenderPages(5))

	parsed, err := p.Parse(context.Background(), samplePDF, core.ProcessingOptions{OCREnabled: true})
	require.NoError(t, err)
	assert.Nil(t, provider.renderedPages.Load())
	assert.Equal(t, "Page one text.\n\nPage two text.", parsed.Text)
}

func TestPDFParserFallsBack(t *testing.T) {
	tests := []struct {
		name     string
		provider ExtractionProvider
		opts     core.ProcessingOptions
		warning  string
	}{
		{"no provider", nil, allOptions(), "no extraction provider"},
		{"ocr disabled", &fakeProvider{}, core.ProcessingOptions{}, "disabled"},
		{"upload fails", &fakeProvider{uploadErr: errors.New("quota")}, allOptions(), "quota"},
		{"text fails", &fakeProvider{textErr: errors.New("ocr down")}, allOptions(), "ocr down"},
		{"info fails", &fakeProvider{infoErr: errors.New("no info")}, allOptions(), "no info"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p *PDFParser
			if tt.provider == nil {
				p = NewPDFParser(nil)
			} else {
				p = NewPDFParser(tt.provider)
			}
			parsed, err := p.Parse(context.Background(), samplePDF, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, "fallback", parsed.Metadata["extraction"])
			assert.Contains(t, parsed.Metadata["warning"], tt.warning)
			assert.Equal(t, "The quarterly revenue grew by twelve percent", parsed.Text)
		})
	}
}

func TestPDFParserNothingReadable(t *testing.T) {
	p := NewPDFParser(nil)
	_, err := p.Parse(context.Background(), []byte("%PDF-1.4 \x00\x01\x02"), core.DefaultProcessingOptions())
	var pe *core.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, FormatPDF, pe.Format)
	assert.ErrorIs(t, err, ErrNoText)
}

func TestScanPDFText(t *testing.T) {
	buf := []byte("(short) (An escaped \\(paren\\) string that is long) " +
		"stream\nplain printable run inside a stream body\x00\x01endstream " +
		"(An escaped \\(paren\\) string that is long)")
	got := ScanPDFText(buf)
	assert.Equal(t, "An escaped (paren) string that is long plain printable run inside a stream body", got)

	long := []byte("(" + strings.Repeat("abcdefghij", 6000) + ")")
	assert.Len(t, ScanPDFText(long), fallbackMaxChars)
}

func TestUnescapePDFString(t *testing.T) {
	assert.Equal(t, "a(b)c\\d e", string(unescapePDFString([]byte(`a\(b\)c\\d\ne`))))
	assert.Equal(t, "A", string(unescapePDFString([]byte(`\101`))))
}
