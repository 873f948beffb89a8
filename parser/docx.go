package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"log/slog"
	"sort"
	"strings"

	"code.sajari.com/docconv"
	"github.com/PuerkitoBio/goquery"
	"github.com/poiesic/scriptorium/core"
	"golang.org/x/sync/errgroup"
)

const (
	FormatDOCX = "docx"
	mimeDOCX   = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// unsupportedElements are WordprocessingML elements whose content is dropped.
var unsupportedElements = map[string]bool{
	"drawing": true, "pict": true, "object": true, "txbxContent": true,
	"footnoteReference": true, "endnoteReference": true,
}

// DOCXParser handles Word documents. Text comes from docconv; an HTML rendering
// built from the document part is used to recover tables.
type DOCXParser struct {
	logger *slog.Logger
}

// NewDOCXParser creates a DOCXParser.
func NewDOCXParser(opts ...Option) *DOCXParser {
	s := newSettings("docx-parser", opts)
	return &DOCXParser{logger: s.logger}
}

func (p *DOCXParser) Name() string { return FormatDOCX }

func (p *DOCXParser) CanHandle(mimeType string) bool {
	return mimeType == mimeDOCX
}

// Parse converts buf to text and HTML concurrently and merges the results.
func (p *DOCXParser) Parse(ctx context.Context, buf []byte, opts core.ProcessingOptions) (*core.ParsedContent, error) {
	var (
		text     string
		docMeta  map[string]string
		rendered *docxHTML
		htmlErr  error
	)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := docconv.Convert(bytes.NewReader(buf), mimeDOCX, false)
		if err != nil {
			return err
		}
		text = strings.TrimSpace(res.Body)
		docMeta = res.Meta
		return nil
	})
	g.Go(func() error {
		rendered, htmlErr = RenderDOCXHTML(buf)
		return nil
	})
	textErr := g.Wait()

	meta := map[string]any{"format": FormatDOCX}
	var warnings []string

	if htmlErr != nil {
		p.logger.Warn("docx html conversion failed", "error", htmlErr)
		warnings = append(warnings, "html conversion failed: "+htmlErr.Error())
	}
	if textErr != nil {
		if rendered == nil {
			return nil, &core.ParseError{Format: FormatDOCX, Cause: textErr}
		}
		p.logger.Warn("docx text conversion failed, using html rendering", "error", textErr)
		warnings = append(warnings, "text conversion failed: "+textErr.Error())
	}

	if text == "" && rendered != nil {
		out, _, err := HTMLToText(rendered.HTML)
		if err == nil {
			text = out
		}
	}
	if text == "" {
		return nil, &core.ParseError{Format: FormatDOCX, Cause: ErrNoText}
	}

	var tables []core.Table
	if rendered != nil {
		tables = TablesFromHTML(rendered.HTML)
		meta["paragraphs"] = rendered.Paragraphs
		if len(rendered.Unsupported) > 0 {
			meta["unsupportedElements"] = strings.Join(rendered.Unsupported, ",")
		}
	}
	for k, v := range docMeta {
		if v != "" {
			meta["docx."+k] = v
		}
	}
	if len(warnings) > 0 {
		meta["warnings"] = strings.Join(warnings, "; ")
	}
	meta["tableCount"] = len(tables)

	parsed := &core.ParsedContent{Text: text, Metadata: meta}
	if opts.ExtractTables {
		parsed.Tables = tables
	}
	p.logger.Debug("parsed docx", "characters", len(text), "tables", len(tables))
	return parsed, nil
}

// docxHTML is the HTML rendering of a document part plus conversion diagnostics.
type docxHTML struct {
	HTML        string
	Paragraphs  int
	Unsupported []string
}

// RenderDOCXHTML walks word/document.xml and emits headings, paragraphs and tables
// as HTML. Elements with no HTML counterpart are listed in Unsupported.
func RenderDOCXHTML(buf []byte) (*docxHTML, error) {
	zr, err := zip.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return nil, fmt.Errorf("open docx container: %w", err)
	}
	var part *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			part = f
			break
		}
	}
	if part == nil {
		return nil, ErrMissingDocumentPart
	}
	rc, err := part.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return renderWordML(rc)
}

func renderWordML(r io.Reader) (*docxHTML, error) {
	dec := xml.NewDecoder(r)
	var (
		b           strings.Builder
		para        strings.Builder
		inPara      bool
		heading     int
		skipDepth   int
		paragraphs  int
		unsupported = map[string]bool{}
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode document part: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if skipDepth > 0 {
				skipDepth++
				continue
			}
			if unsupportedElements[t.Name.Local] {
				unsupported[t.Name.Local] = true
				skipDepth = 1
				continue
			}
			switch t.Name.Local {
			case "tbl":
				b.WriteString("<table>")
			case "tr":
				b.WriteString("<tr>")
			case "tc":
				b.WriteString("<td>")
			case "p":
				inPara, heading = true, 0
				para.Reset()
			case "pStyle":
				heading = headingLevel(attr(t, "val"))
			case "tab":
				para.WriteString(" ")
			case "br", "cr":
				para.WriteString("<br>")
			case "t":
				var s string
				if err := dec.DecodeElement(&s, &t); err != nil {
					return nil, fmt.Errorf("decode text run: %w", err)
				}
				para.WriteString(html.EscapeString(s))
			}
		case xml.EndElement:
			if skipDepth > 0 {
				skipDepth--
				continue
			}
			switch t.Name.Local {
			case "tbl":
				b.WriteString("</table>")
			case "tr":
				b.WriteString("</tr>")
			case "tc":
				b.WriteString("</td>")
			case "p":
				if inPara && para.Len() > 0 {
					tag := "p"
					if heading > 0 {
						tag = fmt.Sprintf("h%d", heading)
					}
					b.WriteString("<" + tag + ">" + para.String() + "</" + tag + ">")
					paragraphs++
				}
				inPara = false
			}
		}
	}

	names := make([]string, 0, len(unsupported))
	for name := range unsupported {
		names = append(names, name)
	}
	sort.Strings(names)
	return &docxHTML{
		HTML:        "<html><body>" + b.String() + "</body></html>",
		Paragraphs:  paragraphs,
		Unsupported: names,
	}, nil
}

func attr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// headingLevel maps paragraph styles such as "Heading2" or "Title" to 1-6.
func headingLevel(style string) int {
	lower := strings.ToLower(style)
	if lower == "title" {
		return 1
	}
	if rest, ok := strings.CutPrefix(lower, "heading"); ok && len(rest) == 1 && rest[0] >= '1' && rest[0] <= '6' {
		return int(rest[0] - '0')
	}
	return 0
}

// TablesFromHTML recovers every table in doc, using its first row as headers.
// Tables nested in cells are rendered into the parent cell's text.
func TablesFromHTML(doc string) []core.Table {
	root, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return nil
	}
	var tables []core.Table
	root.Find("table").Each(func(i int, table *goquery.Selection) {
		if table.ParentsFiltered("table").Length() > 0 {
			return
		}
		var records [][]string
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			if row.ParentsFiltered("table").First().Get(0) != table.Get(0) {
				return
			}
			var cells []string
			row.ChildrenFiltered("td, th").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, strings.Join(strings.Fields(cell.Text()), " "))
			})
			if len(cells) > 0 {
				records = append(records, cells)
			}
		})
		if len(records) > 0 {
			tables = append(tables, newTable(fmt.Sprintf("table %d", len(tables)+1), records))
		}
	})
	return tables
}
