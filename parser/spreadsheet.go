package parser

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/scriptorium/chunker"
	"github.com/poiesic/scriptorium/core"
	"github.com/xuri/excelize/v2"
)

const (
	FormatCSV      = "csv"
	FormatWorkbook = "workbook"
)

// SpreadsheetParser handles CSV files and xlsx workbooks.
type SpreadsheetParser struct {
	logger *slog.Logger
}

// NewSpreadsheetParser creates a SpreadsheetParser.
func NewSpreadsheetParser(opts ...Option) *SpreadsheetParser {
	s := newSettings("spreadsheet-parser", opts)
	return &SpreadsheetParser{logger: s.logger}
}

func (p *SpreadsheetParser) Name() string { return "spreadsheet" }

func (p *SpreadsheetParser) CanHandle(mimeType string) bool {
	switch mimeType {
	case "text/csv",
		"application/csv",
		"application/vnd.ms-excel",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return true
	}
	return false
}

// Parse reads CSV when the head of buf looks delimited, otherwise a workbook.
func (p *SpreadsheetParser) Parse(ctx context.Context, buf []byte, opts core.ProcessingOptions) (*core.ParsedContent, error) {
	var (
		tables []core.Table
		meta   map[string]any
		err    error
	)
	if LooksLikeCSV(buf) {
		tables, meta, err = parseCSV(buf)
		if err != nil {
			return nil, &core.ParseError{Format: FormatCSV, Cause: err}
		}
	} else {
		tables, meta, err = parseWorkbook(buf)
		if err != nil {
			return nil, &core.ParseError{Format: FormatWorkbook, Cause: err}
		}
	}

	text := renderTables(tables)
	if text == "" {
		return nil, &core.ParseError{Format: meta["format"].(string), Cause: ErrNoText}
	}

	parsed := &core.ParsedContent{Text: text, Metadata: meta}
	if opts.ExtractTables {
		parsed.Tables = tables
	}
	p.logger.Debug("parsed spreadsheet", "format", meta["format"], "tables", len(tables))
	return parsed, nil
}

// LooksLikeCSV reports whether the first 1000 bytes contain a comma and a line
// break and no NUL bytes.
func LooksLikeCSV(buf []byte) bool {
	head := buf
	if len(head) > 1000 {
		head = head[:1000]
	}
	return bytes.IndexByte(head, ',') >= 0 &&
		bytes.IndexByte(head, '\n') >= 0 &&
		bytes.IndexByte(head, 0) < 0
}

func parseCSV(buf []byte) ([]core.Table, map[string]any, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(buf, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, map[string]any{"format": FormatCSV}, nil
	}

	table := newTable("csv", records)
	meta := map[string]any{
		"format":      FormatCSV,
		"rowCount":    len(table.Rows),
		"columnCount": len(table.Headers),
	}
	return []core.Table{table}, meta, nil
}

func parseWorkbook(buf []byte) ([]core.Table, map[string]any, error) {
	f, err := excelize.OpenReader(bytes.NewReader(buf))
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	var tables []core.Table
	rowCount := 0
	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		if len(rows) == 0 {
			continue
		}
		table := newTable(sheet, rows)
		rowCount += len(table.Rows)
		tables = append(tables, table)
	}

	meta := map[string]any{
		"format":     FormatWorkbook,
		"sheetCount": len(sheets),
		"sheets":     strings.Join(sheets, ","),
		"rowCount":   rowCount,
	}
	return tables, meta, nil
}

// newTable takes the first record as headers and pads every row to the widest record.
func newTable(name string, records [][]string) core.Table {
	width := 0
	for _, rec := range records {
		width = max(width, len(rec))
	}
	headers := pad(records[0], width)
	for i, h := range headers {
		if strings.TrimSpace(h) == "" {
			headers[i] = fmt.Sprintf("Column %d", i+1)
		}
	}
	rows := make([][]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		rows = append(rows, pad(rec, width))
	}
	return core.Table{Name: name, Headers: headers, Rows: rows}
}

func pad(rec []string, width int) []string {
	out := make([]string, width)
	for i := range out {
		if i < len(rec) {
			out[i] = strings.TrimSpace(rec[i])
		}
	}
	return out
}

// renderTables renders every table under a heading with its name.
func renderTables(tables []core.Table) string {
	var parts []string
	for _, t := range tables {
		body := chunker.RenderTable(t)
		if body == "" {
			continue
		}
		if t.Name != "" {
			body = "## " + t.Name + "\n" + body
		}
		parts = append(parts, body)
	}
	return strings.Join(parts, "\n\n")
}
