package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/poiesic/scriptorium/core"
	"github.com/russross/blackfriday/v2"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Text formats recognized by TextParser.
const (
	FormatPlain    = "plain"
	FormatJSON     = "json"
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
)

var (
	htmlTagPattern  = regexp.MustCompile(`(?i)<(!doctype|html|head|body|div|p|h[1-6]|ul|ol|li|table|span|a|br|section|article)[\s>/]`)
	markdownPattern = regexp.MustCompile("(?m)^(#{1,6}\\s+\\S|\\s*[-*+]\\s+\\S|\\s*\\d+\\.\\s+\\S|```)|\\[[^\\]\\n]+\\]\\([^)\\n]+\\)")
	blankRuns       = regexp.MustCompile(`\n{3,}`)
)

// TextParser handles plain text, JSON, HTML and Markdown.
type TextParser struct {
	logger *slog.Logger
}

// NewTextParser creates a TextParser.
func NewTextParser(opts ...Option) *TextParser {
	s := newSettings("text-parser", opts)
	return &TextParser{logger: s.logger}
}

func (p *TextParser) Name() string { return "text" }

func (p *TextParser) CanHandle(mimeType string) bool {
	switch mimeType {
	case "application/json", "application/xhtml+xml", "application/xml":
		return true
	}
	return strings.HasPrefix(mimeType, "text/") && mimeType != "text/csv"
}

// Parse sniffs the text format and normalizes it to flat text.
func (p *TextParser) Parse(ctx context.Context, buf []byte, opts core.ProcessingOptions) (*core.ParsedContent, error) {
	if !utf8.Valid(buf) {
		buf = bytes.ToValidUTF8(buf, []byte("�"))
	}
	src := strings.ReplaceAll(string(buf), "\r\n", "\n")
	format := DetectTextFormat(src)
	meta := map[string]any{"format": format}

	var text string
	switch format {
	case FormatJSON:
		flat, err := FlattenJSON([]byte(src))
		if err != nil {
			return nil, &core.ParseError{Format: FormatJSON, Cause: err}
		}
		text = flat
	case FormatHTML:
		out, title, err := HTMLToText(src)
		if err != nil {
			return nil, &core.ParseError{Format: FormatHTML, Cause: err}
		}
		text = out
		if title != "" {
			meta["title"] = title
		}
	case FormatMarkdown:
		rendered := blackfriday.Run([]byte(src), blackfriday.WithExtensions(blackfriday.CommonExtensions))
		out, _, err := HTMLToText(string(rendered))
		if err != nil {
			return nil, &core.ParseError{Format: FormatMarkdown, Cause: err}
		}
		text = out
	default:
		text = strings.TrimSpace(blankRuns.ReplaceAllString(src, "\n\n"))
	}

	if text == "" {
		return nil, &core.ParseError{Format: format, Cause: ErrNoText}
	}
	meta["characters"] = utf8.RuneCountInString(text)
	meta["lines"] = strings.Count(text, "\n") + 1

	p.logger.Debug("parsed text", "format", format, "characters", meta["characters"])
	return &core.ParsedContent{Text: text, Metadata: meta}, nil
}

// DetectTextFormat classifies src as json, html, markdown or plain.
func DetectTextFormat(src string) string {
	trimmed := strings.TrimSpace(src)
	if trimmed == "" {
		return FormatPlain
	}
	if (trimmed[0] == '{' || trimmed[0] == '[') && json.Valid([]byte(trimmed)) {
		return FormatJSON
	}
	if htmlTagPattern.MatchString(trimmed) {
		return FormatHTML
	}
	if markdownPattern.MatchString(trimmed) {
		return FormatMarkdown
	}
	return FormatPlain
}

// FlattenJSON renders a JSON document as an indented "key: value" tree. Object
// keys are sorted and array elements are shown as [i] blocks.
func FlattenJSON(data []byte) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", fmt.Errorf("decode json: %w", err)
	}
	var b strings.Builder
	flattenValue(&b, v, 0)
	return strings.TrimRight(b.String(), "\n"), nil
}

func flattenValue(b *strings.Builder, v any, depth int) {
	indent := strings.Repeat("  ", depth)
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			writeEntry(b, indent, k, t[k], depth)
		}
	case []any:
		for i, item := range t {
			writeEntry(b, indent, fmt.Sprintf("[%d]", i), item, depth)
		}
	default:
		b.WriteString(indent + scalarString(t) + "\n")
	}
}

func writeEntry(b *strings.Builder, indent, key string, v any, depth int) {
	switch v.(type) {
	case map[string]any, []any:
		b.WriteString(indent + key + ":\n")
		flattenValue(b, v, depth+1)
	default:
		b.WriteString(indent + key + ": " + scalarString(v) + "\n")
	}
}

func scalarString(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprint(v)
}

// HTMLToText strips script and style content, turns headings into "#" markers and
// list items into "- " lines, and returns the remaining text with entities decoded
// together with the document title.
func HTMLToText(src string) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return "", "", err
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	doc.Find("script, style, noscript, template, head").Remove()

	var b strings.Builder
	for _, n := range doc.Nodes {
		walkHTML(&b, n, false)
	}
	return normalizeLines(b.String()), title, nil
}

func walkHTML(b *strings.Builder, n *html.Node, pre bool) {
	switch n.Type {
	case html.TextNode:
		if pre {
			b.WriteString(n.Data)
		} else {
			b.WriteString(strings.ReplaceAll(n.Data, "\n", " "))
		}
		return
	case html.CommentNode:
		return
	}

	after := ""
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			level := int(n.Data[1] - '0')
			b.WriteString("\n\n" + strings.Repeat("#", level) + " ")
			after = "\n\n"
		case atom.Li:
			b.WriteString("\n- ")
		case atom.P, atom.Div, atom.Section, atom.Article, atom.Blockquote, atom.Table, atom.Ul, atom.Ol, atom.Header, atom.Footer:
			b.WriteString("\n\n")
			after = "\n\n"
		case atom.Pre:
			b.WriteString("\n\n")
			after = "\n\n"
			pre = true
		case atom.Tr:
			b.WriteString("\n")
			after = "\n"
		case atom.Td, atom.Th:
			after = " "
		case atom.Br:
			b.WriteString("\n")
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkHTML(b, c, pre)
	}
	b.WriteString(after)
}

// normalizeLines collapses whitespace within lines and runs of blank lines.
func normalizeLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := true
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
