package parser

import (
	"context"
	"testing"

	"github.com/poiesic/scriptorium/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectTextFormat(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"json object", `{"a": 1}`, FormatJSON},
		{"json array", ` [1, 2] `, FormatJSON},
		{"broken json is plain", `{"a": `, FormatPlain},
		{"html", "<html><body><p>x</p></body></html>", FormatHTML},
		{"html fragment", "<div class=\"a\">hello</div>", FormatHTML},
		{"markdown heading", "# Title\n\nBody text.", FormatMarkdown},
		{"markdown list", "Intro\n- one\n- two", FormatMarkdown},
		{"markdown link", "See [docs](http://example.com).", FormatMarkdown},
		{"markdown fence", "```\ncode\n```", FormatMarkdown},
		{"plain", "Just a sentence. Another one.", FormatPlain},
		{"empty", "   ", FormatPlain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectTextFormat(tt.src))
		})
	}
}

func TestFlattenJSON(t *testing.T) {
	out, err := FlattenJSON([]byte(`{"zeta": 1.50, "alpha": {"b": true, "a": null}, "list": [1, {"k": "v"}]}`))
	require.NoError(t, err)

	want := "alpha:\n" +
		"  a: null\n" +
		"  b: true\n" +
		"list:\n" +
		"  [0]: 1\n" +
		"  [1]:\n" +
		"    k: v\n" +
		"zeta: 1.50"
	assert.Equal(t, want, out)
}

func TestFlattenJSONScalar(t *testing.T) {
	out, err := FlattenJSON([]byte(`"hello"`))
	require.NoError(t, err)
	assert.Equal(t, "hello", out)

	_, err = FlattenJSON([]byte(`{`))
	assert.Error(t, err)
}

func TestHTMLToText(t *testing.T) {
	src := `<html><head><title>Guide</title><style>p{color:red}</style></head>
<body>
<script>alert("x")</script>
<h2>Getting   started</h2>
<p>Install the
tool &amp; run it.</p>
<ul><li>first</li><li>second</li></ul>
</body></html>`

	text, title, err := HTMLToText(src)
	require.NoError(t, err)
	assert.Equal(t, "Guide", title)
	assert.Equal(t, "## Getting started\n\nInstall the tool & run it.\n\n- first\n- second", text)
	assert.NotContains(t, text, "alert")
	assert.NotContains(t, text, "color")
}

func TestTextParserMarkdown(t *testing.T) {
	p := NewTextParser()
	parsed, err := p.Parse(context.Background(), []byte("# Title\n\nSome *emphasis* here.\n\n- one\n- two\n"), core.DefaultProcessingOptions())
	require.NoError(t, err)

	assert.Equal(t, "# Title\n\nSome emphasis here.\n\n- one\n- two", parsed.Text)
	assert.Equal(t, FormatMarkdown, parsed.Metadata["format"])
	assert.Equal(t, 6, parsed.Metadata["lines"])
}

func TestTextParserPlain(t *testing.T) {
	p := NewTextParser()
	parsed, err := p.Parse(context.Background(), []byte("Line one.\r\n\r\n\r\n\r\nLine two."), core.DefaultProcessingOptions())
	require.NoError(t, err)
	assert.Equal(t, "Line one.\n\nLine two.", parsed.Text)
	assert.Equal(t, FormatPlain, parsed.Metadata["format"])
	assert.Equal(t, 20, parsed.Metadata["characters"])
}

func TestTextParserEmpty(t *testing.T) {
	p := NewTextParser()
	_, err := p.Parse(context.Background(), []byte("  \n "), core.DefaultProcessingOptions())
	var pe *core.ParseError
	require.ErrorAs(t, err, &pe)
	assert.ErrorIs(t, err, ErrNoText)
}

func TestTextParserCanHandle(t *testing.T) {
	p := NewTextParser()
	assert.True(t, p.CanHandle("text/plain"))
	assert.True(t, p.CanHandle("text/markdown"))
	assert.True(t, p.CanHandle("application/json"))
	assert.False(t, p.CanHandle("text/csv"))
	assert.False(t, p.CanHandle("application/pdf"))
}
