package markdown

import (
	"bytes"
	"fmt"
	"html/template"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// DefaultStyle is the chroma style used for source blocks.
const DefaultStyle = "github"

// DefaultContentID is the id of the element wrapping the rendered body.
const DefaultContentID = "content"

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
</head>
<body>
<div id="{{.ContentID}}">
{{.Body}}</div>
</body>
</html>
`

// Renderer converts Markdown to a complete HTML document.
type Renderer struct {
	md        goldmark.Markdown
	tmpl      *template.Template
	style     string
	contentID string
	highlight bool
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithStyle sets the chroma style for source highlighting.
func WithStyle(style string) Option {
	return func(r *Renderer) {
		if style != "" {
			r.style = style
		}
	}
}

// WithContentID sets the id of the body container.
func WithContentID(id string) Option {
	return func(r *Renderer) {
		if id != "" {
			r.contentID = id
		}
	}
}

// WithHighlighting toggles syntax highlighting of fenced blocks.
func WithHighlighting(enabled bool) Option {
	return func(r *Renderer) {
		r.highlight = enabled
	}
}

// NewRenderer returns a Renderer with GFM enabled and raw HTML allowed.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		style:     DefaultStyle,
		contentID: DefaultContentID,
		highlight: true,
		tmpl:      template.Must(template.New("page").Parse(pageTemplate)),
	}
	for _, opt := range opts {
		opt(r)
	}

	extensions := []goldmark.Extender{extension.GFM}
	if r.highlight {
		extensions = append(extensions, highlighting.NewHighlighting(
			highlighting.WithStyle(r.style),
		))
	}
	r.md = goldmark.New(
		goldmark.WithExtensions(extensions...),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithUnsafe(),
		),
	)
	return r
}

// RenderBody converts src to an HTML fragment.
func (r *Renderer) RenderBody(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.md.Convert(src, &buf); err != nil {
		return nil, fmt.Errorf("converting markdown: %w", err)
	}
	return buf.Bytes(), nil
}

// Render converts src to a complete HTML document. name is used for the
// title when the source has no level-one heading.
func (r *Renderer) Render(src []byte, name string) ([]byte, error) {
	body, err := r.RenderBody(src)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	data := struct {
		Title     string
		ContentID string
		Body      template.HTML
	}{
		Title:     Title(src, name),
		ContentID: r.contentID,
		Body:      template.HTML(body), //nolint:gosec // output of the markdown renderer
	}
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("rendering page template: %w", err)
	}
	return buf.Bytes(), nil
}

// Title returns the text of the first level-one ATX heading in src, or the
// base name of name without its extension.
func Title(src []byte, name string) string {
	for line := range strings.SplitSeq(string(src), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
