package dualview

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/nao1215/codeflip/internal/page"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// highlight appends chroma token spans for text to code. It reports false,
// leaving code untouched, when no lexer exists for lang or tokenising fails.
// The text content of the spans is always exactly text.
func highlight(code *html.Node, text, lang string) bool {
	lexer := lexers.Get(lang)
	if lexer == nil {
		return false
	}
	it, err := chroma.Coalesce(lexer).Tokenise(nil, text)
	if err != nil {
		return false
	}
	tokens := it.Tokens()

	// Some lexers append a trailing newline; trim whatever exceeds text.
	remaining := text
	var nodes []*html.Node
	for _, tok := range tokens {
		if remaining == "" {
			break
		}
		value := tok.Value
		if len(value) > len(remaining) {
			if !strings.HasPrefix(value, remaining) {
				return false
			}
			value = remaining
		} else if !strings.HasPrefix(remaining, value) {
			return false
		}
		remaining = remaining[len(value):]
		if value == "" {
			continue
		}
		nodes = append(nodes, tokenNode(tok.Type, value))
	}
	if remaining != "" {
		return false
	}

	for _, n := range nodes {
		code.AppendChild(n)
	}
	return true
}

func tokenNode(tt chroma.TokenType, value string) *html.Node {
	class := tokenClass(tt)
	if class == "" {
		return page.NewText(value)
	}
	span := page.NewElement(atom.Span, html.Attribute{Key: "class", Val: class})
	span.AppendChild(page.NewText(value))
	return span
}

func tokenClass(tt chroma.TokenType) string {
	if c := chroma.StandardTypes[tt]; c != "" {
		return c
	}
	if c := chroma.StandardTypes[tt.SubCategory()]; c != "" {
		return c
	}
	return chroma.StandardTypes[tt.Category()]
}

// HighlightCSS returns the stylesheet for the chroma classes used by
// highlighted derived blocks. Unknown styles fall back to chroma's default.
func HighlightCSS(styleName string) string {
	style := styles.Get(styleName)
	var sb strings.Builder
	if err := chromahtml.New(chromahtml.WithClasses(true)).WriteCSS(&sb, style); err != nil {
		return ""
	}
	return sb.String()
}
