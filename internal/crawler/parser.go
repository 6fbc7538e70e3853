package crawler

import (
	"io"
	"net/url"
	"strings"

	"github.com/nao1215/codeflip/internal/page"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Parser parses fetched HTML and classifies its links.
type Parser struct {
	// baseURL is the URL of the page being parsed, used for resolving
	// relative URLs.
	baseURL *url.URL
}

// ParseResult holds the parsed tree and the links found in it.
type ParseResult struct {
	// Doc is the parsed document.
	Doc *html.Node

	// Title is the page title from the <title> tag.
	Title string

	// Links contains all resolved link targets in document order.
	Links []string

	// InternalLinks are links to the same host.
	InternalLinks []string

	// ExternalLinks are links to other hosts.
	ExternalLinks []string
}

// NewParser creates a new HTML parser with the given base URL.
// The base URL is used to resolve relative links.
func NewParser(baseURL string) (*Parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &Parser{baseURL: u}, nil
}

// Parse parses HTML content and extracts its links.
// A <base href> element overrides the parser's base URL.
func (p *Parser) Parse(content io.Reader) (*ParseResult, error) {
	doc, err := page.Parse(content)
	if err != nil {
		return nil, err
	}

	result := &ParseResult{Doc: doc}
	base := p.baseURL
	if b := page.FindFirst(doc, atom.Base); b != nil {
		if u, err := url.Parse(page.Attr(b, "href")); err == nil {
			base = p.baseURL.ResolveReference(u)
		}
	}
	if t := page.FindFirst(doc, atom.Title); t != nil {
		result.Title = strings.TrimSpace(page.TextContent(t))
	}

	seen := make(map[string]bool)
	for _, a := range page.SelectAll(doc, "a[href]") {
		link := resolveURL(base, page.Attr(a, "href"))
		if link == "" || seen[link] {
			continue
		}
		seen[link] = true
		result.Links = append(result.Links, link)
		p.classifyLink(link, result)
	}
	return result, nil
}

// resolveURL resolves href against base. Non-navigational schemes and
// bare fragments resolve to "". The fragment is dropped.
func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(u)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	resolved.Fragment = ""
	return resolved.String()
}

// classifyLink categorizes a link as internal or external.
func (p *Parser) classifyLink(link string, result *ParseResult) {
	u, err := url.Parse(link)
	if err != nil {
		return
	}
	if strings.EqualFold(u.Host, p.baseURL.Host) {
		result.InternalLinks = append(result.InternalLinks, link)
		return
	}
	result.ExternalLinks = append(result.ExternalLinks, link)
}
