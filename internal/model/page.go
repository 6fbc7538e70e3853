package model

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
)

// Format is the markup language of an input document.
type Format string

const (
	// FormatHTML is an HTML document, processed as-is.
	FormatHTML Format = "html"

	// FormatMarkdown is a Markdown document, rendered to HTML first.
	FormatMarkdown Format = "markdown"
)

// FormatOf returns the format implied by the file extension of path and
// whether the extension is supported.
func FormatOf(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return FormatHTML, true
	case ".md", ".markdown":
		return FormatMarkdown, true
	default:
		return "", false
	}
}

// Page is one document travelling through the pipeline.
// The steps mutate Doc in place; the page owns its tree exclusively.
type Page struct {
	// Path identifies the page, usually the input path relative to the
	// input root or the request path when serving.
	Path string `json:"path"`

	// Format is the format of Raw.
	Format Format `json:"format"`

	// BaseURL qualifies root-relative links for the footnote list.
	// Nil when no base is configured.
	BaseURL *url.URL `json:"-"`

	// Raw is the original input.
	Raw []byte `json:"-"`

	// Doc is the parsed HTML tree.
	Doc *html.Node `json:"-"`

	// Hash is the SHA-256 hash of Raw.
	// Used to skip unchanged inputs in watch mode.
	Hash string `json:"hash"`
}

// NewPage returns a page for raw input at path and computes its hash.
func NewPage(path string, format Format, raw []byte) *Page {
	p := &Page{
		Path:   path,
		Format: format,
		Raw:    raw,
	}
	p.ComputeHash()
	return p
}

// ComputeHash calculates and sets the SHA-256 hash of the page's raw content.
func (p *Page) ComputeHash() {
	if len(p.Raw) == 0 {
		p.Hash = ""
		return
	}

	hash := sha256.Sum256(p.Raw)
	p.Hash = hex.EncodeToString(hash[:])
}

// OutputPath returns the path of the rendered page: Markdown inputs get an
// .html extension, HTML inputs keep their name.
func (p *Page) OutputPath() string {
	if p.Format != FormatMarkdown {
		return p.Path
	}
	return strings.TrimSuffix(p.Path, filepath.Ext(p.Path)) + ".html"
}
