package footnote

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/nao1215/codeflip/internal/page"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Default option values.
const (
	DefaultRoot           = "#content"
	DefaultPrintOnlyClass = "print_only"
	DefaultLabel          = "References"
	DefaultNoFollow       = "nofollow"
)

// ListAttr marks the wrapper of an inserted footnote list.
const ListAttr = "data-codeflip-footnotes"

// PrintCSSID is the asset id of the print-only stylesheet.
const PrintCSSID = "codeflip-print"

// Options configures the footnote builder.
type Options struct {
	// Root is a CSS selector for the container whose links are collected
	// and to which the list is appended.
	Root string

	// PrintOnlyClass hides markers and the list except in print output.
	PrintOnlyClass string

	// Label is the heading text of the list.
	Label string

	// NoFollow is the rel token that excludes a link.
	NoFollow string

	// BaseURL qualifies root-relative targets when IncludeRelative is set.
	BaseURL *url.URL

	// IncludeRelative also collects root-relative links ("/path").
	IncludeRelative bool

	// InjectStyle adds the print-only stylesheet when a list is inserted.
	InjectStyle bool
}

// DefaultOptions returns the default builder options.
func DefaultOptions() Options {
	return Options{
		Root:           DefaultRoot,
		PrintOnlyClass: DefaultPrintOnlyClass,
		Label:          DefaultLabel,
		NoFollow:       DefaultNoFollow,
		InjectStyle:    true,
	}
}

// Entry is one collected link.
type Entry struct {
	// Number is the 1-based footnote number.
	Number int

	// Text is the link text before the marker was added.
	Text string

	// Target is the fully-qualified link target.
	Target string
}

// Build collects the qualifying links under the root container, appends
// the markers and the list, and returns the entries in encounter order.
// When the root is missing, already holds a list, or no link qualifies,
// the document is left unchanged and no entries are returned.
func Build(doc *html.Node, opts Options) ([]Entry, error) {
	sel, err := page.Compile(opts.Root)
	if err != nil {
		return nil, err
	}
	root := sel.MatchFirst(doc)
	if root == nil || page.SelectFirst(root, "["+ListAttr+"]") != nil {
		return nil, nil
	}

	links := page.SelectAll(root, "a[href]")
	var entries []Entry
	var matched []*html.Node
	for _, a := range links {
		target, ok := qualify(a, opts)
		if !ok {
			continue
		}
		entries = append(entries, Entry{
			Number: len(entries) + 1,
			Text:   page.TextContent(a),
			Target: target,
		})
		matched = append(matched, a)
	}
	if len(entries) == 0 {
		return nil, nil
	}

	list := page.NewElement(atom.Ol)
	for i, a := range matched {
		marker := page.NewElement(atom.Span)
		page.AddClass(marker, opts.PrintOnlyClass)
		marker.AppendChild(page.NewText(" [" + strconv.Itoa(entries[i].Number) + "]"))
		a.AppendChild(marker)

		li := page.NewElement(atom.Li)
		li.AppendChild(page.NewText(entries[i].Target))
		list.AppendChild(li)
	}

	wrapper := page.NewElement(atom.Div,
		html.Attribute{Key: "style", Val: "clear: both"},
		html.Attribute{Key: ListAttr, Val: strconv.Itoa(len(entries))},
	)
	page.AddClass(wrapper, opts.PrintOnlyClass)
	label := page.NewElement(atom.P)
	label.AppendChild(page.NewText(opts.Label))
	wrapper.AppendChild(label)
	wrapper.AppendChild(list)
	root.AppendChild(wrapper)

	if opts.InjectStyle && opts.PrintOnlyClass != "" {
		page.InjectAsset(doc, atom.Style, PrintCSSID, PrintCSS(opts.PrintOnlyClass))
	}
	return entries, nil
}

// qualify returns the fully-qualified target of a and whether the link
// takes part.
func qualify(a *html.Node, opts Options) (string, bool) {
	if opts.NoFollow != "" && page.HasToken(a, "rel", opts.NoFollow) {
		return "", false
	}
	href := strings.TrimSpace(page.Attr(a, "href"))
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return href, true
	}
	if !opts.IncludeRelative || opts.BaseURL == nil {
		return "", false
	}
	if !strings.HasPrefix(href, "/") || strings.HasPrefix(href, "//") {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	return opts.BaseURL.ResolveReference(ref).String(), true
}

// PrintCSS returns a stylesheet that hides class on screen and shows it in print.
func PrintCSS(class string) string {
	return fmt.Sprintf(".%[1]s { display: none; }\n@media print { .%[1]s { display: inherit; } }\n", class)
}
