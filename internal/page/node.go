package page

import (
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Parse parses a full HTML document. Fragments are wrapped in the usual
// html/head/body skeleton by the parser.
func Parse(r io.Reader) (*html.Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}
	return doc, nil
}

// Render writes the document back out as HTML.
func Render(w io.Writer, doc *html.Node) error {
	if err := html.Render(w, doc); err != nil {
		return fmt.Errorf("rendering html: %w", err)
	}
	return nil
}

// RenderString renders a node to a string. It is mostly useful in tests and logs.
func RenderString(n *html.Node) string {
	var sb strings.Builder
	if err := html.Render(&sb, n); err != nil {
		return ""
	}
	return sb.String()
}

// Attr returns the value of the attribute key, or "" if it is absent.
func Attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key && a.Namespace == "" {
			return a.Val
		}
	}
	return ""
}

// HasAttr reports whether n carries the attribute key, regardless of value.
func HasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key && a.Namespace == "" {
			return true
		}
	}
	return false
}

// SetAttr sets key to val, replacing an existing value.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key && a.Namespace == "" {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes every occurrence of key from n.
func RemoveAttr(n *html.Node, key string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key == key && a.Namespace == "" {
			continue
		}
		kept = append(kept, a)
	}
	n.Attr = kept
}

// HasClass reports whether the class attribute of n contains class as a
// whitespace-separated token.
func HasClass(n *html.Node, class string) bool {
	if n == nil || n.Type != html.ElementNode || class == "" {
		return false
	}
	for _, c := range strings.Fields(Attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// AddClass appends class to the class attribute unless it is already there.
func AddClass(n *html.Node, class string) {
	if class == "" || HasClass(n, class) {
		return
	}
	existing := strings.TrimSpace(Attr(n, "class"))
	if existing == "" {
		SetAttr(n, "class", class)
		return
	}
	SetAttr(n, "class", existing+" "+class)
}

// HasToken reports whether a space-separated attribute such as rel contains
// token, compared case-insensitively.
func HasToken(n *html.Node, key, token string) bool {
	for _, t := range strings.Fields(Attr(n, key)) {
		if strings.EqualFold(t, token) {
			return true
		}
	}
	return false
}

// TextContent concatenates every descendant text node of n, like the DOM
// textContent property. Comments are not included.
func TextContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// Clone returns a deep copy of n. The copy is detached: it has no parent
// and no siblings.
func Clone(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	if len(n.Attr) > 0 {
		c.Attr = make([]html.Attribute, len(n.Attr))
		copy(c.Attr, n.Attr)
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(Clone(child))
	}
	return c
}

// PrevElementSibling returns the closest preceding sibling that is an
// element, stepping over text and comment nodes. It returns nil when there
// is none.
func PrevElementSibling(n *html.Node) *html.Node {
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

// NewElement creates a detached element node for the given atom.
func NewElement(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: a,
		Data:     a.String(),
		Attr:     attrs,
	}
}

// NewText creates a detached text node.
func NewText(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// Replace puts repl where old is in the tree. old ends up detached.
// It returns false if old has no parent.
func Replace(old, repl *html.Node) bool {
	parent := old.Parent
	if parent == nil {
		return false
	}
	parent.InsertBefore(repl, old)
	parent.RemoveChild(old)
	return true
}

// FindFirst returns the first element in document order whose atom is a,
// or nil if there is none.
func FindFirst(root *html.Node, a atom.Atom) *html.Node {
	if root.Type == html.ElementNode && root.DataAtom == a {
		return root
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if found := FindFirst(c, a); found != nil {
			return found
		}
	}
	return nil
}

// Compile parses a CSS selector.
func Compile(selector string) (cascadia.Selector, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	return sel, nil
}

// SelectAll returns the nodes under root (root included) matching the CSS
// selector, in document order. An invalid selector matches nothing.
func SelectAll(root *html.Node, selector string) []*html.Node {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil
	}
	return sel.MatchAll(root)
}

// SelectFirst returns the first node matching selector, or nil.
func SelectFirst(root *html.Node, selector string) *html.Node {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil
	}
	return sel.MatchFirst(root)
}
