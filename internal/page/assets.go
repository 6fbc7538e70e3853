package page

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// AssetAttr identifies elements injected by InjectAsset.
const AssetAttr = "data-codeflip-asset"

// InjectAsset adds an inline <script> or <style> element holding content to
// the document, once per id. Styles go to <head>, scripts to the end of
// <body>; when the preferred parent is missing the other one is used. It
// reports whether the element was added.
func InjectAsset(doc *html.Node, tag atom.Atom, id, content string) bool {
	if tag != atom.Script && tag != atom.Style {
		return false
	}
	if hasAsset(doc, id) {
		return false
	}

	head := FindFirst(doc, atom.Head)
	body := FindFirst(doc, atom.Body)
	parent := head
	if tag == atom.Script || parent == nil {
		parent = body
	}
	if parent == nil {
		parent = head
	}
	if parent == nil {
		return false
	}

	el := NewElement(tag, html.Attribute{Key: AssetAttr, Val: id})
	el.AppendChild(NewText(content))
	parent.AppendChild(el)
	return true
}

func hasAsset(n *html.Node, id string) bool {
	if n.Type == html.ElementNode && Attr(n, AssetAttr) == id {
		return true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if hasAsset(c, id) {
			return true
		}
	}
	return false
}
