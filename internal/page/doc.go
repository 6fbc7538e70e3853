// Package page wraps golang.org/x/net/html trees with the small set of node
// operations codeflip needs: parsing and rendering documents, attribute and
// class helpers, text extraction, deep cloning and CSS selection.
//
// Every function works on *html.Node values directly so callers can mix
// these helpers with the x/net/html API.
//
// # Usage
//
//	doc, err := page.Parse(strings.NewReader(src))
//	for _, pre := range page.SelectAll(doc, "pre") {
//		fmt.Println(page.TextContent(pre))
//	}
//	err = page.Render(os.Stdout, doc)
package page
