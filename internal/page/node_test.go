package page

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func mustParse(t *testing.T, src string) *html.Node {
	t.Helper()

	doc, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	return doc
}

// TestAttributes tests the attribute and class helpers.
func TestAttributes(t *testing.T) {
	t.Parallel()

	t.Run("reads, sets and removes attributes", func(t *testing.T) {
		t.Parallel()

		doc := mustParse(t, `<div id="a" title="x"></div>`)
		div := FindFirst(doc, atom.Div)

		if got := Attr(div, "title"); got != "x" {
			t.Errorf("expected title 'x', got %q", got)
		}
		SetAttr(div, "title", "y")
		if got := Attr(div, "title"); got != "y" {
			t.Errorf("expected title 'y', got %q", got)
		}
		SetAttr(div, "hidden", "")
		if !HasAttr(div, "hidden") {
			t.Error("expected hidden attribute to be present")
		}
		RemoveAttr(div, "hidden")
		if HasAttr(div, "hidden") {
			t.Error("expected hidden attribute to be removed")
		}
		if Attr(div, "missing") != "" {
			t.Error("expected empty value for missing attribute")
		}
	})

	t.Run("matches class tokens exactly", func(t *testing.T) {
		t.Parallel()

		doc := mustParse(t, `<p class="note  csscript"></p>`)
		p := FindFirst(doc, atom.P)

		if !HasClass(p, "csscript") {
			t.Error("expected csscript class")
		}
		if HasClass(p, "css") {
			t.Error("class matching must not use substrings")
		}

		AddClass(p, "extra")
		AddClass(p, "extra")
		if got := Attr(p, "class"); got != "note  csscript extra" {
			t.Errorf("unexpected class attribute %q", got)
		}
	})

	t.Run("matches rel tokens case-insensitively", func(t *testing.T) {
		t.Parallel()

		doc := mustParse(t, `<a rel="external NoFollow" href="#"></a>`)
		a := FindFirst(doc, atom.A)

		if !HasToken(a, "rel", "nofollow") {
			t.Error("expected nofollow token")
		}
		if HasToken(a, "rel", "noopener") {
			t.Error("did not expect noopener token")
		}
	})
}

// TestTextContent tests text extraction.
func TestTextContent(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, `<pre><span class="k">var</span> x = <!-- c -->1;</pre>`)
	pre := FindFirst(doc, atom.Pre)

	if got := TextContent(pre); got != "var x = 1;" {
		t.Errorf("expected %q, got %q", "var x = 1;", got)
	}
}

// TestClone tests deep cloning.
func TestClone(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, `<pre class="src"><code>x = 1</code></pre>`)
	pre := FindFirst(doc, atom.Pre)

	c := Clone(pre)

	if c.Parent != nil || c.NextSibling != nil || c.PrevSibling != nil {
		t.Error("clone must be detached")
	}
	if RenderString(c) != RenderString(pre) {
		t.Errorf("clone renders differently: %q vs %q", RenderString(c), RenderString(pre))
	}

	SetAttr(c, "class", "changed")
	if Attr(pre, "class") != "src" {
		t.Error("mutating the clone must not touch the original")
	}
}

// TestPrevElementSibling tests sibling lookup.
func TestPrevElementSibling(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, `<body><p id="m"></p>
	<!-- note -->
	<pre></pre></body>`)
	pre := FindFirst(doc, atom.Pre)

	prev := PrevElementSibling(pre)
	if prev == nil || Attr(prev, "id") != "m" {
		t.Fatalf("expected the <p> sibling, got %v", prev)
	}
	if PrevElementSibling(prev) != nil {
		t.Error("expected no element before the first child")
	}
}

// TestReplace tests swapping one node for another.
func TestReplace(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, `<body><p>a</p><pre>b</pre><p>c</p></body>`)
	pre := FindFirst(doc, atom.Pre)
	div := NewElement(atom.Div)
	div.AppendChild(NewText("B"))

	if !Replace(pre, div) {
		t.Fatal("expected replace to succeed")
	}
	if pre.Parent != nil {
		t.Error("replaced node must be detached")
	}

	body := FindFirst(doc, atom.Body)
	if got := RenderString(body); got != "<body><p>a</p><div>B</div><p>c</p></body>" {
		t.Errorf("unexpected body %q", got)
	}
	if Replace(pre, div) {
		t.Error("replacing a detached node must fail")
	}
}

// TestSelect tests CSS selection.
func TestSelect(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, `<div id="content"><a href="http://a">a</a><a href="/b">b</a></div><a href="http://c">c</a>`)

	links := SelectAll(doc, `#content a[href^=http]`)
	if len(links) != 1 {
		t.Fatalf("expected 1 link, got %d", len(links))
	}
	if SelectFirst(doc, "#content") == nil {
		t.Error("expected #content to be found")
	}
	if SelectAll(doc, "a[") != nil {
		t.Error("invalid selector must match nothing")
	}
	if _, err := Compile("a["); err == nil {
		t.Error("expected compile error for invalid selector")
	}
}
