package dualview

import (
	"errors"
	"strings"
	"testing"

	"github.com/nao1215/codeflip/internal/page"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func parse(t *testing.T, src string) *html.Node {
	t.Helper()

	doc, err := page.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	return doc
}

func hidden(n *html.Node) bool {
	return page.HasAttr(n, "hidden")
}

// TestBuild tests dual view construction.
func TestBuild(t *testing.T) {
	t.Parallel()

	t.Run("original visible and derived hidden", func(t *testing.T) {
		t.Parallel()

		doc := parse(t, `<body><pre>x = 1</pre></body>`)
		block := page.FindFirst(doc, atom.Pre)

		v := Build(block, "var x = 1;", DefaultOptions())

		if got := page.TextContent(v.Original()); got != "x = 1" {
			t.Errorf("expected original text %q, got %q", "x = 1", got)
		}
		if hidden(v.Original()) {
			t.Error("original must be visible")
		}
		if got := page.TextContent(v.Derived()); got != "var x = 1;" {
			t.Errorf("expected derived text %q, got %q", "var x = 1;", got)
		}
		if !hidden(v.Derived()) {
			t.Error("derived must be hidden")
		}
		if v.State() != ShowingOriginal {
			t.Errorf("expected initial state original, got %s", v.State())
		}
	})

	t.Run("does not modify the block", func(t *testing.T) {
		t.Parallel()

		doc := parse(t, `<body><pre class="src"><b>x</b> = 1</pre></body>`)
		before := page.RenderString(doc)
		block := page.FindFirst(doc, atom.Pre)

		v := Build(block, "var x = 1;", DefaultOptions())

		if page.RenderString(doc) != before {
			t.Error("Build must not touch the page")
		}
		if v.Container().Parent != nil {
			t.Error("container must be detached before commit")
		}
		if page.RenderString(v.Original()) != page.RenderString(block) {
			t.Errorf("original must preserve markup: %s", page.RenderString(v.Original()))
		}
	})

	t.Run("children are original, derived, control in order", func(t *testing.T) {
		t.Parallel()

		doc := parse(t, `<pre>x</pre>`)
		v := Build(page.FindFirst(doc, atom.Pre), "y", DefaultOptions())

		c := v.Container()
		if c.FirstChild != v.Original() {
			t.Error("first child must be the original")
		}
		if v.Original().NextSibling != v.Derived() {
			t.Error("second child must be the derived rendering")
		}
		if v.Derived().NextSibling != v.Control() || v.Control().NextSibling != nil {
			t.Error("third and last child must be the control")
		}
		if !page.HasClass(c, DefaultContainerClass) {
			t.Error("container must carry the container class")
		}
		if page.Attr(c, "data-codeflip") != "toggle" {
			t.Errorf("unexpected mode attribute %q", page.Attr(c, "data-codeflip"))
		}
	})

	t.Run("derived is pre with inline code", func(t *testing.T) {
		t.Parallel()

		v := Build(page.FindFirst(parse(t, `<pre>x</pre>`), atom.Pre), "a < b && c", DefaultOptions())

		d := v.Derived()
		if d.DataAtom != atom.Pre || d.FirstChild == nil || d.FirstChild.DataAtom != atom.Code {
			t.Fatalf("unexpected derived structure %s", page.RenderString(d))
		}
		if got := page.RenderString(d); got != `<pre hidden=""><code>a &lt; b &amp;&amp; c</code></pre>` {
			t.Errorf("unexpected derived markup %s", got)
		}
	})
}

// TestControl tests the control variants.
func TestControl(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		kind     ToggleKind
		wantAtom atom.Atom
		wantAttr string
	}{
		{name: "button kind", kind: ToggleButton, wantAtom: atom.Button, wantAttr: "type"},
		{name: "div kind", kind: ToggleDiv, wantAtom: atom.Div, wantAttr: "role"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			opts := DefaultOptions()
			opts.ToggleKind = tt.kind
			v := Build(page.FindFirst(parse(t, `<pre>x</pre>`), atom.Pre), "y", opts)

			c := v.Control()
			if c == nil || c.DataAtom != tt.wantAtom {
				t.Fatalf("expected %s control, got %v", tt.wantAtom, c)
			}
			if !page.HasAttr(c, tt.wantAttr) {
				t.Errorf("expected %s attribute", tt.wantAttr)
			}
			if page.Attr(c, "title") != DefaultTooltip {
				t.Errorf("unexpected tooltip %q", page.Attr(c, "title"))
			}
			if !page.HasClass(c, DefaultControlClass) || !page.HasAttr(c, ControlAttr) {
				t.Error("control must carry its class and marker attribute")
			}
			if tt.kind == ToggleDiv && page.Attr(c, "tabindex") != "0" {
				t.Error("div control must be focusable")
			}
		})
	}
}

// TestToggle tests the visibility state machine.
func TestToggle(t *testing.T) {
	t.Parallel()

	t.Run("one activation flips, two restore", func(t *testing.T) {
		t.Parallel()

		v := Build(page.FindFirst(parse(t, `<pre>x</pre>`), atom.Pre), "y", DefaultOptions())

		if s := v.Toggle(); s != ShowingDerived {
			t.Fatalf("expected derived after one toggle, got %s", s)
		}
		if !hidden(v.Original()) || hidden(v.Derived()) {
			t.Error("after one toggle only the derived rendering must be visible")
		}
		if s := v.Toggle(); s != ShowingOriginal {
			t.Fatalf("expected original after two toggles, got %s", s)
		}
		if hidden(v.Original()) || !hidden(v.Derived()) {
			t.Error("after two toggles only the original rendering must be visible")
		}
	})

	t.Run("exactly one rendering is visible at every step", func(t *testing.T) {
		t.Parallel()

		v := Build(page.FindFirst(parse(t, `<pre>x</pre>`), atom.Pre), "y", DefaultOptions())
		for i := range 7 {
			if hidden(v.Original()) == hidden(v.Derived()) {
				t.Fatalf("step %d: both renderings have the same visibility", i)
			}
			v.Toggle()
		}
	})

	t.Run("static view has no control and shows both", func(t *testing.T) {
		t.Parallel()

		opts := DefaultOptions()
		opts.Toggle = false
		v := Build(page.FindFirst(parse(t, `<pre>x</pre>`), atom.Pre), "y", opts)

		if v.Control() != nil || v.Toggles() {
			t.Error("static view must not have a control")
		}
		if hidden(v.Original()) || hidden(v.Derived()) {
			t.Error("static view must show both renderings")
		}
		if v.Toggle() != ShowingBoth || v.State() != ShowingBoth {
			t.Error("toggle on a static view must be a no-op")
		}
		if v.Derived().NextSibling != nil {
			t.Error("derived must be the last child of a static view")
		}
		if page.Attr(v.Container(), "data-codeflip") != "static" {
			t.Error("static container must be marked static")
		}
	})
}

// TestCommit tests swapping the view into the page.
func TestCommit(t *testing.T) {
	t.Parallel()

	t.Run("replaces the block in place", func(t *testing.T) {
		t.Parallel()

		doc := parse(t, `<body><p>a</p><pre>x = 1</pre><p>b</p></body>`)
		block := page.FindFirst(doc, atom.Pre)
		v := Build(block, "var x = 1;", DefaultOptions())

		if err := v.Commit(block); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if block.Parent != nil {
			t.Error("block must be detached after commit")
		}

		body := page.FindFirst(doc, atom.Body)
		first := body.FirstChild
		if first.NextSibling != v.Container() || v.Container().NextSibling.DataAtom != atom.P {
			t.Errorf("container not at the block position: %s", page.RenderString(body))
		}
	})

	t.Run("detached block", func(t *testing.T) {
		t.Parallel()

		block := page.NewElement(atom.Pre)
		v := Build(block, "y", DefaultOptions())

		if err := v.Commit(block); !errors.Is(err, ErrDetached) {
			t.Errorf("expected ErrDetached, got %v", err)
		}
	})

	t.Run("second commit", func(t *testing.T) {
		t.Parallel()

		doc := parse(t, `<body><pre>a</pre><pre>b</pre></body>`)
		blocks := page.SelectAll(doc, "pre")
		v := Build(blocks[0], "y", DefaultOptions())

		if err := v.Commit(blocks[0]); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := v.Commit(blocks[1]); !errors.Is(err, ErrCommitted) {
			t.Errorf("expected ErrCommitted, got %v", err)
		}
	})
}

// TestHighlight tests chroma highlighting of the derived block.
func TestHighlight(t *testing.T) {
	t.Parallel()

	t.Run("known language keeps text content exact", func(t *testing.T) {
		t.Parallel()

		opts := DefaultOptions()
		opts.DerivedLanguage = "javascript"
		out := "var x = 1;"
		v := Build(page.FindFirst(parse(t, `<pre>x = 1</pre>`), atom.Pre), out, opts)

		code := v.Derived().FirstChild
		if page.Attr(code, "class") != "language-javascript" {
			t.Errorf("unexpected code class %q", page.Attr(code, "class"))
		}
		if got := page.TextContent(v.Derived()); got != out {
			t.Errorf("expected text %q, got %q", out, got)
		}
		if !page.HasClass(v.Derived(), "chroma") {
			t.Error("expected chroma class on highlighted block")
		}
		if page.FindFirst(code, atom.Span) == nil {
			t.Error("expected token spans")
		}
	})

	t.Run("unknown language falls back to plain text", func(t *testing.T) {
		t.Parallel()

		opts := DefaultOptions()
		opts.DerivedLanguage = "no-such-language-xyz"
		v := Build(page.FindFirst(parse(t, `<pre>x</pre>`), atom.Pre), "plain", opts)

		code := v.Derived().FirstChild
		if code.FirstChild == nil || code.FirstChild.Type != html.TextNode || code.FirstChild.Data != "plain" {
			t.Errorf("expected a single text node, got %s", page.RenderString(code))
		}
	})

	t.Run("css is produced for a style", func(t *testing.T) {
		t.Parallel()

		if css := HighlightCSS("github"); !strings.Contains(css, ".chroma") {
			t.Errorf("expected chroma css, got %q", css)
		}
	})
}

// TestInjectAssets tests client asset injection.
func TestInjectAssets(t *testing.T) {
	t.Parallel()

	doc := parse(t, `<html><head></head><body></body></html>`)
	opts := DefaultOptions()
	InjectAssets(doc, opts)
	InjectAssets(doc, opts)

	out := page.RenderString(doc)
	if strings.Count(out, `data-codeflip-asset="`+ToggleScriptID+`"`) != 1 {
		t.Errorf("expected one toggle script: %s", out)
	}
	if !strings.Contains(out, "data-codeflip-toggle") {
		t.Error("script must reference the control attribute")
	}
	for _, want := range []string{`"keydown"`, `"Enter"`, `" "`} {
		if !strings.Contains(toggleScript, want) {
			t.Errorf("toggle script must handle keyboard activation of div controls, missing %s", want)
		}
	}

	static := parse(t, `<html><head></head><body></body></html>`)
	opts.Toggle = false
	InjectAssets(static, opts)
	if strings.Contains(page.RenderString(static), ToggleScriptID) {
		t.Error("static views do not need the toggle script")
	}
}

// TestOptionsValidate tests option validation.
func TestOptionsValidate(t *testing.T) {
	t.Parallel()

	if err := DefaultOptions().Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	opts := DefaultOptions()
	opts.ToggleKind = "link"
	if err := opts.Validate(); !errors.Is(err, ErrUnknownToggleKind) {
		t.Errorf("expected ErrUnknownToggleKind, got %v", err)
	}
}
