package page

import (
	"strings"
	"testing"

	"golang.org/x/net/html/atom"
)

// TestInjectAsset tests inline asset injection.
func TestInjectAsset(t *testing.T) {
	t.Parallel()

	t.Run("styles go to head and scripts to body, once each", func(t *testing.T) {
		t.Parallel()

		doc := mustParse(t, `<html><head><title>t</title></head><body><p>x</p></body></html>`)

		if !InjectAsset(doc, atom.Style, "print", ".a{}") {
			t.Fatal("expected style to be injected")
		}
		if InjectAsset(doc, atom.Style, "print", ".a{}") {
			t.Error("expected second injection to be a no-op")
		}
		if !InjectAsset(doc, atom.Script, "toggle", "var a = 1 < 2;") {
			t.Fatal("expected script to be injected")
		}

		head := RenderString(FindFirst(doc, atom.Head))
		if !strings.Contains(head, `<style data-codeflip-asset="print">.a{}</style>`) {
			t.Errorf("style not in head: %s", head)
		}
		body := RenderString(FindFirst(doc, atom.Body))
		if !strings.HasSuffix(body, `<script data-codeflip-asset="toggle">var a = 1 < 2;</script></body>`) {
			t.Errorf("script not at end of body: %s", body)
		}
	})

	t.Run("rejects other tags", func(t *testing.T) {
		t.Parallel()

		doc := mustParse(t, `<p>x</p>`)
		if InjectAsset(doc, atom.Div, "x", "") {
			t.Error("expected only script and style to be accepted")
		}
	})
}
