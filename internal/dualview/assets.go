package dualview

import (
	_ "embed"

	"github.com/nao1215/codeflip/internal/page"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

//go:embed assets/toggle.js
var toggleScript string

// Asset identifiers used with page.InjectAsset.
const (
	ToggleScriptID  = "codeflip-toggle"
	HighlightCSSID  = "codeflip-highlight"
	containerCSSID  = "codeflip-dualview"
	containerStyles = "[data-codeflip] > [hidden] { display: none; }\n"
)

// InjectAssets adds the client toggle script and, when opts asks for
// highlighting, the chroma stylesheet. Each asset is added at most once
// per document.
func InjectAssets(doc *html.Node, opts Options) {
	page.InjectAsset(doc, atom.Style, containerCSSID, containerStyles)
	if opts.Toggle {
		page.InjectAsset(doc, atom.Script, ToggleScriptID, toggleScript)
	}
	if opts.DerivedLanguage != "" {
		if css := HighlightCSS(opts.HighlightStyle); css != "" {
			page.InjectAsset(doc, atom.Style, HighlightCSSID, css)
		}
	}
}
