package dualview

import (
	"errors"

	"github.com/nao1215/codeflip/internal/page"
	"github.com/nao1215/codeflip/internal/scanner"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ControlAttr marks the control element; the client script listens for
// clicks on elements carrying it.
const ControlAttr = "data-codeflip-toggle"

const hiddenAttr = "hidden"

var (
	// ErrDetached is returned by Commit when the block has no parent.
	ErrDetached = errors.New("source block is not attached to a document")

	// ErrCommitted is returned by Commit when the view is already in a tree.
	ErrCommitted = errors.New("dual view is already committed")
)

// State is the visibility state of a DualView.
type State int

const (
	// ShowingOriginal means the original rendering is visible.
	ShowingOriginal State = iota

	// ShowingDerived means the derived rendering is visible.
	ShowingDerived

	// ShowingBoth is the state of a static view without a control.
	ShowingBoth
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case ShowingOriginal:
		return "original"
	case ShowingDerived:
		return "derived"
	case ShowingBoth:
		return "both"
	default:
		return "unknown"
	}
}

// DualView owns a container holding the original rendering, the derived
// rendering and, when toggling is enabled, the control. None of these nodes
// are shared with any other view.
type DualView struct {
	container *html.Node
	original  *html.Node
	derived   *html.Node
	control   *html.Node
}

// Build constructs a detached DualView for block with the derived text.
// block itself is not modified.
func Build(block *html.Node, derived string, opts Options) *DualView {
	v := &DualView{
		original: page.Clone(block),
		derived:  derivedBlock(derived, opts),
	}

	mode := "static"
	if opts.Toggle {
		mode = "toggle"
		page.RemoveAttr(v.original, hiddenAttr)
		page.SetAttr(v.derived, hiddenAttr, "")
		v.control = newControl(opts)
	}

	v.container = page.NewElement(atom.Div, html.Attribute{Key: scanner.ProcessedAttr, Val: mode})
	page.AddClass(v.container, opts.ContainerClass)
	v.container.AppendChild(v.original)
	v.container.AppendChild(v.derived)
	if v.control != nil {
		v.container.AppendChild(v.control)
	}
	return v
}

// derivedBlock renders text as <pre><code>text</code></pre>.
func derivedBlock(text string, opts Options) *html.Node {
	pre := page.NewElement(atom.Pre)
	code := page.NewElement(atom.Code)
	pre.AppendChild(code)

	if opts.DerivedLanguage != "" {
		page.SetAttr(code, "class", "language-"+opts.DerivedLanguage)
		if highlight(code, text, opts.DerivedLanguage) {
			page.AddClass(pre, "chroma")
			return pre
		}
	}
	code.AppendChild(page.NewText(text))
	return pre
}

func newControl(opts Options) *html.Node {
	var control *html.Node
	if opts.ToggleKind == ToggleDiv {
		control = page.NewElement(atom.Div,
			html.Attribute{Key: "role", Val: "button"},
			html.Attribute{Key: "tabindex", Val: "0"},
		)
	} else {
		control = page.NewElement(atom.Button, html.Attribute{Key: "type", Val: "button"})
	}
	page.AddClass(control, opts.ControlClass)
	page.SetAttr(control, "title", opts.Tooltip)
	page.SetAttr(control, ControlAttr, "")
	return control
}

// Container returns the wrapping element.
func (v *DualView) Container() *html.Node { return v.container }

// Original returns the cloned original rendering.
func (v *DualView) Original() *html.Node { return v.original }

// Derived returns the derived rendering.
func (v *DualView) Derived() *html.Node { return v.derived }

// Control returns the control element, or nil for a static view.
func (v *DualView) Control() *html.Node { return v.control }

// Toggles reports whether the view has a control.
func (v *DualView) Toggles() bool { return v.control != nil }

// State returns the current visibility state.
func (v *DualView) State() State {
	if v.control == nil {
		return ShowingBoth
	}
	if page.HasAttr(v.original, hiddenAttr) {
		return ShowingDerived
	}
	return ShowingOriginal
}

// Toggle flips the visibility of both renderings and returns the new state.
// It does nothing on a static view.
func (v *DualView) Toggle() State {
	if v.control == nil {
		return ShowingBoth
	}
	if v.State() == ShowingOriginal {
		page.SetAttr(v.original, hiddenAttr, "")
		page.RemoveAttr(v.derived, hiddenAttr)
		return ShowingDerived
	}
	page.RemoveAttr(v.original, hiddenAttr)
	page.SetAttr(v.derived, hiddenAttr, "")
	return ShowingOriginal
}

// Commit replaces block with the view's container. After Commit, block is
// detached and the container sits at block's former position.
func (v *DualView) Commit(block *html.Node) error {
	if v.container.Parent != nil {
		return ErrCommitted
	}
	if !page.Replace(block, v.container) {
		return ErrDetached
	}
	return nil
}
