package dualview

import (
	"errors"
	"fmt"
)

// ToggleKind selects the element used for the control.
type ToggleKind string

const (
	// ToggleButton renders the control as <button type="button">.
	ToggleButton ToggleKind = "button"

	// ToggleDiv renders the control as <div role="button">.
	ToggleDiv ToggleKind = "div"
)

// Default option values.
const (
	DefaultTooltip        = "Click to toggle between CoffeeScript & JavaScript"
	DefaultContainerClass = "wrap"
	DefaultControlClass   = "handle"
	DefaultHighlightStyle = "github"
)

// ErrUnknownToggleKind is returned for a ToggleKind other than button or div.
var ErrUnknownToggleKind = errors.New("unknown toggle kind")

// Options configures how a DualView is rendered.
type Options struct {
	// Toggle enables the control. When false both renderings are stacked
	// and stay visible.
	Toggle bool

	// ToggleKind is the element kind of the control.
	ToggleKind ToggleKind

	// Tooltip is the title attribute of the control.
	Tooltip string

	// ContainerClass is the class of the wrapping <div>.
	ContainerClass string

	// ControlClass is the class of the control.
	ControlClass string

	// DerivedLanguage, when set, labels the derived <code> with
	// language-<name> and highlights it with chroma.
	DerivedLanguage string

	// HighlightStyle names the chroma style used for the injected CSS.
	HighlightStyle string
}

// DefaultOptions returns the options of the toggling button variant.
func DefaultOptions() Options {
	return Options{
		Toggle:         true,
		ToggleKind:     ToggleButton,
		Tooltip:        DefaultTooltip,
		ContainerClass: DefaultContainerClass,
		ControlClass:   DefaultControlClass,
		HighlightStyle: DefaultHighlightStyle,
	}
}

// Validate checks the option values.
func (o Options) Validate() error {
	switch o.ToggleKind {
	case ToggleButton, ToggleDiv:
	default:
		return fmt.Errorf("%w: %q (want %q or %q)", ErrUnknownToggleKind, o.ToggleKind, ToggleButton, ToggleDiv)
	}
	return nil
}
