package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/nao1215/codeflip/internal/dualview"
	"github.com/nao1215/codeflip/internal/footnote"
	"github.com/nao1215/codeflip/internal/scanner"
)

// Default project file values.
const (
	// DefaultMarker is the class that opts a block out of conversion.
	DefaultMarker = "no_toggle"

	// DefaultDerivedLanguage labels and highlights the compiled output.
	DefaultDerivedLanguage = "javascript"
)

// DefaultIncludes are the input patterns used when the project file names none.
var DefaultIncludes = []string{"**/*.html", "**/*.htm", "**/*.md", "**/*.markdown"}

// TransformerSection configures the external compiler.
type TransformerSection struct {
	// Command is the compiler command line. The source is written to its
	// stdin and the output read from its stdout.
	Command string `yaml:"command,omitempty"`

	// Timeout bounds a single invocation. Zero keeps the CLI value.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// Env holds extra KEY=VALUE environment entries.
	Env []string `yaml:"env,omitempty"`
}

// ScanSection configures which blocks are converted.
type ScanSection struct {
	// Mode is "opt-out" or "opt-in".
	Mode scanner.Mode `yaml:"mode,omitempty"`

	// Marker is the class looked up on the preceding sibling element.
	Marker string `yaml:"marker,omitempty"`
}

// DualViewSection configures the rendering of dual views.
type DualViewSection struct {
	// Toggle enables the control; nil keeps the default.
	Toggle *bool `yaml:"toggle,omitempty"`

	// ToggleKind is "button" or "div".
	ToggleKind dualview.ToggleKind `yaml:"toggle_kind,omitempty"`

	// Tooltip is the control's title.
	Tooltip string `yaml:"tooltip,omitempty"`

	// ContainerClass is the class of the wrapping element.
	ContainerClass string `yaml:"container_class,omitempty"`

	// ControlClass is the class of the control.
	ControlClass string `yaml:"control_class,omitempty"`

	// DerivedLanguage highlights the compiled output. "none" disables it.
	DerivedLanguage string `yaml:"derived_language,omitempty"`

	// HighlightStyle is the chroma style name.
	HighlightStyle string `yaml:"highlight_style,omitempty"`
}

// FootnoteSection configures the printable references list.
type FootnoteSection struct {
	// Enabled turns the list on or off; nil keeps the inherited value
	// (on by default).
	Enabled *bool `yaml:"enabled,omitempty"`

	// Root is the CSS selector of the container holding the links.
	Root string `yaml:"root,omitempty"`

	// PrintOnlyClass is the class of print-only elements.
	PrintOnlyClass string `yaml:"print_only_class,omitempty"`

	// Label is the list heading.
	Label string `yaml:"label,omitempty"`

	// BaseURL qualifies root-relative links.
	BaseURL string `yaml:"base_url,omitempty"`

	// IncludeRelative also lists root-relative links.
	IncludeRelative bool `yaml:"include_relative,omitempty"`

	// NoFollow is the rel token that excludes a link.
	NoFollow string `yaml:"nofollow,omitempty"`
}

// Override applies settings to the inputs matching Pattern.
type Override struct {
	// Pattern is a doublestar glob matched against the slash-separated
	// input path relative to its root.
	Pattern string `yaml:"pattern"`

	// Scan overrides the scan settings.
	Scan ScanSection `yaml:"scan,omitempty"`

	// DualView overrides the dual view settings.
	DualView DualViewSection `yaml:"dualview,omitempty"`

	// Footnotes overrides the footnote settings.
	Footnotes FootnoteSection `yaml:"footnotes,omitempty"`
}

// File represents the structure of the .codeflip.yaml project file.
type File struct {
	// Transformer configures the external compiler.
	Transformer TransformerSection `yaml:"transformer,omitempty"`

	// Scan configures block selection.
	Scan ScanSection `yaml:"scan,omitempty"`

	// DualView configures dual view rendering.
	DualView DualViewSection `yaml:"dualview,omitempty"`

	// Footnotes configures the references list.
	Footnotes FootnoteSection `yaml:"footnotes,omitempty"`

	// Include lists the glob patterns of inputs found in directories.
	Include []string `yaml:"include,omitempty"`

	// Exclude lists glob patterns of inputs to skip.
	Exclude []string `yaml:"exclude,omitempty"`

	// Overrides holds per-path settings, applied in order.
	Overrides []Override `yaml:"overrides,omitempty"`
}

// PageSettings is the effective configuration for one input.
type PageSettings struct {
	// Policy selects the blocks to convert.
	Policy scanner.Policy

	// View configures the dual views.
	View dualview.Options

	// Footnotes configures the list; nil when disabled.
	Footnotes *footnote.Options
}

// DefaultFile returns the project settings used when no file is found.
func DefaultFile() *File {
	toggle := true
	enabled := true
	return &File{
		Scan: ScanSection{
			Mode:   scanner.ModeOptOut,
			Marker: DefaultMarker,
		},
		DualView: DualViewSection{
			Toggle:          &toggle,
			ToggleKind:      dualview.ToggleButton,
			Tooltip:         dualview.DefaultTooltip,
			ContainerClass:  dualview.DefaultContainerClass,
			ControlClass:    dualview.DefaultControlClass,
			DerivedLanguage: DefaultDerivedLanguage,
			HighlightStyle:  dualview.DefaultHighlightStyle,
		},
		Footnotes: FootnoteSection{
			Enabled:        &enabled,
			Root:           footnote.DefaultRoot,
			PrintOnlyClass: footnote.DefaultPrintOnlyClass,
			Label:          footnote.DefaultLabel,
			NoFollow:       footnote.DefaultNoFollow,
		},
		Include: DefaultIncludes,
	}
}

// Validate checks the enumerated values and glob patterns of the file.
func (f *File) Validate() error {
	if err := validateSections(f.Scan, f.DualView, f.Footnotes); err != nil {
		return err
	}
	for _, o := range f.Overrides {
		if !doublestar.ValidatePattern(o.Pattern) {
			return fmt.Errorf("%w: %q", ErrInvalidPattern, o.Pattern)
		}
		if err := validateSections(o.Scan, o.DualView, o.Footnotes); err != nil {
			return fmt.Errorf("override %q: %w", o.Pattern, err)
		}
	}
	for _, p := range f.Include {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("%w: %q", ErrInvalidPattern, p)
		}
	}
	for _, p := range f.Exclude {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("%w: %q", ErrInvalidPattern, p)
		}
	}
	return nil
}

func validateSections(scan ScanSection, view DualViewSection, foot FootnoteSection) error {
	if scan.Mode != "" && scan.Mode.Validate() != nil {
		return fmt.Errorf("%w: %q", ErrInvalidMode, scan.Mode)
	}
	if view.ToggleKind != "" {
		opts := dualview.Options{ToggleKind: view.ToggleKind}
		if opts.Validate() != nil {
			return fmt.Errorf("%w: %q", ErrInvalidToggleKind, view.ToggleKind)
		}
	}
	if foot.BaseURL != "" {
		return validateBaseURL(foot.BaseURL)
	}
	return nil
}

// Settings returns the effective settings for the input at rel, a
// slash-separated path relative to its input root. Overrides whose pattern
// matches rel are merged over the top-level sections in file order.
func (f *File) Settings(rel string) PageSettings {
	scan := f.Scan
	view := f.DualView
	foot := f.Footnotes

	rel = filepath.ToSlash(rel)
	for _, o := range f.Overrides {
		if ok, err := doublestar.Match(o.Pattern, rel); err != nil || !ok {
			continue
		}
		mergeScan(&scan, o.Scan)
		mergeView(&view, o.DualView)
		mergeFootnotes(&foot, o.Footnotes)
	}

	settings := PageSettings{
		Policy: scanner.Policy{Mode: scan.Mode, Marker: scan.Marker},
		View:   viewOptions(view),
	}
	if foot.Enabled != nil && *foot.Enabled {
		opts := footnote.DefaultOptions()
		opts.Root = orDefault(foot.Root, opts.Root)
		opts.PrintOnlyClass = orDefault(foot.PrintOnlyClass, opts.PrintOnlyClass)
		opts.Label = orDefault(foot.Label, opts.Label)
		opts.NoFollow = orDefault(foot.NoFollow, opts.NoFollow)
		opts.IncludeRelative = foot.IncludeRelative
		if foot.BaseURL != "" {
			if u, err := url.Parse(foot.BaseURL); err == nil {
				opts.BaseURL = u
			}
		}
		settings.Footnotes = &opts
	}
	return settings
}

// Excluded reports whether rel matches an exclude pattern.
func (f *File) Excluded(rel string) bool {
	return matchAny(f.Exclude, filepath.ToSlash(rel))
}

// Included reports whether rel matches an include pattern. An empty
// include list uses DefaultIncludes.
func (f *File) Included(rel string) bool {
	includes := f.Include
	if len(includes) == 0 {
		includes = DefaultIncludes
	}
	return matchAny(includes, filepath.ToSlash(rel))
}

func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, rel); err == nil && ok {
			return true
		}
	}
	return false
}

func viewOptions(s DualViewSection) dualview.Options {
	opts := dualview.DefaultOptions()
	if s.Toggle != nil {
		opts.Toggle = *s.Toggle
	}
	if s.ToggleKind != "" {
		opts.ToggleKind = s.ToggleKind
	}
	opts.Tooltip = orDefault(s.Tooltip, opts.Tooltip)
	opts.ContainerClass = orDefault(s.ContainerClass, opts.ContainerClass)
	opts.ControlClass = orDefault(s.ControlClass, opts.ControlClass)
	opts.HighlightStyle = orDefault(s.HighlightStyle, opts.HighlightStyle)
	if s.DerivedLanguage != "none" {
		opts.DerivedLanguage = s.DerivedLanguage
	}
	return opts
}

func mergeScan(dst *ScanSection, src ScanSection) {
	if src.Mode != "" {
		dst.Mode = src.Mode
	}
	if src.Marker != "" {
		dst.Marker = src.Marker
	}
}

func mergeView(dst *DualViewSection, src DualViewSection) {
	if src.Toggle != nil {
		dst.Toggle = src.Toggle
	}
	if src.ToggleKind != "" {
		dst.ToggleKind = src.ToggleKind
	}
	dst.Tooltip = orDefault(src.Tooltip, dst.Tooltip)
	dst.ContainerClass = orDefault(src.ContainerClass, dst.ContainerClass)
	dst.ControlClass = orDefault(src.ControlClass, dst.ControlClass)
	dst.DerivedLanguage = orDefault(src.DerivedLanguage, dst.DerivedLanguage)
	dst.HighlightStyle = orDefault(src.HighlightStyle, dst.HighlightStyle)
}

func mergeFootnotes(dst *FootnoteSection, src FootnoteSection) {
	if src.Enabled != nil {
		dst.Enabled = src.Enabled
	}
	if src.IncludeRelative {
		dst.IncludeRelative = true
	}
	dst.Root = orDefault(src.Root, dst.Root)
	dst.PrintOnlyClass = orDefault(src.PrintOnlyClass, dst.PrintOnlyClass)
	dst.Label = orDefault(src.Label, dst.Label)
	dst.BaseURL = orDefault(src.BaseURL, dst.BaseURL)
	dst.NoFollow = orDefault(src.NoFollow, dst.NoFollow)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
