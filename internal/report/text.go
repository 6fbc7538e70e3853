package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/nao1215/codeflip/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ruleWidth is the width of the separator lines.
const ruleWidth = 60

// TextWriter outputs human-readable reports for terminal display.
type TextWriter struct {
	baseWriter

	// verbose lists every page, not only those with failures.
	verbose bool

	// colorize enables ANSI colours.
	colorize bool

	title cases.Caser
}

// TextWriterOption configures a TextWriter.
type TextWriterOption func(*TextWriter)

// WithVerbose lists every processed page and the compiler message of
// every failed block.
func WithVerbose(verbose bool) TextWriterOption {
	return func(w *TextWriter) {
		w.verbose = verbose
	}
}

// WithColor enables or disables ANSI colours regardless of the terminal.
func WithColor(enabled bool) TextWriterOption {
	return func(w *TextWriter) {
		w.colorize = enabled
	}
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
// Colours default to on when stdout is a terminal.
func NewTextWriter(output io.Writer, opts ...TextWriterOption) *TextWriter {
	w := &TextWriter{
		baseWriter: newBaseWriter(output),
		colorize:   !color.NoColor,
		title:      cases.Title(language.English),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the summary in human-readable format.
func (w *TextWriter) Write(summary *model.Summary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeTotals(&sb, summary)
	w.writePages(&sb, summary)

	return io.WriteString(w.output, sb.String())
}

// paint returns a formatter for attrs that honours the writer's colour
// setting.
func (w *TextWriter) paint(attrs ...color.Attribute) func(a ...any) string {
	c := color.New(attrs...)
	if w.colorize {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c.SprintFunc()
}

func (w *TextWriter) writeHeader(sb *strings.Builder, summary *model.Summary) {
	bold := w.paint(color.Bold)

	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(bold("codeflip run"))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "Started:   %s\n", summary.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Duration:  %s\n", summary.Duration.Round(time.Millisecond))
	fmt.Fprintf(sb, "Pages:     %d\n", summary.Pages)
	sb.WriteString("\n")
}

func (w *TextWriter) writeTotals(sb *strings.Builder, summary *model.Summary) {
	rows := []struct {
		label string
		count int
		attrs []color.Attribute
	}{
		{model.OutcomeConverted.String(), summary.Converted, []color.Attribute{color.FgGreen}},
		{model.OutcomeFailed.String(), summary.Failed, []color.Attribute{color.FgYellow}},
		{"skipped", summary.Skipped, []color.Attribute{color.FgCyan}},
		{"footnotes", summary.Footnotes, nil},
		{"page errors", summary.Errors, []color.Attribute{color.FgRed, color.Bold}},
	}
	for _, row := range rows {
		value := fmt.Sprintf("%d", row.count)
		if row.count > 0 && row.attrs != nil {
			value = w.paint(row.attrs...)(value)
		}
		fmt.Fprintf(sb, "  %-12s %s\n", w.title.String(row.label)+":", value)
	}
	sb.WriteString("\n")
}

func (w *TextWriter) writePages(sb *strings.Builder, summary *model.Summary) {
	red := w.paint(color.FgRed)
	yellow := w.paint(color.FgYellow)

	var wrote bool
	for _, r := range summary.Reports {
		interesting := r.Error != "" || r.Failed() > 0
		if !interesting && !w.verbose {
			continue
		}
		if !wrote {
			sb.WriteString(strings.Repeat("-", ruleWidth))
			sb.WriteString("\n")
			wrote = true
		}

		status := w.title.String(pageStatus(r))
		if r.Error != "" {
			status = red(status)
		}
		fmt.Fprintf(sb, "%s [%s] converted=%d failed=%d skipped=%d footnotes=%d\n",
			r.Page, status, r.Converted(), r.Failed(), r.Skipped(), r.Footnotes)
		if r.Error != "" {
			fmt.Fprintf(sb, "    %s\n", red(r.Error))
		}
		for _, b := range r.Blocks {
			if b.Outcome == model.OutcomeConverted {
				continue
			}
			fmt.Fprintf(sb, "    block %d: %s", b.Index, yellow(b.Outcome.String()))
			if w.verbose && b.Message != "" {
				fmt.Fprintf(sb, ": %s", firstLine(b.Message))
			}
			sb.WriteString("\n")
		}
	}
	if wrote {
		sb.WriteString("\n")
	}
}

// firstLine returns the first non-empty line of s.
func firstLine(s string) string {
	for line := range strings.Lines(s) {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
