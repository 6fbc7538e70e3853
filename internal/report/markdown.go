package report

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/codeflip/internal/model"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs summaries in Markdown format.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the summary in Markdown format.
func (w *MarkdownWriter) Write(summary *model.Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeTotals(md, summary)
	w.writePages(md, summary)
	w.writeFailures(md, summary)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, summary *model.Summary) {
	md.H1("codeflip Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Started", summary.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", summary.Duration.Round(time.Millisecond).String()},
			{"Pages", strconv.Itoa(summary.Pages)},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeTotals(md *markdown.Markdown, summary *model.Summary) {
	md.H2("Blocks")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows: [][]string{
			{"Converted", strconv.Itoa(summary.Converted)},
			{"Failed", strconv.Itoa(summary.Failed)},
			{"Skipped", strconv.Itoa(summary.Skipped)},
			{"Footnotes", strconv.Itoa(summary.Footnotes)},
		},
	})
	md.PlainText("")

	if summary.Converted+summary.Failed+summary.Skipped > 0 {
		w.writePieChart(md, summary)
	}

	switch {
	case summary.Errors > 0:
		md.Cautionf("%d page(s) could not be processed.", summary.Errors)
	case summary.Failed > 0:
		md.Warningf("%d block(s) were left untouched because the transformer failed.", summary.Failed)
	case summary.Converted == 0:
		md.Note("No source blocks were converted.")
	default:
		md.Tip("All candidate blocks were converted.")
	}
	md.PlainText("")
}

// writePieChart writes a mermaid pie chart of block outcomes.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary *model.Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Block Outcomes"),
		piechart.WithShowData(true),
	)
	if summary.Converted > 0 {
		chart.LabelAndIntValue("Converted", uint64(summary.Converted))
	}
	if summary.Failed > 0 {
		chart.LabelAndIntValue("Failed", uint64(summary.Failed))
	}
	if summary.Skipped > 0 {
		chart.LabelAndIntValue("Skipped", uint64(summary.Skipped))
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writePages(md *markdown.Markdown, summary *model.Summary) {
	md.H2("Pages")
	md.PlainText("")

	if len(summary.Reports) == 0 {
		md.PlainText("No pages processed.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(summary.Reports))
	for i, r := range summary.Reports {
		rows[i] = []string{
			"`" + r.Page + "`",
			strconv.Itoa(r.Converted()),
			strconv.Itoa(r.Failed()),
			strconv.Itoa(r.Skipped()),
			strconv.Itoa(r.Footnotes),
			pageStatus(r),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Page", "Converted", "Failed", "Skipped", "Footnotes", "Status"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFailures lists failed blocks with their diagnostics.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, summary *model.Summary) {
	var rows [][]string
	for _, r := range summary.Reports {
		if r.Error != "" {
			rows = append(rows, []string{"`" + r.Page + "`", "-", "aborted", cell(r.Error)})
		}
		for _, b := range r.Blocks {
			if b.Outcome == model.OutcomeConverted {
				continue
			}
			rows = append(rows, []string{
				"`" + r.Page + "`",
				strconv.Itoa(b.Index),
				b.Outcome.String(),
				cell(b.Message),
			})
		}
	}
	if len(rows) == 0 {
		return
	}

	md.H2("Failures")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Page", "Block", "Outcome", "Message"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [codeflip](https://github.com/nao1215/codeflip)*")
}

// cell flattens s into a single table cell.
func cell(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.ReplaceAll(s, "|", `\|`)
	return truncateString(s, 80)
}

// truncateString truncates s to maxLen bytes with an ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
