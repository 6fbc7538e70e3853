package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/codeflip/internal/dualview"
	"github.com/nao1215/codeflip/internal/footnote"
	"github.com/nao1215/codeflip/internal/markdown"
	"github.com/nao1215/codeflip/internal/model"
	"github.com/nao1215/codeflip/internal/scanner"
	"github.com/nao1215/codeflip/internal/transform"
)

// Settings gathers what the default pipeline needs.
type Settings struct {
	// Transformer converts source blocks. Required.
	Transformer transform.Transformer

	// Policy selects the blocks to convert.
	Policy scanner.Policy

	// View configures the dual views.
	View dualview.Options

	// Footnotes configures the references list. Nil disables it.
	Footnotes *footnote.Options

	// Renderer renders Markdown inputs. Nil uses the default renderer.
	Renderer *markdown.Renderer

	// BlockConcurrency bounds concurrent transforms within one page.
	BlockConcurrency int

	// Logger is used by the pipeline and its steps.
	Logger *slog.Logger
}

// NewDefault builds the standard pipeline: parse, dual views, and
// footnotes when enabled.
func NewDefault(s Settings) *Pipeline {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := New(WithLogger(logger))
	p.AddStep(NewParseStep(s.Renderer))
	p.AddStep(NewDualViewStep(s.Transformer,
		WithPolicy(s.Policy),
		WithViewOptions(s.View),
		WithBlockConcurrency(s.BlockConcurrency),
		WithDualViewLogger(logger),
	))
	if s.Footnotes != nil {
		p.AddStep(NewFootnoteStep(*s.Footnotes, logger))
	}
	return p
}

// Initialize processes one page with the default pipeline and returns its
// report. The page's tree is modified in place. The returned error is
// non-nil only when processing aborted, for example on cancellation; the
// report is returned in every case.
func Initialize(ctx context.Context, pg *model.Page, s Settings) (*model.Report, error) {
	report := model.NewReport(pg.Path)
	start := time.Now()
	err := NewDefault(s).Execute(ctx, pg, report)
	report.Duration = time.Since(start)
	return report, err
}
