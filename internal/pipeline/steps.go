package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/codeflip/internal/dualview"
	"github.com/nao1215/codeflip/internal/footnote"
	"github.com/nao1215/codeflip/internal/markdown"
	"github.com/nao1215/codeflip/internal/model"
	"github.com/nao1215/codeflip/internal/page"
	"github.com/nao1215/codeflip/internal/scanner"
	"github.com/nao1215/codeflip/internal/transform"
	"golang.org/x/sync/errgroup"
)

// DefaultBlockConcurrency is the default number of concurrent transforms
// within one page.
const DefaultBlockConcurrency = 4

// ParseStep parses the raw input of a page into an HTML tree.
// Markdown inputs are rendered to HTML first. Pages that already carry a
// tree are left alone.
type ParseStep struct {
	renderer *markdown.Renderer
}

// NewParseStep creates a parse step. A nil renderer gets the default
// Markdown renderer.
func NewParseStep(renderer *markdown.Renderer) *ParseStep {
	if renderer == nil {
		renderer = markdown.NewRenderer()
	}
	return &ParseStep{renderer: renderer}
}

// Name returns the step name.
func (s *ParseStep) Name() string {
	return "parse"
}

// Do executes the parse step.
func (s *ParseStep) Do(_ context.Context, pg *model.Page, _ *model.Report) error {
	if pg.Doc != nil {
		return nil
	}

	raw := pg.Raw
	if pg.Format == model.FormatMarkdown {
		rendered, err := s.renderer.Render(raw, pg.Path)
		if err != nil {
			return fmt.Errorf("render %s: %w", pg.Path, err)
		}
		raw = rendered
	}

	doc, err := page.Parse(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("parse %s: %w", pg.Path, err)
	}
	pg.Doc = doc
	return nil
}

// DualViewStep replaces every accepted source block with a dual view of the
// block and its transformed output.
type DualViewStep struct {
	transformer transform.Transformer
	policy      scanner.Policy
	options     dualview.Options
	concurrency int
	logger      *slog.Logger
}

// DualViewStepOption configures a DualViewStep.
type DualViewStepOption func(*DualViewStep)

// WithPolicy sets the block selection policy.
func WithPolicy(policy scanner.Policy) DualViewStepOption {
	return func(s *DualViewStep) {
		s.policy = policy
	}
}

// WithViewOptions sets the dual view rendering options.
func WithViewOptions(opts dualview.Options) DualViewStepOption {
	return func(s *DualViewStep) {
		s.options = opts
	}
}

// WithBlockConcurrency sets the maximum number of concurrent transforms.
func WithBlockConcurrency(n int) DualViewStepOption {
	return func(s *DualViewStep) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithDualViewLogger sets a custom logger for the step.
func WithDualViewLogger(logger *slog.Logger) DualViewStepOption {
	return func(s *DualViewStep) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewDualViewStep creates a dual view step around t.
func NewDualViewStep(t transform.Transformer, opts ...DualViewStepOption) *DualViewStep {
	s := &DualViewStep{
		transformer: t,
		options:     dualview.DefaultOptions(),
		concurrency: DefaultBlockConcurrency,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *DualViewStep) Name() string {
	return "dualview"
}

type transformResult struct {
	output string
	err    error
}

// Do executes the dual view step.
//
// Transforms run concurrently and their results are kept by position.
// Commits are then applied one by one in document order, so the final
// order of blocks mirrors the input whatever order the transforms finish in.
// A failed transform leaves its block untouched.
func (s *DualViewStep) Do(ctx context.Context, pg *model.Page, report *model.Report) error {
	if pg.Doc == nil {
		return fmt.Errorf("dualview %s: page has not been parsed", pg.Path)
	}

	seq := scanner.Scan(pg.Doc, s.policy)
	report.PreElements = seq.Candidates()
	blocks := seq.Collect()
	if len(blocks) == 0 {
		return nil
	}

	results := make([]transformResult, len(blocks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, block := range blocks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := s.transformer.Transform(gctx, block.Text)
			results[i] = transformResult{output: out, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	converted := 0
	for i, block := range blocks {
		result := model.BlockResult{Index: block.Index}
		res := results[i]

		switch {
		case res.err == nil:
			view := dualview.Build(block.Node, res.output, s.options)
			if err := view.Commit(block.Node); err != nil {
				return fmt.Errorf("commit block %d of %s: %w", block.Index, pg.Path, err)
			}
			result.Outcome = model.OutcomeConverted
			converted++
		case transform.IsCompilationError(res.err):
			s.logger.Debug("source block not converted",
				"page", pg.Path,
				"block", block.Index,
				"source", block.Text,
				"error", res.err,
			)
			result.Outcome = model.OutcomeFailed
			result.Message = res.err.Error()
		default:
			s.logger.Warn("transformer error",
				"page", pg.Path,
				"block", block.Index,
				"transformer", transform.IDOf(s.transformer),
				"error", res.err,
			)
			result.Outcome = model.OutcomeErrored
			result.Message = res.err.Error()
		}

		report.Blocks = append(report.Blocks, result)
	}

	if converted > 0 {
		dualview.InjectAssets(pg.Doc, s.options)
	}

	s.logger.Debug("dual views built",
		"page", pg.Path,
		"converted", converted,
		"candidates", len(blocks),
	)

	return nil
}

// FootnoteStep appends the printable references list to the page.
type FootnoteStep struct {
	options footnote.Options
	logger  *slog.Logger
}

// NewFootnoteStep creates a footnote step.
func NewFootnoteStep(opts footnote.Options, logger *slog.Logger) *FootnoteStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &FootnoteStep{options: opts, logger: logger}
}

// Name returns the step name.
func (s *FootnoteStep) Name() string {
	return "footnote"
}

// Do executes the footnote step. The page's base URL takes precedence over
// the configured one.
func (s *FootnoteStep) Do(_ context.Context, pg *model.Page, report *model.Report) error {
	if pg.Doc == nil {
		return fmt.Errorf("footnote %s: page has not been parsed", pg.Path)
	}

	opts := s.options
	if pg.BaseURL != nil {
		opts.BaseURL = pg.BaseURL
	}

	entries, err := footnote.Build(pg.Doc, opts)
	if err != nil {
		return fmt.Errorf("footnote %s: %w", pg.Path, err)
	}
	report.Footnotes = len(entries)

	if len(entries) > 0 {
		s.logger.Debug("footnotes added",
			"page", pg.Path,
			"count", len(entries),
		)
	}
	return nil
}
