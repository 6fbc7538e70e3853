package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/codeflip/internal/model"
	"golang.org/x/sync/errgroup"
)

// DefaultPageConcurrency is the default number of pages processed at once.
const DefaultPageConcurrency = 4

// BatchProcessor handles concurrent processing of multiple pages.
// Each page gets a fresh pipeline from the factory and owns its own tree.
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each page, so per-page
	// settings can differ.
	pipelineFactory func(*model.Page) *Pipeline

	// concurrency is the maximum number of concurrent pages.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent pages.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(pipelineFactory func(*model.Page) *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultPageConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// process runs a fresh pipeline over one page.
func (bp *BatchProcessor) process(ctx context.Context, pg *model.Page) *model.Report {
	report := model.NewReport(pg.Path)
	start := time.Now()
	if err := bp.pipelineFactory(pg).Execute(ctx, pg, report); err != nil {
		bp.logger.Warn("page failed",
			"page", pg.Path,
			"error", err,
		)
	}
	report.Duration = time.Since(start)
	return report
}

// ProcessBatch processes pages concurrently and returns their reports in
// input order. A failing page does not stop the others; its error is
// recorded in its report. The returned error is the context error when the
// batch was cancelled. Pages not started before cancellation have a nil
// report.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, pages []*model.Page) ([]*model.Report, error) {
	bp.logger.Debug("starting batch processing",
		"total_pages", len(pages),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()
	results := make([]*model.Report, len(pages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, pg := range pages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = bp.process(gctx, pg)
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	bp.logger.Debug("batch processing complete",
		"total_pages", len(pages),
		"elapsed", time.Since(startTime),
	)

	return results, err
}

// ProcessBatchWithCallback processes pages and calls callback for each
// finished page with its index in pages. The callback runs on the worker
// goroutine and must be safe for concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	pages []*model.Page,
	callback func(report *model.Report, index int),
) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, pg := range pages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			callback(bp.process(gctx, pg), i)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
