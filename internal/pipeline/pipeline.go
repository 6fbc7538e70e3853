package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/codeflip/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence on the same page.
type Step interface {
	// Do executes the pipeline step.
	// It returns an error only when the page cannot be processed further;
	// per-block failures are recorded in the report.
	Do(ctx context.Context, page *model.Page, report *model.Report) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError determines whether to continue executing steps
	// after one fails. If false, the pipeline stops on first error.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to run the remaining steps
// after one fails. Context cancellation always stops the pipeline.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all pipeline steps in sequence on page.
// Cancellation is checked before each step. The first step error is
// recorded in the report. It is returned unless continueOnError is set, in
// which case Execute returns nil once the remaining steps have run.
func (p *Pipeline) Execute(ctx context.Context, page *model.Page, report *model.Report) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"page", page.Path,
				"reason", err,
			)
			report.Error = err.Error()
			return err
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"page", page.Path,
		)

		if err := step.Do(ctx, page, report); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"page", page.Path,
				"error", err,
			)

			if report.Error == "" {
				report.Error = err.Error()
			}
			if !p.continueOnError || ctx.Err() != nil {
				return err
			}
			continue
		}

		p.logger.Debug("step completed",
			"step", step.Name(),
			"page", page.Path,
		)
	}

	return nil
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
