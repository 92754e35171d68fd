package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hzm1213/upsub/internal/model"
)

// ErrSkip is returned by a step to stop processing a link that is not a
// usable subscription (fetch failure, no nodes). The step records the
// reason in the result before returning it.
var ErrSkip = errors.New("link skipped")

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, each reading what earlier steps wrote
// to the LinkResult.
type Step interface {
	// Do executes the pipeline step.
	// Returning ErrSkip (or an error wrapping it) ends the link quietly;
	// any other error is logged and recorded in the result.
	Do(ctx context.Context, result *model.LinkResult) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a new Pipeline with the given options.
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
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps in sequence for one link.
//
// A skipped link returns nil: skipping is an outcome, not a failure.
// Cancellation marks the result cancelled and returns the context error.
func (p *Pipeline) Execute(ctx context.Context, result *model.LinkResult) error {
	start := time.Now()
	defer func() {
		result.Elapsed = time.Since(start)
	}()

	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"link", result.Link.URL,
				"reason", err,
			)
			result.Skip(model.LinkStatusCancelled, err.Error())
			return err
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"link", result.Link.URL,
		)

		err := step.Do(ctx, result)
		result.PerformedSteps = append(result.PerformedSteps, step.Name())

		switch {
		case err == nil:
		case errors.Is(err, ErrSkip):
			p.logger.Debug("link skipped",
				"step", step.Name(),
				"link", result.Link.URL,
				"status", result.Status,
				"reason", result.ErrorMessage,
			)
			return nil
		case ctx.Err() != nil:
			result.Skip(model.LinkStatusCancelled, ctx.Err().Error())
			return ctx.Err()
		default:
			p.logger.Error("step failed",
				"step", step.Name(),
				"link", result.Link.URL,
				"error", err,
			)
			result.ErrorMessage = err.Error()
			return err
		}
	}

	return nil
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
