package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hzm1213/upsub/internal/model"
)

// DefaultConcurrency processes links one at a time.
const DefaultConcurrency = 1

// BatchProcessor runs a fresh pipeline for each link with bounded
// concurrency.
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each link.
	pipelineFactory func() *Pipeline

	// concurrency is the maximum number of links processed at once.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// mu serializes result callbacks.
	mu sync.Mutex
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent links.
// Non-positive values keep the default.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// Process runs every link through its own pipeline. The returned slice is
// indexed like links, whatever order the links complete in. Links not
// started because of cancellation are marked cancelled, and the context
// error is returned alongside the results.
func (bp *BatchProcessor) Process(ctx context.Context, links []string) ([]*model.LinkResult, error) {
	return bp.ProcessWithCallback(ctx, links, nil)
}

// ProcessWithCallback is like Process and also calls callback after each
// link finishes. Calls are serialized, so the callback needs no locking of
// its own; done counts finished links.
func (bp *BatchProcessor) ProcessWithCallback(
	ctx context.Context,
	links []string,
	callback func(result *model.LinkResult, done, total int),
) ([]*model.LinkResult, error) {
	bp.logger.Info("starting batch processing",
		"total_links", len(links),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	results := make([]*model.LinkResult, len(links))
	for i, link := range links {
		results[i] = model.NewLinkResult(link, i)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)
	done := 0

	for i := range links {
		if gctx.Err() != nil {
			break
		}
		result := results[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			err := bp.pipelineFactory().Execute(gctx, result)

			bp.mu.Lock()
			done++
			if callback != nil {
				callback(result, done, len(links))
			}
			bp.mu.Unlock()

			if err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	for _, r := range results {
		if r.Status == model.LinkStatusPending && err != nil {
			r.Skip(model.LinkStatusCancelled, err.Error())
		}
	}

	bp.logger.Info("batch processing complete",
		"total_links", len(links),
		"elapsed", time.Since(startTime),
	)

	return results, err
}

// Number assigns artifact indexes 1..k, in slice order, to the results
// that produced nodes, and returns k. Other results get index 0.
func Number(results []*model.LinkResult) int {
	next := 0
	for _, r := range results {
		if r == nil || !r.HasNodes() {
			if r != nil {
				r.ArtifactIndex = 0
			}
			continue
		}
		next++
		r.ArtifactIndex = next
	}
	return next
}
