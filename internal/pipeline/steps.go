package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/lo"

	"github.com/hzm1213/upsub/internal/extract"
	"github.com/hzm1213/upsub/internal/fetch"
	"github.com/hzm1213/upsub/internal/model"
	"github.com/hzm1213/upsub/internal/node"
	"github.com/hzm1213/upsub/internal/rename"
)

// Step names, as recorded in LinkResult.PerformedSteps.
const (
	StepFetch     = "fetch"
	StepExtract   = "extract"
	StepNormalize = "normalize"
	StepDedup     = "dedup"
	StepRename    = "rename"
)

// FetchStep downloads the link body.
type FetchStep struct {
	fetcher fetch.Fetcher
	logger  *slog.Logger
}

// NewFetchStep creates a fetch step using the given fetcher.
func NewFetchStep(fetcher fetch.Fetcher, logger *slog.Logger) *FetchStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &FetchStep{fetcher: fetcher, logger: logger}
}

// Name returns the step name.
func (s *FetchStep) Name() string {
	return StepFetch
}

// Do fetches the body. Any fetch failure skips the link.
func (s *FetchStep) Do(ctx context.Context, result *model.LinkResult) error {
	body, err := s.fetcher.Fetch(ctx, result.Link.URL)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Info("fetch failed", "link", result.Link.URL, "error", err)
		result.Skip(model.LinkStatusFetchFailed, err.Error())
		return fmt.Errorf("%w: %w", ErrSkip, err)
	}
	result.Body = body
	result.BodySize = len(body)
	return nil
}

// ExtractStep finds the proxy nodes in the fetched body.
type ExtractStep struct {
	logger *slog.Logger
}

// NewExtractStep creates a node extraction step.
func NewExtractStep(logger *slog.Logger) *ExtractStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractStep{logger: logger}
}

// Name returns the step name.
func (s *ExtractStep) Name() string {
	return StepExtract
}

// Do extracts nodes. A body without nodes skips the link.
func (s *ExtractStep) Do(_ context.Context, result *model.LinkResult) error {
	nodes, src := extract.NodesWithSource(result.Body)
	result.RawCount = len(nodes)
	if len(nodes) == 0 {
		result.Skip(model.LinkStatusNoNodes, "no proxy nodes found")
		return ErrSkip
	}
	s.logger.Debug("nodes extracted",
		"link", result.Link.URL,
		"count", len(nodes),
		"source", src,
	)
	result.Nodes = nodes
	result.Status = model.LinkStatusOK
	// The body is no longer needed once nodes are extracted.
	result.Body = ""
	return nil
}

// NormalizeStep fixes known label mistakes and marks nodes with no region.
type NormalizeStep struct {
	normalizer node.Normalizer
}

// NewNormalizeStep creates a normalization step.
func NewNormalizeStep(normalizer node.Normalizer) *NormalizeStep {
	return &NormalizeStep{normalizer: normalizer}
}

// Name returns the step name.
func (s *NormalizeStep) Name() string {
	return StepNormalize
}

// Do normalizes every node label.
func (s *NormalizeStep) Do(_ context.Context, result *model.LinkResult) error {
	result.Nodes = lo.Map(result.Nodes, func(raw string, _ int) string {
		return s.normalizer.Normalize(raw)
	})
	return nil
}

// DedupStep removes duplicate nodes, keeping the first occurrence.
type DedupStep struct{}

// NewDedupStep creates a deduplication step.
func NewDedupStep() *DedupStep {
	return &DedupStep{}
}

// Name returns the step name.
func (s *DedupStep) Name() string {
	return StepDedup
}

// Do deduplicates the nodes.
func (s *DedupStep) Do(_ context.Context, result *model.LinkResult) error {
	result.Nodes = node.Dedup(result.Nodes)
	return nil
}

// RenameStep rewrites every node label into the numbered regional form.
type RenameStep struct {
	rewriter *rename.Rewriter
}

// NewRenameStep creates a rename step. The rewriter's picker must be
// safe for concurrent use when the batch runs links in parallel.
func NewRenameStep(rewriter *rename.Rewriter) *RenameStep {
	return &RenameStep{rewriter: rewriter}
}

// Name returns the step name.
func (s *RenameStep) Name() string {
	return StepRename
}

// Do rewrites the labels.
func (s *RenameStep) Do(_ context.Context, result *model.LinkResult) error {
	result.Nodes = s.rewriter.Rewrite(result.Nodes)
	return nil
}

// Factory returns a function building the standard per-link pipeline:
// fetch, extract, normalize, dedup and, when rewriter is non-nil, rename.
func Factory(fetcher fetch.Fetcher, normalizer node.Normalizer, rewriter *rename.Rewriter, logger *slog.Logger, opts ...Option) func() *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return func() *Pipeline {
		p := New(append([]Option{WithLogger(logger)}, opts...)...)
		p.AddSteps(
			NewFetchStep(fetcher, logger),
			NewExtractStep(logger),
			NewNormalizeStep(normalizer),
			NewDedupStep(),
		)
		if rewriter != nil {
			p.AddStep(NewRenameStep(rewriter))
		}
		return p
	}
}
