package model

import "time"

// LinkStatus describes how far a link got through the pipeline.
type LinkStatus string

const (
	// LinkStatusPending means the link has not been processed yet.
	LinkStatusPending LinkStatus = "pending"

	// LinkStatusFetchFailed means the HTTP fetch failed (network error,
	// timeout or non-2xx status).
	LinkStatusFetchFailed LinkStatus = "fetch_failed"

	// LinkStatusNoNodes means the body was fetched but no proxy nodes
	// could be extracted from it. The link is not a subscription feed.
	LinkStatusNoNodes LinkStatus = "no_nodes"

	// LinkStatusOK means nodes were extracted and the link produces an artifact.
	LinkStatusOK LinkStatus = "ok"

	// LinkStatusCancelled means processing stopped because the run was cancelled.
	LinkStatusCancelled LinkStatus = "cancelled"
)

// LinkResult is the per-link processing record passed through the pipeline.
// Each step reads what earlier steps produced and writes its own output.
type LinkResult struct {
	// Link is the subscription link being processed.
	Link Link `json:"link"`

	// Position is the 0-based position of the link in the sorted link list.
	Position int `json:"position"`

	// Status is the processing outcome.
	Status LinkStatus `json:"status"`

	// Body is the fetched (trimmed) response body.
	Body string `json:"-"`

	// BodySize is the size of the fetched body in bytes.
	BodySize int `json:"body_size,omitempty"`

	// RawCount is the number of nodes found before deduplication.
	RawCount int `json:"raw_count,omitempty"`

	// Nodes holds the current node list; later steps replace it.
	Nodes []string `json:"-"`

	// ErrorMessage is the reason the link was skipped, if any.
	ErrorMessage string `json:"error,omitempty"` //nolint:tagliatelle // error is conventional

	// PerformedSteps lists the steps that ran for this link, in order.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Elapsed is the wall time spent on the link.
	Elapsed time.Duration `json:"elapsed"`

	// ArtifactIndex is the 1-based output file number, or 0 if the link
	// produced no artifact.
	ArtifactIndex int `json:"artifact_index,omitempty"`
}

// NewLinkResult creates a pending result for the given URL.
func NewLinkResult(rawURL string, position int) *LinkResult {
	return &LinkResult{
		Link:     NewLink(rawURL),
		Position: position,
		Status:   LinkStatusPending,
	}
}

// Skip marks the result as skipped with the given status and reason.
func (r *LinkResult) Skip(status LinkStatus, reason string) {
	r.Status = status
	r.ErrorMessage = reason
}

// HasNodes reports whether the link produced at least one node.
func (r *LinkResult) HasNodes() bool {
	return r.Status == LinkStatusOK && len(r.Nodes) > 0
}
