package model

import "time"

// RunReport summarizes one complete run of the pipeline.
type RunReport struct {
	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the run ended.
	FinishedAt time.Time `json:"finished_at"`

	// OutputDir is the directory the artifacts were written to.
	OutputDir string `json:"output_dir"`

	// Links contains one result per unique link, in sorted link order.
	Links []*LinkResult `json:"links"`

	// Artifacts lists the produced output files in index order.
	Artifacts []Artifact `json:"artifacts"`

	// Cancelled is true if the run was interrupted before all links were processed.
	Cancelled bool `json:"cancelled,omitempty"`

	// Committed is true if the VCS sync created a commit.
	Committed bool `json:"committed,omitempty"`
}

// NewRunReport creates an empty report for a run starting now.
func NewRunReport(outputDir string) *RunReport {
	return &RunReport{
		StartedAt: time.Now(),
		OutputDir: outputDir,
		Links:     make([]*LinkResult, 0),
		Artifacts: make([]Artifact, 0),
	}
}

// Finish records the end time.
func (r *RunReport) Finish() {
	r.FinishedAt = time.Now()
}

// Elapsed returns the run duration.
func (r *RunReport) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// CountByStatus returns how many links ended with the given status.
func (r *RunReport) CountByStatus(status LinkStatus) int {
	n := 0
	for _, l := range r.Links {
		if l.Status == status {
			n++
		}
	}
	return n
}

// TotalNodes returns the number of nodes across all artifacts.
func (r *RunReport) TotalNodes() int {
	n := 0
	for _, a := range r.Artifacts {
		n += a.NodeCount
	}
	return n
}

// Skipped returns the links that did not produce an artifact.
func (r *RunReport) Skipped() []*LinkResult {
	out := make([]*LinkResult, 0)
	for _, l := range r.Links {
		if l.ArtifactIndex == 0 {
			out = append(out, l)
		}
	}
	return out
}
