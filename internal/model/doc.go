// Package model defines the core data structures used throughout upsub.
//
// This package contains the following main types:
//   - Link: A candidate subscription URL found in source text
//   - LinkResult: The per-link processing record carried through the pipeline
//   - Artifact: One numbered output file
//   - RunReport: The summary of a complete run
//
// The models live in their own package because the pipeline, output and
// report packages all need them. They serialize to JSON for report output.
package model
