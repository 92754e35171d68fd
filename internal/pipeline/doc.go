// Package pipeline runs subscription links through a sequence of steps:
// fetch, node extraction, remark normalization, deduplication and the
// optional remark rewrite.
//
// Each link gets its own Pipeline and LinkResult. The BatchProcessor runs
// pipelines with bounded concurrency and returns the results in link
// order, so artifact numbering never depends on completion order.
package pipeline
