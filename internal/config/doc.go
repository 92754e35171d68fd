// Package config provides the configuration for upsub: where links are
// collected from, how feeds are fetched, how artifacts are written, and
// the optional commit and notification steps.
package config
