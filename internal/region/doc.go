// Package region provides the ordered flag/code lookup table used to
// detect the region of a node label.
//
// The table is an explicit sequence rather than a map so that
// first-match detection is the same on every run. A default table is
// embedded in the binary; a replacement can be loaded from a YAML file.
package region
