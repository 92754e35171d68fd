// Package rename rewrites node labels into a uniform
// "<symbol><total><flag><code><seq>" form.
//
// The region of a node is detected from its current label. Only the label
// changes; for URI nodes everything before the fragment is kept byte for
// byte.
package rename
