// Package extract finds subscription links in arbitrary text and proxy
// nodes in fetched subscription bodies.
//
// Link extraction never fails: text that cannot be parsed simply yields
// no links. Node extraction tries, in order, a plain node list, a
// base64-encoded node list and a Clash YAML document, and returns the
// first non-empty result.
package extract
