// Package node understands proxy node descriptors well enough to read and
// replace their display label.
//
// A node is an opaque string. Its kind is recognized from the scheme prefix
// (vmess, vless, trojan, ss) or, for entries taken from a Clash proxy list,
// from its flow-style YAML mapping form. Nothing else about a node is
// validated: connection parameters are carried through byte for byte.
//
// Label locations:
//   - vmess: the "ps" field of the base64-encoded JSON payload
//   - vless, trojan, ss: the URI fragment after the first '#', percent-encoded
//   - Clash entries: the "name" key of the mapping
package node
