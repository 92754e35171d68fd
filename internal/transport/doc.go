// Package transport provides the network paths subscription fetches can
// take: a plain SOCKS5 proxy, or a Tor daemon started on demand through
// tornago and used as a SOCKS5 proxy.
//
// Components receive an *http.Client built here rather than reading proxy
// settings from global state.
package transport
