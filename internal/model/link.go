package model

import (
	"net/url"
	"sort"
	"strings"
)

// Link is a candidate subscription URL discovered in source text.
// Two links are the same link if and only if their URL strings are equal.
type Link struct {
	// URL is the link exactly as it appeared in the source text.
	URL string `json:"url"`

	// Scheme is "http" or "https".
	Scheme string `json:"scheme"`

	// Host is the host part of the URL including the port, if any.
	Host string `json:"host"`

	// Path is the path component of the URL.
	Path string `json:"path,omitempty"`
}

// NewLink parses rawURL into a Link.
// Parsing is lenient: a URL that net/url rejects still yields a Link whose
// URL field is set, because extraction only guarantees the http(s) shape.
func NewLink(rawURL string) Link {
	link := Link{URL: rawURL}
	u, err := url.Parse(rawURL)
	if err != nil {
		if scheme, _, ok := strings.Cut(rawURL, "://"); ok {
			link.Scheme = strings.ToLower(scheme)
		}
		return link
	}
	link.Scheme = strings.ToLower(u.Scheme)
	link.Host = u.Host
	link.Path = u.Path
	return link
}

// String returns the URL.
func (l Link) String() string {
	return l.URL
}

// LinkSet is a deduplicating set of link URLs.
type LinkSet map[string]struct{}

// NewLinkSet creates a set containing the given URLs.
func NewLinkSet(urls ...string) LinkSet {
	s := make(LinkSet, len(urls))
	s.Add(urls...)
	return s
}

// Add inserts URLs into the set.
func (s LinkSet) Add(urls ...string) {
	for _, u := range urls {
		s[u] = struct{}{}
	}
}

// Merge adds every member of other to s.
func (s LinkSet) Merge(other LinkSet) {
	for u := range other {
		s[u] = struct{}{}
	}
}

// Has reports whether u is a member of the set.
func (s LinkSet) Has(u string) bool {
	_, ok := s[u]
	return ok
}

// Sorted returns the members in lexical order.
// Output numbering is derived from this order, so it must be stable.
func (s LinkSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for u := range s {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}
