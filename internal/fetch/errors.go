package fetch

import (
	"errors"
	"fmt"
)

// Kind classifies fetch failures.
type Kind int

const (
	// KindNetwork is a connection-level failure.
	KindNetwork Kind = iota
	// KindTimeout means the request or body read timed out.
	KindTimeout
	// KindStatus means the server answered with a non-2xx status.
	KindStatus
	// KindTooLarge means the body exceeded the configured limit.
	KindTooLarge
	// KindInvalidURL means the URL is malformed or not http(s).
	KindInvalidURL
	// KindRedirect means the redirect limit was exceeded or a redirect
	// left http(s).
	KindRedirect
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindStatus:
		return "status"
	case KindTooLarge:
		return "too_large"
	case KindInvalidURL:
		return "invalid_url"
	case KindRedirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Error is returned by Client.Fetch.
type Error struct {
	// Kind classifies the failure.
	Kind Kind

	// URL is the requested URL.
	URL string

	// StatusCode is the HTTP status for KindStatus, otherwise 0.
	StatusCode int

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements error.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Kind == KindStatus:
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	case e.Cause != nil:
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Cause)
	default:
		return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// KindOf returns the Kind of err if it is (or wraps) an *Error.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}

var (
	errTooManyRedirects  = errors.New("too many redirects")
	errRedirectBadScheme = errors.New("redirect target scheme is not http/https")
	errBodyTooLarge      = errors.New("response body exceeds limit")
)
