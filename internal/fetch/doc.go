// Package fetch downloads subscription bodies over HTTP(S).
//
// A fetch either returns the trimmed body text or a *Error describing why
// it failed. Callers treat every failure the same way (skip the link), but
// the Kind lets reports tell timeouts apart from bad status codes. There
// are no retries.
package fetch
