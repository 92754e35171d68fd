package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Defaults for a Client.
const (
	DefaultUserAgent    = "Mozilla/5.0 (Clash-AutoScript)"
	DefaultTimeout      = 15 * time.Second
	DefaultMaxBodySize  = 10 * 1024 * 1024
	DefaultMaxRedirects = 5
)

// Fetcher returns the body of a URL. *Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// Client fetches subscription bodies.
// It is safe for concurrent use.
type Client struct {
	// httpClient performs the requests. Its transport decides whether
	// traffic goes direct or through a proxy.
	httpClient *http.Client

	// userAgent is the User-Agent header to send.
	userAgent string

	// timeout bounds each request including the body read.
	timeout time.Duration

	// maxBodySize limits the size of response bodies.
	maxBodySize int64

	// maxRedirects limits how many redirects are followed.
	maxRedirects int

	// limiter paces requests; nil means no pacing.
	limiter *rate.Limiter

	// headers are extra request headers.
	headers map[string]string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client, e.g. one that routes
// through a SOCKS5 proxy. Its redirect policy is replaced by the Client's.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithMaxBodySize sets the body size limit in bytes.
func WithMaxBodySize(n int64) Option {
	return func(c *Client) {
		c.maxBodySize = n
	}
}

// WithMaxRedirects sets how many redirects are followed.
func WithMaxRedirects(n int) Option {
	return func(c *Client) {
		c.maxRedirects = n
	}
}

// WithRate limits requests to perSecond with the given burst.
// A non-positive rate disables pacing.
func WithRate(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithHeader adds an extra request header.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		if c.headers == nil {
			c.headers = make(map[string]string)
		}
		c.headers[key] = value
	}
}

// New creates a Client with the given options.
func New(opts ...Option) *Client {
	c := &Client{
		userAgent:    DefaultUserAgent,
		timeout:      DefaultTimeout,
		maxBodySize:  DefaultMaxBodySize,
		maxRedirects: DefaultMaxRedirects,
	}
	for _, opt := range opts {
		opt(c)
	}

	base := c.httpClient
	if base == nil {
		base = &http.Client{Transport: http.DefaultTransport}
	}
	// Copy so the caller's client keeps its own redirect policy.
	hc := *base
	hc.Timeout = c.timeout
	hc.CheckRedirect = c.checkRedirect
	c.httpClient = &hc
	return c
}

func (c *Client) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) > c.maxRedirects {
		return errTooManyRedirects
	}
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return errRedirectBadScheme
	}
	return nil
}

// Fetch GETs rawURL and returns its body with surrounding whitespace
// removed. Any non-2xx status is an error.
func (c *Client) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", &Error{Kind: KindInvalidURL, URL: rawURL, Cause: err}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", &Error{Kind: KindNetwork, URL: rawURL, Cause: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &Error{Kind: KindInvalidURL, URL: rawURL, Cause: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", classify(rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck // best effort
		return "", &Error{Kind: KindStatus, URL: rawURL, StatusCode: resp.StatusCode}
	}

	// Read one byte past the limit to detect overflow.
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
	if err != nil {
		return "", classify(rawURL, err)
	}
	if int64(len(body)) > c.maxBodySize {
		return "", &Error{
			Kind:  KindTooLarge,
			URL:   rawURL,
			Cause: fmt.Errorf("%w (%d bytes)", errBodyTooLarge, c.maxBodySize),
		}
	}
	return strings.TrimSpace(string(body)), nil
}

// classify turns a transport error into an *Error.
func classify(rawURL string, err error) *Error {
	switch {
	case errors.Is(err, errTooManyRedirects), errors.Is(err, errRedirectBadScheme):
		return &Error{Kind: KindRedirect, URL: rawURL, Cause: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindTimeout, URL: rawURL, Cause: err}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &Error{Kind: KindTimeout, URL: rawURL, Cause: err}
	}
	return &Error{Kind: KindNetwork, URL: rawURL, Cause: err}
}
