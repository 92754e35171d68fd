package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() so callers can use
// errors.Is() while still printing a readable message.
var (
	// ErrInvalidTimeout is returned when the fetch timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidConcurrency is returned when the concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidMaxRedirects is returned when the redirect limit is negative.
	ErrInvalidMaxRedirects = errors.New("invalid max redirects: must be non-negative")

	// ErrInvalidRate is returned when the request rate or burst is negative.
	ErrInvalidRate = errors.New("invalid rate: must be non-negative")

	// ErrInvalidEncoding is returned for an encoding other than plain or base64.
	ErrInvalidEncoding = errors.New("invalid encoding: must be plain or base64")

	// ErrEmptyOutputDir is returned when no output directory is configured.
	ErrEmptyOutputDir = errors.New("output directory must not be empty")

	// ErrConflictingTransports is returned when both a SOCKS5 proxy and the
	// embedded Tor daemon are requested.
	ErrConflictingTransports = errors.New("conflicting transports: --socks5 and --tor cannot be used together")

	// ErrIncompleteTelegram is returned when only one of the Telegram bot
	// token and chat ID is set.
	ErrIncompleteTelegram = errors.New("telegram notification needs both bot_token and chat_id")

	// ErrIncompleteApprise is returned when Apprise recipients are set
	// without a server, or the other way round.
	ErrIncompleteApprise = errors.New("apprise notification needs both server and recipients")
)
