package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/hzm1213/upsub/internal/model"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "upsub"

	// DefaultSourceDir is scanned for links when no directory is given.
	DefaultSourceDir = "."

	// DefaultOutputDir receives the numbered artifacts.
	DefaultOutputDir = "output"

	// DefaultConcurrency processes links one at a time.
	DefaultConcurrency = 1

	// DefaultTimeout bounds each fetch.
	DefaultTimeout = 15 * time.Second

	// DefaultUserAgent is sent with every fetch. Some subscription servers
	// only return node lists to clients that look like Clash.
	DefaultUserAgent = "Mozilla/5.0 (Clash-AutoScript)"

	// DefaultMaxBodySize limits a fetched body to 10 MiB.
	DefaultMaxBodySize = 10 * 1024 * 1024

	// DefaultMaxRedirects is the number of redirects followed per fetch.
	DefaultMaxRedirects = 5

	// DefaultBurst is the rate limiter bucket size.
	DefaultBurst = 1

	// DefaultTorStartupTimeout is the maximum time to wait for the embedded
	// Tor daemon to bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute

	// DefaultCommitMessage is used for the artifact commit. [skip ci] keeps
	// the commit from re-triggering the workflow that runs upsub.
	DefaultCommitMessage = "Update subscription files [skip ci]"

	// DefaultGitUserName is the committer name used in CI.
	DefaultGitUserName = "github-actions[bot]"

	// DefaultGitUserEmail is the committer email used in CI.
	DefaultGitUserEmail = "github-actions[bot]@users.noreply.github.com"

	// DefaultNotifyTitle heads notifications.
	DefaultNotifyTitle = "upsub"
)

// TelegramConfig configures Telegram notifications.
type TelegramConfig struct {
	// BotToken is the Bot API token. Usually given as ${TELEGRAM_BOT_TOKEN}.
	BotToken string `yaml:"bot_token"`

	// ChatID is the destination chat.
	ChatID string `yaml:"chat_id"`
}

// AppriseConfig configures notifications through an Apprise API server.
type AppriseConfig struct {
	// Server is the Apprise API notify endpoint.
	Server string `yaml:"server"`

	// Recipients are Apprise service URLs.
	Recipients []string `yaml:"recipients"`
}

// NotifyConfig groups the notification settings.
type NotifyConfig struct {
	// Enabled turns notifications on.
	Enabled bool `yaml:"enabled"`

	// Title heads each notification.
	Title string `yaml:"title"`

	// Telegram configures the Telegram notifier.
	Telegram TelegramConfig `yaml:"telegram"`

	// Apprise configures the Apprise notifier.
	Apprise AppriseConfig `yaml:"apprise"`
}

// Config holds all configuration options for upsub.
// It is populated from the configuration file and CLI flags and passed
// into constructors; nothing reads it globally.
type Config struct {
	// SourceDir is the local directory whose files are scanned for links.
	SourceDir string `yaml:"source_dir"`

	// Repositories are upstream GitHub repositories ("owner/name[@ref]")
	// whose files are also scanned for links.
	Repositories []string `yaml:"repositories"`

	// RepositoryExtensions limits the upstream files read (e.g. ".md").
	// Empty means every file.
	RepositoryExtensions []string `yaml:"repository_extensions"`

	// GitHubToken authenticates GitHub API requests.
	GitHubToken string `yaml:"github_token"`

	// Structured also reads proxy-providers URLs from YAML and JSON files.
	Structured bool `yaml:"structured"`

	// HTML also reads anchor links from HTML files.
	HTML bool `yaml:"html"`

	// OutputDir receives the numbered artifacts. It is cleared on each run.
	OutputDir string `yaml:"output_dir"`

	// Encoding is "plain" or "base64".
	Encoding string `yaml:"encoding"`

	// Rename rewrites node labels into the numbered regional form.
	Rename bool `yaml:"rename"`

	// RegionsFile replaces the built-in region table.
	RegionsFile string `yaml:"regions_file"`

	// Concurrency is the number of links processed at once.
	Concurrency int `yaml:"concurrency"`

	// Timeout bounds each fetch.
	Timeout time.Duration `yaml:"timeout"`

	// UserAgent is sent with each fetch.
	UserAgent string `yaml:"user_agent"`

	// Headers are extra request headers sent with each fetch. A
	// User-Agent entry here overrides UserAgent.
	Headers map[string]string `yaml:"headers"`

	// MaxBodySize is the maximum body size in bytes. 0 means the default.
	MaxBodySize int64 `yaml:"max_body_size"`

	// MaxRedirects is the number of redirects followed per fetch.
	MaxRedirects int `yaml:"max_redirects"`

	// Rate is the maximum number of fetches per second; 0 disables pacing.
	Rate float64 `yaml:"rate"`

	// Burst is the rate limiter bucket size.
	Burst int `yaml:"burst"`

	// SOCKS5 routes fetches through a SOCKS5 proxy at host:port.
	SOCKS5 string `yaml:"socks5"`

	// Tor routes fetches through an embedded Tor daemon.
	Tor bool `yaml:"tor"`

	// TorStartupTimeout bounds the embedded Tor bootstrap.
	TorStartupTimeout time.Duration `yaml:"tor_startup_timeout"`

	// Commit commits the output directory when it changed.
	Commit bool `yaml:"commit"`

	// Push pushes after committing. It implies Commit.
	Push bool `yaml:"push"`

	// CommitMessage is the commit message.
	CommitMessage string `yaml:"commit_message"`

	// GitUserName and GitUserEmail set the committer identity; empty keeps
	// the repository's own configuration.
	GitUserName  string `yaml:"git_user_name"`
	GitUserEmail string `yaml:"git_user_email"`

	// Notify configures notifications.
	Notify NotifyConfig `yaml:"notify"`

	// JSONReport prints the run report as JSON.
	JSONReport bool `yaml:"json"`

	// MarkdownReport prints the run report as Markdown.
	MarkdownReport bool `yaml:"markdown"`

	// ReportFile writes the report to a file instead of stdout.
	ReportFile string `yaml:"report_file"`

	// Verbose enables debug logging.
	Verbose bool `yaml:"verbose"`
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		SourceDir:         DefaultSourceDir,
		OutputDir:         DefaultOutputDir,
		Encoding:          string(model.EncodingPlain),
		Concurrency:       DefaultConcurrency,
		Timeout:           DefaultTimeout,
		UserAgent:         DefaultUserAgent,
		MaxBodySize:       DefaultMaxBodySize,
		MaxRedirects:      DefaultMaxRedirects,
		Burst:             DefaultBurst,
		TorStartupTimeout: DefaultTorStartupTimeout,
		CommitMessage:     DefaultCommitMessage,
		GitUserName:       DefaultGitUserName,
		GitUserEmail:      DefaultGitUserEmail,
		Notify: NotifyConfig{
			Title: DefaultNotifyTitle,
		},
	}
}

// XDGConfigDir returns the XDG config directory for upsub.
// On Linux: ~/.config/upsub
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found.
func (c *Config) Validate() error {
	if c.OutputDir == "" {
		return ErrEmptyOutputDir
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.MaxRedirects < 0 {
		return ErrInvalidMaxRedirects
	}
	if c.Rate < 0 || c.Burst < 0 {
		return ErrInvalidRate
	}
	if _, err := model.ParseEncoding(c.Encoding); err != nil {
		return ErrInvalidEncoding
	}
	if c.SOCKS5 != "" && c.Tor {
		return ErrConflictingTransports
	}
	if (c.Notify.Telegram.BotToken == "") != (c.Notify.Telegram.ChatID == "") {
		return ErrIncompleteTelegram
	}
	if (c.Notify.Apprise.Server == "") != (len(c.Notify.Apprise.Recipients) == 0) {
		return ErrIncompleteApprise
	}
	return nil
}

// OutputEncoding returns the parsed Encoding. Call Validate first.
func (c *Config) OutputEncoding() model.Encoding {
	enc, err := model.ParseEncoding(c.Encoding)
	if err != nil {
		return model.EncodingPlain
	}
	return enc
}

// ShouldCommit reports whether the run ends with a commit.
func (c *Config) ShouldCommit() bool {
	return c.Commit || c.Push
}
