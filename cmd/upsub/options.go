package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/hzm1213/upsub/internal/config"
	"github.com/hzm1213/upsub/internal/extract"
	"github.com/hzm1213/upsub/internal/fetch"
	"github.com/hzm1213/upsub/internal/log"
	"github.com/hzm1213/upsub/internal/source"
	"github.com/hzm1213/upsub/internal/transport"
	"github.com/hzm1213/upsub/internal/vcs"
	"github.com/spf13/cobra"
)

// addConfigFlag registers --config.
func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "",
		"Configuration file (default: .upsub.yaml in the current, XDG config or home directory)")
}

// addSourceFlags registers the flags that decide where links come from.
func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("dir", "d", config.DefaultSourceDir,
		"Directory whose files are scanned for links")
	cmd.Flags().StringArrayP("repo", "r", nil,
		"Upstream GitHub repository to scan (owner/name[@ref], repeatable)")
	cmd.Flags().StringP("output", "o", config.DefaultOutputDir,
		"Output directory for numbered subscription files")
	cmd.Flags().Bool("structured", false,
		"Also read proxy-providers urls from YAML and JSON files")
	cmd.Flags().Bool("html", false,
		"Also read anchor links from HTML files")
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// changed reports whether the flag exists on cmd and was set by the user.
// Only changed flags override configuration file values.
func changed(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}

// loadConfig reads the configuration file, if any, and applies the
// source flags on top of it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// If the user explicitly specified a config file path, error if not found.
	// If no path was specified, silently use the defaults if no file is found.
	cfg := config.NewConfig()
	found := config.FindConfigFile(path)
	switch {
	case found != "":
		cfg, err = config.LoadFile(found)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", found, err)
		}
	case path != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, path)
	}

	if changed(cmd, "dir") {
		if cfg.SourceDir, err = cmd.Flags().GetString("dir"); err != nil {
			return nil, err
		}
	}
	if changed(cmd, "repo") {
		if cfg.Repositories, err = cmd.Flags().GetStringArray("repo"); err != nil {
			return nil, err
		}
	}
	if changed(cmd, "output") {
		if cfg.OutputDir, err = cmd.Flags().GetString("output"); err != nil {
			return nil, err
		}
	}
	if changed(cmd, "structured") {
		if cfg.Structured, err = cmd.Flags().GetBool("structured"); err != nil {
			return nil, err
		}
	}
	if changed(cmd, "html") {
		if cfg.HTML, err = cmd.Flags().GetBool("html"); err != nil {
			return nil, err
		}
	}
	if getVerboseFlag(cmd) {
		cfg.Verbose = true
	}
	return cfg, nil
}

// setupLogger creates the secure structured logger on stderr.
func setupLogger(w io.Writer, verbose bool) *slog.Logger {
	return log.NewSecureLogger(w, verbose)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

// linkMode returns the link extraction modes enabled by cfg.
func linkMode(cfg *config.Config) extract.Mode {
	mode := extract.ModePlain
	if cfg.Structured {
		mode |= extract.ModeStructured
	}
	if cfg.HTML {
		mode |= extract.ModeHTML
	}
	return mode
}

// newFetcher builds the fetch client. httpClient routes through a proxy
// when non-nil.
func newFetcher(cfg *config.Config, httpClient *http.Client) *fetch.Client {
	opts := []fetch.Option{
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithTimeout(cfg.Timeout),
		fetch.WithMaxRedirects(cfg.MaxRedirects),
		fetch.WithRate(cfg.Rate, cfg.Burst),
	}
	if cfg.MaxBodySize > 0 {
		opts = append(opts, fetch.WithMaxBodySize(cfg.MaxBodySize))
	}
	for key, value := range cfg.Headers {
		opts = append(opts, fetch.WithHeader(key, value))
	}
	if httpClient != nil {
		opts = append(opts, fetch.WithHTTPClient(httpClient))
	}
	return fetch.New(opts...)
}

// newGit returns the git handle for the source directory.
func newGit(cfg *config.Config, runner vcs.Runner) *vcs.Git {
	return &vcs.Git{
		Dir:       cfg.SourceDir,
		UserName:  cfg.GitUserName,
		UserEmail: cfg.GitUserEmail,
		Run:       runner,
	}
}

// buildSources returns the local source followed by one source per
// upstream repository.
func buildSources(cfg *config.Config, git *vcs.Git, fetcher fetch.Fetcher, httpClient *http.Client, logger *slog.Logger) ([]source.Source, error) {
	local := &source.Local{
		Dir:     cfg.SourceDir,
		Lister:  git,
		Exclude: outputExclusion(cfg.SourceDir, cfg.OutputDir),
		Logger:  logger,
	}
	sources := []source.Source{local}

	for _, ref := range cfg.Repositories {
		gh, err := source.ParseRepository(ref)
		if err != nil {
			return nil, err
		}
		gh.Token = cfg.GitHubToken
		gh.Extensions = cfg.RepositoryExtensions
		gh.HTTPClient = httpClient
		gh.Fetcher = fetcher
		gh.Logger = logger
		sources = append(sources, gh)
	}
	return sources, nil
}

// outputExclusion returns the output directory relative to the source
// directory, so previous artifacts are not scanned for links. Nothing is
// excluded when the output directory lies outside the source directory.
func outputExclusion(sourceDir, outputDir string) []string {
	src, err := filepath.Abs(sourceDir)
	if err != nil {
		return nil
	}
	out, err := filepath.Abs(outputDir)
	if err != nil {
		return nil
	}
	rel, err := filepath.Rel(src, out)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil
	}
	return []string{filepath.ToSlash(rel)}
}

// setupTransport returns the HTTP client for fetches: nil for direct
// connections, or one routed through SOCKS5 or an embedded Tor daemon.
// The returned stop function must be called when the run ends.
func setupTransport(ctx context.Context, cfg *config.Config, out io.Writer, logger *slog.Logger) (*http.Client, func(), error) {
	noop := func() {}

	switch {
	case cfg.SOCKS5 != "":
		proxy, err := transport.NewSOCKS5(cfg.SOCKS5)
		if err != nil {
			return nil, noop, fmt.Errorf("invalid SOCKS5 proxy: %w", err)
		}
		if status := proxy.CheckConnection(ctx); status != transport.ProxyStatusOK {
			return nil, noop, fmt.Errorf("SOCKS5 proxy check failed: %w", status.Error())
		}
		logger.Info("SOCKS5 proxy connection verified", "address", proxy.Address())
		return proxy.NewHTTPClient(cfg.Timeout), noop, nil

	case cfg.Tor:
		return startEmbeddedTor(ctx, cfg, out, logger)

	default:
		return nil, noop, nil
	}
}

// startEmbeddedTor starts an embedded Tor daemon using tornago and
// returns an HTTP client that routes through it.
func startEmbeddedTor(ctx context.Context, cfg *config.Config, out io.Writer, logger *slog.Logger) (*http.Client, func(), error) {
	noop := func() {}

	fmt.Fprintln(out, "Starting embedded Tor daemon...")
	fmt.Fprintf(out, "This may take 1-3 minutes while Tor bootstraps and connects to the network.\n\n")

	embeddedTor := transport.NewEmbeddedTor(
		transport.WithStartupTimeout(cfg.TorStartupTimeout),
	)
	if err := embeddedTor.Start(ctx); err != nil {
		return nil, noop, fmt.Errorf("failed to start embedded Tor: %w", err)
	}
	stop := func() {
		logger.Info("stopping embedded Tor daemon...")
		if err := embeddedTor.Stop(); err != nil {
			logger.Error("failed to stop embedded Tor", "error", err)
		}
	}

	logger.Info("embedded Tor daemon started",
		"socksAddr", embeddedTor.SocksAddr(),
		"controlAddr", embeddedTor.ControlAddr(),
	)
	fmt.Fprintf(out, "SOCKS proxy: %s\n\n", embeddedTor.SocksAddr())

	proxy, err := embeddedTor.SOCKS5()
	if err != nil {
		stop()
		return nil, noop, fmt.Errorf("failed to create Tor transport: %w", err)
	}
	if status := proxy.CheckConnection(ctx); status != transport.ProxyStatusOK {
		stop()
		return nil, noop, fmt.Errorf("embedded Tor proxy check failed: %w", status.Error())
	}
	return proxy.NewHTTPClient(cfg.Timeout), stop, nil
}
