package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hzm1213/upsub/internal/config"
	"github.com/hzm1213/upsub/internal/fetch"
	"github.com/hzm1213/upsub/internal/model"
	"github.com/hzm1213/upsub/internal/node"
	"github.com/hzm1213/upsub/internal/notify"
	"github.com/hzm1213/upsub/internal/output"
	"github.com/hzm1213/upsub/internal/pipeline"
	"github.com/hzm1213/upsub/internal/region"
	"github.com/hzm1213/upsub/internal/rename"
	"github.com/hzm1213/upsub/internal/report"
	"github.com/hzm1213/upsub/internal/source"
	"github.com/hzm1213/upsub/internal/vcs"
	"github.com/spf13/cobra"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Refresh the subscription files",
		Long: `Run collects every subscription link, fetches each feed, extracts its
proxy nodes and writes one numbered file per working subscription.

The output directory is cleared first, so files of subscriptions that
stopped working disappear. Files are numbered 001.txt, 002.txt, ... in
sorted link order, counting only links that produced nodes.

Examples:
  # Refresh using .upsub.yaml or the defaults
  upsub run

  # Also scan an upstream repository and rename node labels
  upsub run --repo alice/free-nodes --rename

  # Base64 output, 4 links at a time, commit and push the result
  upsub run --base64 -b 4 --push

  # Route fetches through a local SOCKS5 proxy
  upsub run --socks5 127.0.0.1:1080

  # Write a Markdown report for a CI job summary
  upsub run --markdown --report summary.md`,
		Args: cobra.NoArgs,
		RunE: runRunCmd,
	}

	addConfigFlag(cmd)
	addSourceFlags(cmd)

	cmd.Flags().Bool("base64", false,
		"Write base64-encoded node lists")
	cmd.Flags().Bool("rename", false,
		"Rewrite node labels into symbol, count, region and sequence form")
	cmd.Flags().String("regions", "",
		"Region table YAML file (default: built-in table)")
	cmd.Flags().IntP("concurrency", "b", config.DefaultConcurrency,
		"Number of links processed concurrently")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each fetch")
	cmd.Flags().Float64("rate", 0,
		"Maximum fetches per second (0 = unlimited)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with each fetch")
	cmd.Flags().String("socks5", "",
		"Route fetches through a SOCKS5 proxy (host:port)")
	cmd.Flags().Bool("tor", false,
		"Route fetches through an embedded Tor daemon")
	cmd.Flags().Duration("tor-timeout", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor daemon startup")
	cmd.Flags().Bool("commit", false,
		"Commit the output directory when it changed")
	cmd.Flags().Bool("push", false,
		"Push after committing (implies --commit)")
	cmd.Flags().Bool("notify", false,
		"Send a summary notification when the run ends")
	cmd.Flags().String("report", "",
		"Write the report to a file instead of stdout")
	cmd.Flags().Bool("json", false,
		"Output report in JSON format")
	cmd.Flags().Bool("markdown", false,
		"Output report in Markdown format")

	return cmd
}

// runRunCmd executes the run command.
func runRunCmd(cmd *cobra.Command, _ []string) error {
	// Build config from file and flags
	cfg, err := buildRunConfig(cmd)
	if err != nil {
		return err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	// Progress goes to stderr when a JSON report is printed to stdout, so
	// the JSON stays parseable.
	progress := cmd.OutOrStdout()
	if cfg.JSONReport && cfg.ReportFile == "" {
		progress = cmd.ErrOrStderr()
	}

	httpClient, stop, err := setupTransport(ctx, cfg, progress, logger)
	if err != nil {
		return err
	}
	defer stop()

	r := &runner{
		cfg:     cfg,
		logger:  logger,
		out:     progress,
		fetcher: newFetcher(cfg, httpClient),
		git:     newGit(cfg, nil),
	}
	r.sources, err = buildSources(cfg, r.git, r.fetcher, httpClient, logger)
	if err != nil {
		return err
	}
	r.notifier = buildNotifier(cfg)

	runReport, runErr := r.run(ctx)
	if runReport == nil {
		return runErr
	}

	if err := outputReport(cmd.OutOrStdout(), cfg, runReport); err != nil {
		return errors.Join(runErr, fmt.Errorf("failed to write report: %w", err))
	}
	if cfg.ReportFile != "" || cfg.MarkdownReport {
		fmt.Fprintf(progress, "Valid subscription count: %d\n", len(runReport.Artifacts))
	}
	return runErr
}

// buildRunConfig creates a Config from the configuration file and the run flags.
func buildRunConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	if changed(cmd, "base64") {
		b64, err := cmd.Flags().GetBool("base64")
		if err != nil {
			return nil, err
		}
		cfg.Encoding = string(model.EncodingPlain)
		if b64 {
			cfg.Encoding = string(model.EncodingBase64)
		}
	}
	if changed(cmd, "rename") {
		if cfg.Rename, err = cmd.Flags().GetBool("rename"); err != nil {
			return nil, err
		}
	}
	if changed(cmd, "regions") {
		if cfg.RegionsFile, err = cmd.Flags().GetString("regions"); err != nil {
			return nil, err
		}
	}
	if changed(cmd, "concurrency") {
		if cfg.Concurrency, err = cmd.Flags().GetInt("concurrency"); err != nil {
			return nil, err
		}
	}
	if changed(cmd, "timeout") {
		if cfg.Timeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if changed(cmd, "rate") {
		if cfg.Rate, err = cmd.Flags().GetFloat64("rate"); err != nil {
			return nil, err
		}
	}
	if changed(cmd, "user-agent") {
		if cfg.UserAgent, err = cmd.Flags().GetString("user-agent"); err != nil {
			return nil, err
		}
	}
	if changed(cmd, "socks5") {
		if cfg.SOCKS5, err = cmd.Flags().GetString("socks5"); err != nil {
			return nil, err
		}
	}
	if changed(cmd, "tor") {
		if cfg.Tor, err = cmd.Flags().GetBool("tor"); err != nil {
			return nil, err
		}
	}
	if changed(cmd, "tor-timeout") {
		if cfg.TorStartupTimeout, err = cmd.Flags().GetDuration("tor-timeout"); err != nil {
			return nil, err
		}
	}
	if changed(cmd, "commit") {
		if cfg.Commit, err = cmd.Flags().GetBool("commit"); err != nil {
			return nil, err
		}
	}
	if changed(cmd, "push") {
		if cfg.Push, err = cmd.Flags().GetBool("push"); err != nil {
			return nil, err
		}
	}
	if changed(cmd, "notify") {
		if cfg.Notify.Enabled, err = cmd.Flags().GetBool("notify"); err != nil {
			return nil, err
		}
	}
	if changed(cmd, "report") {
		if cfg.ReportFile, err = cmd.Flags().GetString("report"); err != nil {
			return nil, err
		}
	}
	if changed(cmd, "json") {
		if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
			return nil, err
		}
	}
	if changed(cmd, "markdown") {
		if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// buildNotifier returns the configured notifiers, or nil when
// notifications are disabled or nothing is configured.
func buildNotifier(cfg *config.Config) notify.Notifier {
	if !cfg.Notify.Enabled {
		return nil
	}
	var multi notify.Multi
	if tg := cfg.Notify.Telegram; tg.BotToken != "" {
		multi = append(multi, &notify.Telegram{Token: tg.BotToken, ChatID: tg.ChatID})
	}
	if ap := cfg.Notify.Apprise; ap.Server != "" {
		multi = append(multi, &notify.Apprise{Server: ap.Server, Recipients: ap.Recipients})
	}
	if len(multi) == 0 {
		return nil
	}
	return multi
}

// runner performs one refresh. Its collaborators are fields so tests can
// replace them.
type runner struct {
	cfg      *config.Config
	logger   *slog.Logger
	out      io.Writer
	fetcher  fetch.Fetcher
	git      *vcs.Git
	sources  []source.Source
	notifier notify.Notifier

	// picker chooses decorative symbols when renaming; nil means random.
	picker rename.Picker
}

// run collects links, processes them and replaces the output directory
// contents. On cancellation the output directory is left untouched and
// the partial report is returned along with the context error. A nil
// report means the run could not start.
func (r *runner) run(ctx context.Context) (*model.RunReport, error) {
	cfg := r.cfg
	logger := r.logger

	table, err := loadRegions(cfg.RegionsFile)
	if err != nil {
		return nil, err
	}

	writer, err := output.NewWriter(cfg.OutputDir, cfg.OutputEncoding())
	if err != nil {
		return nil, err
	}

	logger.Info("starting run",
		"sourceDir", cfg.SourceDir,
		"repositories", len(cfg.Repositories),
		"outputDir", cfg.OutputDir,
		"encoding", cfg.Encoding,
		"rename", cfg.Rename,
		"concurrency", cfg.Concurrency,
	)

	runReport := model.NewRunReport(cfg.OutputDir)

	// Link collection failures of one source are not fatal: the links
	// of the other sources are still processed.
	links, err := source.Collect(ctx, r.sources, linkMode(cfg))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			runReport.Cancelled = true
			runReport.Finish()
			return runReport, ctxErr
		}
		logger.Warn("some sources could not be read", "error", err)
	}
	fmt.Fprintf(r.out, "Found %d subscription links\n", len(links))

	normalizer := node.Normalizer{Flags: table.Flags(), Marker: table.Marker()}
	var rewriter *rename.Rewriter
	if cfg.Rename {
		var opts []rename.Option
		if r.picker != nil {
			opts = append(opts, rename.WithPicker(r.picker))
		}
		rewriter = rename.New(table, opts...)
	}

	bp := pipeline.NewBatchProcessor(
		pipeline.Factory(r.fetcher, normalizer, rewriter, logger),
		pipeline.WithBatchLogger(logger),
		pipeline.WithConcurrency(cfg.Concurrency),
	)

	start := time.Now()
	results, err := bp.ProcessWithCallback(ctx, links, func(result *model.LinkResult, done, total int) {
		fmt.Fprintf(r.out, "[%d/%d] %s: %s\n", done, total, result.Status, result.Link)
	})
	runReport.Links = results
	if err != nil {
		runReport.Cancelled = true
		runReport.Finish()
		fmt.Fprintf(r.out, "Run cancelled after %s, output left unchanged\n", time.Since(start).Round(time.Millisecond))
		return runReport, err
	}

	count := pipeline.Number(results)
	if err := writer.Reset(); err != nil {
		return nil, err
	}
	for _, result := range results {
		if result.ArtifactIndex == 0 {
			continue
		}
		artifact, err := writer.Write(result.ArtifactIndex, result.Link.URL, result.Nodes)
		if err != nil {
			return nil, err
		}
		runReport.Artifacts = append(runReport.Artifacts, artifact)
	}
	logger.Info("artifacts written", "count", count, "dir", writer.Dir())
	fmt.Fprintf(r.out, "Processed %d links in %s\n", len(links), time.Since(start).Round(time.Millisecond))

	if cfg.ShouldCommit() {
		runReport.Committed = r.commit(ctx, writer.Dir())
	}

	runReport.Finish()
	r.sendNotification(ctx, runReport)
	return runReport, nil
}

// commit stages and commits the output directory. Failures are logged,
// never returned: the artifacts are already written.
func (r *runner) commit(ctx context.Context, dir string) bool {
	if !r.git.IsRepository(ctx) {
		r.logger.Warn("not a git repository, skipping commit", "dir", r.git.Dir)
		return false
	}

	path, err := filepath.Abs(dir)
	if err != nil {
		path = dir
	}
	result, err := r.git.Sync(ctx, path, r.cfg.CommitMessage, r.cfg.Push)
	if err != nil {
		r.logger.Error("git sync failed",
			"error", err,
			"committed", result.Committed,
			"pushed", result.Pushed,
		)
		return result.Committed
	}

	switch {
	case !result.Changed:
		fmt.Fprintln(r.out, "No changes to commit")
	case result.Pushed:
		fmt.Fprintln(r.out, "Committed and pushed changes")
	default:
		fmt.Fprintln(r.out, "Committed changes")
	}
	return result.Committed
}

// sendNotification delivers the run summary. Failures are logged only.
func (r *runner) sendNotification(ctx context.Context, runReport *model.RunReport) {
	if r.notifier == nil {
		return
	}
	msg := notify.Message{
		Title: r.cfg.Notify.Title,
		Body:  report.Summary(runReport),
	}
	if err := r.notifier.Notify(ctx, msg); err != nil {
		r.logger.Warn("notification failed", "error", err)
		return
	}
	r.logger.Debug("notification sent")
}

// loadRegions returns the region table from path, or the built-in table.
func loadRegions(path string) (*region.Table, error) {
	if path == "" {
		return region.Default(), nil
	}
	table, err := region.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load region table %s: %w", path, err)
	}
	return table, nil
}

// outputReport writes the run report in the requested format, to the
// report file if one is configured, otherwise to stdout.
func outputReport(stdout io.Writer, cfg *config.Config, runReport *model.RunReport) error {
	out := stdout
	if cfg.ReportFile != "" {
		// Create directories if they don't exist
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create report directory: %w", err)
			}
		}

		// Reports list the subscription links, which often embed access
		// tokens, so only the owner may read them.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		out = f
	}

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewJSONWriter(out, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(out)
	default:
		writer = report.NewSimpleWriter(out, report.WithVerbose(cfg.Verbose))
	}
	_, err := writer.Write(runReport)
	return err
}
