package main

import (
	"context"
	"fmt"
	"io"

	"github.com/hzm1213/upsub/internal/extract"
	"github.com/hzm1213/upsub/internal/source"
	"github.com/spf13/cobra"
)

// NewLinksCmd creates the links command.
func NewLinksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "links",
		Short: "Print the subscription links that run would process",
		Long: `Links collects the subscription links from the source directory and
upstream repositories and prints them in the order run processes them.
Nothing is fetched except upstream file listings.

Examples:
  # Links found in the current repository
  upsub links

  # Include proxy-providers urls and links in an upstream repository
  upsub links --structured --repo alice/free-nodes`,
		Args: cobra.NoArgs,
		RunE: runLinksCmd,
	}

	addConfigFlag(cmd)
	addSourceFlags(cmd)

	return cmd
}

// runLinksCmd executes the links command.
func runLinksCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg.Verbose)
	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	sources, err := buildSources(cfg, newGit(cfg, nil), newFetcher(cfg, nil), nil, logger)
	if err != nil {
		return err
	}
	return printLinks(ctx, cmd.OutOrStdout(), sources, linkMode(cfg), logger.Warn)
}

// printLinks writes the sorted unique links of sources, one per line.
// Unreadable sources are reported through warn and skipped.
func printLinks(ctx context.Context, out io.Writer, sources []source.Source, mode extract.Mode, warn func(msg string, args ...any)) error {
	links, err := source.Collect(ctx, sources, mode)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		warn("some sources could not be read", "error", err)
	}
	for _, link := range links {
		fmt.Fprintln(out, link)
	}
	return nil
}
