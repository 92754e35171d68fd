package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for upsub.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upsub",
		Short: "Collect and refresh proxy subscription feeds",
		Long: `upsub scans a repository for subscription links, fetches every feed,
extracts the proxy nodes it contains, and writes one numbered file per
working subscription into the output directory.

Links are read from the files tracked in the source directory and,
optionally, from upstream GitHub repositories. Node labels can be
rewritten into a numbered regional form, and the refreshed files can be
committed and pushed.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewLinksCmd())
	cmd.AddCommand(NewExtractCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
