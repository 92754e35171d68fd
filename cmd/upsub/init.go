package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hzm1213/upsub/internal/config"
	"github.com/hzm1213/upsub/internal/region"
	"github.com/spf13/cobra"
)

//go:embed templates/upsub.yaml
var configTemplate embed.FS

const templatePath = "templates/upsub.yaml"

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new upsub configuration file",
		Long: `Initialize creates a new .upsub.yaml configuration file in the current directory.

The generated file documents every option with its default value.
Secrets such as the Telegram bot token are read from environment
variables through ${NAME} references.

Examples:
  # Create .upsub.yaml in current directory
  upsub init

  # Create config file at a specific path
  upsub init -o myconfig.yaml

  # Also write the built-in region table for editing
  upsub init --regions regions.yaml

  # Force overwrite existing file
  upsub init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().String("regions", "",
		"Also write the built-in region table to this path")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing files")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	regionsPath, err := cmd.Flags().GetString("regions")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	content, err := configTemplate.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	if err := writeNewFile(outputPath, content, force); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)

	if regionsPath != "" {
		if err := writeNewFile(regionsPath, region.DefaultYAML(), force); err != nil {
			return err
		}
		fmt.Fprintf(out, "Created region table: %s\n", regionsPath)
	}

	fmt.Fprintln(out, "\nEdit this file to configure settings such as:")
	fmt.Fprintln(out, "  - Upstream repositories to collect links from")
	fmt.Fprintln(out, "  - Output encoding and label renaming")
	fmt.Fprintln(out, "  - Commit, push and notification options")

	return nil
}

// writeNewFile writes content to path, refusing to replace an existing
// file unless force is set.
func writeNewFile(path string, content []byte, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("file already exists: %s (use -f to overwrite)", path)
		}
	}

	// Create parent directories if needed
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// The configuration may hold tokens, so keep it private.
	if err := os.WriteFile(path, content, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
