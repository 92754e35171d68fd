package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/hzm1213/upsub/internal/model"
	"github.com/hzm1213/upsub/internal/node"
	"github.com/hzm1213/upsub/internal/output"
	"github.com/hzm1213/upsub/internal/pipeline"
	"github.com/hzm1213/upsub/internal/rename"
	"github.com/spf13/cobra"
)

// errNoNodes is returned when the input holds no proxy nodes.
var errNoNodes = errors.New("no proxy nodes found")

// NewExtractCmd creates the extract command.
func NewExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract [file|-]",
		Short: "Extract proxy nodes from a saved subscription body",
		Long: `Extract reads a subscription body from a file, or from stdin when the
argument is "-" or missing, and prints the proxy nodes it contains after
label normalization and deduplication, exactly as run would write them.

Plain node lists, base64-encoded lists and Clash YAML proxies are
recognized.

Examples:
  # Nodes of a downloaded feed
  upsub extract feed.txt

  # Rename labels and print the base64 form
  curl -s https://example.com/sub | upsub extract --rename --base64`,
		Args: cobra.MaximumNArgs(1),
		RunE: runExtractCmd,
	}

	cmd.Flags().Bool("rename", false,
		"Rewrite node labels into symbol, count, region and sequence form")
	cmd.Flags().Bool("base64", false,
		"Print the base64-encoded node list")
	cmd.Flags().String("regions", "",
		"Region table YAML file (default: built-in table)")

	return cmd
}

// runExtractCmd executes the extract command.
func runExtractCmd(cmd *cobra.Command, args []string) error {
	doRename, err := cmd.Flags().GetBool("rename")
	if err != nil {
		return err
	}
	b64, err := cmd.Flags().GetBool("base64")
	if err != nil {
		return err
	}
	regionsPath, err := cmd.Flags().GetString("regions")
	if err != nil {
		return err
	}

	name := "-"
	if len(args) == 1 {
		name = args[0]
	}
	body, err := readInput(cmd.InOrStdin(), name)
	if err != nil {
		return err
	}

	table, err := loadRegions(regionsPath)
	if err != nil {
		return err
	}
	var rewriter *rename.Rewriter
	if doRename {
		rewriter = rename.New(table)
	}

	logger := setupLogger(cmd.ErrOrStderr(), getVerboseFlag(cmd))
	nodes, err := extractNodes(cmd.Context(), name, body, node.Normalizer{Flags: table.Flags(), Marker: table.Marker()}, rewriter, logger)
	if err != nil {
		return err
	}

	encoding := model.EncodingPlain
	if b64 {
		encoding = model.EncodingBase64
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(output.Encode(nodes, encoding)))
	return err
}

// readInput reads the named file, or in when name is "-".
func readInput(in io.Reader, name string) (string, error) {
	if name == "-" {
		data, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(name) //nolint:gosec // User-provided input path is intentional
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", name, err)
	}
	return string(data), nil
}

// extractNodes runs the processing steps after fetch on body.
func extractNodes(ctx context.Context, name, body string, normalizer node.Normalizer, rewriter *rename.Rewriter, logger *slog.Logger) ([]string, error) {
	p := pipeline.New(pipeline.WithLogger(logger))
	p.AddSteps(
		pipeline.NewExtractStep(logger),
		pipeline.NewNormalizeStep(normalizer),
		pipeline.NewDedupStep(),
	)
	if rewriter != nil {
		p.AddStep(pipeline.NewRenameStep(rewriter))
	}
	logger.Debug("extracting", "input", name, "steps", p.StepNames())

	result := model.NewLinkResult(name, 0)
	result.Body = strings.TrimSpace(body)
	result.BodySize = len(result.Body)
	if err := p.Execute(ctx, result); err != nil {
		return nil, err
	}
	if !result.HasNodes() {
		return nil, fmt.Errorf("%s: %w", name, errNoNodes)
	}
	return result.Nodes, nil
}
