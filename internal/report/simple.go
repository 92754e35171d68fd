package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hzm1213/upsub/internal/model"
)

// SimpleWriter outputs human-readable text reports for the terminal.
type SimpleWriter struct {
	baseWriter

	// verbose lists every skipped link with its reason.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.RunReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeArtifacts(&sb, report)
	w.writeSkipped(&sb, report)
	w.writeFooter(&sb, report)

	return w.output.Write([]byte(sb.String()))
}

func section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.RunReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                       SUBSCRIPTION UPDATE REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Started:        %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Elapsed:        %s\n", report.Elapsed().Round(time.Millisecond))
	fmt.Fprintf(sb, "Output:         %s\n", report.OutputDir)
	fmt.Fprintf(sb, "Links:          %d\n", len(report.Links))
	for _, s := range statusLabels {
		if n := report.CountByStatus(s.status); n > 0 || s.status == model.LinkStatusOK {
			fmt.Fprintf(sb, "  %-18s %d\n", s.label+":", n)
		}
	}
	fmt.Fprintf(sb, "Nodes:          %d\n", report.TotalNodes())
	if report.Cancelled {
		sb.WriteString("Status:         CANCELLED (partial results)\n")
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeArtifacts(sb *strings.Builder, report *model.RunReport) {
	if len(report.Artifacts) == 0 {
		return
	}
	section(sb, "ARTIFACTS")
	for _, a := range report.Artifacts {
		fmt.Fprintf(sb, "  %s  %5d nodes  %s  %s\n", a.FileName(), a.NodeCount, a.ShortDigest(), a.Link)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSkipped(sb *strings.Builder, report *model.RunReport) {
	if !w.verbose {
		return
	}
	skipped := report.Skipped()
	if len(skipped) == 0 {
		return
	}
	section(sb, "SKIPPED LINKS")
	for _, l := range skipped {
		fmt.Fprintf(sb, "  [%s] %s\n", l.Status, l.Link.URL)
		if l.ErrorMessage != "" {
			fmt.Fprintf(sb, "    Reason: %s\n", l.ErrorMessage)
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder, report *model.RunReport) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "Valid subscription count: %d\n", len(report.Artifacts))
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
