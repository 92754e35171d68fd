package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/hzm1213/upsub/internal/model"
)

// MarkdownWriter outputs reports in Markdown format, suitable for a
// README section or a CI job summary.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.RunReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeArtifacts(md, report)
	w.writeSkipped(md, report)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.RunReport) {
	md.H1("Subscription Update Report")
	md.PlainText("")

	status := "✅ Complete"
	if report.Cancelled {
		status = "⚠️ Cancelled (partial results)"
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Elapsed", report.Elapsed().Round(time.Millisecond).String()},
			{"Output", "`" + report.OutputDir + "`"},
			{"Status", status},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.RunReport) {
	md.H2("Summary")
	md.PlainText("")

	rows := make([][]string, 0, len(statusLabels)+2)
	for _, s := range statusLabels {
		rows = append(rows, []string{s.label, strconv.Itoa(report.CountByStatus(s.status))})
	}
	rows = append(rows,
		[]string{"**Links**", "**" + strconv.Itoa(len(report.Links)) + "**"},
		[]string{"**Nodes**", "**" + strconv.Itoa(report.TotalNodes()) + "**"},
	)
	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(report.Links) > 0 {
		w.writePieChart(md, report)
	}

	switch {
	case len(report.Links) == 0:
		md.Note("No subscription links were found in the sources.")
	case len(report.Artifacts) == 0:
		md.Warning("None of the links produced proxy nodes.")
	default:
		md.Tipf("%d valid subscription(s) written.", len(report.Artifacts))
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.RunReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Link Outcomes"),
		piechart.WithShowData(true),
	)
	for _, s := range statusLabels {
		if n := report.CountByStatus(s.status); n > 0 {
			chart.LabelAndIntValue(s.label, uint64(n)) //nolint:gosec // counts are non-negative
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeArtifacts(md *markdown.Markdown, report *model.RunReport) {
	md.H2("Artifacts")
	md.PlainText("")

	if len(report.Artifacts) == 0 {
		md.PlainText("No artifacts were written.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Artifacts))
	for i, a := range report.Artifacts {
		rows[i] = []string{
			"`" + a.FileName() + "`",
			strconv.Itoa(a.NodeCount),
			"`" + a.ShortDigest() + "`",
			truncateString(a.Link, 80),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"File", "Nodes", "SHA3-256", "Link"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeSkipped(md *markdown.Markdown, report *model.RunReport) {
	skipped := report.Skipped()
	if len(skipped) == 0 {
		return
	}

	rows := make([][]string, len(skipped))
	for i, l := range skipped {
		reason := l.ErrorMessage
		if reason == "" {
			reason = "-"
		}
		rows[i] = []string{truncateString(l.Link.URL, 60), string(l.Status), truncateString(reason, 60)}
	}

	md.H2("Skipped Links")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Link", "Status", "Reason"},
		Rows:   rows,
	})
	md.PlainText("")
}
