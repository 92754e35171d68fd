package report

import (
	"fmt"
	"strings"

	"github.com/hzm1213/upsub/internal/model"
)

// Summary returns a few lines describing the run, used as a
// notification body.
func Summary(report *model.RunReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "✅ Valid subscriptions: %d\n", len(report.Artifacts))
	fmt.Fprintf(&sb, "📦 Nodes: %d\n", report.TotalNodes())
	fmt.Fprintf(&sb, "🔗 Links checked: %d", len(report.Links))
	if n := report.CountByStatus(model.LinkStatusFetchFailed); n > 0 {
		fmt.Fprintf(&sb, " (%d unreachable)", n)
	}
	sb.WriteString("\n")
	if report.Cancelled {
		sb.WriteString("⚠️ Run was cancelled, results are partial\n")
	}
	fmt.Fprintf(&sb, "🕒 %s", report.FinishedAt.Format("2006-01-02 15:04:05"))
	return sb.String()
}
