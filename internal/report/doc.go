// Package report renders a run report.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - MarkdownWriter: Markdown for commit pages and documentation
//   - JSONWriter: Structured JSON output for tool integration
//
// Summary builds the short text used for notifications.
package report
