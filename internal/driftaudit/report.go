package driftaudit

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// BuildMarkdown renders the audit report for humans. The JSON artifact stays
// authoritative; this is a view of it.
func BuildMarkdown(report Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Demand Index Stability Audit\n\n")
	fmt.Fprintf(&b, "- Audit ID: %s\n", report.AuditID)
	fmt.Fprintf(&b, "- Window: %s\n", report.WindowID)
	if report.CorpusSnapshotID != "" {
		fmt.Fprintf(&b, "- Corpus snapshot: %s\n", report.CorpusSnapshotID)
	}
	fmt.Fprintf(&b, "- Runs per category: %d (concurrency %d)\n", report.RunsPerCategory, report.Concurrency)
	fmt.Fprintf(&b, "- Started: %s\n", report.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "- Completed: %s\n\n", report.CompletedAt.Format(time.RFC3339))

	fmt.Fprintf(&b, "## Summary\n\n")
	fmt.Fprintf(&b, "- GO: %d, WARN: %d, FAIL: %d, MISSING: %d\n",
		report.VerdictCounts[VerdictGo], report.VerdictCounts[VerdictWarn],
		report.VerdictCounts[VerdictFail], report.VerdictCounts[VerdictMissing])
	fmt.Fprintf(&b, "- Max deviation: %s\n", formatPct(report.MaxDeviationPct))
	fmt.Fprintf(&b, "- Median deviation: %s\n\n", formatPct(report.MedianDeviationPct))

	fmt.Fprintf(&b, "## Categories\n\n")
	fmt.Fprintf(&b, "| Category | Verdict | Runs | Median | Min | Max | Stdev | Deviation |\n")
	fmt.Fprintf(&b, "|---|---|---|---|---|---|---|---|\n")
	for _, c := range report.Categories {
		verdict := string(c.Verdict)
		if verdict == "" {
			verdict = string(c.State)
		}
		fmt.Fprintf(&b, "| %s | %s | %d | %.4f | %.4f | %.4f | %.6f | %s |\n",
			sanitize(c.CategoryID), verdict, c.Stats.Runs,
			c.Stats.Median, c.Stats.Min, c.Stats.Max, c.Stats.Stdev,
			formatPct(c.Stats.DeviationPct))
	}
	b.WriteString("\n")

	failures := false
	for _, c := range report.Categories {
		if c.FailureNote == "" {
			continue
		}
		if !failures {
			fmt.Fprintf(&b, "## Failures\n\n")
			failures = true
		}
		fmt.Fprintf(&b, "- `%s`: %s\n", sanitize(c.CategoryID), sanitize(c.FailureNote))
	}
	if failures {
		b.WriteString("\n")
	}
	return b.String()
}

func formatPct(v float64) string {
	if math.IsInf(v, 1) {
		return "unbounded"
	}
	return fmt.Sprintf("%.3f%%", v)
}

func sanitize(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.TrimSpace(s)
}
