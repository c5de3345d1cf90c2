package briefing

import (
	"fmt"
	"strings"
)

// RunStats are pipeline counts that the briefing itself does not carry.
type RunStats struct {
	Feeds      int
	FeedErrors int
	Fetched    int
	InWindow   int
	Duplicates int
	Malformed  int
	Scored     int
	Omitted    int
	Enriched   int
}

// Files written next to the summary report.
var RunFiles = []string{"briefing.json", "script.txt", "post.txt", "post_compact.txt"}

// RenderSummary is the plain text run report.
func RenderSummary(out Output, stats RunStats, outputDir string) string {
	var sb strings.Builder
	rule := strings.Repeat("=", 50)
	dash := strings.Repeat("-", 20)

	sb.WriteString("BIOTECH NEWS PIPELINE SUMMARY\n")
	sb.WriteString(rule + "\n\n")
	fmt.Fprintf(&sb, "Run ID: %s\n", out.RunID)
	fmt.Fprintf(&sb, "Timestamp: %s\n", out.GeneratedAt.Format("2006-01-02 15:04:05"))
	if outputDir != "" {
		fmt.Fprintf(&sb, "Output Directory: %s\n", outputDir)
	}
	if !out.PeriodStart.IsZero() && !out.PeriodEnd.IsZero() {
		fmt.Fprintf(&sb, "Date Range: %s to %s\n", out.PeriodStart.Format(dateLayout), out.PeriodEnd.Format(dateLayout))
	}

	headlines := len(out.Section(SectionHeadlines).Entries)
	briefs := len(out.Section(SectionBriefs).Entries)

	sb.WriteString("\nCOUNTS:\n" + dash + "\n")
	fmt.Fprintf(&sb, "Feeds: %d (%d failed)\n", stats.Feeds, stats.FeedErrors)
	fmt.Fprintf(&sb, "Records fetched: %d\n", stats.Fetched)
	fmt.Fprintf(&sb, "Records in window: %d\n", stats.InWindow)
	fmt.Fprintf(&sb, "Duplicates merged: %d\n", stats.Duplicates)
	fmt.Fprintf(&sb, "Malformed records: %d\n", stats.Malformed)
	fmt.Fprintf(&sb, "Unique stories scored: %d\n", stats.Scored)
	fmt.Fprintf(&sb, "Headlines: %d\n", headlines)
	fmt.Fprintf(&sb, "Quick hits: %d\n", briefs)
	fmt.Fprintf(&sb, "Omitted: %d\n", stats.Omitted)
	if stats.Enriched > 0 {
		fmt.Fprintf(&sb, "Model summaries: %d\n", stats.Enriched)
	}
	if out.EstimatedSeconds > 0 {
		fmt.Fprintf(&sb, "Estimated duration: %.1f minutes\n", float64(out.EstimatedSeconds)/60)
	}

	sb.WriteString("\nGENERATED FILES:\n" + dash + "\n")
	for _, f := range RunFiles {
		sb.WriteString(f + "\n")
	}
	if out.Empty {
		sb.WriteString("\nNo stories were selected for this period.\n")
	}
	return sb.String()
}
