package briefing

import (
	"fmt"
	"html"
	"strings"
)

const (
	hashtags      = "#Biotech #Biotechnology #Science #Innovation #Healthcare #Research"
	postHeading   = "🔬 This Week's Top Biotech News"
	telegramLimit = 4000
	dateLayout    = "2006-01-02"
)

// RenderScript renders the spoken script.
func RenderScript(out Output) string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== %s ===\n", strings.ToUpper(out.Title))
	if !out.PeriodStart.IsZero() && !out.PeriodEnd.IsZero() {
		fmt.Fprintf(&b, "Coverage: %s to %s\n", out.PeriodStart.Format(dateLayout), out.PeriodEnd.Format(dateLayout))
	}
	b.WriteString("\n")

	for _, s := range out.Sections {
		switch s.Kind {
		case SectionOpening, SectionClosing:
			b.WriteString(s.Body + "\n\n")
		case SectionHeadlines:
			b.WriteString("=== MAIN STORIES ===\n\n")
			if len(s.Entries) == 0 {
				b.WriteString(s.Body + "\n\n")
			}
			for i, e := range s.Entries {
				fmt.Fprintf(&b, "Story %d: %s\n\n", i+1, e.Title)
				if e.Summary != "" {
					b.WriteString(e.Summary + "\n\n")
				}
				b.WriteString("---\n\n")
			}
		case SectionBriefs:
			b.WriteString("=== QUICK HITS ===\n\n")
			b.WriteString(s.Body + "\n\n")
			for _, e := range s.Entries {
				b.WriteString("• " + e.Title + "\n")
				if e.Summary != "" {
					b.WriteString("  " + e.Summary + "\n")
				}
				b.WriteString("\n")
			}
		case SectionTrends:
			b.WriteString("=== TRENDS & INSIGHTS ===\n\n")
			b.WriteString(s.Body + "\n\n")
		case SectionSources:
			b.WriteString("=== SOURCES SUMMARY ===\n\n")
			b.WriteString(s.Body + "\n\n")
			for _, sc := range s.Sources {
				fmt.Fprintf(&b, "• %s: %d %s\n", sc.Name, sc.Count, plural(sc.Count, "article"))
			}
			if len(s.Sources) > 0 {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "Total sources: %d\n", len(s.Sources))
			fmt.Fprintf(&b, "Total articles: %d\n", len(out.Entries()))
		}
	}
	return b.String()
}

// RenderPost renders the Markdown social post. The compact variant
// drops the blank line between entries.
func RenderPost(out Output, compact bool) string {
	var b strings.Builder
	b.WriteString(postHeading + "\n\n")

	entries := out.Entries()
	if len(entries) == 0 {
		b.WriteString("No new biotech stories this week.\n\n")
		b.WriteString(hashtags)
		return b.String()
	}
	if compact {
		b.WriteString("Key developments in biotechnology:\n\n")
	} else {
		b.WriteString("Here are the key developments in biotechnology this week:\n\n")
	}
	for i, e := range entries {
		if e.URL != "" {
			fmt.Fprintf(&b, "%d. [%s](%s)\n", i+1, e.Title, e.URL)
		} else {
			fmt.Fprintf(&b, "%d. %s\n", i+1, e.Title)
		}
		if !compact {
			b.WriteString("\n")
		}
	}
	if compact {
		b.WriteString("\n")
	}
	b.WriteString(hashtags)
	return b.String()
}

// RenderTelegram renders an HTML message within Telegram's length
// limit. Summaries go first, then trailing briefs, when it is too long.
func RenderTelegram(out Output) string {
	headlines, briefs := out.Section(SectionHeadlines), out.Section(SectionBriefs)
	var hs, bs []Entry
	if headlines != nil {
		hs = headlines.Entries
	}
	if briefs != nil {
		bs = briefs.Entries
	}

	msg := formatTelegram(out, hs, bs, true)
	if len(msg) <= telegramLimit {
		return msg
	}
	for n := len(bs); n >= 0; n-- {
		msg = formatTelegram(out, hs, bs[:n], false)
		if len(msg) <= telegramLimit {
			return msg
		}
	}
	return msg
}

func formatTelegram(out Output, headlines, briefs []Entry, withSummaries bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔬 <b>%s</b>\n", html.EscapeString(out.Title))
	b.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	if len(headlines) == 0 && len(briefs) == 0 {
		b.WriteString("No new biotech stories this week.\n")
		return b.String()
	}

	for i, e := range headlines {
		fmt.Fprintf(&b, "📰 <b>%d.</b> %s\n", i+1, telegramLink(e))
		fmt.Fprintf(&b, "<i>%s</i>\n", html.EscapeString(e.TopicLabel))
		if withSummaries && e.Summary != "" {
			b.WriteString(html.EscapeString(e.Summary) + "\n")
		}
		b.WriteString("\n")
	}
	if len(briefs) > 0 {
		b.WriteString("⚡ <b>Quick hits</b>\n")
		for _, e := range briefs {
			b.WriteString("• " + telegramLink(e) + "\n")
		}
		b.WriteString("\n")
	}
	b.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	b.WriteString(hashtags)
	return b.String()
}

func telegramLink(e Entry) string {
	if e.URL == "" {
		return html.EscapeString(e.Title)
	}
	return fmt.Sprintf("<a href=\"%s\">%s</a>", html.EscapeString(e.URL), html.EscapeString(e.Title))
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
