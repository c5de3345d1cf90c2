// Package briefing turns a selection into the sectioned episode and
// renders it as a script and short social posts.
package briefing

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/deusflow/biobrief/internal/news"
)

// SectionKind names a section of the output.
type SectionKind string

const (
	SectionOpening   SectionKind = "opening"
	SectionHeadlines SectionKind = "headlines"
	SectionBriefs    SectionKind = "briefs"
	SectionTrends    SectionKind = "trends"
	SectionClosing   SectionKind = "closing"
	SectionSources   SectionKind = "sources"
)

const (
	defaultTitle = "Biotech Weekly"
	defaultIntro = "Welcome to this week's biotech news roundup. Today we're covering the latest developments in biotechnology, from breakthrough discoveries to industry updates."
	defaultOutro = "That wraps up this week's biotech news. Thanks for listening, and we'll see you next week with more updates from the world of biotechnology."
	emptyIntro   = "Welcome to this week's biotech news roundup. There are no new stories for this period."
)

// RunMetadata describes the run the output belongs to.
type RunMetadata struct {
	RunID       string
	Title       string
	GeneratedAt time.Time
	PeriodStart time.Time
	PeriodEnd   time.Time
	Intro       string
	Outro       string
	// TopicOrder breaks ties between equally common topics. Defaults to
	// the built-in taxonomy order.
	TopicOrder []news.Topic
}

// Entry is one story in the headline or brief section.
type Entry struct {
	ItemID      string     `json:"item_id"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Topic       news.Topic `json:"topic"`
	TopicLabel  string     `json:"topic_label"`
	Score       float64    `json:"impact_score"`
	Summary     string     `json:"summary"`
	Sources     []string   `json:"sources"`
	Occurrences int        `json:"occurrence_count"`
	PublishedAt time.Time  `json:"published_at,omitempty"`
}

// TopicCount is one row of the trend breakdown.
type TopicCount struct {
	Topic news.Topic `json:"topic"`
	Label string     `json:"label"`
	Count int        `json:"count"`
}

// SourceCount is one row of the source attribution.
type SourceCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Section is one named part of the output.
type Section struct {
	Kind    SectionKind   `json:"kind"`
	Heading string        `json:"heading"`
	Body    string        `json:"body,omitempty"`
	Entries []Entry       `json:"entries,omitempty"`
	Topics  []TopicCount  `json:"topics,omitempty"`
	Sources []SourceCount `json:"sources,omitempty"`
}

// Output is the assembled episode.
type Output struct {
	RunID            string    `json:"run_id"`
	Title            string    `json:"title"`
	GeneratedAt      time.Time `json:"generated_at"`
	PeriodStart      time.Time `json:"period_start,omitempty"`
	PeriodEnd        time.Time `json:"period_end,omitempty"`
	Empty            bool      `json:"empty"`
	EstimatedSeconds int       `json:"estimated_seconds,omitempty"`
	Sections         []Section `json:"sections"`
}

// Section returns the section of the given kind.
func (o *Output) Section(kind SectionKind) *Section {
	for i := range o.Sections {
		if o.Sections[i].Kind == kind {
			return &o.Sections[i]
		}
	}
	return nil
}

// Entries returns headline entries followed by brief entries.
func (o *Output) Entries() []Entry {
	var out []Entry
	if s := o.Section(SectionHeadlines); s != nil {
		out = append(out, s.Entries...)
	}
	if s := o.Section(SectionBriefs); s != nil {
		out = append(out, s.Entries...)
	}
	return out
}

// Assemble builds the six sections in fixed order. Every selected item
// becomes exactly one entry.
func Assemble(sel news.Selection, meta RunMetadata) Output {
	out := Output{
		RunID:            meta.RunID,
		Title:            meta.Title,
		GeneratedAt:      meta.GeneratedAt,
		PeriodStart:      meta.PeriodStart,
		PeriodEnd:        meta.PeriodEnd,
		Empty:            sel.Empty(),
		EstimatedSeconds: sel.UnitsUsed,
	}
	if out.Title == "" {
		out.Title = defaultTitle
	}
	order := meta.TopicOrder
	if len(order) == 0 {
		order = news.DefaultTaxonomy().Topics()
	}

	intro := meta.Intro
	if intro == "" {
		intro = defaultIntro
		if out.Empty {
			intro = emptyIntro
		}
	}
	outro := meta.Outro
	if outro == "" {
		outro = defaultOutro
	}

	headlines := Section{Kind: SectionHeadlines, Heading: "Main Stories"}
	for _, it := range sel.Headlines {
		headlines.Entries = append(headlines.Entries, newEntry(it, DetailedSummary(it.Summary)))
	}
	if len(headlines.Entries) == 0 {
		headlines.Body = "No headline stories this time."
	}

	briefs := Section{Kind: SectionBriefs, Heading: "Quick Hits"}
	for _, it := range sel.Briefs {
		briefs.Entries = append(briefs.Entries, newEntry(it, BriefSummary(it.Summary)))
	}
	if len(briefs.Entries) == 0 {
		briefs.Body = "No quick hits this time."
	} else {
		briefs.Body = "Now for some quick updates from around the biotech world:"
	}

	selected := sel.Selected()
	topics := countTopics(selected, order)
	sources := countSources(selected)

	trends := Section{
		Kind:    SectionTrends,
		Heading: "Trends & Insights",
		Topics:  topics,
		Body:    trendText(topics, len(sources)),
	}

	sourceSection := Section{Kind: SectionSources, Heading: "Sources Summary", Sources: sources}
	if len(sources) == 0 {
		sourceSection.Body = "No sources were used for this briefing."
	} else {
		sourceSection.Body = "This briefing was compiled from the following sources:"
	}

	out.Sections = []Section{
		{Kind: SectionOpening, Heading: out.Title, Body: intro},
		headlines,
		briefs,
		trends,
		{Kind: SectionClosing, Body: outro},
		sourceSection,
	}
	return out
}

func newEntry(it news.ScoredItem, summary string) Entry {
	sources := it.Sources
	if len(sources) == 0 && it.SourceName != "" {
		sources = []string{it.SourceName}
	}
	return Entry{
		ItemID:      it.ID,
		Title:       news.DisplayTitle(it.Title),
		URL:         it.URL,
		Topic:       it.Topic,
		TopicLabel:  it.Topic.Label(),
		Score:       it.Score,
		Summary:     summary,
		Sources:     append([]string(nil), sources...),
		Occurrences: it.Occurrences,
		PublishedAt: it.PublishedAt,
	}
}

// countTopics sorts by count, then by position in order, then by name.
func countTopics(items []news.ScoredItem, order []news.Topic) []TopicCount {
	rank := make(map[news.Topic]int, len(order))
	for i, t := range order {
		rank[t] = i
	}
	pos := func(t news.Topic) int {
		if r, ok := rank[t]; ok {
			return r
		}
		return len(order)
	}

	counts := make(map[news.Topic]int)
	for _, it := range items {
		counts[it.Topic]++
	}
	out := make([]TopicCount, 0, len(counts))
	for t, n := range counts {
		out = append(out, TopicCount{Topic: t, Label: t.Label(), Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if pa, pb := pos(a.Topic), pos(b.Topic); pa != pb {
			return pa < pb
		}
		return a.Topic < b.Topic
	})
	return out
}

// countSources counts, per source name, the selected items it backs.
func countSources(items []news.ScoredItem) []SourceCount {
	counts := make(map[string]int)
	for _, it := range items {
		names := it.Sources
		if len(names) == 0 && it.SourceName != "" {
			names = []string{it.SourceName}
		}
		for _, n := range names {
			counts[n]++
		}
	}
	out := make([]SourceCount, 0, len(counts))
	for n, c := range counts {
		out = append(out, SourceCount{Name: n, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func trendText(topics []TopicCount, sourceCount int) string {
	if len(topics) == 0 {
		return "No trends to report for this period."
	}
	var b strings.Builder
	b.WriteString("Looking at this period's developments, the focus has been on ")
	b.WriteString(strings.ToLower(topics[0].Label))
	switch {
	case len(topics) == 1:
		b.WriteString(", showing a concentrated effort in this area. ")
	case len(topics) == 2:
		fmt.Fprintf(&b, ", followed by %s. ", strings.ToLower(topics[1].Label))
	default:
		fmt.Fprintf(&b, ", followed by %s and %s. ", strings.ToLower(topics[1].Label), strings.ToLower(topics[2].Label))
	}
	if sourceCount == 1 {
		b.WriteString("All coverage this time comes from a single source.")
	} else {
		fmt.Fprintf(&b, "We're seeing coverage from %d different sources, indicating broad industry interest in these developments.", sourceCount)
	}
	return b.String()
}
