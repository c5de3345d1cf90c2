package news

import (
	"sort"
	"strings"
)

// DedupeReport summarizes what Dedupe discarded.
type DedupeReport struct {
	Input      int     `json:"input"`
	Duplicates int     `json:"duplicates"`
	Malformed  int     `json:"malformed"`
	Problems   []error `json:"-"`
}

type keyedRecord struct {
	rec       RawRecord
	normTitle string
	canonURL  string
	normSrc   string
	sources   string
}

// Dedupe collapses records that share a normalized title or a canonical
// URL, transitively, into one Item each. The result does not depend on
// the order of records.
func Dedupe(records []RawRecord) ([]Item, DedupeReport) {
	report := DedupeReport{Input: len(records)}

	keyed := make([]keyedRecord, 0, len(records))
	for i, r := range records {
		// one instant must compare and serialize the same in any zone
		if !r.PublishedAt.IsZero() {
			r.PublishedAt = r.PublishedAt.UTC()
		}
		kr := keyedRecord{
			rec:       r,
			normTitle: NormalizeTitle(r.Title),
			canonURL:  CanonicalURL(r.URL),
			normSrc:   NormalizeSource(r.SourceName),
			sources:   strings.Join(r.Sources, "\x00"),
		}
		if kr.normTitle == "" && kr.canonURL == "" {
			report.Malformed++
			report.Problems = append(report.Problems, &MalformedRecordError{Index: i, Source: r.SourceName})
			continue
		}
		keyed = append(keyed, kr)
	}

	sort.SliceStable(keyed, func(i, j int) bool {
		return recordLess(keyed[i], keyed[j])
	})

	parent := make([]int, len(keyed))
	for i := range parent {
		parent[i] = i
	}
	find := func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		// lower index stays root so the canonical record leads its class
		if rb < ra {
			ra, rb = rb, ra
		}
		parent[rb] = ra
	}

	byTitle := make(map[string]int)
	byURL := make(map[string]int)
	for i, kr := range keyed {
		if kr.normTitle != "" {
			if j, ok := byTitle[kr.normTitle]; ok {
				union(j, i)
			} else {
				byTitle[kr.normTitle] = i
			}
		}
		if kr.canonURL != "" {
			if j, ok := byURL[kr.canonURL]; ok {
				union(j, i)
			} else {
				byURL[kr.canonURL] = i
			}
		}
	}

	groups := make(map[int][]int)
	var roots []int
	for i := range keyed {
		r := find(i)
		if _, ok := groups[r]; !ok {
			roots = append(roots, r)
		}
		groups[r] = append(groups[r], i)
	}

	items := make([]Item, 0, len(roots))
	for _, r := range roots {
		items = append(items, mergeGroup(keyed, groups[r]))
	}
	report.Duplicates = len(keyed) - len(items)

	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.HasPublished() != b.HasPublished() {
			return a.HasPublished()
		}
		if !a.PublishedAt.Equal(b.PublishedAt) {
			return a.PublishedAt.After(b.PublishedAt)
		}
		return a.ID < b.ID
	})
	return items, report
}

// mergeGroup builds the Item for one equivalence class. members are in
// canonical order, so the first one has the earliest publication time.
func mergeGroup(keyed []keyedRecord, members []int) Item {
	lead := keyed[members[0]]
	summary := lead.rec.Summary
	occurrences := 0
	sourceSet := make(map[string]struct{})

	for _, m := range members {
		r := keyed[m].rec
		if len(r.Summary) > len(summary) {
			summary = r.Summary
		}
		if r.Occurrences > 0 {
			occurrences += r.Occurrences
		} else {
			occurrences++
		}
		if len(r.Sources) > 0 {
			for _, s := range r.Sources {
				if s = strings.TrimSpace(s); s != "" {
					sourceSet[s] = struct{}{}
				}
			}
		} else if s := strings.TrimSpace(r.SourceName); s != "" {
			sourceSet[s] = struct{}{}
		}
	}

	sources := make([]string, 0, len(sourceSet))
	for s := range sourceSet {
		sources = append(sources, s)
	}
	sort.Strings(sources)

	idKey := lead.normTitle
	if idKey == "" {
		idKey = lead.canonURL
	}

	return Item{
		ID:              MakeID(idKey, lead.rec.SourceName),
		Title:           lead.rec.Title,
		NormalizedTitle: lead.normTitle,
		URL:             lead.rec.URL,
		SourceName:      lead.rec.SourceName,
		PublishedAt:     lead.rec.PublishedAt,
		Summary:         summary,
		Occurrences:     occurrences,
		Sources:         sources,
	}
}

// recordLess is the canonical record order: earliest published first,
// undated last, then by content so equal timestamps never fall back to
// arrival order.
func recordLess(a, b keyedRecord) bool {
	ap, bp := !a.rec.PublishedAt.IsZero(), !b.rec.PublishedAt.IsZero()
	if ap != bp {
		return ap
	}
	if ap && !a.rec.PublishedAt.Equal(b.rec.PublishedAt) {
		return a.rec.PublishedAt.Before(b.rec.PublishedAt)
	}
	switch {
	case a.normTitle != b.normTitle:
		return a.normTitle < b.normTitle
	case a.canonURL != b.canonURL:
		return a.canonURL < b.canonURL
	case a.normSrc != b.normSrc:
		return a.normSrc < b.normSrc
	case a.rec.Summary != b.rec.Summary:
		return a.rec.Summary < b.rec.Summary
	case a.rec.Title != b.rec.Title:
		return a.rec.Title < b.rec.Title
	case a.rec.URL != b.rec.URL:
		return a.rec.URL < b.rec.URL
	case a.rec.SourceName != b.rec.SourceName:
		return a.rec.SourceName < b.rec.SourceName
	case a.rec.Occurrences != b.rec.Occurrences:
		return a.rec.Occurrences < b.rec.Occurrences
	}
	return a.sources < b.sources
}
