package news

import (
	"fmt"
	"math"
	"sort"
)

// DefaultHeadlineShare is the part of a unit budget reserved for
// headlines when HeadlineShare is left at zero.
const DefaultHeadlineShare = 0.6

// Budget bounds a selection. With TotalUnits set, tier capacities come
// from unit costs and MaxHeadlines/MaxBriefs become optional upper
// bounds (zero means no bound). Otherwise MaxHeadlines and MaxBriefs
// are the capacities.
type Budget struct {
	MaxHeadlines int `yaml:"max_headlines" json:"max_headlines"`
	MaxBriefs    int `yaml:"max_briefs" json:"max_briefs"`

	TotalUnits    int     `yaml:"total_units" json:"total_units,omitempty"`
	HeadlineUnits int     `yaml:"headline_units" json:"headline_units,omitempty"`
	BriefUnits    int     `yaml:"brief_units" json:"brief_units,omitempty"`
	HeadlineShare float64 `yaml:"headline_share" json:"headline_share,omitempty"`

	// Per-topic caps; zero or less means unlimited.
	TopicCap      int `yaml:"topic_cap" json:"topic_cap"`
	BriefTopicCap int `yaml:"brief_topic_cap" json:"brief_topic_cap"`
}

// UnitMode reports whether capacities are derived from unit costs.
func (b Budget) UnitMode() bool {
	return b.TotalUnits > 0
}

// Validate reports contract violations. Select panics on the same input.
func (b Budget) Validate() error {
	if b.MaxHeadlines < 0 || b.MaxBriefs < 0 || b.TotalUnits < 0 || b.HeadlineUnits < 0 || b.BriefUnits < 0 {
		return fmt.Errorf("budget values must not be negative: %+v", b)
	}
	if b.HeadlineShare < 0 || b.HeadlineShare > 1 || math.IsNaN(b.HeadlineShare) {
		return fmt.Errorf("headline_share must be within [0, 1], got %v", b.HeadlineShare)
	}
	if b.UnitMode() && (b.HeadlineUnits == 0 || b.BriefUnits == 0) {
		return fmt.Errorf("unit budget needs positive headline_units and brief_units")
	}
	return nil
}

func (b Budget) headlineCapacity() int {
	if !b.UnitMode() {
		return b.MaxHeadlines
	}
	share := b.HeadlineShare
	if share == 0 {
		share = DefaultHeadlineShare
	}
	// epsilon keeps 600*0.6/180 at 2 despite float rounding
	n := int(math.Floor(float64(b.TotalUnits)*share/float64(b.HeadlineUnits) + 1e-9))
	if b.MaxHeadlines > 0 && n > b.MaxHeadlines {
		n = b.MaxHeadlines
	}
	return n
}

func (b Budget) briefCapacity(headlines int) int {
	if !b.UnitMode() {
		return b.MaxBriefs
	}
	left := b.TotalUnits - headlines*b.HeadlineUnits
	if left <= 0 {
		return 0
	}
	n := left / b.BriefUnits
	if b.MaxBriefs > 0 && n > b.MaxBriefs {
		n = b.MaxBriefs
	}
	return n
}

// Selection is the ordered output of Select. Omitted holds every ranked
// item that made neither tier, in rank order.
type Selection struct {
	Headlines []ScoredItem `json:"headlines"`
	Briefs    []ScoredItem `json:"briefs"`
	Omitted   []ScoredItem `json:"omitted"`
	UnitsUsed int          `json:"units_used,omitempty"`
}

// Empty reports whether nothing was selected.
func (s Selection) Empty() bool {
	return len(s.Headlines) == 0 && len(s.Briefs) == 0
}

// Selected returns headlines followed by briefs.
func (s Selection) Selected() []ScoredItem {
	out := make([]ScoredItem, 0, len(s.Headlines)+len(s.Briefs))
	out = append(out, s.Headlines...)
	return append(out, s.Briefs...)
}

// RankLess orders by score, then earliest publication (undated last),
// then identifier.
func RankLess(a, b ScoredItem) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.HasPublished() != b.HasPublished() {
		return a.HasPublished()
	}
	if !a.PublishedAt.Equal(b.PublishedAt) {
		return a.PublishedAt.Before(b.PublishedAt)
	}
	return a.ID < b.ID
}

// Rank returns a sorted copy of items.
func Rank(items []ScoredItem) []ScoredItem {
	ranked := append([]ScoredItem(nil), items...)
	sort.SliceStable(ranked, func(i, j int) bool { return RankLess(ranked[i], ranked[j]) })
	return ranked
}

// Select fills the headline tier greedily under the topic cap, then the
// brief tier from what is left. Consecutive briefs avoid repeating a
// topic when a lower-ranked alternative exists. It panics on an invalid
// budget.
func Select(items []ScoredItem, b Budget) Selection {
	if err := b.Validate(); err != nil {
		panic("news: " + err.Error())
	}
	ranked := Rank(items)
	var sel Selection

	hcap := b.headlineCapacity()
	perTopic := make(map[Topic]int)
	pool := make([]ScoredItem, 0, len(ranked))
	for _, it := range ranked {
		if len(sel.Headlines) >= hcap || (b.TopicCap > 0 && perTopic[it.Topic] >= b.TopicCap) {
			pool = append(pool, it)
			continue
		}
		sel.Headlines = append(sel.Headlines, it)
		perTopic[it.Topic]++
	}

	bcap := b.briefCapacity(len(sel.Headlines))
	briefTopic := make(map[Topic]int)
	eligible := func(it ScoredItem) bool {
		return b.BriefTopicCap <= 0 || briefTopic[it.Topic] < b.BriefTopicCap
	}
	for len(sel.Briefs) < bcap {
		pick := -1
		for i, it := range pool {
			if eligible(it) {
				pick = i
				break
			}
		}
		if pick < 0 {
			break
		}
		if n := len(sel.Briefs); n > 0 && pool[pick].Topic == sel.Briefs[n-1].Topic {
			for j := pick + 1; j < len(pool); j++ {
				if pool[j].Topic != pool[pick].Topic && eligible(pool[j]) {
					pick = j
					break
				}
			}
		}
		it := pool[pick]
		pool = append(pool[:pick], pool[pick+1:]...)
		sel.Briefs = append(sel.Briefs, it)
		briefTopic[it.Topic]++
	}
	sel.Omitted = pool

	if b.UnitMode() {
		sel.UnitsUsed = len(sel.Headlines)*b.HeadlineUnits + len(sel.Briefs)*b.BriefUnits
	}
	return sel
}
