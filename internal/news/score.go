package news

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// ScoringConfig holds every weight the scorer uses.
type ScoringConfig struct {
	KeywordWeights map[string]float64 `yaml:"keyword_weights"`

	// Recency bonus is RecencyMax * 0.5^(age/HalfLife). Undated items get RecencyFloor.
	RecencyMax   float64       `yaml:"recency_max"`
	HalfLife     time.Duration `yaml:"half_life"`
	RecencyFloor float64       `yaml:"recency_floor"`

	// Corroboration bonus is PerOccurrence * min(occurrences, OccurrenceCap).
	PerOccurrence float64 `yaml:"per_occurrence"`
	OccurrenceCap int     `yaml:"occurrence_cap"`

	// Summaries longer than LengthThreshold characters earn LengthBonus.
	LengthBonus     float64 `yaml:"length_bonus"`
	LengthThreshold int     `yaml:"length_threshold"`

	TopicBoost map[Topic]float64 `yaml:"topic_boost"`
}

// DefaultScoring returns the weights tuned for biotech news.
func DefaultScoring() ScoringConfig {
	return ScoringConfig{
		KeywordWeights: map[string]float64{
			"clinical trial": 5,
			"fda":            5,
			"approval":       5,
			"breakthrough":   4,
			"discovery":      4,
			"first":          4,
			"novel":          4,
			"treatment":      3,
			"cure":           3,
			"drug":           3,
			"therapy":        3,
			"funding":        2,
			"investment":     2,
			"partnership":    2,
			"collaboration":  2,
			"study":          2,
			"research":       2,
			"development":    2,
		},
		RecencyMax:      2,
		HalfLife:        48 * time.Hour,
		RecencyFloor:    0,
		PerOccurrence:   2,
		OccurrenceCap:   5,
		LengthBonus:     1,
		LengthThreshold: 300,
	}
}

// Validate checks that the weights describe a non-negative score.
func (c ScoringConfig) Validate() error {
	for k, w := range c.KeywordWeights {
		if w < 0 {
			return fmt.Errorf("keyword %q: negative weight %v", k, w)
		}
	}
	if c.RecencyMax < 0 || c.RecencyFloor < 0 || c.PerOccurrence < 0 || c.LengthBonus < 0 {
		return fmt.Errorf("bonus weights must not be negative")
	}
	if c.RecencyMax > 0 && c.HalfLife <= 0 {
		return fmt.Errorf("half_life must be positive when recency_max is set")
	}
	if c.OccurrenceCap < 0 {
		return fmt.Errorf("occurrence_cap must not be negative")
	}
	for t, w := range c.TopicBoost {
		if w < 0 {
			return fmt.Errorf("topic %q: negative boost %v", t, w)
		}
	}
	return nil
}

type weightedPhrase struct {
	matcher phraseMatcher
	weight  float64
}

// Scorer computes impact scores. It holds no clock; callers pass now.
type Scorer struct {
	cfg      ScoringConfig
	keywords []weightedPhrase
}

// NewScorer compiles the keyword table in sorted order so that float
// sums are the same on every run.
func NewScorer(cfg ScoringConfig) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scoring config: %w", err)
	}
	keys := make([]string, 0, len(cfg.KeywordWeights))
	for k := range cfg.KeywordWeights {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	s := &Scorer{cfg: cfg}
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		m, ok := newPhraseMatcher(k)
		if !ok || seen[m.phrase] {
			continue
		}
		seen[m.phrase] = true
		s.keywords = append(s.keywords, weightedPhrase{matcher: m, weight: cfg.KeywordWeights[k]})
	}
	return s, nil
}

// Breakdown shows how a score was built.
type Breakdown struct {
	Matched       []string `json:"matched"`
	Keywords      float64  `json:"keywords"`
	Recency       float64  `json:"recency"`
	Corroboration float64  `json:"corroboration"`
	Length        float64  `json:"length"`
	TopicBoost    float64  `json:"topic_boost"`
	Total         float64  `json:"total"`
}

// Score returns the impact score of an item.
func (s *Scorer) Score(it Item, topic Topic, now time.Time) float64 {
	return s.Explain(it, topic, now).Total
}

// Explain returns the score with its components.
func (s *Scorer) Explain(it Item, topic Topic, now time.Time) Breakdown {
	var b Breakdown
	text := matchText(it)
	for _, kw := range s.keywords {
		if kw.matcher.match(text) {
			b.Keywords += kw.weight
			b.Matched = append(b.Matched, kw.matcher.phrase)
		}
	}
	b.Recency = s.recency(it.PublishedAt, now)

	occ := it.Occurrences
	if occ < 1 {
		occ = 1
	}
	if s.cfg.OccurrenceCap > 0 && occ > s.cfg.OccurrenceCap {
		occ = s.cfg.OccurrenceCap
	}
	b.Corroboration = s.cfg.PerOccurrence * float64(occ)

	if s.cfg.LengthThreshold > 0 && len(CollapseSpace(StripMarkup(it.Summary))) > s.cfg.LengthThreshold {
		b.Length = s.cfg.LengthBonus
	}
	b.TopicBoost = s.cfg.TopicBoost[topic]

	b.Total = b.Keywords + b.Recency + b.Corroboration + b.Length + b.TopicBoost
	if b.Total < 0 || math.IsNaN(b.Total) {
		b.Total = 0
	}
	return b
}

// recency decays by half every HalfLife. Future dates count as fresh.
func (s *Scorer) recency(published, now time.Time) float64 {
	if published.IsZero() {
		return s.cfg.RecencyFloor
	}
	if s.cfg.RecencyMax == 0 {
		return 0
	}
	age := now.Sub(published)
	if age < 0 {
		age = 0
	}
	return s.cfg.RecencyMax * math.Pow(0.5, age.Hours()/s.cfg.HalfLife.Hours())
}
