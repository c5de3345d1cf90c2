package news

import (
	"math"
	"testing"
	"time"
)

func testScoring() ScoringConfig {
	cfg := DefaultScoring()
	cfg.LengthThreshold = 0
	return cfg
}

func newTestScorer(t *testing.T, cfg ScoringConfig) *Scorer {
	t.Helper()
	s, err := NewScorer(cfg)
	if err != nil {
		t.Fatalf("NewScorer: %v", err)
	}
	return s
}

func TestScoreKeywordItemBeatsPlainItem(t *testing.T) {
	s := newTestScorer(t, testScoring())
	hot := Item{Title: "FDA approves breakthrough gene therapy", PublishedAt: baseTime, Occurrences: 1}
	plain := Item{Title: "Lab moves to a new building", PublishedAt: baseTime, Occurrences: 1}

	hotScore := s.Score(hot, Therapeutics, baseTime)
	plainScore := s.Score(plain, General, baseTime)
	if hotScore <= plainScore {
		t.Errorf("keyword item (%f) should outscore plain item (%f)", hotScore, plainScore)
	}

	b := s.Explain(hot, Therapeutics, baseTime)
	if b.Keywords != 12 {
		t.Errorf("keyword sum = %v, want 12 (fda, breakthrough, therapy), matched %v", b.Keywords, b.Matched)
	}
}

func TestScoreKeywordCountsOnce(t *testing.T) {
	s := newTestScorer(t, testScoring())
	it := Item{Title: "drug drug drug", Summary: "another drug"}
	if got := s.Explain(it, General, baseTime).Keywords; got != 3 {
		t.Errorf("keyword sum = %v, want 3", got)
	}
}

func TestScoreKeywordNeedsWordStart(t *testing.T) {
	s := newTestScorer(t, testScoring())
	it := Item{Title: "Secure storage for lab records", Occurrences: 1}
	if b := s.Explain(it, General, baseTime); b.Keywords != 0 {
		t.Errorf("keyword sum = %v, matched %v; \"cure\" should not match inside \"secure\"", b.Keywords, b.Matched)
	}
	it.Title = "Drugs that cured mice"
	if b := s.Explain(it, General, baseTime); b.Keywords != 6 {
		t.Errorf("keyword sum = %v, want 6 (drug, cure), matched %v", b.Keywords, b.Matched)
	}
}

func TestScoreRecencyDecay(t *testing.T) {
	s := newTestScorer(t, testScoring())
	now := baseTime

	fresh := s.Explain(Item{PublishedAt: now}, General, now).Recency
	halfLife := s.Explain(Item{PublishedAt: now.Add(-48 * time.Hour)}, General, now).Recency
	old := s.Explain(Item{PublishedAt: now.Add(-96 * time.Hour)}, General, now).Recency
	future := s.Explain(Item{PublishedAt: now.Add(6 * time.Hour)}, General, now).Recency
	undated := s.Explain(Item{}, General, now).Recency

	if fresh != 2 {
		t.Errorf("fresh recency = %v, want 2", fresh)
	}
	if math.Abs(halfLife-1) > 1e-9 {
		t.Errorf("recency at half-life should be 1, got %v", halfLife)
	}
	if math.Abs(old-0.5) > 1e-9 {
		t.Errorf("recency at two half-lives should be 0.5, got %v", old)
	}
	if future != fresh {
		t.Errorf("future-dated item should count as fresh, got %v", future)
	}
	if undated != 0 {
		t.Errorf("undated recency should be the floor 0, got %v", undated)
	}
}

func TestScoreRecencyFloor(t *testing.T) {
	cfg := testScoring()
	cfg.RecencyFloor = 0.25
	s := newTestScorer(t, cfg)
	if got := s.Explain(Item{}, General, baseTime).Recency; got != 0.25 {
		t.Errorf("undated recency = %v, want 0.25", got)
	}
}

func TestScoreCorroborationCapped(t *testing.T) {
	s := newTestScorer(t, testScoring())
	tests := []struct {
		occ  int
		want float64
	}{
		{0, 2},
		{1, 2},
		{3, 6},
		{5, 10},
		{40, 10},
	}
	for _, tt := range tests {
		if got := s.Explain(Item{Occurrences: tt.occ}, General, baseTime).Corroboration; got != tt.want {
			t.Errorf("occurrences %d: bonus = %v, want %v", tt.occ, got, tt.want)
		}
	}
}

func TestScoreLengthAndTopicBoost(t *testing.T) {
	cfg := DefaultScoring()
	cfg.LengthThreshold = 10
	cfg.TopicBoost = map[Topic]float64{Cancer: 1.5}
	s := newTestScorer(t, cfg)

	it := Item{Summary: "<p>twenty characters here</p>"}
	b := s.Explain(it, Cancer, baseTime)
	if b.Length != 1 {
		t.Errorf("length bonus = %v, want 1", b.Length)
	}
	if b.TopicBoost != 1.5 {
		t.Errorf("topic boost = %v, want 1.5", b.TopicBoost)
	}
	if got := s.Explain(it, Genetics, baseTime).TopicBoost; got != 0 {
		t.Errorf("unboosted topic got %v", got)
	}
}

func TestScoreDeterministic(t *testing.T) {
	s := newTestScorer(t, DefaultScoring())
	it := Item{Title: "Novel CRISPR therapy enters clinical trial after funding", Summary: "First patients dosed in the study.", PublishedAt: baseTime.Add(-13 * time.Hour), Occurrences: 4}
	first := s.Score(it, Genetics, baseTime)
	for i := 0; i < 50; i++ {
		other := newTestScorer(t, DefaultScoring())
		if got := other.Score(it, Genetics, baseTime); got != first {
			t.Fatalf("score changed between runs: %v vs %v", got, first)
		}
	}
	if first < 0 {
		t.Errorf("score must not be negative: %v", first)
	}
}

func TestScoringValidate(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*ScoringConfig)
	}{
		{"negative keyword", func(c *ScoringConfig) { c.KeywordWeights["fda"] = -1 }},
		{"zero half life", func(c *ScoringConfig) { c.HalfLife = 0 }},
		{"negative cap", func(c *ScoringConfig) { c.OccurrenceCap = -1 }},
		{"negative boost", func(c *ScoringConfig) { c.TopicBoost = map[Topic]float64{Cancer: -2} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultScoring()
			tt.mod(&cfg)
			if _, err := NewScorer(cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}
