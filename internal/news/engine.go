package news

import (
	"fmt"
	"time"
)

// EngineConfig is everything the engine needs besides the records and
// the clock.
type EngineConfig struct {
	Taxonomy Taxonomy      `yaml:"taxonomy"`
	Scoring  ScoringConfig `yaml:"scoring"`
	Budget   Budget        `yaml:"budget"`
}

// DefaultEngineConfig is a ten minute episode. Headlines get 60% of the
// 600 seconds, which fits two 180 second headlines; the remaining 240
// seconds fit twelve 20 second briefs. At most two headlines and three
// briefs share a topic.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Taxonomy: DefaultTaxonomy(),
		Scoring:  DefaultScoring(),
		Budget: Budget{
			MaxHeadlines:  6,
			MaxBriefs:     12,
			TotalUnits:    600,
			HeadlineUnits: 180,
			BriefUnits:    20,
			HeadlineShare: DefaultHeadlineShare,
			TopicCap:      2,
			BriefTopicCap: 3,
		},
	}
}

// Validate checks all three parts.
func (c EngineConfig) Validate() error {
	if err := c.Taxonomy.Validate(); err != nil {
		return fmt.Errorf("taxonomy: %w", err)
	}
	if err := c.Scoring.Validate(); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	if err := c.Budget.Validate(); err != nil {
		return fmt.Errorf("budget: %w", err)
	}
	return nil
}

// Engine runs dedupe, classify, score and select in that order.
type Engine struct {
	classifier *Classifier
	scorer     *Scorer
	budget     Budget
	topics     []Topic
}

// NewEngine validates cfg and compiles its tables.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if err := cfg.Budget.Validate(); err != nil {
		return nil, fmt.Errorf("budget: %w", err)
	}
	cl, err := NewClassifier(cfg.Taxonomy)
	if err != nil {
		return nil, err
	}
	sc, err := NewScorer(cfg.Scoring)
	if err != nil {
		return nil, err
	}
	return &Engine{classifier: cl, scorer: sc, budget: cfg.Budget, topics: cfg.Taxonomy.Topics()}, nil
}

// Result is one engine pass.
type Result struct {
	Report    DedupeReport
	Scored    []ScoredItem
	Selection Selection
}

// Run turns raw records into a selection as of now.
func (e *Engine) Run(records []RawRecord, now time.Time) Result {
	items, report := Dedupe(records)
	scored := e.ScoreItems(items, now)
	return Result{
		Report:    report,
		Scored:    scored,
		Selection: Select(scored, e.budget),
	}
}

// ScoreItems classifies and scores deduplicated items.
func (e *Engine) ScoreItems(items []Item, now time.Time) []ScoredItem {
	out := make([]ScoredItem, 0, len(items))
	for _, it := range items {
		topic := e.classifier.Classify(it)
		out = append(out, ScoredItem{Item: it, Topic: topic, Score: e.scorer.Score(it, topic, now)})
	}
	return out
}

// Budget returns the configured budget.
func (e *Engine) Budget() Budget { return e.budget }

// Topics returns the taxonomy topics in priority order.
func (e *Engine) Topics() []Topic {
	return append([]Topic(nil), e.topics...)
}
