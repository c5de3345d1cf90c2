package news

import (
	"math/rand"
	"reflect"
	"testing"
	"time"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultEngineConfig())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func engineRecords() []RawRecord {
	now := baseTime
	return []RawRecord{
		{Title: "FDA approves first CRISPR therapy for sickle cell", URL: "https://stat.example/crispr", SourceName: "STAT", PublishedAt: now.Add(-2 * time.Hour), Summary: "The approval marks a breakthrough for gene editing."},
		{Title: "FDA Approves First CRISPR Therapy for Sickle Cell", URL: "https://endpoints.example/crispr?utm_source=rss", SourceName: "Endpoints", PublishedAt: now.Add(-1 * time.Hour)},
		{Title: "Breaking: FDA approves first CRISPR therapy for sickle cell", URL: "https://fierce.example/a", SourceName: "Fierce Biotech", PublishedAt: now.Add(-3 * time.Hour)},
		{Title: "Oncology startup raises $80M Series B", URL: "https://fierce.example/b", SourceName: "Fierce Biotech", PublishedAt: now.Add(-5 * time.Hour), Summary: "Funding will advance its tumor platform."},
		{Title: "Gut microbiome linked to vaccine response", URL: "https://nature.example/gut", SourceName: "Nature", PublishedAt: now.Add(-20 * time.Hour), Summary: "A study of gut bacteria."},
		{Title: "New blood test improves early cancer detection", URL: "https://stat.example/test", SourceName: "STAT", PublishedAt: now.Add(-30 * time.Hour), Summary: "Screening with a biomarker panel."},
		{Title: "Rare disease drug gets orphan designation", URL: "https://biospace.example/orphan", SourceName: "BioSpace", Summary: "Orphan drug status for a genetic disorder."},
		{Title: "AI tool designs novel antibiotics", URL: "https://mit.example/ai", SourceName: "MIT News", PublishedAt: now.Add(-10 * time.Hour), Summary: "Machine learning platform screens pathogens."},
		{Title: "", URL: "", SourceName: "Broken feed"},
		{Title: "Pharma partnership targets infection", URL: "https://reuters.example/p", SourceName: "Reuters", PublishedAt: now.Add(-48 * time.Hour), Summary: "Collaboration on a new virus vaccine."},
	}
}

func TestEngineRunEmpty(t *testing.T) {
	e := newTestEngine(t)
	res := e.Run(nil, baseTime)
	if !res.Selection.Empty() {
		t.Errorf("expected empty selection, got %+v", res.Selection)
	}
	if res.Report.Input != 0 || res.Report.Duplicates != 0 || res.Report.Malformed != 0 {
		t.Errorf("unexpected report %+v", res.Report)
	}
}

func TestEngineRun(t *testing.T) {
	e := newTestEngine(t)
	res := e.Run(engineRecords(), baseTime)

	if res.Report.Malformed != 1 {
		t.Errorf("malformed = %d, want 1", res.Report.Malformed)
	}
	if res.Report.Duplicates != 2 {
		t.Errorf("duplicates = %d, want 2", res.Report.Duplicates)
	}
	if len(res.Scored) != 7 {
		t.Fatalf("scored = %d, want 7", len(res.Scored))
	}
	if len(res.Selection.Headlines) == 0 {
		t.Fatal("expected headlines")
	}
	top := res.Selection.Headlines[0]
	if top.Occurrences != 3 || top.Topic != Therapeutics {
		t.Errorf("top story = %q topic %s occ %d", top.Title, top.Topic, top.Occurrences)
	}
	if res.Selection.UnitsUsed > e.Budget().TotalUnits {
		t.Errorf("units used %d over %d", res.Selection.UnitsUsed, e.Budget().TotalUnits)
	}
	for _, it := range res.Scored {
		if it.Topic == "" {
			t.Errorf("item %q has no topic", it.Title)
		}
		if it.Score < 0 {
			t.Errorf("item %q has negative score", it.Title)
		}
	}
}

func TestEngineDeterministicUnderShuffle(t *testing.T) {
	e := newTestEngine(t)
	records := engineRecords()
	want := e.Run(records, baseTime)

	for seed := int64(0); seed < 25; seed++ {
		shuffled := append([]RawRecord(nil), records...)
		r := rand.New(rand.NewSource(seed))
		r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		got := e.Run(shuffled, baseTime)
		if !reflect.DeepEqual(got.Selection, want.Selection) {
			t.Fatalf("seed %d: selection differs", seed)
		}
		if !reflect.DeepEqual(got.Scored, want.Scored) {
			t.Fatalf("seed %d: scored items differ", seed)
		}
	}
}

func TestNewEngineRejectsBadConfig(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.Budget.MaxBriefs = -1
	if _, err := NewEngine(cfg); err == nil {
		t.Error("expected budget error")
	}

	cfg = DefaultEngineConfig()
	cfg.Taxonomy = append(cfg.Taxonomy, Category{Topic: Cancer})
	if _, err := NewEngine(cfg); err == nil {
		t.Error("expected taxonomy error")
	}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate should report the duplicate topic")
	}
}
