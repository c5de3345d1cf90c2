package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestRecordRunAccumulates(t *testing.T) {
	m := New()
	m.RecordRun(RunCounts{Fetched: 10, Duplicates: 2, Malformed: 1, Headlines: 3, Briefs: 4})
	m.RecordRun(RunCounts{Fetched: 5, Headlines: 1})
	m.RecordProcessingTime(2 * time.Second)

	stats := m.GetStats()
	if stats["runs"] != int64(2) || stats["records_fetched"] != int64(15) {
		t.Errorf("stats = %v", stats)
	}
	if stats["headlines_selected"] != int64(4) || stats["malformed_records"] != int64(1) {
		t.Errorf("stats = %v", stats)
	}
	if stats["average_processing_time_ms"] != int64(1000) {
		t.Errorf("average = %v", stats["average_processing_time_ms"])
	}
	if _, ok := stats["last_run_time"]; ok {
		t.Error("last_run_time should be absent before SetLastRun")
	}
}

func TestHealthTransitions(t *testing.T) {
	m := New()
	if !m.Healthy() {
		t.Fatal("new metrics should be healthy")
	}
	m.SetError("feed fetch failed")
	if m.Healthy() {
		t.Error("expected unhealthy after error")
	}
	m.SetLastRun("run-1", "/tmp/run_1")
	if !m.Healthy() || m.LastBriefing() != "/tmp/run_1" {
		t.Errorf("healthy=%v path=%q", m.Healthy(), m.LastBriefing())
	}
}

func TestConcurrentIncrements(t *testing.T) {
	m := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.IncrementSummariesGenerated()
			m.IncrementPostsSent()
		}()
	}
	wg.Wait()
	if m.SummariesGenerated != 50 || m.PostsSent != 50 {
		t.Errorf("counts = %d/%d", m.SummariesGenerated, m.PostsSent)
	}
}
