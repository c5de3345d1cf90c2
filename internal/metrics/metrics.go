package metrics

import (
	"sync"
	"time"
)

// RunCounts are the per-run numbers folded into the totals.
type RunCounts struct {
	Fetched    int
	Duplicates int
	Malformed  int
	Headlines  int
	Briefs     int
}

type Metrics struct {
	mu sync.RWMutex

	// Counters
	Runs               int64
	RecordsFetched     int64
	DuplicatesFiltered int64
	MalformedRecords   int64
	HeadlinesSelected  int64
	BriefsSelected     int64
	SummariesGenerated int64
	SummariesFailed    int64
	PostsSent          int64

	// Timings
	LastProcessingTime    time.Duration
	AverageProcessingTime time.Duration
	TotalProcessingTime   time.Duration

	// Status
	LastRunTime      time.Time
	LastRunID        string
	LastBriefingPath string
	LastErrorTime    time.Time
	LastError        string
	IsHealthy        bool
}

var Global = New()

func New() *Metrics {
	return &Metrics{IsHealthy: true}
}

func (m *Metrics) RecordRun(c RunCounts) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Runs++
	m.RecordsFetched += int64(c.Fetched)
	m.DuplicatesFiltered += int64(c.Duplicates)
	m.MalformedRecords += int64(c.Malformed)
	m.HeadlinesSelected += int64(c.Headlines)
	m.BriefsSelected += int64(c.Briefs)
}

func (m *Metrics) IncrementSummariesGenerated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SummariesGenerated++
}

func (m *Metrics) IncrementSummariesFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SummariesFailed++
}

func (m *Metrics) IncrementPostsSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PostsSent++
}

func (m *Metrics) RecordProcessingTime(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastProcessingTime = duration
	m.TotalProcessingTime += duration
	if m.Runs > 0 {
		m.AverageProcessingTime = m.TotalProcessingTime / time.Duration(m.Runs)
	}
}

// SetLastRun marks a successful run and where its briefing was written.
func (m *Metrics) SetLastRun(runID, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = time.Now()
	m.LastRunID = runID
	m.LastBriefingPath = path
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

// Healthy reports whether the last run finished without error.
func (m *Metrics) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.IsHealthy
}

// LastBriefing returns the run directory of the latest briefing, if any.
func (m *Metrics) LastBriefing() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastBriefingPath
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := map[string]interface{}{
		"runs":                       m.Runs,
		"records_fetched":            m.RecordsFetched,
		"duplicates_filtered":        m.DuplicatesFiltered,
		"malformed_records":          m.MalformedRecords,
		"headlines_selected":         m.HeadlinesSelected,
		"briefs_selected":            m.BriefsSelected,
		"summaries_generated":        m.SummariesGenerated,
		"summaries_failed":           m.SummariesFailed,
		"posts_sent":                 m.PostsSent,
		"last_processing_time_ms":    m.LastProcessingTime.Milliseconds(),
		"average_processing_time_ms": m.AverageProcessingTime.Milliseconds(),
		"last_run_id":                m.LastRunID,
		"last_briefing_path":         m.LastBriefingPath,
		"last_error":                 m.LastError,
		"is_healthy":                 m.IsHealthy,
	}
	if !m.LastRunTime.IsZero() {
		stats["last_run_time"] = m.LastRunTime.Format(time.RFC3339)
	}
	if !m.LastErrorTime.IsZero() {
		stats["last_error_time"] = m.LastErrorTime.Format(time.RFC3339)
	}
	return stats
}
