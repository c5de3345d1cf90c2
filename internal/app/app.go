// Package app wires feeds, the news engine and the outputs into one
// briefing run.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/deusflow/biobrief/internal/briefing"
	"github.com/deusflow/biobrief/internal/cache"
	"github.com/deusflow/biobrief/internal/config"
	"github.com/deusflow/biobrief/internal/gemini"
	"github.com/deusflow/biobrief/internal/logger"
	"github.com/deusflow/biobrief/internal/metrics"
	"github.com/deusflow/biobrief/internal/news"
	"github.com/deusflow/biobrief/internal/ratelimit"
	"github.com/deusflow/biobrief/internal/retry"
	"github.com/deusflow/biobrief/internal/rss"
	"github.com/deusflow/biobrief/internal/scraper"
	"github.com/deusflow/biobrief/internal/storage"
	"github.com/deusflow/biobrief/internal/telegram"
)

const dateLayout = "2006-01-02"

// Window is the publication period of a run. A zero window means the
// configured lookback ending now.
type Window struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether neither bound is set.
func (w Window) IsZero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

// ParseWindow builds a window from YYYY-MM-DD bounds or a day count. The
// end date is inclusive. With only days set the window ends at now.
func ParseWindow(start, end string, days int, now time.Time) (Window, error) {
	if start == "" && end == "" {
		if days <= 0 {
			return Window{}, nil
		}
		return Window{Start: now.AddDate(0, 0, -days), End: now}, nil
	}
	if start == "" || end == "" {
		return Window{}, fmt.Errorf("both start and end dates are required")
	}
	s, err := time.Parse(dateLayout, start)
	if err != nil {
		return Window{}, fmt.Errorf("invalid start date %q: %w", start, err)
	}
	e, err := time.Parse(dateLayout, end)
	if err != nil {
		return Window{}, fmt.Errorf("invalid end date %q: %w", end, err)
	}
	if e.Before(s) {
		return Window{}, fmt.Errorf("end date %s is before start date %s", end, start)
	}
	return Window{Start: s, End: e.Add(24*time.Hour - time.Nanosecond)}, nil
}

// FetchFunc loads feed entries. rss.FetchAll is the default.
type FetchFunc func(ctx context.Context, feeds []rss.Feed, opts rss.FetchOptions) []rss.FetchResult

// Poster delivers the rendered post.
type Poster interface {
	SendMessage(ctx context.Context, text string) error
}

// Archiver stores run history.
type Archiver interface {
	SaveRun(ctx context.Context, run storage.RunRecord, items []storage.ItemRecord) error
}

// RunHistory reads archived runs back.
type RunHistory interface {
	RecentRuns(ctx context.Context, limit int) ([]storage.RunRecord, error)
	RunItems(ctx context.Context, runID string) ([]storage.ItemRecord, error)
}

// summaryPruner is implemented by archives that hold a summary cache.
type summaryPruner interface {
	Cleanup(ctx context.Context, ttl time.Duration) (int64, error)
}

// App holds everything a run needs. Optional parts are nil when not
// configured.
type App struct {
	cfg      *config.Config
	engine   *news.Engine
	feeds    []rss.Feed
	fetch    FetchFunc
	writer   *storage.RunWriter
	archive  Archiver
	history  RunHistory
	enricher *Enricher
	poster   Poster
	metrics  *metrics.Metrics
	now      func() time.Time

	closers []func() error
}

// Option overrides a dependency, mostly for tests.
type Option func(*App)

func WithFetch(f FetchFunc) Option {
	return func(a *App) { a.fetch = f }
}

func WithPoster(p Poster) Option {
	return func(a *App) { a.poster = p }
}

func WithArchiver(ar Archiver) Option {
	return func(a *App) { a.archive = ar }
}

func WithEnricher(e *Enricher) Option {
	return func(a *App) { a.enricher = e }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

func WithFeeds(feeds []rss.Feed) Option {
	return func(a *App) { a.feeds = feeds }
}

func WithOutputDir(dir string) Option {
	return func(a *App) { a.writer = storage.NewRunWriter(dir) }
}

// History returns the run archive, or nil when none is configured.
func (a *App) History() RunHistory { return a.history }

// Writer returns the run writer.
func (a *App) Writer() *storage.RunWriter { return a.writer }

// Metrics returns the metrics sink.
func (a *App) Metrics() *metrics.Metrics { return a.metrics }

// New builds the engine and connects the integrations the config enables.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	engine, err := news.NewEngine(cfg.Engine)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	a := &App{
		cfg:     cfg,
		engine:  engine,
		fetch:   rss.FetchAll,
		writer:  storage.NewRunWriter(cfg.OutputDir),
		metrics: metrics.Global,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.feeds == nil {
		feeds, err := rss.LoadFeeds(cfg.FeedsConfigPath)
		if err != nil {
			return nil, err
		}
		a.feeds = feeds
	}

	var archive *storage.Archive
	if a.archive == nil && cfg.ArchiveDSN != "" {
		archive, err = storage.OpenArchive(ctx, cfg.ArchiveDSN)
		if err != nil {
			return nil, fmt.Errorf("archive: %w", err)
		}
		a.archive = archive
		a.closers = append(a.closers, archive.Close)
	}
	if h, ok := a.archive.(RunHistory); ok && a.history == nil {
		a.history = h
	}

	if a.enricher == nil && cfg.GeminiEnabled() {
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			a.Close()
			return nil, err
		}
		mem := cache.New(time.Hour)
		a.closers = append(a.closers, func() error { client.Close(); mem.Close(); return nil })

		memStore := NewMemoryStore(mem, cfg.CacheTTL)
		var store SummaryStore = memStore
		if archive != nil {
			store = NewArchiveStore(memStore, archive)
		}
		a.enricher = NewEnricher(
			scraper.New(cfg.RequestTimeout),
			client,
			ratelimit.NewSummaryLimiter(cfg.GeminiInterval, cfg.MaxGeminiRequests),
			store,
			a.metrics,
			cfg.ScrapeConcurrency,
		)
	}

	if a.poster == nil && cfg.TelegramEnabled() {
		a.poster = telegram.NewClient(cfg.TelegramToken, cfg.TelegramChatID,
			telegram.WithRetry(retry.RetryConfig{MaxAttempts: cfg.RetryAttempts, Delay: cfg.RetryDelay, Backoff: true}))
	}

	return a, nil
}

// Close releases clients and connections.
func (a *App) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}

// Report is the result of one run.
type Report struct {
	RunID  string
	Dir    string
	Output briefing.Output
	Stats  briefing.RunStats
}

// Run fetches, selects, assembles and writes one briefing. Delivery and
// archiving happen after the files are on disk.
func (a *App) Run(ctx context.Context, window Window) (*Report, error) {
	started := time.Now()
	now := a.now().UTC()
	runID := uuid.New().String()
	log := logger.With("app").With("run_id", runID)

	if window.IsZero() {
		window.Start, window.End = a.cfg.Window(now)
	}
	log.Info("Starting briefing run", "feeds", len(a.feeds),
		"start", window.Start.Format(dateLayout), "end", window.End.Format(dateLayout))

	results := a.fetch(ctx, a.feeds, rss.FetchOptions{
		Timeout:     a.cfg.RequestTimeout,
		Retry:       retry.RetryConfig{MaxAttempts: a.cfg.RetryAttempts, Delay: a.cfg.RetryDelay, Backoff: true},
		Concurrency: a.cfg.ScrapeConcurrency,
	})
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("fetch cancelled: %w", err)
	}

	stats := briefing.RunStats{Feeds: len(results)}
	for _, r := range results {
		if r.Err != nil {
			stats.FeedErrors++
		}
	}
	records := rss.Records(results)
	stats.Fetched = len(records)

	records = rss.FilterWindow(records, window.Start, window.End)
	stats.InWindow = len(records)

	res := a.engine.Run(records, now)
	stats.Duplicates = res.Report.Duplicates
	stats.Malformed = res.Report.Malformed
	stats.Scored = len(res.Scored)
	stats.Omitted = len(res.Selection.Omitted)
	for _, p := range res.Report.Problems {
		log.Debug("Skipped record", "error", p)
	}

	out := briefing.Assemble(res.Selection, briefing.RunMetadata{
		RunID:       runID,
		Title:       a.cfg.BriefTitle,
		GeneratedAt: now,
		PeriodStart: window.Start,
		PeriodEnd:   window.End,
		TopicOrder:  a.engine.Topics(),
	})

	if a.enricher != nil && !out.Empty {
		stats.Enriched = a.enricher.Enrich(ctx, &out)
	}

	dir, err := a.writer.Write(out, stats)
	if err != nil {
		a.metrics.SetError(err.Error())
		return nil, fmt.Errorf("write briefing: %w", err)
	}

	a.metrics.RecordRun(metrics.RunCounts{
		Fetched:    stats.Fetched,
		Duplicates: stats.Duplicates,
		Malformed:  stats.Malformed,
		Headlines:  len(res.Selection.Headlines),
		Briefs:     len(res.Selection.Briefs),
	})

	if a.archive != nil {
		if err := a.archive.SaveRun(ctx, runRecord(out, stats, dir), itemRecords(out)); err != nil {
			log.Warn("Archive write failed", "error", err)
		}
		if p, ok := a.archive.(summaryPruner); ok && a.cfg.CacheTTL > 0 {
			if _, err := p.Cleanup(ctx, a.cfg.CacheTTL); err != nil {
				log.Warn("Summary cache cleanup failed", "error", err)
			}
		}
	}

	report := &Report{RunID: runID, Dir: dir, Output: out, Stats: stats}

	if a.poster != nil && !out.Empty {
		if err := a.poster.SendMessage(ctx, briefing.RenderTelegram(out)); err != nil {
			a.metrics.SetError(err.Error())
			return report, fmt.Errorf("deliver briefing: %w", err)
		}
		a.metrics.IncrementPostsSent()
	}

	a.metrics.RecordProcessingTime(time.Since(started))
	a.metrics.SetLastRun(runID, dir)
	log.Info("Briefing written", "dir", dir,
		"fetched", stats.Fetched, "duplicates", stats.Duplicates, "malformed", stats.Malformed,
		"headlines", len(res.Selection.Headlines), "briefs", len(res.Selection.Briefs),
		"units_used", res.Selection.UnitsUsed, "unit_budget", a.engine.Budget().TotalUnits)
	return report, nil
}

func runRecord(out briefing.Output, stats briefing.RunStats, dir string) storage.RunRecord {
	return storage.RunRecord{
		RunID:            out.RunID,
		Title:            out.Title,
		GeneratedAt:      out.GeneratedAt,
		PeriodStart:      out.PeriodStart,
		PeriodEnd:        out.PeriodEnd,
		Fetched:          stats.Fetched,
		Duplicates:       stats.Duplicates,
		Malformed:        stats.Malformed,
		Headlines:        len(out.Section(briefing.SectionHeadlines).Entries),
		Briefs:           len(out.Section(briefing.SectionBriefs).Entries),
		EstimatedSeconds: out.EstimatedSeconds,
		OutputDir:        dir,
	}
}

func itemRecords(out briefing.Output) []storage.ItemRecord {
	var items []storage.ItemRecord
	for _, kind := range []briefing.SectionKind{briefing.SectionHeadlines, briefing.SectionBriefs} {
		for i, e := range out.Section(kind).Entries {
			items = append(items, storage.ItemRecord{
				ItemID:      e.ItemID,
				Section:     string(kind),
				Position:    i,
				Title:       e.Title,
				URL:         e.URL,
				Topic:       string(e.Topic),
				Score:       e.Score,
				Occurrences: e.Occurrences,
				Sources:     strings.Join(e.Sources, ", "),
				PublishedAt: e.PublishedAt,
			})
		}
	}
	return items
}
