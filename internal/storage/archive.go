package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/deusflow/biobrief/internal/logger"
)

// RunRecord is one archived briefing run.
type RunRecord struct {
	RunID            string    `json:"run_id"`
	Title            string    `json:"title"`
	GeneratedAt      time.Time `json:"generated_at"`
	PeriodStart      time.Time `json:"period_start"`
	PeriodEnd        time.Time `json:"period_end"`
	Fetched          int       `json:"fetched"`
	Duplicates       int       `json:"duplicates"`
	Malformed        int       `json:"malformed"`
	Headlines        int       `json:"headlines"`
	Briefs           int       `json:"briefs"`
	EstimatedSeconds int       `json:"estimated_seconds"`
	OutputDir        string    `json:"output_dir"`
}

// ItemRecord is one selected story of a run.
type ItemRecord struct {
	ItemID      string    `json:"item_id"`
	Section     string    `json:"section"`
	Position    int       `json:"position"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Topic       string    `json:"topic"`
	Score       float64   `json:"score"`
	Occurrences int       `json:"occurrences"`
	Sources     string    `json:"sources"`
	PublishedAt time.Time `json:"published_at"`
}

// SummaryCacheItem is a stored model summary keyed by content hash.
type SummaryCacheItem struct {
	ContentHash string
	Title       string
	Summary     string
	Provider    string
	CreatedAt   time.Time
	LastUsedAt  time.Time
	UseCount    int
}

// Archive stores runs and cached summaries in Postgres or SQLite.
type Archive struct {
	db      *sql.DB
	builder sq.StatementBuilderType
	driver  string
}

// OpenArchive connects using a DSN of the form postgres://... or
// sqlite:<path>. SQLite runs on a single connection.
func OpenArchive(ctx context.Context, dsn string) (*Archive, error) {
	driver, conn, err := parseDSN(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, conn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	a := &Archive{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholderFormat(driver)),
		driver:  driver,
	}

	if err := a.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.With("archive").Info("Archive connected", "driver", driver)
	return a, nil
}

func parseDSN(dsn string) (driver, conn string, err error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return "postgres", dsn, nil
	case strings.HasPrefix(dsn, "sqlite:"):
		path := strings.TrimPrefix(dsn, "sqlite:")
		if path == "" {
			return "", "", errors.New("sqlite dsn needs a path")
		}
		if path == ":memory:" {
			path = "file::memory:?cache=shared"
		}
		return "sqlite", path, nil
	default:
		return "", "", fmt.Errorf("unsupported archive dsn %q", dsn)
	}
}

// initSchema creates the tables if they don't exist. The DDL is shared by
// both drivers.
func (a *Archive) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS briefing_runs (
			run_id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			generated_at TIMESTAMP NOT NULL,
			period_start TIMESTAMP,
			period_end TIMESTAMP,
			fetched INTEGER NOT NULL DEFAULT 0,
			duplicates INTEGER NOT NULL DEFAULT 0,
			malformed INTEGER NOT NULL DEFAULT 0,
			headlines INTEGER NOT NULL DEFAULT 0,
			briefs INTEGER NOT NULL DEFAULT 0,
			estimated_seconds INTEGER NOT NULL DEFAULT 0,
			output_dir TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_briefing_runs_generated_at ON briefing_runs(generated_at)`,
		`CREATE TABLE IF NOT EXISTS briefing_items (
			run_id TEXT NOT NULL,
			item_id TEXT NOT NULL,
			section TEXT NOT NULL,
			position INTEGER NOT NULL,
			title TEXT NOT NULL,
			url TEXT,
			topic TEXT NOT NULL,
			score DOUBLE PRECISION NOT NULL,
			occurrences INTEGER NOT NULL,
			sources TEXT,
			published_at TIMESTAMP,
			PRIMARY KEY (run_id, item_id)
		)`,
		`CREATE TABLE IF NOT EXISTS summary_cache (
			content_hash TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			summary TEXT NOT NULL,
			provider TEXT,
			created_at TIMESTAMP NOT NULL,
			last_used_at TIMESTAMP NOT NULL,
			use_count INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE INDEX IF NOT EXISTS idx_summary_cache_last_used ON summary_cache(last_used_at)`,
	}
	for _, stmt := range statements {
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

// SaveRun stores a run and its selected items in one transaction. Saving
// the same run again replaces it.
func (a *Archive) SaveRun(ctx context.Context, run RunRecord, items []ItemRecord) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	del, args, err := a.builder.Delete("briefing_items").Where(sq.Eq{"run_id": run.RunID}).ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, del, args...); err != nil {
		return fmt.Errorf("failed to clear run items: %w", err)
	}

	query, args, err := a.builder.Insert("briefing_runs").
		Columns("run_id", "title", "generated_at", "period_start", "period_end",
			"fetched", "duplicates", "malformed", "headlines", "briefs", "estimated_seconds", "output_dir").
		Values(run.RunID, run.Title, run.GeneratedAt.UTC(), nullTime(run.PeriodStart), nullTime(run.PeriodEnd),
			run.Fetched, run.Duplicates, run.Malformed, run.Headlines, run.Briefs, run.EstimatedSeconds, run.OutputDir).
		Suffix(`ON CONFLICT (run_id) DO UPDATE SET
			title = EXCLUDED.title,
			generated_at = EXCLUDED.generated_at,
			fetched = EXCLUDED.fetched,
			duplicates = EXCLUDED.duplicates,
			malformed = EXCLUDED.malformed,
			headlines = EXCLUDED.headlines,
			briefs = EXCLUDED.briefs,
			estimated_seconds = EXCLUDED.estimated_seconds,
			output_dir = EXCLUDED.output_dir`).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	if len(items) > 0 {
		ins := a.builder.Insert("briefing_items").
			Columns("run_id", "item_id", "section", "position", "title", "url", "topic",
				"score", "occurrences", "sources", "published_at")
		for _, it := range items {
			ins = ins.Values(run.RunID, it.ItemID, it.Section, it.Position, it.Title, it.URL, it.Topic,
				it.Score, it.Occurrences, it.Sources, nullTime(it.PublishedAt))
		}
		query, args, err := ins.ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to save run items: %w", err)
		}
	}

	return tx.Commit()
}

// RecentRuns returns the latest runs, newest first.
func (a *Archive) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	query, args, err := a.builder.
		Select("run_id", "title", "generated_at", "fetched", "duplicates", "malformed",
			"headlines", "briefs", "estimated_seconds", "output_dir").
		From("briefing_runs").
		OrderBy("generated_at DESC", "run_id").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		var dir sql.NullString
		if err := rows.Scan(&r.RunID, &r.Title, &r.GeneratedAt, &r.Fetched, &r.Duplicates, &r.Malformed,
			&r.Headlines, &r.Briefs, &r.EstimatedSeconds, &dir); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.OutputDir = dir.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunItems returns the stored items of a run in section order.
func (a *Archive) RunItems(ctx context.Context, runID string) ([]ItemRecord, error) {
	query, args, err := a.builder.
		Select("item_id", "section", "position", "title", "url", "topic", "score", "occurrences", "sources").
		From("briefing_items").
		Where(sq.Eq{"run_id": runID}).
		OrderBy("section DESC", "position").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query run items: %w", err)
	}
	defer rows.Close()

	var items []ItemRecord
	for rows.Next() {
		var it ItemRecord
		var url, sources sql.NullString
		if err := rows.Scan(&it.ItemID, &it.Section, &it.Position, &it.Title, &url, &it.Topic,
			&it.Score, &it.Occurrences, &sources); err != nil {
			return nil, fmt.Errorf("failed to scan run item: %w", err)
		}
		it.URL = url.String
		it.Sources = sources.String
		items = append(items, it)
	}
	return items, rows.Err()
}

// GetSummary returns a cached summary. Found is false when there is none.
func (a *Archive) GetSummary(ctx context.Context, contentHash string) (SummaryCacheItem, bool, error) {
	var item SummaryCacheItem

	query, args, err := a.builder.
		Select("content_hash", "title", "summary", "provider", "created_at", "last_used_at", "use_count").
		From("summary_cache").
		Where(sq.Eq{"content_hash": contentHash}).
		ToSql()
	if err != nil {
		return item, false, err
	}

	var provider sql.NullString
	err = a.db.QueryRowContext(ctx, query, args...).Scan(
		&item.ContentHash, &item.Title, &item.Summary, &provider,
		&item.CreatedAt, &item.LastUsedAt, &item.UseCount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return item, false, nil
	}
	if err != nil {
		return item, false, fmt.Errorf("failed to get summary from cache: %w", err)
	}
	item.Provider = provider.String
	return item, true, nil
}

// SetSummary stores a summary, counting reuse on conflict.
func (a *Archive) SetSummary(ctx context.Context, item SummaryCacheItem) error {
	now := time.Now().UTC()
	query, args, err := a.builder.Insert("summary_cache").
		Columns("content_hash", "title", "summary", "provider", "created_at", "last_used_at", "use_count").
		Values(item.ContentHash, item.Title, item.Summary, item.Provider, now, now, 1).
		Suffix(`ON CONFLICT (content_hash) DO UPDATE SET
			summary = EXCLUDED.summary,
			provider = EXCLUDED.provider,
			last_used_at = EXCLUDED.last_used_at,
			use_count = summary_cache.use_count + 1`).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := a.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to set summary cache: %w", err)
	}
	return nil
}

// Cleanup removes cached summaries unused since before the TTL.
func (a *Archive) Cleanup(ctx context.Context, ttl time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-ttl)
	query, args, err := a.builder.Delete("summary_cache").Where(sq.Lt{"last_used_at": cutoff}).ToSql()
	if err != nil {
		return 0, err
	}
	result, err := a.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows > 0 {
		logger.With("archive").Info("Cleaned up cached summaries", "rows", rows)
	}
	return rows, nil
}

// placeholderFormat is $N for Postgres and ? for SQLite.
func placeholderFormat(driver string) sq.PlaceholderFormat {
	var format sq.PlaceholderFormat = sq.Dollar
	if driver == "sqlite" {
		format = sq.Question
	}
	return format
}

// Close closes the database connection
func (a *Archive) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
