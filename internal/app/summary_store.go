package app

import (
	"context"
	"time"

	"github.com/deusflow/biobrief/internal/cache"
	"github.com/deusflow/biobrief/internal/logger"
	"github.com/deusflow/biobrief/internal/storage"
)

// SummaryStore remembers model summaries between headline stories and
// between runs.
type SummaryStore interface {
	Get(ctx context.Context, key string) (string, bool)
	Put(ctx context.Context, key, title, summary string)
}

// MemoryStore keeps summaries in process memory.
type MemoryStore struct {
	cache *cache.Cache
	ttl   time.Duration
}

func NewMemoryStore(c *cache.Cache, ttl time.Duration) *MemoryStore {
	return &MemoryStore{cache: c, ttl: ttl}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool) {
	return m.cache.Get(key)
}

func (m *MemoryStore) Put(_ context.Context, key, _ string, summary string) {
	m.cache.Set(key, summary, m.ttl)
}

// ArchiveStore checks memory first, then the archive's summary table, so
// a restarted process still reuses old summaries.
type ArchiveStore struct {
	memory  *MemoryStore
	archive *storage.Archive
}

func NewArchiveStore(memory *MemoryStore, archive *storage.Archive) *ArchiveStore {
	return &ArchiveStore{memory: memory, archive: archive}
}

func (s *ArchiveStore) Get(ctx context.Context, key string) (string, bool) {
	if v, ok := s.memory.Get(ctx, key); ok {
		return v, true
	}
	item, found, err := s.archive.GetSummary(ctx, key)
	if err != nil {
		logger.With("archive").Warn("Summary cache lookup failed", "error", err)
		return "", false
	}
	if !found {
		return "", false
	}
	s.memory.Put(ctx, key, item.Title, item.Summary)
	return item.Summary, true
}

func (s *ArchiveStore) Put(ctx context.Context, key, title, summary string) {
	s.memory.Put(ctx, key, title, summary)
	err := s.archive.SetSummary(ctx, storage.SummaryCacheItem{
		ContentHash: key,
		Title:       title,
		Summary:     summary,
		Provider:    "gemini",
	})
	if err != nil {
		logger.With("archive").Warn("Summary cache write failed", "error", err)
	}
}
