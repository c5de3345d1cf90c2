package app

import (
	"context"
	"errors"
	"strings"

	"github.com/deusflow/biobrief/internal/briefing"
	"github.com/deusflow/biobrief/internal/cache"
	"github.com/deusflow/biobrief/internal/logger"
	"github.com/deusflow/biobrief/internal/metrics"
	"github.com/deusflow/biobrief/internal/ratelimit"
	"github.com/deusflow/biobrief/internal/scraper"
)

// estimatedTokensPerSummary is what a cache hit is assumed to save.
const estimatedTokensPerSummary = 1500

// Summarizer produces a short summary of an article.
type Summarizer interface {
	Summarize(ctx context.Context, title, content string) (string, error)
}

// ArticleFetcher downloads full article text.
type ArticleFetcher interface {
	ExtractAll(ctx context.Context, urls []string, concurrency int) map[string]*scraper.ArticleContent
}

// Enricher replaces extractive headline summaries with model summaries of
// the full article. Any failure keeps the extractive summary.
type Enricher struct {
	fetcher     ArticleFetcher
	summarizer  Summarizer
	limiter     *ratelimit.SummaryLimiter
	store       SummaryStore
	metrics     *metrics.Metrics
	concurrency int
}

func NewEnricher(f ArticleFetcher, s Summarizer, l *ratelimit.SummaryLimiter, store SummaryStore, m *metrics.Metrics, concurrency int) *Enricher {
	return &Enricher{fetcher: f, summarizer: s, limiter: l, store: store, metrics: m, concurrency: concurrency}
}

// Enrich updates headline entries in place and returns how many got a
// model summary.
func (e *Enricher) Enrich(ctx context.Context, out *briefing.Output) int {
	log := logger.With("enricher")
	headlines := out.Section(briefing.SectionHeadlines)
	if headlines == nil || len(headlines.Entries) == 0 {
		return 0
	}
	e.limiter.Reset()
	defer e.limiter.LogStats()

	var urls []string
	for _, entry := range headlines.Entries {
		if entry.URL != "" {
			urls = append(urls, entry.URL)
		}
	}
	log.Info("Enriching headlines", "entries", len(headlines.Entries), "budget_remaining", e.limiter.Remaining())
	articles := e.fetcher.ExtractAll(ctx, urls, e.concurrency)

	enriched := 0
	for i := range headlines.Entries {
		entry := &headlines.Entries[i]

		content := entry.Summary
		if a, ok := articles[entry.URL]; ok && a != nil {
			content = a.Content
		}
		if strings.TrimSpace(content) == "" {
			continue
		}

		key := cache.GenerateKey(entry.Title, content)
		if summary, ok := e.store.Get(ctx, key); ok {
			e.limiter.RecordCacheHit(estimatedTokensPerSummary)
			entry.Summary = summary
			enriched++
			continue
		}

		if err := e.limiter.Acquire(ctx); err != nil {
			if errors.Is(err, ratelimit.ErrBudgetExhausted) {
				log.Info("Summary budget used up, keeping extractive summaries", "remaining_entries", len(headlines.Entries)-i)
			} else {
				log.Warn("Summary rate limiter stopped", "error", err)
			}
			break
		}

		summary, err := e.summarizer.Summarize(ctx, entry.Title, content)
		if err != nil {
			log.Warn("Summary failed, keeping extractive text", "item", entry.ItemID, "error", err)
			e.metrics.IncrementSummariesFailed()
			continue
		}
		e.metrics.IncrementSummariesGenerated()
		e.store.Put(ctx, key, entry.Title, summary)
		entry.Summary = summary
		enriched++
	}
	return enriched
}
