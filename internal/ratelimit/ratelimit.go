package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/deusflow/biobrief/internal/logger"
)

// ErrBudgetExhausted is returned once the per-run request cap is used up.
var ErrBudgetExhausted = errors.New("summary request budget exhausted")

// SummaryLimiter paces model requests and caps how many one run may make.
type SummaryLimiter struct {
	limiter *rate.Limiter

	mu          sync.Mutex
	used        int
	max         int
	cacheHits   int
	cacheMisses int
	tokensSaved int
}

// NewSummaryLimiter allows one request per interval, at most max per run
// (0 = unlimited). A zero interval disables pacing.
func NewSummaryLimiter(interval time.Duration, max int) *SummaryLimiter {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &SummaryLimiter{
		limiter: rate.NewLimiter(limit, 1),
		max:     max,
	}
}

// Acquire reserves one request, waiting for the pacing window.
func (rl *SummaryLimiter) Acquire(ctx context.Context) error {
	rl.mu.Lock()
	if rl.max > 0 && rl.used >= rl.max {
		rl.mu.Unlock()
		return ErrBudgetExhausted
	}
	rl.used++
	rl.cacheMisses++
	used, max := rl.used, rl.max
	rl.mu.Unlock()

	if err := rl.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for rate limiter: %w", err)
	}
	logger.Debug("Summary request", "used", used, "limit", max)
	return nil
}

// Remaining reports how many requests are left; -1 means unlimited.
func (rl *SummaryLimiter) Remaining() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.max == 0 {
		return -1
	}
	return rl.max - rl.used
}

// RecordCacheHit records a summary served from cache.
func (rl *SummaryLimiter) RecordCacheHit(estimatedTokens int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.cacheHits++
	rl.tokensSaved += estimatedTokens
}

// Reset starts a new run.
func (rl *SummaryLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.used = 0
	rl.cacheHits = 0
	rl.cacheMisses = 0
	rl.tokensSaved = 0
}

func (rl *SummaryLimiter) cacheHitRate() float64 {
	total := rl.cacheHits + rl.cacheMisses
	if total == 0 {
		return 0
	}
	return float64(rl.cacheHits) / float64(total) * 100
}

// GetStats returns current limiter statistics.
func (rl *SummaryLimiter) GetStats() map[string]interface{} {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return map[string]interface{}{
		"requests_used":  rl.used,
		"requests_limit": rl.max,
		"cache_hits":     rl.cacheHits,
		"cache_misses":   rl.cacheMisses,
		"cache_hit_rate": rl.cacheHitRate(),
		"tokens_saved":   rl.tokensSaved,
	}
}

// LogStats writes the statistics at info level.
func (rl *SummaryLimiter) LogStats() {
	stats := rl.GetStats()
	logger.Info("Summary limiter statistics",
		"used", stats["requests_used"],
		"limit", stats["requests_limit"],
		"cache_hits", stats["cache_hits"],
		"hit_rate", fmt.Sprintf("%.1f%%", stats["cache_hit_rate"]),
		"tokens_saved", stats["tokens_saved"])
}
