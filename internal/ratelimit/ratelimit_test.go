package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAcquireRespectsCap(t *testing.T) {
	t.Parallel()
	rl := NewSummaryLimiter(0, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := rl.Acquire(ctx); err != nil {
			t.Fatalf("Acquire %d: %v", i, err)
		}
	}
	if err := rl.Acquire(ctx); !errors.Is(err, ErrBudgetExhausted) {
		t.Errorf("third Acquire = %v, want ErrBudgetExhausted", err)
	}
	if rl.Remaining() != 0 {
		t.Errorf("Remaining = %d", rl.Remaining())
	}

	rl.Reset()
	if rl.Remaining() != 2 {
		t.Errorf("Remaining after reset = %d", rl.Remaining())
	}
}

func TestAcquireUnlimited(t *testing.T) {
	t.Parallel()
	rl := NewSummaryLimiter(0, 0)
	for i := 0; i < 10; i++ {
		if err := rl.Acquire(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if rl.Remaining() != -1 {
		t.Errorf("Remaining = %d, want -1", rl.Remaining())
	}
}

func TestAcquireHonoursContext(t *testing.T) {
	t.Parallel()
	rl := NewSummaryLimiter(time.Hour, 0)
	if err := rl.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := rl.Acquire(ctx); err == nil {
		t.Error("second Acquire should fail while the limiter is waiting an hour")
	}
}

func TestCacheHitRate(t *testing.T) {
	t.Parallel()
	rl := NewSummaryLimiter(0, 0)
	_ = rl.Acquire(context.Background())
	rl.RecordCacheHit(100)
	stats := rl.GetStats()
	if stats["cache_hit_rate"] != 50.0 || stats["tokens_saved"] != 100 {
		t.Errorf("stats = %v", stats)
	}
}
