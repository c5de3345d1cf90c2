// Package scheduler repeats briefing runs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/robfig/cron/v3"

	"github.com/deusflow/biobrief/internal/logger"
)

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// Scheduler runs a job on a cron schedule. A trigger that fires while the
// previous run is still going is skipped.
type Scheduler struct {
	cron    *cron.Cron
	job     Job
	ctx     context.Context
	running atomic.Bool
	wg      sync.WaitGroup
	entry   cron.EntryID
}

// New validates the schedule (standard five fields or descriptors like
// @daily) and registers job. Runs receive ctx.
func New(ctx context.Context, schedule string, job Job) (*Scheduler, error) {
	s := &Scheduler{
		cron: cron.New(),
		job:  job,
		ctx:  ctx,
	}
	id, err := s.cron.AddFunc(schedule, func() { s.Trigger() })
	if err != nil {
		return nil, fmt.Errorf("failed to add cron job: %w", err)
	}
	s.entry = id
	return s, nil
}

// Start begins firing on the schedule.
func (s *Scheduler) Start() {
	s.cron.Start()
	logger.With("scheduler").Info("Cron job started", "next", s.cron.Entry(s.entry).Next)
}

// Trigger runs the job now unless a run is in progress. It reports whether
// the job ran.
func (s *Scheduler) Trigger() bool {
	log := logger.With("scheduler")
	if !s.running.CompareAndSwap(false, true) {
		log.Warn("Run skipped: previous run still in progress")
		return false
	}
	s.wg.Add(1)
	defer func() {
		s.running.Store(false)
		s.wg.Done()
	}()

	if err := s.job(s.ctx); err != nil {
		log.Error("Scheduled run failed", "error", err)
	}
	return true
}

// Stop stops the schedule and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
}
