package control

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/vietddude/marketetl/internal/core/domain"
	"github.com/vietddude/marketetl/internal/logging"
)

// Scheduler repeats full runs on a fixed interval.
type Scheduler struct {
	runner     Runner
	interval   time.Duration
	runOnStart bool
	log        logging.Logger

	running atomic.Bool
	last    atomic.Pointer[domain.RunSummary]
}

func NewScheduler(runner Runner, interval time.Duration, runOnStart bool, log logging.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{runner: runner, interval: interval, runOnStart: runOnStart, log: log}
}

// Start blocks until ctx is done. Runs never overlap: a tick that arrives
// while a run is in progress is dropped by the ticker.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("scheduler already running")
	}
	defer s.running.Store(false)

	if s.runOnStart {
		s.tick(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("Scheduler started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	summary := s.runner.RunAll(ctx)
	if summary != nil && !summary.Skipped {
		s.last.Store(summary)
	}
}

// LastSummary returns the most recent completed run, or nil before the first.
func (s *Scheduler) LastSummary() *domain.RunSummary {
	return s.last.Load()
}
