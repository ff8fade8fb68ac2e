package control

import (
	"context"
	"time"

	"github.com/vietddude/marketetl/internal/core/config"
	"github.com/vietddude/marketetl/internal/health"
	"github.com/vietddude/marketetl/internal/logging"
)

// Service is serve mode: a scheduler driving full runs plus the health and
// metrics endpoints.
type Service struct {
	app          *App
	scheduler    *Scheduler
	healthServer *health.Server
	log          logging.Logger
	done         chan struct{}
}

// NewService wraps app for long-running operation. Runs older than three
// intervals are reported as critical.
func NewService(app *App, cfg *config.AppConfig, log logging.Logger) *Service {
	interval := cfg.Schedule.Interval
	scheduler := NewScheduler(app.Orchestrator, interval, cfg.Schedule.RunOnStart, log)
	monitor := health.NewMonitor(scheduler, 3*interval)

	return &Service{
		app:          app,
		scheduler:    scheduler,
		healthServer: health.NewServer(monitor, cfg.Server.Port),
		log:          log,
		done:         make(chan struct{}),
	}
}

// Scheduler exposes the run loop, mainly for status reporting.
func (s *Service) Scheduler() *Scheduler {
	return s.scheduler
}

// Start launches the health server and the scheduler. It returns at once.
func (s *Service) Start(ctx context.Context) error {
	go func() {
		if err := s.healthServer.Start(); err != nil {
			s.log.Error("Health server failed", "error", err)
		}
	}()

	go func() {
		defer close(s.done)
		if err := s.scheduler.Start(ctx); err != nil {
			s.log.Error("Scheduler failed", "error", err)
		}
	}()

	return nil
}

// Stop waits for an in-flight run to observe cancellation, then shuts down
// the health server and releases the app.
func (s *Service) Stop(ctx context.Context) error {
	s.log.Info("Stopping service...")

	select {
	case <-s.done:
	case <-ctx.Done():
		s.log.Warn("Timed out waiting for the current run to finish")
	case <-time.After(30 * time.Second):
		s.log.Warn("Current run still in progress, shutting down anyway")
	}

	if err := s.app.Close(); err != nil {
		s.log.Warn("Failed to close app", "error", err)
	}

	return s.healthServer.Stop(ctx)
}
