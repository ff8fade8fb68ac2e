// Package etl runs market-data stages through a fixed lifecycle:
// SetUp, Extract, Transform, Load, then TearDown no matter what happened.
package etl

import (
	"context"
	"fmt"
	"time"

	"github.com/vietddude/marketetl/internal/core/domain"
	"github.com/vietddude/marketetl/internal/etl/metrics"
	"github.com/vietddude/marketetl/internal/logging"
)

// Stage is one independent extraction job.
type Stage interface {
	Name() string
	// SetUp acquires the stage's resources, typically a store session.
	SetUp(ctx context.Context) error
	Extract(ctx context.Context) error
	Transform(ctx context.Context) error
	// Load writes the transformed rows and returns how many were written.
	Load(ctx context.Context) (int, error)
	// TearDown releases resources. It must cope with a failed SetUp.
	TearDown(ctx context.Context) error
}

// Execute drives s through its lifecycle and reports the outcome. The
// returned error is the one recorded in the result; a panic inside the
// stage is converted into a failure.
func Execute(ctx context.Context, s Stage, log logging.Logger) (result domain.StageResult, err error) {
	name := s.Name()
	log = log.With("stage", name)
	start := time.Now()
	rows := 0

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
		if tdErr := s.TearDown(context.WithoutCancel(ctx)); tdErr != nil {
			log.Warn("Teardown failed", "error", tdErr)
		}

		elapsed := time.Since(start)
		metrics.StageDuration.WithLabelValues(name).Observe(elapsed.Seconds())
		if err != nil {
			result = domain.Failed(name, err, elapsed)
			metrics.StageRunsTotal.WithLabelValues(name, string(domain.StageFailed)).Inc()
			log.Error("Stage failed", "error", err, "duration", elapsed)
			return
		}
		result = domain.Succeeded(name, rows, elapsed)
		metrics.StageRunsTotal.WithLabelValues(name, string(domain.StageSuccess)).Inc()
		metrics.StageRowsWritten.WithLabelValues(name).Set(float64(rows))
		log.Success("Stage completed", "rows", rows, "duration", elapsed)
	}()

	log.Info("Starting stage")
	rows, err = lifecycle(ctx, s, log)
	return result, err
}

func lifecycle(ctx context.Context, s Stage, log logging.Logger) (int, error) {
	if err := s.SetUp(ctx); err != nil {
		return 0, fmt.Errorf("setup: %w", err)
	}

	log.Debug("Extracting")
	if err := s.Extract(ctx); err != nil {
		return 0, fmt.Errorf("extract: %w", err)
	}

	log.Debug("Transforming")
	if err := s.Transform(ctx); err != nil {
		return 0, fmt.Errorf("transform: %w", err)
	}

	log.Debug("Loading")
	n, err := s.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load: %w", err)
	}
	return n, nil
}
