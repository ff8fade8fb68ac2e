// Package control wires configuration into runnable pipelines and drives
// them, either once from the command line or on a schedule.
package control

import (
	"context"

	"github.com/vietddude/marketetl/internal/core/domain"
)

// Locker guards against overlapping runs.
type Locker interface {
	// Acquire returns ErrLockHeld from the redis package when another run
	// owns the lock.
	Acquire(ctx context.Context) (release func(), err error)
}

// Runner is what the scheduler triggers.
type Runner interface {
	RunAll(ctx context.Context) *domain.RunSummary
}
