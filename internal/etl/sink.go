package etl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vietddude/marketetl/internal/core/domain"
	"github.com/vietddude/marketetl/internal/infra/httpclient"
	"github.com/vietddude/marketetl/internal/infra/storage"
	"github.com/vietddude/marketetl/internal/logging"
)

var errNoSession = errors.New("store session not open")

// SinkConfig controls how a stage connects to the store.
type SinkConfig struct {
	// PingAttempts is how many times to try connecting before giving up.
	PingAttempts int
	// PingWait is the pause between connection attempts.
	PingWait time.Duration
}

// Sink is the stage-scoped handle on the destination store.
type Sink struct {
	store   storage.Store
	cfg     SinkConfig
	log     logging.Logger
	session storage.Session
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewSink(store storage.Store, cfg SinkConfig, log logging.Logger) *Sink {
	if cfg.PingAttempts < 1 {
		cfg.PingAttempts = 1
	}
	return &Sink{store: store, cfg: cfg, log: log, sleep: httpclient.Sleep}
}

// Open connects and pings, retrying up to PingAttempts times.
func (s *Sink) Open(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.PingAttempts; attempt++ {
		sess, err := s.store.Open(ctx)
		if err == nil {
			if err = sess.Ping(ctx); err == nil {
				s.session = sess
				return nil
			}
			_ = sess.Close(ctx)
		}
		lastErr = err
		s.log.Warn("Database not reachable", "attempt", attempt, "max_attempts", s.cfg.PingAttempts, "error", err)

		if attempt < s.cfg.PingAttempts {
			if err := s.sleep(ctx, s.cfg.PingWait); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("database unreachable after %d attempt(s): %w", s.cfg.PingAttempts, lastErr)
}

// Write stores b with mode.
func (s *Sink) Write(ctx context.Context, b domain.Batch, mode storage.WriteMode) (int, error) {
	if s.session == nil {
		return 0, &domain.PersistenceError{Table: b.Table, Op: mode.String(), Err: errNoSession}
	}
	n, err := s.session.Write(ctx, b, mode)
	if err != nil {
		return 0, err
	}
	s.log.Info("Rows written", "table", b.Table, "mode", mode.String(), "rows", n)
	return int(n), nil
}

// Close releases the session. It is a no-op when Open never succeeded.
func (s *Sink) Close(ctx context.Context) error {
	if s.session == nil {
		return nil
	}
	err := s.session.Close(ctx)
	s.session = nil
	return err
}

