package httpclient

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"
)

// RetryConfig defines retry behavior.
type RetryConfig struct {
	// MaxRetries is the number of attempts after the first one.
	MaxRetries    int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	// RetryStatuses are the HTTP statuses worth another attempt. Any other
	// non-2xx status fails the call at once.
	RetryStatuses []int
}

// DefaultRetryConfig provides sensible defaults.
var DefaultRetryConfig = RetryConfig{
	MaxRetries:    5,
	BaseDelay:     1 * time.Second,
	MaxDelay:      120 * time.Second,
	BackoffFactor: 2.0,
	RetryStatuses: []int{
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
	},
}

// idempotent reports whether method may be sent again after a failure.
func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// backoff returns the wait after the given failed attempt (1-indexed):
// BaseDelay * BackoffFactor^(attempt-1), capped at MaxDelay.
func (r RetryConfig) backoff(attempt int) time.Duration {
	delay := float64(r.BaseDelay) * math.Pow(r.BackoffFactor, float64(attempt-1))
	if r.MaxDelay > 0 && delay > float64(r.MaxDelay) {
		delay = float64(r.MaxDelay)
	}
	return time.Duration(delay)
}

// parseRetryAfter understands the delta-seconds form of Retry-After.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// Sleep waits for d or until ctx is done, whichever comes first. It returns
// ctx's error when the wait was cut short, including for a non-positive d.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
