package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrProviderInvalidResponse means a provider answered but the payload
	// failed its validity check. It triggers fallback, not a retry.
	ErrProviderInvalidResponse = errors.New("provider returned an unusable response")

	// ErrNoDataExtracted means no asset of a domain produced rows.
	ErrNoDataExtracted = errors.New("no data extracted")
)

// TransportError is a network or HTTP failure talking to a provider.
type TransportError struct {
	Method     string
	URL        string
	StatusCode int // 0 for connection-level failures
	Attempts   int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: http %d after %d attempt(s)", e.Method, e.URL, e.StatusCode, e.Attempts)
	}
	return fmt.Sprintf("%s %s: %v after %d attempt(s)", e.Method, e.URL, e.Err, e.Attempts)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProviderFailure records why one provider in a fallback chain was passed over.
type ProviderFailure struct {
	Provider string
	Err      error
}

// AllProvidersExhaustedError is returned when no provider in a chain yielded
// usable data for one asset.
type AllProvidersExhaustedError struct {
	Domain   string
	Asset    string
	Failures []ProviderFailure
}

func (e *AllProvidersExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Provider, f.Err))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("all providers exhausted for %s/%s", e.Domain, e.Asset)
	}
	return fmt.Sprintf("all providers exhausted for %s/%s (%s)", e.Domain, e.Asset, strings.Join(parts, "; "))
}

func (e *AllProvidersExhaustedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// PersistenceError wraps a failed write to the destination store.
type PersistenceError struct {
	Table string
	Op    string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s (%s): %v", e.Table, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
