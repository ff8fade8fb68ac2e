// Package fallback resolves one asset against an ordered chain of providers.
// The first provider whose response passes its validity check wins; a
// transport error or an unusable payload moves on to the next one.
package fallback

import (
	"context"
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/vietddude/marketetl/internal/core/domain"
	"github.com/vietddude/marketetl/internal/etl/metrics"
	"github.com/vietddude/marketetl/internal/infra/httpclient"
	"github.com/vietddude/marketetl/internal/logging"
)

// Provider is one upstream source for assets of type A producing rows of type R.
// Valid must be a pure check on the payload; errors are for transport only.
type Provider[A fmt.Stringer, R any] interface {
	Name() string
	Fetch(ctx context.Context, asset A) (gjson.Result, error)
	Valid(res gjson.Result) bool
	Normalize(res gjson.Result, asset A) ([]R, error)
}

// Spec is one position in a fallback chain.
type Spec[A fmt.Stringer, R any] struct {
	Provider Provider[A, R]
	// Skip, when set, excludes the provider for assets it cannot serve.
	Skip func(asset A) bool
}

// Config holds resolver settings.
type Config struct {
	// Domain labels logs, metrics and errors.
	Domain string
	// Wait is the courtesy delay between consecutive assets in ResolveEach.
	Wait time.Duration
}

// Resolver walks a fixed provider chain.
type Resolver[A fmt.Stringer, R any] struct {
	cfg   Config
	specs []Spec[A, R]
	log   logging.Logger
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a resolver that tries specs in the given order.
func New[A fmt.Stringer, R any](cfg Config, log logging.Logger, specs ...Spec[A, R]) *Resolver[A, R] {
	if log == nil {
		log = logging.Nop()
	}
	return &Resolver[A, R]{
		cfg:   cfg,
		specs: specs,
		log:   log.With("domain", cfg.Domain),
		sleep: httpclient.Sleep,
	}
}

// Resolve returns the rows of the first provider that yields a usable
// response for asset, or *domain.AllProvidersExhaustedError.
func (r *Resolver[A, R]) Resolve(ctx context.Context, asset A) ([]R, error) {
	var failures []domain.ProviderFailure
	id := asset.String()

	for _, spec := range r.specs {
		name := spec.Provider.Name()
		if spec.Skip != nil && spec.Skip(asset) {
			r.log.Debug("Provider not applicable, skipping", "provider", name, "asset", id)
			metrics.ProviderAttemptsTotal.WithLabelValues(r.cfg.Domain, name, "skipped").Inc()
			continue
		}
		if err := ctx.Err(); err != nil {
			failures = append(failures, domain.ProviderFailure{Provider: name, Err: err})
			break
		}

		r.log.Info("Fetching asset", "provider", name, "asset", id)
		rows, err := r.try(ctx, spec.Provider, asset)
		if err != nil {
			r.log.Warn("Provider failed, falling back", "provider", name, "asset", id, "error", err)
			failures = append(failures, domain.ProviderFailure{Provider: name, Err: err})
			continue
		}

		metrics.ProviderAttemptsTotal.WithLabelValues(r.cfg.Domain, name, "success").Inc()
		r.log.Success("Fetched asset", "provider", name, "asset", id, "rows", len(rows))
		return rows, nil
	}

	return nil, &domain.AllProvidersExhaustedError{
		Domain:   r.cfg.Domain,
		Asset:    id,
		Failures: failures,
	}
}

func (r *Resolver[A, R]) try(ctx context.Context, p Provider[A, R], asset A) ([]R, error) {
	res, err := p.Fetch(ctx, asset)
	if err != nil {
		metrics.ProviderAttemptsTotal.WithLabelValues(r.cfg.Domain, p.Name(), "error").Inc()
		return nil, err
	}
	if !p.Valid(res) {
		metrics.ProviderAttemptsTotal.WithLabelValues(r.cfg.Domain, p.Name(), "invalid").Inc()
		return nil, fmt.Errorf("%s: %w", p.Name(), domain.ErrProviderInvalidResponse)
	}
	rows, err := p.Normalize(res, asset)
	if err != nil {
		metrics.ProviderAttemptsTotal.WithLabelValues(r.cfg.Domain, p.Name(), "invalid").Inc()
		return nil, fmt.Errorf("%s normalize: %w", p.Name(), err)
	}
	return rows, nil
}

// ResolveEach resolves assets one at a time, paying the courtesy delay
// between consecutive assets. Per-asset failures are logged and returned
// alongside whatever rows the other assets produced.
func (r *Resolver[A, R]) ResolveEach(ctx context.Context, assets []A) ([]R, []error) {
	var (
		all  []R
		errs []error
	)
	for i, asset := range assets {
		if i > 0 {
			if err := r.sleep(ctx, r.cfg.Wait); err != nil {
				errs = append(errs, fmt.Errorf("interrupted before %s: %w", asset.String(), err))
				break
			}
		}
		rows, err := r.Resolve(ctx, asset)
		if err != nil {
			r.log.Error("Asset skipped", "asset", asset.String(), "error", err)
			errs = append(errs, err)
			continue
		}
		all = append(all, rows...)
	}
	return all, errs
}

