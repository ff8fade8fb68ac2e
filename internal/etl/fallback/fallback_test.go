package fallback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/vietddude/marketetl/internal/core/domain"
	"github.com/vietddude/marketetl/internal/logging"
)

type stubProvider struct {
	name  string
	body  string
	err   error
	rows  []domain.PriceRow
	calls int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Fetch(_ context.Context, _ domain.CryptoAsset) (gjson.Result, error) {
	s.calls++
	if s.err != nil {
		return gjson.Result{}, s.err
	}
	return gjson.Parse(s.body), nil
}

func (s *stubProvider) Valid(res gjson.Result) bool {
	return res.IsArray() && len(res.Array()) > 0
}

func (s *stubProvider) Normalize(_ gjson.Result, _ domain.CryptoAsset) ([]domain.PriceRow, error) {
	return s.rows, nil
}

func primaryOnly(a domain.CryptoAsset) bool { return a.PrimaryOnly }

var (
	btc    = domain.CryptoAsset{Binance: "BTCUSDT", CoinGecko: "bitcoin"}
	eth    = domain.CryptoAsset{Binance: "ETHUSDT", CoinGecko: "ethereum"}
	tether = domain.CryptoAsset{Binance: "BTCUSDT", CoinGecko: "tether", PrimaryOnly: true}
)

func chain(primary, secondary *stubProvider, log logging.Logger) *Resolver[domain.CryptoAsset, domain.PriceRow] {
	return New(Config{Domain: "crypto"}, log,
		Spec[domain.CryptoAsset, domain.PriceRow]{Provider: primary},
		Spec[domain.CryptoAsset, domain.PriceRow]{Provider: secondary, Skip: primaryOnly},
	)
}

func TestResolve_PrimaryValidSkipsSecondary(t *testing.T) {
	primary := &stubProvider{name: "coingecko", body: `[1]`, rows: []domain.PriceRow{{Symbol: "BITCOIN", Close: 1}}}
	secondary := &stubProvider{name: "binance", body: `[1]`}

	rows, err := chain(primary, secondary, logging.Nop()).Resolve(t.Context(), btc)
	require.NoError(t, err)
	require.Equal(t, primary.rows, rows)
	require.Equal(t, 0, secondary.calls)
}

func TestResolve_InvalidPrimaryFallsBack(t *testing.T) {
	primary := &stubProvider{name: "coingecko", body: `[]`}
	secondary := &stubProvider{name: "binance", body: `[1]`, rows: []domain.PriceRow{{Symbol: "BTC", Open: 1, High: 2, Low: 0.5, Close: 1.5}}}
	log := logging.NewCapture()

	rows, err := chain(primary, secondary, log).Resolve(t.Context(), btc)
	require.NoError(t, err)
	require.Equal(t, secondary.rows, rows)
	require.Equal(t, 1, primary.calls)
	require.Equal(t, 1, log.Count("WARN", "falling back"))
}

func TestResolve_TransportErrorFallsBack(t *testing.T) {
	primary := &stubProvider{name: "coingecko", err: &domain.TransportError{Method: "GET", URL: "http://cg", StatusCode: 429, Attempts: 6}}
	secondary := &stubProvider{name: "binance", body: `[1]`, rows: []domain.PriceRow{{Symbol: "BTC"}}}

	rows, err := chain(primary, secondary, logging.Nop()).Resolve(t.Context(), btc)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestResolve_PrimaryOnlyAssetExhausts(t *testing.T) {
	primary := &stubProvider{name: "coingecko", err: errors.New("connection refused")}
	secondary := &stubProvider{name: "binance", body: `[1]`}

	_, err := chain(primary, secondary, logging.Nop()).Resolve(t.Context(), tether)

	var exhausted *domain.AllProvidersExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Equal(t, "tether", exhausted.Asset)
	require.Len(t, exhausted.Failures, 1)
	require.Equal(t, 0, secondary.calls)
}

func TestResolve_AllInvalid(t *testing.T) {
	primary := &stubProvider{name: "coingecko", body: `{}`}
	secondary := &stubProvider{name: "binance", body: `[]`}

	_, err := chain(primary, secondary, logging.Nop()).Resolve(t.Context(), btc)
	require.ErrorIs(t, err, domain.ErrProviderInvalidResponse)

	var exhausted *domain.AllProvidersExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Len(t, exhausted.Failures, 2)
}

func TestResolveEach_CourtesyDelayBetweenAssets(t *testing.T) {
	primary := &stubProvider{name: "coingecko", body: `[1]`, rows: []domain.PriceRow{{Symbol: "X"}}}
	secondary := &stubProvider{name: "binance", body: `[]`}

	r := New(Config{Domain: "crypto", Wait: 12 * time.Second}, logging.Nop(),
		Spec[domain.CryptoAsset, domain.PriceRow]{Provider: primary},
		Spec[domain.CryptoAsset, domain.PriceRow]{Provider: secondary, Skip: primaryOnly},
	)
	var waits []time.Duration
	r.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	rows, errs := r.ResolveEach(t.Context(), []domain.CryptoAsset{btc, eth, tether})
	require.Empty(t, errs)
	require.Len(t, rows, 3)
	require.Equal(t, []time.Duration{12 * time.Second, 12 * time.Second}, waits)
}

func TestResolveEach_KeepsGoingAfterFailure(t *testing.T) {
	primary := &stubProvider{name: "coingecko", err: errors.New("boom")}
	secondary := &stubProvider{name: "binance", body: `[1]`, rows: []domain.PriceRow{{Symbol: "BTC"}}}
	log := logging.NewCapture()

	r := chain(primary, secondary, log)
	r.sleep = func(context.Context, time.Duration) error { return nil }

	rows, errs := r.ResolveEach(t.Context(), []domain.CryptoAsset{tether, btc})
	require.Len(t, rows, 1)
	require.Len(t, errs, 1)
	require.Equal(t, 1, log.Count("ERROR", "Asset skipped"))
}

func TestResolveEach_StopsOnCancel(t *testing.T) {
	primary := &stubProvider{name: "coingecko", body: `[1]`, rows: []domain.PriceRow{{Symbol: "X"}}}
	secondary := &stubProvider{name: "binance", body: `[1]`}

	ctx, cancel := context.WithCancel(t.Context())
	r := chain(primary, secondary, logging.Nop())
	r.sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	rows, errs := r.ResolveEach(ctx, []domain.CryptoAsset{btc, eth})
	require.Len(t, rows, 1)
	require.Len(t, errs, 1)
	require.ErrorIs(t, errs[0], context.Canceled)
	require.Equal(t, 1, primary.calls)
}
