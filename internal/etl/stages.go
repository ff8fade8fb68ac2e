package etl

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/vietddude/marketetl/internal/core/domain"
	"github.com/vietddude/marketetl/internal/etl/fallback"
	"github.com/vietddude/marketetl/internal/infra/source"
	"github.com/vietddude/marketetl/internal/infra/storage"
	"github.com/vietddude/marketetl/internal/logging"
)

// base carries what every stage shares: its name and its store handle.
type base struct {
	name string
	sink *Sink
	log  logging.Logger
}

func newBase(name string, sink *Sink, log logging.Logger) base {
	if log == nil {
		log = logging.Nop()
	}
	return base{name: name, sink: sink, log: log.With("stage", name)}
}

func (b *base) Name() string { return b.name }

func (b *base) SetUp(ctx context.Context) error {
	return b.sink.Open(ctx)
}

func (b *base) TearDown(ctx context.Context) error {
	return b.sink.Close(ctx)
}

// -----------------------------------------------------------------------------
// Currency
// -----------------------------------------------------------------------------

// CurrencyStage stores the latest quote for one currency pair.
type CurrencyStage struct {
	base
	resolver *fallback.Resolver[domain.CurrencyPair, domain.CurrencyRate]
	pair     domain.CurrencyPair
	table    string

	rates []domain.CurrencyRate
	batch domain.Batch
}

func NewCurrencyStage(
	resolver *fallback.Resolver[domain.CurrencyPair, domain.CurrencyRate],
	pair domain.CurrencyPair,
	sink *Sink,
	log logging.Logger,
) *CurrencyStage {
	return &CurrencyStage{
		base:     newBase(domain.Currency.Name, sink, log),
		resolver: resolver,
		pair:     pair,
		table:    domain.Currency.Table,
	}
}

func (s *CurrencyStage) Extract(ctx context.Context) error {
	s.log.Info("Fetching exchange rate", "pair", s.pair.String())
	rates, err := s.resolver.Resolve(ctx, s.pair)
	if err != nil {
		return err
	}
	s.rates = rates
	return nil
}

func (s *CurrencyStage) Transform(ctx context.Context) error {
	s.batch = domain.CurrencyBatch(s.table, s.rates)
	return nil
}

func (s *CurrencyStage) Load(ctx context.Context) (int, error) {
	return s.sink.Write(ctx, s.batch, storage.Replace)
}

// -----------------------------------------------------------------------------
// News
// -----------------------------------------------------------------------------

// NewsSource returns headlines for one tracked query.
type NewsSource interface {
	Fetch(ctx context.Context, q domain.NewsQuery) ([]domain.NewsItem, error)
}

// NewsStage appends the last day's headlines for every tracked query.
type NewsStage struct {
	base
	source  NewsSource
	queries []domain.NewsQuery
	window  time.Duration
	table   string
	now     func() time.Time

	items []domain.NewsItem
	batch domain.Batch
}

func NewNewsStage(src NewsSource, queries []domain.NewsQuery, sink *Sink, log logging.Logger) *NewsStage {
	return &NewsStage{
		base:    newBase(domain.News.Name, sink, log),
		source:  src,
		queries: queries,
		window:  24 * time.Hour,
		table:   domain.News.Table,
		now:     time.Now,
	}
}

// Extract fetches every query. A failing query is logged and skipped.
func (s *NewsStage) Extract(ctx context.Context) error {
	for _, q := range s.queries {
		if err := ctx.Err(); err != nil {
			return err
		}
		items, err := s.source.Fetch(ctx, q)
		if err != nil {
			s.log.Error("Failed to fetch news", "ticker", q.Ticker, "error", err)
			continue
		}
		s.log.Info("Fetched news", "ticker", q.Ticker, "count", len(items))
		s.items = append(s.items, items...)
	}
	return nil
}

// Transform keeps headlines newer than the window, newest first.
func (s *NewsStage) Transform(ctx context.Context) error {
	cutoff := s.now().Add(-s.window)

	recent := make([]domain.NewsItem, 0, len(s.items))
	for _, it := range s.items {
		if it.PublishedAt.After(cutoff) {
			recent = append(recent, it)
		}
	}
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].PublishedAt.After(recent[j].PublishedAt)
	})

	s.log.Info("Filtered to recent news", "count", len(recent), "fetched", len(s.items))
	s.batch = domain.NewsBatch(s.table, recent)
	return nil
}

func (s *NewsStage) Load(ctx context.Context) (int, error) {
	if s.batch.Len() == 0 {
		s.log.Warn("No recent news to save")
		return 0, nil
	}
	return s.sink.Write(ctx, s.batch, storage.Append)
}

// -----------------------------------------------------------------------------
// Equities
// -----------------------------------------------------------------------------

// EquitySource downloads daily bars for a ticker batch.
type EquitySource interface {
	Download(ctx context.Context, tickers []string) (*source.WideTable, []domain.ProviderFailure)
}

// EquityStage replaces one venue's daily history table.
type EquityStage struct {
	base
	source  EquitySource
	tickers []string
	market  source.EquityMarket
	table   string

	wide  *source.WideTable
	batch domain.Batch
}

func NewEquityStage(
	d domain.DataDomain,
	src EquitySource,
	tickers []string,
	market source.EquityMarket,
	sink *Sink,
	log logging.Logger,
) *EquityStage {
	return &EquityStage{
		base:    newBase(d.Name, sink, log),
		source:  src,
		tickers: tickers,
		market:  market,
		table:   d.Table,
	}
}

func (s *EquityStage) Extract(ctx context.Context) error {
	s.log.Info("Downloading equity history", "tickers", len(s.tickers))
	wide, failures := s.source.Download(ctx, s.tickers)
	for _, f := range failures {
		s.log.Warn("Ticker download failed", "ticker", f.Provider, "error", f.Err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if wide == nil || wide.Empty() {
		return fmt.Errorf("%w: none of %d tickers returned data", domain.ErrNoDataExtracted, len(s.tickers))
	}
	s.wide = wide
	return nil
}

func (s *EquityStage) Transform(ctx context.Context) error {
	rows := s.wide.Reshape(s.market)
	s.log.Info("Transformed equity rows", "rows", len(rows))
	s.batch = domain.EquityBatch(s.table, rows, s.market.Label != "")
	return nil
}

// Load leaves the table untouched when no row had a close price.
func (s *EquityStage) Load(ctx context.Context) (int, error) {
	if s.batch.Len() == 0 {
		s.log.Warn("No data to save")
		return 0, nil
	}
	return s.sink.Write(ctx, s.batch, storage.Replace)
}

// -----------------------------------------------------------------------------
// Crypto
// -----------------------------------------------------------------------------

// CryptoStage replaces the crypto price history, one asset at a time.
type CryptoStage struct {
	base
	resolver *fallback.Resolver[domain.CryptoAsset, domain.PriceRow]
	assets   []domain.CryptoAsset
	table    string

	rows  []domain.PriceRow
	batch domain.Batch
}

func NewCryptoStage(
	resolver *fallback.Resolver[domain.CryptoAsset, domain.PriceRow],
	assets []domain.CryptoAsset,
	sink *Sink,
	log logging.Logger,
) *CryptoStage {
	return &CryptoStage{
		base:     newBase(domain.Crypto.Name, sink, log),
		resolver: resolver,
		assets:   assets,
		table:    domain.Crypto.Table,
	}
}

func (s *CryptoStage) Extract(ctx context.Context) error {
	s.log.Info("Extracting cryptocurrencies", "assets", len(s.assets))
	rows, errs := s.resolver.ResolveEach(ctx, s.assets)
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: %d of %d assets failed", domain.ErrNoDataExtracted, len(errs), len(s.assets))
	}
	if len(errs) > 0 {
		s.log.Warn("Some assets were skipped", "failed", len(errs), "total", len(s.assets))
	}
	s.rows = rows
	return nil
}

func (s *CryptoStage) Transform(ctx context.Context) error {
	s.batch = domain.PriceBatch(s.table, s.rows)
	return nil
}

func (s *CryptoStage) Load(ctx context.Context) (int, error) {
	return s.sink.Write(ctx, s.batch, storage.Replace)
}
