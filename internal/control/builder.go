package control

import (
	"context"
	"fmt"
	"strings"

	"github.com/vietddude/marketetl/internal/core/config"
	"github.com/vietddude/marketetl/internal/core/domain"
	"github.com/vietddude/marketetl/internal/etl"
	"github.com/vietddude/marketetl/internal/etl/fallback"
	"github.com/vietddude/marketetl/internal/infra/httpclient"
	redisclient "github.com/vietddude/marketetl/internal/infra/redis"
	"github.com/vietddude/marketetl/internal/infra/source"
	"github.com/vietddude/marketetl/internal/infra/storage"
	"github.com/vietddude/marketetl/internal/infra/storage/memory"
	"github.com/vietddude/marketetl/internal/infra/storage/postgres"
	"github.com/vietddude/marketetl/internal/infra/storage/schema"
	"github.com/vietddude/marketetl/internal/infra/storage/sqlite"
	"github.com/vietddude/marketetl/internal/logging"
)

// BuildOptions tweaks Build for the calling command.
type BuildOptions struct {
	// DryRun swaps the configured store for an in-memory one.
	DryRun bool
	// NoLock skips the Redis run lock even when configured.
	NoLock bool
}

// App is a fully wired pipeline.
type App struct {
	Orchestrator *Orchestrator
	Store        storage.Store
	closers      []func() error
}

// Close releases connections opened by Build.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Build wires configuration into an orchestrator. Any error here is a
// bootstrap failure.
func Build(ctx context.Context, cfg *config.AppConfig, log logging.Logger, opts BuildOptions) (*App, error) {
	app := &App{}

	store, err := OpenStore(ctx, cfg.Database, opts.DryRun, log)
	if err != nil {
		return nil, err
	}
	app.Store = store

	client := httpclient.New(httpclient.Config{
		Retry: httpclient.RetryConfig{
			MaxRetries:    cfg.HTTP.MaxRetries,
			BaseDelay:     cfg.HTTP.BaseDelay,
			MaxDelay:      cfg.HTTP.MaxDelay,
			BackoffFactor: cfg.HTTP.BackoffFactor,
			RetryStatuses: cfg.HTTP.RetryStatuses,
		},
		Timeout:   cfg.HTTP.Timeout,
		UserAgent: cfg.HTTP.UserAgent,
	})

	var orchOpts []Option
	if cfg.Redis.URL != "" && !opts.NoLock {
		rc, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			log.Warn("Failed to connect to Redis, run lock disabled", "error", err)
		} else {
			app.closers = append(app.closers, rc.Close)
			orchOpts = append(orchOpts, WithLocker(redisclient.NewRunLock(rc, cfg.Redis.LockKey, cfg.Redis.LockTTL)))
		}
	}

	app.Orchestrator = NewOrchestrator(Registrations(cfg, client, store, log), log, orchOpts...)
	return app, nil
}

// OpenStore picks the backend from the database URL scheme and applies
// migrations when asked to.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig, dryRun bool, log logging.Logger) (storage.Store, error) {
	if dryRun || strings.HasPrefix(cfg.URL, "memory://") {
		log.Info("Using memory storage")
		return memory.NewMemoryStorage(), nil
	}

	var store storage.Store
	switch {
	case strings.HasPrefix(cfg.URL, "postgres://"), strings.HasPrefix(cfg.URL, "postgresql://"):
		store = postgres.NewStore(cfg.URL)
		log.Info("Using PostgreSQL storage")
	case strings.HasPrefix(cfg.URL, "sqlite://"):
		store = sqlite.NewStore(cfg.URL)
		log.Info("Using SQLite storage", "path", sqlite.DSN(cfg.URL))
	default:
		return nil, fmt.Errorf("%w: %q", storage.ErrUnsupportedScheme, redact(cfg.URL))
	}

	if cfg.AutoMigrate {
		if err := Migrate(ctx, cfg.URL); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// Migrate applies pending schema migrations to url.
func Migrate(ctx context.Context, url string) error {
	db, dialect, err := schema.Open(url)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := schema.Migrate(ctx, db.DB, dialect); err != nil {
		return fmt.Errorf("failed to migrate db: %w", err)
	}
	return nil
}

// Registrations builds the stage table in run order.
func Registrations(cfg *config.AppConfig, client *httpclient.Client, store storage.Store, log logging.Logger) []Registration {
	sinkCfg := etl.SinkConfig{
		PingAttempts: cfg.Database.PingAttempts,
		PingWait:     cfg.Database.PingWait,
	}
	newSink := func() *etl.Sink {
		return etl.NewSink(store, sinkCfg, log)
	}
	p := cfg.Providers

	currency := fallback.New(fallback.Config{Domain: domain.Currency.Name}, log,
		fallback.Spec[domain.CurrencyPair, domain.CurrencyRate]{Provider: source.NewAwesomeAPI(client, p.AwesomeAPIURL)},
		fallback.Spec[domain.CurrencyPair, domain.CurrencyRate]{Provider: source.NewCurrencyAPI(client, p.FallbackCurrencyURL)},
	)

	crypto := fallback.New(fallback.Config{Domain: domain.Crypto.Name, Wait: cfg.HTTP.WaitBetweenRequests}, log,
		fallback.Spec[domain.CryptoAsset, domain.PriceRow]{Provider: source.NewCoinGecko(client, p.CoinGeckoBaseURL)},
		fallback.Spec[domain.CryptoAsset, domain.PriceRow]{
			Provider: source.NewBinance(client, p.BinanceBaseURL),
			Skip:     func(a domain.CryptoAsset) bool { return a.PrimaryOnly },
		},
	)

	news := source.NewGoogleNews(client, p.GoogleNewsBaseURL, p.NewsLimit)
	yahoo := source.NewYahoo(client, p.YahooBaseURL, p.EquityRange)

	return []Registration{
		{
			Name:    domain.Currency.Name,
			Aliases: []string{"CurrencyETL"},
			New: func() etl.Stage {
				return etl.NewCurrencyStage(currency, p.CurrencyPair, newSink(), log)
			},
		},
		{
			Name:    domain.News.Name,
			Aliases: []string{"NewsETL"},
			New: func() etl.Stage {
				return etl.NewNewsStage(news, cfg.Assets.News, newSink(), log)
			},
		},
		{
			Name:    domain.BrazilianStocks.Name,
			Aliases: []string{"BrazilianStocksETL"},
			New: func() etl.Stage {
				return etl.NewEquityStage(domain.BrazilianStocks, yahoo, cfg.Assets.BrazilianStocks, source.BrazilMarket, newSink(), log)
			},
		},
		{
			Name:    domain.NasdaqStocks.Name,
			Aliases: []string{"NasdaqStocksETL"},
			New: func() etl.Stage {
				return etl.NewEquityStage(domain.NasdaqStocks, yahoo, cfg.Assets.NasdaqStocks, source.NasdaqMarket, newSink(), log)
			},
		},
		{
			Name:    domain.Crypto.Name,
			Aliases: []string{"CryptoETL"},
			New: func() etl.Stage {
				return etl.NewCryptoStage(crypto, cfg.Assets.Crypto, newSink(), log)
			},
		},
	}
}

// redact hides credentials in a connection URL.
func redact(url string) string {
	at := strings.LastIndex(url, "@")
	scheme := strings.Index(url, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return url
	}
	return url[:scheme+3] + "***" + url[at:]
}
