package config

import (
	"time"

	"github.com/vietddude/marketetl/internal/core/domain"
	redisclient "github.com/vietddude/marketetl/internal/infra/redis"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server    ServerConfig       `yaml:"server"`
	Database  DatabaseConfig     `yaml:"database"`
	HTTP      HTTPConfig         `yaml:"http"`
	Providers ProvidersConfig    `yaml:"providers"`
	Assets    AssetsConfig       `yaml:"assets"`
	Schedule  ScheduleConfig     `yaml:"schedule"`
	Redis     redisclient.Config `yaml:"redis"`
	Metrics   MetricsConfig      `yaml:"metrics"`
	Logging   LoggingConfig      `yaml:"logging"`
}

// ServerConfig holds the health/metrics server settings used by serve mode.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// DatabaseConfig points at the destination store.
// URL schemes: postgres://, sqlite://, memory://
type DatabaseConfig struct {
	URL          string        `yaml:"url"`
	PingAttempts int           `yaml:"ping_attempts"`
	PingWait     time.Duration `yaml:"ping_wait"`
	// AutoMigrate applies pending migrations before a run.
	AutoMigrate bool `yaml:"auto_migrate"`
}

// HTTPConfig holds the outbound retry and pacing policy.
type HTTPConfig struct {
	MaxRetries          int           `yaml:"max_retries"`
	BackoffFactor       float64       `yaml:"backoff_factor"`
	BaseDelay           time.Duration `yaml:"base_delay"`
	MaxDelay            time.Duration `yaml:"max_delay"`
	RetryStatuses       []int         `yaml:"retry_statuses"`
	Timeout             time.Duration `yaml:"timeout"`
	UserAgent           string        `yaml:"user_agent"`
	WaitBetweenRequests time.Duration `yaml:"wait_between_requests"`
}

// ProvidersConfig holds upstream endpoints. Currency URLs are bases; the
// pair is appended per request.
type ProvidersConfig struct {
	CoinGeckoBaseURL    string              `yaml:"coingecko_base_url"`
	BinanceBaseURL      string              `yaml:"binance_base_url"`
	YahooBaseURL        string              `yaml:"yahoo_base_url"`
	AwesomeAPIURL       string              `yaml:"awesomeapi_url"`
	FallbackCurrencyURL string              `yaml:"fallback_currency_url"`
	GoogleNewsBaseURL   string              `yaml:"google_news_base_url"`
	EquityRange         string              `yaml:"equity_range"`
	NewsLimit           int                 `yaml:"news_limit"`
	CurrencyPair        domain.CurrencyPair `yaml:"currency_pair"`
}

// AssetsConfig holds the per-domain asset universes.
type AssetsConfig struct {
	Crypto          []domain.CryptoAsset `yaml:"crypto"`
	BrazilianStocks []string             `yaml:"brazilian_stocks"`
	NasdaqStocks    []string             `yaml:"nasdaq_stocks"`
	News            []domain.NewsQuery   `yaml:"news"`
}

// ScheduleConfig controls serve mode.
type ScheduleConfig struct {
	Interval   time.Duration `yaml:"interval"`
	RunOnStart bool          `yaml:"run_on_start"`
}

// MetricsConfig controls metric export for one-shot runs.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}
