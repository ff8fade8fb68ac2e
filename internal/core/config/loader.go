package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/marketetl/internal/core/domain"
)

// Default returns the built-in configuration. A config file only needs to
// list the values it changes.
func Default() AppConfig {
	return AppConfig{
		Server: ServerConfig{Port: 8080},
		Database: DatabaseConfig{
			PingAttempts: 3,
			PingWait:     45 * time.Second,
			AutoMigrate:  true,
		},
		HTTP: HTTPConfig{
			MaxRetries:          5,
			BackoffFactor:       2,
			BaseDelay:           time.Second,
			MaxDelay:            2 * time.Minute,
			RetryStatuses:       []int{429, 500, 502, 503, 504},
			Timeout:             10 * time.Second,
			UserAgent:           "Mozilla/5.0",
			WaitBetweenRequests: 12 * time.Second,
		},
		Providers: ProvidersConfig{
			CoinGeckoBaseURL:    "https://api.coingecko.com/api/v3",
			BinanceBaseURL:      "https://data-api.binance.vision/api/v3",
			YahooBaseURL:        "https://query1.finance.yahoo.com",
			AwesomeAPIURL:       "https://economia.awesomeapi.com.br/last",
			FallbackCurrencyURL: "https://cdn.jsdelivr.net/npm/@fawazahmed0/currency-api@latest/v1/currencies",
			GoogleNewsBaseURL:   "https://news.google.com/rss/search",
			EquityRange:         "2y",
			NewsLimit:           6,
			CurrencyPair:        domain.CurrencyPair{Base: "USD", Quote: "BRL"},
		},
		Assets: AssetsConfig{
			Crypto: []domain.CryptoAsset{
				{Binance: "BTCUSDT", CoinGecko: "bitcoin"},
				{Binance: "ETHUSDT", CoinGecko: "ethereum"},
				{Binance: "BNBUSDT", CoinGecko: "binancecoin"},
				{Binance: "SOLUSDT", CoinGecko: "solana"},
				{Binance: "XRPUSDT", CoinGecko: "ripple"},
				{Binance: "DOGEUSDT", CoinGecko: "dogecoin"},
				{Binance: "ADAUSDT", CoinGecko: "cardano"},
				{Binance: "TRXUSDT", CoinGecko: "tron"},
				{Binance: "AVAXUSDT", CoinGecko: "avalanche-2"},
				{Binance: "SHIBUSDT", CoinGecko: "shiba-inu"},
				{Binance: "DOTUSDT", CoinGecko: "polkadot"},
				{Binance: "LINKUSDT", CoinGecko: "chainlink"},
				{Binance: "LTCUSDT", CoinGecko: "litecoin"},
				{Binance: "NEARUSDT", CoinGecko: "near"},
				// Binance has no USDT/USDT pair; the mapping is a placeholder.
				{Binance: "BTCUSDT", CoinGecko: "tether", PrimaryOnly: true},
			},
			BrazilianStocks: []string{
				"VALE3.SA", "PETR4.SA", "ITUB4.SA", "BBDC4.SA", "BBAS3.SA",
				"B3SA3.SA", "ELET3.SA", "ABEV3.SA", "RENT3.SA", "WEGE3.SA",
				"ITSA4.SA", "BPAC11.SA", "SUZB3.SA", "HAPV3.SA", "RDOR3.SA", "^BVSP",
			},
			NasdaqStocks: []string{
				"AAPL", "MSFT", "NVDA", "GOOGL", "AMZN", "META", "TSLA",
				"AVGO", "COST", "NFLX", "AMD", "PEP", "ADBE", "CSCO", "TMUS", "^NDX",
			},
			News: []domain.NewsQuery{
				{Ticker: "BTC-USD", Category: "CRIPTO", Query: "Bitcoin BTC preço mercado"},
				{Ticker: "^IXIC", Category: "INDICE", Query: "Nasdaq bolsa valores"},
				{Ticker: "^BVSP", Category: "INDICE", Query: "Ibovespa ações brasil"},
			},
		},
		Schedule: ScheduleConfig{Interval: time.Hour, RunOnStart: true},
		Metrics:  MetricsConfig{Job: "marketetl"},
		Logging:  LoggingConfig{Level: "info"},
	}
}

// Load reads configuration from a YAML file on top of Default. A missing
// file is not an error; the defaults plus environment are used instead.
func Load(path string) (*AppConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		// Expand environment variables in the YAML content
		expandedData := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv("DATABASE_URL")
	}
	if cfg.Database.URL == "" {
		cfg.Database.URL = legacyDatabaseURL()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// legacyDatabaseURL assembles a postgres URL from the DB_SERVER, DB_NAME,
// DB_USER and DB_PASS variables. All four must be set.
func legacyDatabaseURL() string {
	server, name := os.Getenv("DB_SERVER"), os.Getenv("DB_NAME")
	user, pass := os.Getenv("DB_USER"), os.Getenv("DB_PASS")
	if server == "" || name == "" || user == "" || pass == "" {
		return ""
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, pass),
		Host:     server,
		Path:     "/" + name,
		RawQuery: "sslmode=require&connect_timeout=180",
	}
	return u.String()
}

// Validate rejects configurations the pipeline cannot run with.
func (c *AppConfig) Validate() error {
	if c.Database.URL == "" {
		return errors.New("missing database url: set database.url, DATABASE_URL or DB_SERVER/DB_NAME/DB_USER/DB_PASS")
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("http.max_retries must be >= 0, got %d", c.HTTP.MaxRetries)
	}
	if c.HTTP.BackoffFactor < 1 {
		return fmt.Errorf("http.backoff_factor must be >= 1, got %v", c.HTTP.BackoffFactor)
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be positive, got %v", c.HTTP.Timeout)
	}
	if c.HTTP.WaitBetweenRequests < 0 {
		return fmt.Errorf("http.wait_between_requests must be >= 0, got %v", c.HTTP.WaitBetweenRequests)
	}
	if c.Database.PingAttempts < 1 {
		c.Database.PingAttempts = 1
	}
	if c.Providers.NewsLimit <= 0 {
		return fmt.Errorf("providers.news_limit must be positive, got %d", c.Providers.NewsLimit)
	}
	return nil
}
