package domain

import "strings"

// CryptoAsset maps one coin to its identifier on each provider.
type CryptoAsset struct {
	Binance   string `yaml:"binance"`
	CoinGecko string `yaml:"coingecko"`
	// PrimaryOnly marks aliases the secondary provider cannot represent.
	PrimaryOnly bool `yaml:"primary_only"`
}

func (a CryptoAsset) String() string {
	return a.CoinGecko
}

// CurrencyPair is a base/quote pair such as USD/BRL.
type CurrencyPair struct {
	Base  string `yaml:"base"`
	Quote string `yaml:"quote"`
}

func (p CurrencyPair) String() string {
	return strings.ToUpper(p.Base) + "-" + strings.ToUpper(p.Quote)
}

// NewsQuery is a free-text search tracked for one asset.
type NewsQuery struct {
	Ticker   string `yaml:"ticker"`
	Category string `yaml:"category"`
	Query    string `yaml:"query"`
}
