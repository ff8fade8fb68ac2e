package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/vietddude/marketetl/internal/core/domain"
	"github.com/vietddude/marketetl/internal/infra/httpclient"
)

// coinSymbols maps CoinGecko ids whose ticker is not just the upper-cased id.
var coinSymbols = map[string]string{
	"tether":      "USDT",
	"binancecoin": "BNB",
	"ripple":      "XRP",
}

// CoinSymbol returns the ticker stored for a CoinGecko id.
func CoinSymbol(id string) string {
	if s, ok := coinSymbols[id]; ok {
		return s
	}
	return strings.ToUpper(id)
}

// CoinGecko reads a year of daily closes from /coins/{id}/market_chart.
// The endpoint carries no OHLC, so open, high and low repeat the close and
// trade_count is zero.
type CoinGecko struct {
	client  *httpclient.Client
	baseURL string
	days    string
}

func NewCoinGecko(client *httpclient.Client, baseURL string) *CoinGecko {
	return &CoinGecko{client: client, baseURL: baseURL, days: "365"}
}

func (c *CoinGecko) Name() string { return "coingecko" }

func (c *CoinGecko) Fetch(ctx context.Context, asset domain.CryptoAsset) (gjson.Result, error) {
	params := url.Values{
		"vs_currency": {"usd"},
		"days":        {c.days},
		"interval":    {"daily"},
	}
	return c.client.GetJSON(ctx, joinURL(c.baseURL, "coins", url.PathEscape(asset.CoinGecko), "market_chart"), params)
}

// Valid requires all three series keys to be present.
func (c *CoinGecko) Valid(res gjson.Result) bool {
	if !res.IsObject() {
		return false
	}
	for _, key := range []string{"prices", "market_caps", "total_volumes"} {
		if !res.Get(key).Exists() {
			return false
		}
	}
	return true
}

// Normalize aligns the three series by position.
func (c *CoinGecko) Normalize(res gjson.Result, asset domain.CryptoAsset) ([]domain.PriceRow, error) {
	prices := res.Get("prices").Array()
	caps := res.Get("market_caps").Array()
	volumes := res.Get("total_volumes").Array()
	symbol := CoinSymbol(asset.CoinGecko)

	rows := make([]domain.PriceRow, 0, len(prices))
	for i, p := range prices {
		point := p.Array()
		if len(point) < 2 || point[1].Type == gjson.Null {
			continue
		}
		price := point[1].Float()
		row := domain.PriceRow{
			Date:   time.UnixMilli(point[0].Int()).UTC(),
			Symbol: symbol,
			Open:   price,
			High:   price,
			Low:    price,
			Close:  price,
		}
		if i < len(caps) {
			row.MarketCap = caps[i].Get("1").Float()
		}
		if i < len(volumes) {
			row.Volume = volumes[i].Get("1").Float()
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("coingecko %s: empty price series: %w", asset.CoinGecko, domain.ErrProviderInvalidResponse)
	}
	return rows, nil
}
