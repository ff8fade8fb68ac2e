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

// kline array positions
const (
	klineOpenTime = 0
	klineOpen     = 1
	klineHigh     = 2
	klineLow      = 3
	klineClose    = 4
	klineVolume   = 5
	klineTrades   = 8
)

// Binance reads daily klines from the public market-data API.
type Binance struct {
	client  *httpclient.Client
	baseURL string
	limit   string
}

func NewBinance(client *httpclient.Client, baseURL string) *Binance {
	return &Binance{client: client, baseURL: baseURL, limit: "365"}
}

func (b *Binance) Name() string { return "binance" }

func (b *Binance) Fetch(ctx context.Context, asset domain.CryptoAsset) (gjson.Result, error) {
	params := url.Values{
		"symbol":   {asset.Binance},
		"interval": {"1d"},
		"limit":    {b.limit},
	}
	return b.client.GetJSON(ctx, joinURL(b.baseURL, "klines"), params)
}

func (b *Binance) Valid(res gjson.Result) bool {
	return nonEmptyArray(res)
}

// Normalize maps klines to rows. Prices arrive as strings; market cap is
// not published by Binance and stays zero.
func (b *Binance) Normalize(res gjson.Result, asset domain.CryptoAsset) ([]domain.PriceRow, error) {
	symbol := strings.TrimSuffix(asset.Binance, "USDT")

	klines := res.Array()
	rows := make([]domain.PriceRow, 0, len(klines))
	for _, k := range klines {
		f := k.Array()
		if len(f) <= klineTrades || f[klineClose].Type == gjson.Null {
			continue
		}
		rows = append(rows, domain.PriceRow{
			Date:       time.UnixMilli(f[klineOpenTime].Int()).UTC(),
			Symbol:     symbol,
			Open:       f[klineOpen].Float(),
			High:       f[klineHigh].Float(),
			Low:        f[klineLow].Float(),
			Close:      f[klineClose].Float(),
			Volume:     f[klineVolume].Float(),
			TradeCount: f[klineTrades].Int(),
		})
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("binance %s: no complete klines: %w", asset.Binance, domain.ErrProviderInvalidResponse)
	}
	return rows, nil
}
