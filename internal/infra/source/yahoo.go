package source

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"github.com/vietddude/marketetl/internal/core/domain"
	"github.com/vietddude/marketetl/internal/infra/httpclient"
)

var quoteFields = []struct {
	path  string
	field Field
}{
	{"open", FieldOpen},
	{"high", FieldHigh},
	{"low", FieldLow},
	{"close", FieldClose},
	{"volume", FieldVolume},
}

// Yahoo downloads daily bars from the v8 chart API, one request per ticker.
type Yahoo struct {
	client  *httpclient.Client
	baseURL string
	period  string
}

func NewYahoo(client *httpclient.Client, baseURL, period string) *Yahoo {
	if period == "" {
		period = "2y"
	}
	return &Yahoo{client: client, baseURL: baseURL, period: period}
}

func (y *Yahoo) Name() string { return "yahoo" }

func (y *Yahoo) Fetch(ctx context.Context, ticker string) (gjson.Result, error) {
	params := url.Values{
		"range":    {y.period},
		"interval": {"1d"},
	}
	return y.client.GetJSON(ctx, joinURL(y.baseURL, "v8", "finance", "chart", url.PathEscape(ticker)), params)
}

// Valid requires a chart result with at least one timestamp.
func (y *Yahoo) Valid(res gjson.Result) bool {
	return nonEmptyArray(res.Get("chart.result.0.timestamp"))
}

// Download fetches every ticker into one wide table. Tickers that fail or
// come back unusable are left out and reported.
func (y *Yahoo) Download(ctx context.Context, tickers []string) (*WideTable, []domain.ProviderFailure) {
	table := NewWideTable()
	var failures []domain.ProviderFailure
	for _, ticker := range tickers {
		if ctx.Err() != nil {
			failures = append(failures, domain.ProviderFailure{Provider: ticker, Err: ctx.Err()})
			continue
		}
		res, err := y.Fetch(ctx, ticker)
		if err != nil {
			failures = append(failures, domain.ProviderFailure{Provider: ticker, Err: err})
			continue
		}
		if !y.Valid(res) {
			failures = append(failures, domain.ProviderFailure{
				Provider: ticker,
				Err:      fmt.Errorf("yahoo %s: %w", ticker, domain.ErrProviderInvalidResponse),
			})
			continue
		}
		AddChart(table, ticker, res)
	}
	return table, failures
}

// AddChart copies one chart payload into table. Bar timestamps are shifted
// by the exchange's GMT offset and truncated to the trading date so every
// ticker of a venue lines up on the same keys.
func AddChart(table *WideTable, ticker string, res gjson.Result) {
	result := res.Get("chart.result.0")
	offset := result.Get("meta.gmtoffset").Int()
	quote := result.Get("indicators.quote.0")

	series := make([][]gjson.Result, len(quoteFields))
	for i, qf := range quoteFields {
		series[i] = quote.Get(qf.path).Array()
	}

	for i, ts := range result.Get("timestamp").Array() {
		date := time.Unix(ts.Int()+offset, 0).UTC().Truncate(24 * time.Hour)
		for j, qf := range quoteFields {
			if i >= len(series[j]) || series[j][i].Type != gjson.Number {
				continue
			}
			table.Set(date, ticker, qf.field, series[j][i].Float())
		}
	}
}
