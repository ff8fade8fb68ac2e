package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/vietddude/marketetl/internal/core/domain"
	"github.com/vietddude/marketetl/internal/infra/httpclient"
)

// AwesomeAPI reads the latest quote from /last/{BASE}-{QUOTE}, which answers
// {"USDBRL": {"bid": "5.12", ...}}.
type AwesomeAPI struct {
	client  *httpclient.Client
	baseURL string
	now     func() time.Time
}

func NewAwesomeAPI(client *httpclient.Client, baseURL string) *AwesomeAPI {
	return &AwesomeAPI{client: client, baseURL: baseURL, now: time.Now}
}

func (a *AwesomeAPI) Name() string { return "awesomeapi" }

func (a *AwesomeAPI) Fetch(ctx context.Context, pair domain.CurrencyPair) (gjson.Result, error) {
	return a.client.GetJSON(ctx, joinURL(a.baseURL, pair.String()), nil)
}

func (a *AwesomeAPI) Valid(res gjson.Result) bool {
	_, err := a.bid(res, domain.CurrencyPair{})
	return err == nil
}

func (a *AwesomeAPI) Normalize(res gjson.Result, pair domain.CurrencyPair) ([]domain.CurrencyRate, error) {
	bid, err := a.bid(res, pair)
	if err != nil {
		return nil, err
	}
	return []domain.CurrencyRate{{Code: strings.ToUpper(pair.Base), Bid: bid, ObservedAt: a.now()}}, nil
}

// bid finds the single quote object. With a zero pair any key is accepted.
func (a *AwesomeAPI) bid(res gjson.Result, pair domain.CurrencyPair) (float64, error) {
	var quote gjson.Result
	if pair.Base != "" {
		quote = res.Get(strings.ToUpper(pair.Base + pair.Quote))
	} else {
		res.ForEach(func(_, v gjson.Result) bool {
			quote = v
			return false
		})
	}
	return parseRate(quote.Get("bid"))
}

// CurrencyAPI reads the jsDelivr-hosted currency-api, which answers
// {"date": "...", "usd": {"brl": 5.12, ...}} at /{base}.json.
type CurrencyAPI struct {
	client  *httpclient.Client
	baseURL string
	now     func() time.Time
}

func NewCurrencyAPI(client *httpclient.Client, baseURL string) *CurrencyAPI {
	return &CurrencyAPI{client: client, baseURL: baseURL, now: time.Now}
}

func (c *CurrencyAPI) Name() string { return "currency-api" }

func (c *CurrencyAPI) Fetch(ctx context.Context, pair domain.CurrencyPair) (gjson.Result, error) {
	return c.client.GetJSON(ctx, joinURL(c.baseURL, strings.ToLower(pair.Base)+".json"), nil)
}

// Valid only checks the envelope; Normalize checks the quote currency.
func (c *CurrencyAPI) Valid(res gjson.Result) bool {
	found := false
	res.ForEach(func(k, v gjson.Result) bool {
		if k.String() != "date" && v.IsObject() {
			found = true
			return false
		}
		return true
	})
	return found
}

func (c *CurrencyAPI) Normalize(res gjson.Result, pair domain.CurrencyPair) ([]domain.CurrencyRate, error) {
	path := strings.ToLower(pair.Base) + "." + strings.ToLower(pair.Quote)
	bid, err := parseRate(res.Get(path))
	if err != nil {
		return nil, fmt.Errorf("currency-api %s: %w", path, err)
	}
	return []domain.CurrencyRate{{Code: strings.ToUpper(pair.Base), Bid: bid, ObservedAt: c.now()}}, nil
}

// parseRate accepts a quote given either as a JSON number or a numeric string.
func parseRate(v gjson.Result) (float64, error) {
	var (
		d   decimal.Decimal
		err error
	)
	switch v.Type {
	case gjson.Number:
		d, err = decimal.NewFromString(v.Raw)
	case gjson.String:
		d, err = decimal.NewFromString(strings.TrimSpace(v.Str))
	default:
		return 0, fmt.Errorf("missing rate: %w", domain.ErrProviderInvalidResponse)
	}
	if err != nil {
		return 0, fmt.Errorf("parse rate %q: %w", v.String(), domain.ErrProviderInvalidResponse)
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("non-positive rate %s: %w", d, domain.ErrProviderInvalidResponse)
	}
	return d.InexactFloat64(), nil
}
