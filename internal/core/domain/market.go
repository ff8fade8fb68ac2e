package domain

import "time"

// DataDomain is one tracked market-data feed and the table it lands in.
type DataDomain struct {
	Name  string
	Table string
}

var (
	Currency        = DataDomain{Name: "currency", Table: "tb_cotacao_usdt"}
	News            = DataDomain{Name: "news", Table: "tb_noticias_mercado"}
	BrazilianStocks = DataDomain{Name: "brazilian_stocks", Table: "tb_acoes_br_historico"}
	NasdaqStocks    = DataDomain{Name: "nasdaq_stocks", Table: "tb_acoes_nasdaq_historico"}
	Crypto          = DataDomain{Name: "crypto", Table: "tb_binance_historico"}
)

// Domains lists every feed in run order.
var Domains = []DataDomain{Currency, News, BrazilianStocks, NasdaqStocks, Crypto}

// PriceRow is one daily candle for a crypto asset.
type PriceRow struct {
	Date       time.Time
	Symbol     string
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     float64
	TradeCount int64
	MarketCap  float64
}

// EquityRow is one daily bar for a listed ticker. Close is always set;
// the other fields are nil when the provider had no value for that day.
type EquityRow struct {
	Date   time.Time
	Ticker string
	Open   *float64
	High   *float64
	Low    *float64
	Close  float64
	Volume *float64
	Market string
}

// CurrencyRate is a single bid quote observed at ObservedAt.
type CurrencyRate struct {
	Code       string
	Bid        float64
	ObservedAt time.Time
}

// NewsItem is one headline pulled for a tracked asset.
type NewsItem struct {
	PublishedAt time.Time
	Ticker      string
	Category    string
	Title       string
	Source      string
	Link        string
	ExternalID  *string
}

// Batch is a table-shaped set of rows ready for the store.
type Batch struct {
	Table   string
	Columns []string
	Rows    [][]any
}

// Len returns the number of rows in the batch.
func (b Batch) Len() int {
	return len(b.Rows)
}

var (
	PriceColumns    = []string{"date", "asset_symbol", "open", "high", "low", "close", "volume", "trade_count", "market_cap"}
	EquityColumns   = []string{"date", "ticker", "open", "high", "low", "close", "volume"}
	CurrencyColumns = []string{"currency_code", "bid_rate", "observed_at"}
	NewsColumns     = []string{"published_at", "asset_ticker", "category", "title", "source", "link", "external_id"}
)

// PriceBatch shapes crypto rows for table.
func PriceBatch(table string, rows []PriceRow) Batch {
	out := make([][]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, []any{r.Date, r.Symbol, r.Open, r.High, r.Low, r.Close, r.Volume, r.TradeCount, r.MarketCap})
	}
	return Batch{Table: table, Columns: PriceColumns, Rows: out}
}

// EquityBatch shapes equity rows for table. The market column is only
// emitted when withMarket is set.
func EquityBatch(table string, rows []EquityRow, withMarket bool) Batch {
	cols := EquityColumns
	if withMarket {
		cols = append(append([]string{}, EquityColumns...), "market")
	}
	out := make([][]any, 0, len(rows))
	for _, r := range rows {
		vals := []any{r.Date, r.Ticker, r.Open, r.High, r.Low, r.Close, r.Volume}
		if withMarket {
			vals = append(vals, r.Market)
		}
		out = append(out, vals)
	}
	return Batch{Table: table, Columns: cols, Rows: out}
}

// CurrencyBatch shapes currency quotes for table.
func CurrencyBatch(table string, rates []CurrencyRate) Batch {
	out := make([][]any, 0, len(rates))
	for _, r := range rates {
		out = append(out, []any{r.Code, r.Bid, r.ObservedAt})
	}
	return Batch{Table: table, Columns: CurrencyColumns, Rows: out}
}

// NewsBatch shapes headlines for table.
func NewsBatch(table string, items []NewsItem) Batch {
	out := make([][]any, 0, len(items))
	for _, n := range items {
		out = append(out, []any{n.PublishedAt, n.Ticker, n.Category, n.Title, n.Source, n.Link, n.ExternalID})
	}
	return Batch{Table: table, Columns: NewsColumns, Rows: out}
}
