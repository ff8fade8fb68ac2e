package source

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vietddude/marketetl/internal/core/domain"
)

// Field is one OHLCV column of a wide table.
type Field int

const (
	FieldOpen Field = iota
	FieldHigh
	FieldLow
	FieldClose
	FieldVolume
)

type cellKey struct {
	date   time.Time
	ticker string
	field  Field
}

// WideTable holds a multi-ticker download indexed by date, field and ticker.
// A missing cell is a null value.
type WideTable struct {
	tickers []string
	known   map[string]struct{}
	dates   map[time.Time]struct{}
	cells   map[cellKey]float64
}

func NewWideTable() *WideTable {
	return &WideTable{
		known: make(map[string]struct{}),
		dates: make(map[time.Time]struct{}),
		cells: make(map[cellKey]float64),
	}
}

// Set stores one cell. Tickers keep the order in which they were first seen.
func (t *WideTable) Set(date time.Time, ticker string, field Field, v float64) {
	if _, ok := t.known[ticker]; !ok {
		t.known[ticker] = struct{}{}
		t.tickers = append(t.tickers, ticker)
	}
	t.dates[date] = struct{}{}
	t.cells[cellKey{date: date, ticker: ticker, field: field}] = v
}

func (t *WideTable) get(date time.Time, ticker string, field Field) (float64, bool) {
	v, ok := t.cells[cellKey{date: date, ticker: ticker, field: field}]
	return v, ok
}

// Empty reports whether no cell was ever set.
func (t *WideTable) Empty() bool {
	return len(t.cells) == 0
}

// Tickers returns the tickers seen so far.
func (t *WideTable) Tickers() []string {
	return append([]string(nil), t.tickers...)
}

// EquityMarket describes how a listing venue's tickers are stored.
type EquityMarket struct {
	// Label is attached to each row when set.
	Label string
	// Suffix is stripped from tickers, e.g. ".SA".
	Suffix string
}

var (
	BrazilMarket = EquityMarket{Suffix: ".SA"}
	NasdaqMarket = EquityMarket{Label: "NASDAQ"}
)

// Reshape turns the table into one row per (date, ticker), oldest date
// first. Rows without a close are dropped and every value is rounded to two
// decimal places.
func (t *WideTable) Reshape(m EquityMarket) []domain.EquityRow {
	dates := make([]time.Time, 0, len(t.dates))
	for d := range t.dates {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	rows := make([]domain.EquityRow, 0, len(dates)*len(t.tickers))
	for _, date := range dates {
		for _, ticker := range t.tickers {
			closePrice, ok := t.get(date, ticker, FieldClose)
			if !ok {
				continue
			}
			rows = append(rows, domain.EquityRow{
				Date:   date,
				Ticker: strings.TrimSuffix(ticker, m.Suffix),
				Open:   t.rounded(date, ticker, FieldOpen),
				High:   t.rounded(date, ticker, FieldHigh),
				Low:    t.rounded(date, ticker, FieldLow),
				Close:  round2(closePrice),
				Volume: t.rounded(date, ticker, FieldVolume),
				Market: m.Label,
			})
		}
	}
	return rows
}

func (t *WideTable) rounded(date time.Time, ticker string, field Field) *float64 {
	v, ok := t.get(date, ticker, field)
	if !ok {
		return nil
	}
	r := round2(v)
	return &r
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
