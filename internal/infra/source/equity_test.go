package source

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/vietddude/marketetl/internal/core/domain"
)

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func TestWideTable_ReshapeDropsNullClose(t *testing.T) {
	table := NewWideTable()
	for _, ticker := range []string{"AAPL", "MSFT"} {
		for d := 1; d <= 3; d++ {
			table.Set(day(d), ticker, FieldOpen, 100)
			table.Set(day(d), ticker, FieldHigh, 110)
			table.Set(day(d), ticker, FieldLow, 90)
			table.Set(day(d), ticker, FieldVolume, 1000)
			if ticker == "MSFT" && d == 2 {
				continue
			}
			table.Set(day(d), ticker, FieldClose, 105.456)
		}
	}

	rows := table.Reshape(NasdaqMarket)
	require.Len(t, rows, 5)
	for _, r := range rows {
		require.Equal(t, "NASDAQ", r.Market)
		require.Equal(t, 105.46, r.Close)
		require.False(t, r.Ticker == "MSFT" && r.Date.Equal(day(2)))
	}
	require.Equal(t, day(1), rows[0].Date)
	require.Equal(t, day(3), rows[len(rows)-1].Date)
}

func TestWideTable_ReshapeBrazil(t *testing.T) {
	table := NewWideTable()
	table.Set(day(1), "PETR4.SA", FieldClose, 38.1234)
	table.Set(day(1), "^BVSP", FieldClose, 128000.555)

	rows := table.Reshape(BrazilMarket)
	require.Len(t, rows, 2)
	require.Equal(t, "PETR4", rows[0].Ticker)
	require.Equal(t, 38.12, rows[0].Close)
	require.Nil(t, rows[0].Open)
	require.Empty(t, rows[0].Market)
	require.Equal(t, "^BVSP", rows[1].Ticker)
}

const chartBody = `{"chart":{"result":[{
	"meta":{"symbol":"AAPL","gmtoffset":-14400},
	"timestamp":[1709649000,1709735400,1709821800],
	"indicators":{"quote":[{
		"open":[170.1,171.2,null],
		"high":[172.0,173.5,null],
		"low":[169.5,170.8,null],
		"close":[171.123,172.987,null],
		"volume":[50000000,48000000,null]
	}]}
}],"error":null}}`

func TestYahoo_Download(t *testing.T) {
	srv, last := serve(t, http.StatusOK, chartBody)
	y := NewYahoo(testClient(), srv.URL, "")

	table, failures := y.Download(t.Context(), []string{"AAPL"})
	require.Empty(t, failures)
	require.Contains(t, *last, "/v8/finance/chart/AAPL")
	require.Contains(t, *last, "range=2y")

	rows := table.Reshape(NasdaqMarket)
	require.Len(t, rows, 2)
	require.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), rows[0].Date)
	require.Equal(t, 171.12, rows[0].Close)
	require.Equal(t, 170.1, *rows[0].Open)
}

func TestYahoo_DownloadReportsFailures(t *testing.T) {
	srv, _ := serve(t, http.StatusOK, `{"chart":{"result":null,"error":{"code":"Not Found"}}}`)
	y := NewYahoo(testClient(), srv.URL, "2y")

	table, failures := y.Download(t.Context(), []string{"NOPE", "GONE"})
	require.True(t, table.Empty())
	require.Len(t, failures, 2)
	require.ErrorIs(t, failures[0].Err, domain.ErrProviderInvalidResponse)
}

func TestYahoo_Valid(t *testing.T) {
	y := NewYahoo(testClient(), "http://unused", "")
	require.True(t, y.Valid(gjson.Parse(chartBody)))
	require.False(t, y.Valid(gjson.Parse(`{"chart":{"result":[{"timestamp":[]}]}}`)))
}
