package sqlite_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/marketetl/internal/core/domain"
	"github.com/vietddude/marketetl/internal/infra/storage"
	"github.com/vietddude/marketetl/internal/infra/storage/sqlite"
)

const newsDDL = `CREATE TABLE tb_noticias_mercado (
	published_at TIMESTAMP, asset_ticker TEXT, category TEXT, title TEXT,
	source TEXT, link TEXT, external_id TEXT)`

func newNewsDB(t *testing.T) (string, *sqlx.DB) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "market.db")
	db, err := sqlx.Open("sqlite", path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(newsDDL)
	require.NoError(t, err)
	return "sqlite://" + path, db
}

func headlines(n int) domain.Batch {
	items := make([]domain.NewsItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, domain.NewsItem{
			PublishedAt: time.Date(2024, 5, 10, i, 0, 0, 0, time.UTC),
			Ticker:      "BTC-USD",
			Category:    "CRIPTO",
			Title:       "headline",
			Source:      "Google News",
			Link:        "https://n.example",
		})
	}
	return domain.NewsBatch(domain.News.Table, items)
}

func TestSession_ReplaceIsIdempotent(t *testing.T) {
	url, db := newNewsDB(t)
	sess, err := sqlite.NewStore(url).Open(t.Context())
	require.NoError(t, err)
	defer sess.Close(t.Context())
	require.NoError(t, sess.Ping(t.Context()))

	for i := 0; i < 2; i++ {
		n, err := sess.Write(t.Context(), headlines(3), storage.Replace)
		require.NoError(t, err)
		require.EqualValues(t, 3, n)
	}

	var count int
	require.NoError(t, db.Get(&count, "SELECT COUNT(*) FROM tb_noticias_mercado"))
	require.Equal(t, 3, count)

	var nulls int
	require.NoError(t, db.Get(&nulls, "SELECT COUNT(*) FROM tb_noticias_mercado WHERE external_id IS NULL"))
	require.Equal(t, 3, nulls)
}

func TestSession_Append(t *testing.T) {
	url, db := newNewsDB(t)
	sess, err := sqlite.NewStore(url).Open(t.Context())
	require.NoError(t, err)
	defer sess.Close(t.Context())

	_, err = sess.Write(t.Context(), headlines(2), storage.Append)
	require.NoError(t, err)
	_, err = sess.Write(t.Context(), headlines(2), storage.Append)
	require.NoError(t, err)
	n, err := sess.Write(t.Context(), headlines(0), storage.Append)
	require.NoError(t, err)
	require.Zero(t, n)

	var count int
	require.NoError(t, db.Get(&count, "SELECT COUNT(*) FROM tb_noticias_mercado"))
	require.Equal(t, 4, count)
}

func TestSession_MissingTable(t *testing.T) {
	url, _ := newNewsDB(t)
	sess, err := sqlite.NewStore(url).Open(t.Context())
	require.NoError(t, err)
	defer sess.Close(t.Context())

	_, err = sess.Write(t.Context(), domain.Batch{Table: "nope", Columns: []string{"a"}, Rows: [][]any{{1}}}, storage.Replace)

	var perr *domain.PersistenceError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "nope", perr.Table)
	require.Equal(t, "delete", perr.Op)
}
