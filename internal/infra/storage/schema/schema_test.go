package schema

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vietddude/marketetl/internal/core/domain"
	"github.com/vietddude/marketetl/internal/infra/storage"
	"github.com/vietddude/marketetl/internal/infra/storage/sqlite"
)

func TestMigrateAndStats_SQLite(t *testing.T) {
	url := "sqlite://" + filepath.Join(t.TempDir(), "market.db")

	db, dialect, err := Open(url)
	require.NoError(t, err)
	defer db.Close()
	require.Equal(t, "sqlite3", dialect)

	require.NoError(t, Migrate(t.Context(), db.DB, dialect))
	// Applying twice is a no-op.
	require.NoError(t, Migrate(t.Context(), db.DB, dialect))

	version, err := Version(t.Context(), db.DB, dialect)
	require.NoError(t, err)
	require.EqualValues(t, 2, version)

	sess, err := sqlite.NewStore(url).Open(t.Context())
	require.NoError(t, err)
	defer sess.Close(t.Context())

	observed := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	batch := domain.CurrencyBatch(domain.Currency.Table, []domain.CurrencyRate{{Code: "USD", Bid: 5.12, ObservedAt: observed}})
	n, err := sess.Write(t.Context(), batch, storage.Replace)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	stats, err := Stats(t.Context(), db, map[string]string{
		domain.Currency.Table: "observed_at",
		domain.Crypto.Table:   "date",
	})
	require.NoError(t, err)
	require.Len(t, stats, 2)

	byTable := map[string]TableStat{}
	for _, s := range stats {
		byTable[s.Table] = s
	}
	require.EqualValues(t, 1, byTable[domain.Currency.Table].Rows)
	require.NotNil(t, byTable[domain.Currency.Table].Latest)
	require.True(t, observed.Equal(*byTable[domain.Currency.Table].Latest))
	require.Zero(t, byTable[domain.Crypto.Table].Rows)
	require.Nil(t, byTable[domain.Crypto.Table].Latest)
}

func TestOpen_UnsupportedScheme(t *testing.T) {
	_, _, err := Open("memory://")
	require.ErrorIs(t, err, storage.ErrUnsupportedScheme)
}
