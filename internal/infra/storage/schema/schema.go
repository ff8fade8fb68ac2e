// Package schema owns the destination tables: goose migrations and the
// read-only queries behind the status command.
package schema

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/vietddude/marketetl/internal/infra/storage"
	"github.com/vietddude/marketetl/internal/infra/storage/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Open returns a database/sql handle and goose dialect for url.
// memory:// has no schema and yields storage.ErrUnsupportedScheme.
func Open(url string) (*sqlx.DB, string, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		db, err := sqlx.Open("postgres", url)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open database: %w", err)
		}
		return db, "postgres", nil
	case strings.HasPrefix(url, "sqlite://"):
		db, err := sqlx.Open("sqlite", sqlite.DSN(url))
		if err != nil {
			return nil, "", fmt.Errorf("failed to open database: %w", err)
		}
		return db, "sqlite3", nil
	default:
		return nil, "", fmt.Errorf("%w: %q", storage.ErrUnsupportedScheme, url)
	}
}

// Migrate applies every pending migration.
func Migrate(ctx context.Context, db *sql.DB, dialect string) error {
	goose.SetBaseFS(migrationsFS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Version returns the applied schema version.
func Version(ctx context.Context, db *sql.DB, dialect string) (int64, error) {
	goose.SetBaseFS(migrationsFS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(dialect); err != nil {
		return 0, fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return goose.GetDBVersionContext(ctx, db)
}

// TableStat summarizes one destination table.
type TableStat struct {
	Table  string
	Rows   int64
	Latest *time.Time
}

// Stats counts rows and finds the newest timestamp in each table. dateColumn
// maps a table to the column holding its date.
func Stats(ctx context.Context, db *sqlx.DB, dateColumn map[string]string) ([]TableStat, error) {
	tables := make([]string, 0, len(dateColumn))
	for t := range dateColumn {
		tables = append(tables, t)
	}
	sort.Strings(tables)

	out := make([]TableStat, 0, len(tables))
	for _, table := range tables {
		var row struct {
			Rows   int64          `db:"row_count"`
			Latest sql.NullString `db:"latest_at"`
		}
		query := fmt.Sprintf(`SELECT COUNT(*) AS row_count, CAST(MAX(%s) AS TEXT) AS latest_at FROM %s`,
			quoteIdent(dateColumn[table]), quoteIdent(table))
		if err := db.GetContext(ctx, &row, query); err != nil {
			return nil, fmt.Errorf("failed to inspect %s: %w", table, err)
		}

		stat := TableStat{Table: table, Rows: row.Rows}
		if row.Latest.Valid {
			if ts, ok := parseTimestamp(row.Latest.String); ok {
				stat.Latest = &ts
			}
		}
		out = append(out, stat)
	}
	return out, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
