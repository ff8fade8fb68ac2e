// Package sqlite writes batches to a local SQLite file. It serves small
// deployments and end-to-end tests without a database server.
package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/vietddude/marketetl/internal/core/domain"
	"github.com/vietddude/marketetl/internal/infra/storage"
)

// Store opens sessions against one database file.
type Store struct {
	dsn string
}

// NewStore accepts a sqlite:// URL or a bare file path.
func NewStore(url string) *Store {
	return &Store{dsn: DSN(url)}
}

// DSN strips the sqlite:// scheme.
func DSN(url string) string {
	return strings.TrimPrefix(url, "sqlite://")
}

func (s *Store) Open(ctx context.Context) (storage.Session, error) {
	db, err := sqlx.Open("sqlite", s.dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between the delete and the inserts.
	db.SetMaxOpenConns(1)
	return &Session{db: db}, nil
}

// Session wraps one sqlx handle.
type Session struct {
	db *sqlx.DB
}

func (s *Session) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Session) Write(ctx context.Context, b domain.Batch, mode storage.WriteMode) (int64, error) {
	if mode == storage.Append && b.Len() == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, &domain.PersistenceError{Table: b.Table, Op: "begin", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	table := quoteIdent(b.Table)
	if mode == storage.Replace {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return 0, &domain.PersistenceError{Table: b.Table, Op: "delete", Err: err}
		}
	}

	cols := make([]string, len(b.Columns))
	for i, c := range b.Columns {
		cols[i] = quoteIdent(c)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(cols, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "),
	)

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return 0, &domain.PersistenceError{Table: b.Table, Op: "prepare", Err: err}
	}
	defer stmt.Close()

	var n int64
	for _, row := range b.Rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return 0, &domain.PersistenceError{Table: b.Table, Op: "insert", Err: err}
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, &domain.PersistenceError{Table: b.Table, Op: "commit", Err: err}
	}
	return n, nil
}

func (s *Session) Close(_ context.Context) error {
	return s.db.Close()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
