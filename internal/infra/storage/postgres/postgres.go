// Package postgres writes batches to PostgreSQL with COPY.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vietddude/marketetl/internal/core/domain"
	"github.com/vietddude/marketetl/internal/infra/storage"
)

// Store opens one pgx connection per session.
type Store struct {
	url string
}

func NewStore(url string) *Store {
	return &Store{url: url}
}

func (s *Store) Open(ctx context.Context) (storage.Session, error) {
	conn, err := pgx.Connect(ctx, s.url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return &Session{conn: conn}, nil
}

// Session is a single connection owned by one stage.
type Session struct {
	conn *pgx.Conn
}

func (s *Session) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// Write truncates (Replace) and copies the batch inside one transaction, so
// readers never observe a half-replaced table.
func (s *Session) Write(ctx context.Context, b domain.Batch, mode storage.WriteMode) (int64, error) {
	if mode == storage.Append && b.Len() == 0 {
		return 0, nil
	}

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return 0, &domain.PersistenceError{Table: b.Table, Op: "begin", Err: err}
	}
	defer func() { _ = tx.Rollback(ctx) }()

	table := pgx.Identifier{b.Table}
	if mode == storage.Replace {
		if _, err := tx.Exec(ctx, "TRUNCATE TABLE "+table.Sanitize()); err != nil {
			return 0, &domain.PersistenceError{Table: b.Table, Op: "truncate", Err: err}
		}
	}

	n, err := tx.CopyFrom(ctx, table, b.Columns, pgx.CopyFromRows(b.Rows))
	if err != nil {
		return 0, &domain.PersistenceError{Table: b.Table, Op: "copy", Err: err}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, &domain.PersistenceError{Table: b.Table, Op: "commit", Err: err}
	}
	return n, nil
}

func (s *Session) Close(ctx context.Context) error {
	return s.conn.Close(ctx)
}
