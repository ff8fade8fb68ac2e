// Package storage defines the destination-store contract used by pipeline
// stages. A stage opens one Session in SetUp and closes it in TearDown.
package storage

import (
	"context"
	"errors"

	"github.com/vietddude/marketetl/internal/core/domain"
)

// ErrUnsupportedScheme is returned for a database URL no backend understands.
var ErrUnsupportedScheme = errors.New("unsupported database url scheme")

// WriteMode selects how a batch lands in its table.
type WriteMode int

const (
	// Replace empties the table and writes the batch in one transaction.
	Replace WriteMode = iota
	// Append adds the batch to the existing rows.
	Append
)

func (m WriteMode) String() string {
	if m == Append {
		return "append"
	}
	return "replace"
}

// Store opens sessions against one destination.
type Store interface {
	Open(ctx context.Context) (Session, error)
}

// Session is a stage-scoped connection.
type Session interface {
	Ping(ctx context.Context) error
	// Write stores b and returns the number of rows written.
	Write(ctx context.Context, b domain.Batch, mode WriteMode) (int64, error)
	Close(ctx context.Context) error
}
