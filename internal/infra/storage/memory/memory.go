package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/vietddude/marketetl/internal/core/domain"
	"github.com/vietddude/marketetl/internal/infra/storage"
)

var errSessionClosed = errors.New("session closed")

// MemoryStorage keeps tables in process memory. Sessions opened from the
// same MemoryStorage share its tables.
type MemoryStorage struct {
	tables map[string][][]any
	cols   map[string][]string
	mu     sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		tables: make(map[string][][]any),
		cols:   make(map[string][]string),
	}
}

func (m *MemoryStorage) Open(ctx context.Context) (storage.Session, error) {
	return &Session{store: m}, nil
}

// Rows returns a copy of table's rows.
func (m *MemoryStorage) Rows(table string) [][]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([][]any, len(m.tables[table]))
	copy(out, m.tables[table])
	return out
}

// Columns returns the column list of the last write to table.
func (m *MemoryStorage) Columns(table string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cols[table]
}

// Count returns the number of rows in table.
func (m *MemoryStorage) Count(table string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tables[table])
}

type Session struct {
	store  *MemoryStorage
	closed bool
}

func (s *Session) Ping(ctx context.Context) error {
	return nil
}

func (s *Session) Write(ctx context.Context, b domain.Batch, mode storage.WriteMode) (int64, error) {
	if s.closed {
		return 0, &domain.PersistenceError{Table: b.Table, Op: mode.String(), Err: errSessionClosed}
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	rows := make([][]any, 0, len(b.Rows))
	for _, r := range b.Rows {
		rows = append(rows, append([]any(nil), r...))
	}
	if mode == storage.Replace {
		s.store.tables[b.Table] = rows
	} else {
		s.store.tables[b.Table] = append(s.store.tables[b.Table], rows...)
	}
	s.store.cols[b.Table] = b.Columns
	return int64(len(rows)), nil
}

func (s *Session) Close(ctx context.Context) error {
	s.closed = true
	return nil
}
