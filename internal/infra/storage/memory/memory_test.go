package memory

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vietddude/marketetl/internal/core/domain"
	"github.com/vietddude/marketetl/internal/infra/storage"
)

func TestMemoryStorage_SessionsShareTables(t *testing.T) {
	store := NewMemoryStorage()
	batch := domain.Batch{Table: "t", Columns: []string{"a"}, Rows: [][]any{{1}, {2}}}

	first, err := store.Open(t.Context())
	require.NoError(t, err)
	_, err = first.Write(t.Context(), batch, storage.Replace)
	require.NoError(t, err)
	require.NoError(t, first.Close(t.Context()))

	second, err := store.Open(t.Context())
	require.NoError(t, err)
	_, err = second.Write(t.Context(), batch, storage.Append)
	require.NoError(t, err)

	require.Equal(t, 4, store.Count("t"))
	require.Equal(t, []string{"a"}, store.Columns("t"))

	_, err = second.Write(t.Context(), batch, storage.Replace)
	require.NoError(t, err)
	require.Equal(t, 2, store.Count("t"))
}

func TestMemoryStorage_ClosedSession(t *testing.T) {
	sess, err := NewMemoryStorage().Open(t.Context())
	require.NoError(t, err)
	require.NoError(t, sess.Close(t.Context()))

	_, err = sess.Write(t.Context(), domain.Batch{Table: "t"}, storage.Append)

	var perr *domain.PersistenceError
	require.ErrorAs(t, err, &perr)
}
