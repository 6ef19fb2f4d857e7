package sqlite

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recshelf/recshelf-server/internal/store/storetest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)

	var journalMode string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	var fk int
	require.NoError(t, s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)

	for _, table := range []string{"users", "sessions", "people", "recommendations", "custom_categories"} {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		assert.NoError(t, err, "table %s", table)
	}

	require.NoError(t, s.Ping(t.Context()))
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	s, err := Open(path, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	storetest.NewUser(t, s)
	require.NoError(t, s.Close())

	s, err = Open(path, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	defer s.Close()

	users, err := s.ListUsers(t.Context())
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, newTestStore(t))
}
