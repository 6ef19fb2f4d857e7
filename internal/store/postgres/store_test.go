package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/recshelf/recshelf-server/internal/store"
)

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError(nil))
	assert.ErrorIs(t, mapError(pgx.ErrNoRows), store.ErrNotFound)
	assert.ErrorIs(t, mapError(fmt.Errorf("scan: %w", pgx.ErrNoRows)), store.ErrNotFound)

	unique := &pgconn.PgError{Code: "23505", Message: "duplicate key value"}
	assert.ErrorIs(t, mapError(unique), store.ErrAlreadyExists)

	other := errors.New("connection refused")
	assert.Equal(t, other, mapError(other))
}

func TestRequireOneRow(t *testing.T) {
	assert.ErrorIs(t, requireOneRow(pgconn.NewCommandTag("DELETE 0"), nil), store.ErrNotFound)
	assert.NoError(t, requireOneRow(pgconn.NewCommandTag("UPDATE 1"), nil))
	assert.ErrorIs(t, requireOneRow(pgconn.CommandTag{}, pgx.ErrNoRows), store.ErrNotFound)
}
