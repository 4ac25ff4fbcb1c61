package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsSerializationFailure(t *testing.T) {
	abort := &pgconn.PgError{Code: "40001", Message: "could not serialize access due to concurrent update"}

	assert.True(t, isSerializationFailure(abort))
	// still recognized through the storage-layer wrap
	assert.True(t, isSerializationFailure(fmt.Errorf("Store.CreateFire: %w", abort)))

	assert.False(t, isSerializationFailure(nil))
	assert.False(t, isSerializationFailure(errors.New("connection reset")))
	// unique violations are control flow for the store, never retried here
	assert.False(t, isSerializationFailure(&pgconn.PgError{Code: "23505", ConstraintName: "fires_idem_uq"}))
}
