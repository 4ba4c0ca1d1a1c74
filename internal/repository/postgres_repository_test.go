package repository

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"aposta-be/pkg/errors"
)

func TestIsUniqueViolation(t *testing.T) {
	conflict := &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "bets_pkey"}

	assert.True(t, isUniqueViolation(conflict))
	assert.True(t, isUniqueViolation(errors.NewStorageError("failed to assign bet id", conflict)))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", conflict)))

	assert.False(t, isUniqueViolation(nil))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.NewStorageError("failed to begin transaction", fmt.Errorf("eof"))))
}
