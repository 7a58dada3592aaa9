package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/colehouse/taskline/internal/store"
)

func pgError(code, constraint string) *pgconn.PgError {
	return &pgconn.PgError{Code: code, ConstraintName: constraint}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{"nil", nil, nil},
		{"no rows", sql.ErrNoRows, store.ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", sql.ErrNoRows), store.ErrNotFound},
		{"unique violation", pgError("23505", "users_email_key"), store.ErrDuplicate},
		{"foreign key violation", pgError("23503", "tasks_user_id_fkey"), store.ErrInvalidEntity},
		{"check violation", pgError("23514", "tasks_title_check"), store.ErrInvalidEntity},
		{"not null violation", pgError("23502", ""), store.ErrInvalidEntity},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := MapError(tc.err)
			if tc.expected == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tc.expected)
		})
	}
}

func TestMapErrorPassesThroughUnknown(t *testing.T) {
	unknown := errors.New("connection refused")
	assert.Equal(t, unknown, MapError(unknown))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(pgError("23505", "users_email_key")))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", pgError("23505", ""))))
	assert.False(t, isUniqueViolation(pgError("23503", "")))
	assert.False(t, isUniqueViolation(errors.New("other")))
	assert.False(t, isUniqueViolation(nil))
}
