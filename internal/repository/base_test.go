package repository

import (
	"errors"
	"fmt"
	"testing"

	"chronicle/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsUniqueConstraintError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"gorm translated", gorm.ErrDuplicatedKey, true},
		{"wrapped translated", fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), true},
		{"pg 23505", &pgconn.PgError{Code: "23505"}, true},
		{"pg other", &pgconn.PgError{Code: "23503"}, false},
		{"sqlite message", errors.New("UNIQUE constraint failed: follows.user_id, follows.author_id"), true},
		{"unrelated", errors.New("timeout"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUniqueConstraintError(tt.err))
		})
	}
}

func TestIsCheckConstraintError(t *testing.T) {
	assert.True(t, isCheckConstraintError(gorm.ErrCheckConstraintViolated))
	assert.True(t, isCheckConstraintError(&pgconn.PgError{Code: "23514"}))
	assert.True(t, isCheckConstraintError(errors.New("CHECK constraint failed: chk_follows_not_self")))
	assert.False(t, isCheckConstraintError(errors.New("UNIQUE constraint failed")))
	assert.False(t, isCheckConstraintError(nil))
}

func TestNotFoundOr(t *testing.T) {
	assert.True(t, models.IsNotFound(notFoundOr(gorm.ErrRecordNotFound, "Post", 1)))
	assert.Equal(t, models.CodeInternal, models.ErrorCode(notFoundOr(errors.New("boom"), "Post", 1)))
}
