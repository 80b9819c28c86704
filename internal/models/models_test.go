package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestPostPreview(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"short", "hello", "hello"},
		{"exactly fifteen", "123456789012345", "123456789012345"},
		{"long", "Тестовый текст поста длиннее", "Тестовый текст "},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Post{Text: tt.text}
			assert.Equal(t, tt.want, p.Preview())
			assert.Equal(t, tt.want, p.String())
		})
	}
}

func TestGroupString(t *testing.T) {
	assert.Equal(t, "Cats", Group{Title: "Cats"}.String())
}

func TestUserDisplayName(t *testing.T) {
	assert.Equal(t, "ann", User{Username: "ann"}.DisplayName())
	assert.Equal(t, "Ann", User{Username: "ann", FirstName: "Ann"}.DisplayName())
	assert.Equal(t, "Ann Lee", User{Username: "ann", FirstName: "Ann", LastName: "Lee"}.DisplayName())
}

func TestNewFieldErrors(t *testing.T) {
	assert.Nil(t, NewFieldErrors(nil))

	err := NewFieldErrors(map[string]string{"text": "required", "group": "unknown"})
	assert.Equal(t, CodeValidation, err.Code)
	assert.Equal(t, "invalid fields: group, text", err.Message)
	assert.Equal(t, "required", err.Fields["text"])
}

func TestErrorCodeThroughWrapping(t *testing.T) {
	base := NewNotFoundError("Post", 7)
	wrapped := fmt.Errorf("load post: %w", base)

	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsConflict(wrapped))
	assert.Equal(t, "", ErrorCode(errors.New("plain")))
	assert.Equal(t, "Post 7 not found", base.Error())
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, fiber.StatusNotFound, HTTPStatus(NewNotFoundError("x", 1)))
	assert.Equal(t, fiber.StatusUnprocessableEntity, HTTPStatus(NewValidationError("bad")))
	assert.Equal(t, fiber.StatusUnauthorized, HTTPStatus(NewUnauthorizedError("login")))
	assert.Equal(t, fiber.StatusForbidden, HTTPStatus(NewForbiddenError("nope")))
	assert.Equal(t, fiber.StatusConflict, HTTPStatus(NewConflictError("dup", nil)))
	assert.Equal(t, fiber.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewInternalError(cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Internal server error: connection reset", err.Error())
}
