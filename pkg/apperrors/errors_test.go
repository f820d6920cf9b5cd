package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructorsUnwrapToSentinels(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		status int
	}{
		{"unauthenticated", Unauthenticated("Not authenticated"), ErrUnauthenticated, http.StatusUnauthorized},
		{"validation", Validation("Rating must be between 1 and 5"), ErrValidation, http.StatusBadRequest},
		{"not found", NotFound("review", "r1"), ErrNotFound, http.StatusNotFound},
		{"conflict", Conflict("email already exists"), ErrConflict, http.StatusConflict},
		{"internal", Internal(errors.New("disk full")), ErrInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.target)
			assert.Equal(t, tt.status, HTTPStatus(tt.err))

			wrapped := fmt.Errorf("create review: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.target)
			assert.Equal(t, tt.status, HTTPStatus(wrapped))
		})
	}
}

func TestInternalKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Internal(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "an internal error occurred", err.Message)
}

func TestHTTPStatusPlainErrors(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(fmt.Errorf("get: %w", ErrNotFound)))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}

func TestNotFoundMessage(t *testing.T) {
	err := NotFound("review", "abc")
	assert.Equal(t, "NOT_FOUND: review with id abc not found", err.Error())
}
