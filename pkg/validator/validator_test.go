package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Email  string `json:"email" validate:"required,email"`
	Rating int    `json:"rating" validate:"min=1,max=5"`
	Type   string `json:"type" validate:"oneof=comment edit_suggestion"`
	Name   string `json:"name" validate:"max=5"`
}

func TestFields(t *testing.T) {
	err := Validate(sample{Email: "nope", Rating: 9, Type: "praise", Name: "toolong"})
	require.Error(t, err)

	fields, ok := Fields(err)
	require.True(t, ok)
	assert.Equal(t, "must be a valid email address", fields["Email"])
	assert.Equal(t, "must be at most 5", fields["Rating"])
	assert.Equal(t, "must be one of: comment edit_suggestion", fields["Type"])
	assert.Equal(t, "must be at most 5 characters", fields["Name"])
}

func TestFields_NotValidationError(t *testing.T) {
	_, ok := Fields(errors.New("unexpected EOF"))
	assert.False(t, ok)
	assert.Equal(t, "unexpected EOF", Message(errors.New("unexpected EOF")))
}

func TestValidate_OK(t *testing.T) {
	assert.NoError(t, Validate(sample{Email: "a@example.com", Rating: 3, Type: "comment"}))
}

func TestMessage(t *testing.T) {
	err := Validate(sample{Email: "a@example.com", Rating: 0, Type: "comment"})
	assert.Equal(t, "Rating must be at least 1", Message(err))
}
