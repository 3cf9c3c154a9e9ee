package core

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{err: nil, want: ""},
		{err: NewNotFoundError("nope"), want: "not_found"},
		{err: errors.Wrap(NewAuthorizationError("nope"), "wrapped"), want: "authorization"},
		{err: NewInvalidStateError("nope"), want: "invalid_state"},
		{err: NewPreconditionError("nope"), want: "precondition"},
		{err: NewValidationError(nil, FieldError{Field: "note", Error: "required"}), want: "validation"},
		{err: NewDuplicateError("nope", "a", "b"), want: "duplicate"},
		{err: errors.New("boom"), want: "internal"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorKind(tt.err))
	}
}

func TestErrors(t *testing.T) {
	dup := errors.Wrap(NewDuplicateError("taken", "s1", "s2"), "inserting")
	assert.True(t, IsDuplicate(dup))
	assert.Equal(t, []string{"s1", "s2"}, DuplicateKeys(dup))
	assert.Nil(t, DuplicateKeys(errors.New("boom")))

	assert.Equal(t, "note: required", NewValidationError(nil, FieldError{Field: "note", Error: "required"}).Error())
	assert.Equal(t, "bad", NewValidationError(errors.New("bad")).Error())

	assert.True(t, IsShutdown(errors.Wrap(NewShutdownError("bye"), "wrapped")))
	assert.False(t, IsNotFound(NewAuthorizationError("nope")))
}
