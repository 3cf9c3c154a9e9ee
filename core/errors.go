package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

func IsValidation(err error) bool {
	_, ok := errors.Cause(err).(*ValidationError)
	return ok
}

// notFound is returned when a referenced entity does not exist (or is hidden from the caller).
type notFound struct {
	message string
}

func NewNotFoundError(msg string) error {
	return &notFound{message: msg}
}

func (e notFound) Error() string { return e.message }

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*notFound)
	return ok
}

// authorization is returned when the caller has no rights over an entity.
type authorization struct {
	message string
}

func NewAuthorizationError(msg string) error {
	return &authorization{message: msg}
}

func (e authorization) Error() string { return e.message }

func IsAuthorization(err error) bool {
	_, ok := errors.Cause(err).(*authorization)
	return ok
}

// invalidState is returned when an operation is not allowed in the entity's current lifecycle stage.
type invalidState struct {
	message string
}

func NewInvalidStateError(msg string) error {
	return &invalidState{message: msg}
}

func (e invalidState) Error() string { return e.message }

func IsInvalidState(err error) bool {
	_, ok := errors.Cause(err).(*invalidState)
	return ok
}

// precondition is returned when a workflow step is attempted out of order.
type precondition struct {
	message string
}

func NewPreconditionError(msg string) error {
	return &precondition{message: msg}
}

func (e precondition) Error() string { return e.message }

func IsPrecondition(err error) bool {
	_, ok := errors.Cause(err).(*precondition)
	return ok
}

// duplicate is returned on uniqueness violations.
type duplicate struct {
	message string
	Keys    []string
}

func NewDuplicateError(msg string, keys ...string) error {
	return &duplicate{message: msg, Keys: keys}
}

func (e duplicate) Error() string { return e.message }

func IsDuplicate(err error) bool {
	_, ok := errors.Cause(err).(*duplicate)
	return ok
}

// DuplicateKeys returns the conflicting keys carried by a duplicate error, if any.
func DuplicateKeys(err error) []string {
	if d, ok := errors.Cause(err).(*duplicate); ok {
		return d.Keys
	}
	return nil
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}

// ErrorKind names the class of a workflow error; used as a metrics label.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case IsNotFound(err):
		return "not_found"
	case IsAuthorization(err):
		return "authorization"
	case IsInvalidState(err):
		return "invalid_state"
	case IsPrecondition(err):
		return "precondition"
	case IsValidation(err):
		return "validation"
	case IsDuplicate(err):
		return "duplicate"
	default:
		return "internal"
	}
}
