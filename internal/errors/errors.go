// Package errors defines the error values shared across the orders service.
package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	ErrNotFound      = stderrors.New("not found")
	ErrConflict      = stderrors.New("conflict")
	ErrEmptyCheckout = stderrors.New("no items to checkout")
)

// ValidationError reports a request field that failed validation.
type ValidationError struct {
	Field   string            `json:"field"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Details: map[string]string{field: message},
	}
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return stderrors.Is(err, ErrNotFound)
}

// AsValidation returns the ValidationError wrapped by err, if any.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if stderrors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
