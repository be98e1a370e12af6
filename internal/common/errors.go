package common

import (
	"errors"
	"fmt"
)

// ValidationError reports a bad form input. It blocks the attempted action
// only; nothing about the session changes.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ErrNotAuthenticated is returned when an action requires a logged-in user.
// Callers surface it as a prompt to authenticate.
var ErrNotAuthenticated = errors.New("authentication required")

var ErrNotFound = errors.New("not found")
