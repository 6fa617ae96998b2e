package app

import "fmt"

// ValidationError is bad client input. Message is shown to the user as is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError means a folder or document set does not exist.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

func notFoundErrorf(format string, args ...any) error {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}
