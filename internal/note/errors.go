package note

import "errors"

var ErrNoteNotFound = errors.New("note not found")

// ValidationError covers malformed payloads, the pinned+archived conflict,
// and reorder set mismatches. Always client-recoverable, never retried
// automatically.
type ValidationError struct {
	Message string
	Details any
}

func (e *ValidationError) Error() string { return e.Message }

func badRequest(message string) *ValidationError {
	return &ValidationError{Message: message}
}
