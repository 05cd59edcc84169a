package scheduling

import (
	"errors"
	"fmt"
)

// ErrUnknownParticipant is returned when a lecturer or class-representative
// identifier does not resolve to an existing, correctly-roled record, or
// when the resolved lecturer has no contact address.  Handlers should
// translate this into an HTTP 422 response.
var ErrUnknownParticipant = errors.New("unknown participant")

// ErrBookingNotFound is returned by reschedule/cancel/status operations
// when the target booking does not exist.
var ErrBookingNotFound = errors.New("booking not found")

// ErrStoreUnavailable wraps transient infrastructure failures from the
// underlying store.  The resolver never retries on its own; callers decide
// whether to retry with backoff.
var ErrStoreUnavailable = errors.New("store unavailable")

// ValidationError describes malformed or missing input on a single field.
// It is never retried and is surfaced verbatim to the caller for
// correction.
type ValidationError struct {
	Field   string // offending request field
	Message string // human readable description
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func validationErr(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
