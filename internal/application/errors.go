package application

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrSlotUnavailable is returned when a confirmation loses the slot to a
	// concurrent booking after all retries.
	ErrSlotUnavailable = errors.New("application: slot no longer available")
	// ErrAlreadyCancelled is returned by strict cancellation of an event that
	// is already cancelled.
	ErrAlreadyCancelled = errors.New("application: event already cancelled")
	// ErrInvalidTransition is returned when an event lifecycle operation is
	// applied in a state that does not permit it.
	ErrInvalidTransition = errors.New("application: invalid event state transition")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}
