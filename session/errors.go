package session

import (
	"errors"
	"fmt"
)

var (
	// ErrNoCredentialAvailable means neither a host credential nor a stored
	// bearer token was found.
	ErrNoCredentialAvailable = errors.New("no credential available")

	// ErrValidationRejected means the backend answered non-2xx for an existing
	// credential. The credential must not be retried as-is.
	ErrValidationRejected = errors.New("validation rejected")

	// ErrValidationTransient means the validation call failed on the network
	// or timed out. Storage is left untouched so a retry can succeed.
	ErrValidationTransient = errors.New("validation failed transiently")

	// ErrMalformedStoredSession means the persisted record could not be read
	// back as a session. The slot is cleared when this is returned.
	ErrMalformedStoredSession = errors.New("malformed stored session")

	// ErrIncompleteSession means a session is missing required fields.
	ErrIncompleteSession = errors.New("incomplete session")
)

// ValidationError reports a failed provider validation. Kind is one of
// ErrNoCredentialAvailable, ErrValidationRejected or ErrValidationTransient.
type ValidationError struct {
	Provider   Provider
	Kind       error
	StatusCode int   // HTTP status for rejections, zero otherwise
	Cause      error // Underlying error, if any
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Provider, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *ValidationError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// Rejected builds a ValidationError of kind ErrValidationRejected.
func Rejected(p Provider, status int, cause error) *ValidationError {
	return &ValidationError{Provider: p, Kind: ErrValidationRejected, StatusCode: status, Cause: cause}
}

// Transient builds a ValidationError of kind ErrValidationTransient.
func Transient(p Provider, cause error) *ValidationError {
	return &ValidationError{Provider: p, Kind: ErrValidationTransient, Cause: cause}
}

// NoCredential builds a ValidationError of kind ErrNoCredentialAvailable.
func NoCredential(p Provider) *ValidationError {
	return &ValidationError{Provider: p, Kind: ErrNoCredentialAvailable}
}

// IsTransient reports whether err is a transient validation failure.
func IsTransient(err error) bool {
	return errors.Is(err, ErrValidationTransient)
}

// IsRejected reports whether err is a definitive validation rejection.
func IsRejected(err error) bool {
	return errors.Is(err, ErrValidationRejected)
}
