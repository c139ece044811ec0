package errors

import (
	"errors"
	"fmt"
)

// Common error types shared by the storage backends and the CLI
var (
	// Storage errors
	ErrSlotClosed      = errors.New("storage slot closed")
	ErrInvalidKey      = errors.New("invalid storage key")
	ErrSealKeyLength   = errors.New("seal key must be 32 bytes")
	ErrUnsealFailed    = errors.New("unable to unseal stored value")
	ErrUnknownBackend  = errors.New("unknown storage backend")
	ErrMissingRedisURL = errors.New("redis address is required")

	// Configuration errors
	ErrInvalidDuration = errors.New("invalid duration")
	ErrInvalidBaseURL  = errors.New("backend base URL must be an absolute URL")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
