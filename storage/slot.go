// Package storage defines the persistent key-value slot the session and
// bearer token stores are written through.
//
// A Slot holds opaque byte values under string keys. Every write replaces the
// whole value in a single operation so readers never observe a partial record.
// Implementations live in the memory, file and redisslot subpackages; the
// backends package opens one of them from configuration.
package storage

import (
	"context"
	"errors"
	"strings"

	interrors "github.com/megayours/tma-session/internal/errors"
)

// ErrNotFound is returned by Get when no value is stored under the key.
var ErrNotFound = errors.New("storage: key not found")

// Slot is a persistent key-value slot.
type Slot interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set replaces the value stored under key with a single write.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend. The slot must not be used afterwards.
	Close() error
}

// ValidateKey rejects keys that are empty or could escape a directory.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return interrors.Wrapf(interrors.ErrInvalidKey, "empty key")
	}
	if strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return interrors.Wrapf(interrors.ErrInvalidKey, "key %q", key)
	}
	return nil
}
