// Package file provides a storage.Slot that keeps one file per key inside a
// private directory.
//
// SECURITY: the slot holds session credentials and bearer tokens.
//   - The directory is created with 0700 and files with 0600 permissions
//   - Writes go to a temporary file that is renamed over the target, so a
//     crash never leaves a half-written value behind
//   - With WithSealKey values are encrypted at rest using NaCl secretbox
//   - Values are never logged
package file

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	interrors "github.com/megayours/tma-session/internal/errors"
	"github.com/megayours/tma-session/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	fileSuffix = ".slot"
	nonceSize  = 24
	sealKeyLen = 32
)

var _ storage.Slot = (*Slot)(nil)

// Slot stores values as files under a directory.
type Slot struct {
	mu      sync.Mutex
	dir     string
	sealKey *[sealKeyLen]byte
	closed  bool
	logger  zerolog.Logger

	rawSealKey []byte
}

// Option configures a file Slot.
type Option func(*Slot)

// WithSealKey encrypts values at rest with the given 32 byte key.
func WithSealKey(key []byte) Option {
	return func(s *Slot) {
		s.rawSealKey = append([]byte(nil), key...)
	}
}

// WithLogger sets the logger used for storage audit events.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Slot) {
		s.logger = logger
	}
}

// New creates the directory if needed and returns a slot rooted at dir.
func New(dir string, opts ...Option) (*Slot, error) {
	if dir == "" {
		return nil, errors.New("[file.New] directory is required")
	}

	s := &Slot{
		dir:    dir,
		logger: log.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.rawSealKey != nil {
		if len(s.rawSealKey) != sealKeyLen {
			return nil, interrors.Wrapf(interrors.ErrSealKeyLength, "[file.New] got %d bytes", len(s.rawSealKey))
		}
		var key [sealKeyLen]byte
		copy(key[:], s.rawSealKey)
		s.sealKey = &key
		s.rawSealKey = nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("[file.New] failed to create storage directory: %w", err)
	}
	return s, nil
}

// Dir returns the directory backing the slot.
func (s *Slot) Dir() string {
	return s.dir
}

func (s *Slot) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := storage.ValidateKey(key); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, interrors.ErrSlotClosed
	}

	// #nosec G304 -- path is built from a validated key
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read slot file: %w", err)
	}
	return s.open(data)
}

func (s *Slot) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := storage.ValidateKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return interrors.ErrSlotClosed
	}

	data, err := s.seal(value)
	if err != nil {
		return err
	}
	if err := s.writeAtomic(s.path(key), data); err != nil {
		s.logger.Warn().Str("event", "slot_write_failed").Str("key", key).Err(err).Msg("storage slot write failed")
		return err
	}
	s.logger.Debug().Str("event", "slot_written").Str("key", key).Bool("sealed", s.sealKey != nil).Msg("storage slot written")
	return nil
}

func (s *Slot) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := storage.ValidateKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return interrors.ErrSlotClosed
	}

	err := os.Remove(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil // Already deleted
	}
	if err != nil {
		return fmt.Errorf("failed to delete slot file: %w", err)
	}
	s.logger.Debug().Str("event", "slot_deleted").Str("key", key).Msg("storage slot deleted")
	return nil
}

func (s *Slot) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Slot) path(key string) string {
	return filepath.Join(s.dir, key+fileSuffix)
}

func (s *Slot) writeAtomic(target string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName) // no-op after a successful rename
	}()

	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to set slot file mode: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write slot file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync slot file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close slot file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("failed to replace slot file: %w", err)
	}
	return nil
}

func (s *Slot) seal(value []byte) ([]byte, error) {
	if s.sealKey == nil {
		return append([]byte(nil), value...), nil
	}
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], value, &nonce, s.sealKey), nil
}

func (s *Slot) open(data []byte) ([]byte, error) {
	if s.sealKey == nil {
		return data, nil
	}
	if len(data) < nonceSize {
		return nil, interrors.ErrUnsealFailed
	}
	var nonce [nonceSize]byte
	copy(nonce[:], data[:nonceSize])
	plain, ok := secretbox.Open(nil, data[nonceSize:], &nonce, s.sealKey)
	if !ok {
		return nil, interrors.ErrUnsealFailed
	}
	return plain, nil
}
