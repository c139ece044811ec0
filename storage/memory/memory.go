// Package memory provides an in-process storage.Slot. Values do not survive
// a restart; it backs tests and short-lived tools.
package memory

import (
	"context"
	"sync"

	interrors "github.com/megayours/tma-session/internal/errors"
	"github.com/megayours/tma-session/storage"
)

var _ storage.Slot = (*Slot)(nil)

type Slot struct {
	mu     sync.RWMutex
	values map[string][]byte
	closed bool
}

func New() *Slot {
	return &Slot{
		values: make(map[string][]byte),
	}
}

func (s *Slot) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, interrors.ErrSlotClosed
	}
	v, ok := s.values[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), v...), nil
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
	// Copy so later mutation of value by the caller cannot leak in
	s.values[key] = append([]byte(nil), value...)
	return nil
}

func (s *Slot) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return interrors.ErrSlotClosed
	}
	delete(s.values, key)
	return nil
}

// Len returns the number of stored keys.
func (s *Slot) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

func (s *Slot) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.values = make(map[string][]byte)
	return nil
}
