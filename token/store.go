package token

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/megayours/tma-session/storage"
)

// DefaultKey is the slot key the authorize callback deposits the token under.
const DefaultKey = "tma_bearer_token"

// Store reads and writes the bearer token slot.
type Store struct {
	slot storage.Slot
	key  string
}

// NewStore returns a Store over slot. An empty key selects DefaultKey.
func NewStore(slot storage.Slot, key string) (*Store, error) {
	if slot == nil {
		return nil, errors.New("[token.NewStore] slot is required")
	}
	if key == "" {
		key = DefaultKey
	}
	if err := storage.ValidateKey(key); err != nil {
		return nil, fmt.Errorf("[token.NewStore] %w", err)
	}
	return &Store{slot: slot, key: key}, nil
}

// Load returns the stored token, or "" when none is stored.
func (s *Store) Load(ctx context.Context) (string, error) {
	data, err := s.slot.Get(ctx, s.key)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("bearer token read: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Save stores tok, replacing any previous token.
func (s *Store) Save(ctx context.Context, tok string) error {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return ErrEmptyToken
	}
	if err := s.slot.Set(ctx, s.key, []byte(tok)); err != nil {
		return fmt.Errorf("bearer token write: %w", err)
	}
	return nil
}

// Clear removes the stored token. Clearing an empty slot is a no-op.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.slot.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("bearer token clear: %w", err)
	}
	return nil
}
