package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/megayours/tma-session/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultKey is the well-known slot key the session record lives under.
const DefaultKey = "tma_session"

// Store is the single read/write/clear path for the persisted session.
// Any other code that needs to drop the session (logout, a 401 handler)
// goes through Clear so the record is always fully formed or absent.
type Store struct {
	slot   storage.Slot
	key    string
	logger zerolog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithKey overrides DefaultKey.
func WithKey(key string) StoreOption {
	return func(s *Store) {
		s.key = key
	}
}

// WithLogger sets the store logger.
func WithLogger(logger zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore returns a Store writing through slot.
func NewStore(slot storage.Slot, opts ...StoreOption) (*Store, error) {
	if slot == nil {
		return nil, errors.New("[NewStore] slot is required")
	}
	s := &Store{
		slot:   slot,
		key:    DefaultKey,
		logger: log.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := storage.ValidateKey(s.key); err != nil {
		return nil, fmt.Errorf("[NewStore] %w", err)
	}
	return s, nil
}

// Load returns the persisted session, or nil when there is none.
//
// A non-nil error always comes with a nil session and means cache-miss:
// either the backend could not be read, or the record was malformed, in
// which case the slot has been cleared and the error wraps
// ErrMalformedStoredSession.
func (s *Store) Load(ctx context.Context) (Session, error) {
	data, err := s.slot.Get(ctx, s.key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session store read: %w", err)
	}

	sess, err := Unmarshal(data)
	if err != nil {
		s.logger.Warn().Str("key", s.key).Err(err).Msg("discarding malformed stored session")
		if clearErr := s.Clear(ctx); clearErr != nil {
			return nil, errors.Join(err, clearErr)
		}
		return nil, err
	}
	return sess, nil
}

// Save replaces the persisted session with sess using a single slot write.
func (s *Store) Save(ctx context.Context, sess Session) error {
	data, err := Marshal(sess)
	if err != nil {
		return err
	}
	if err := s.slot.Set(ctx, s.key, data); err != nil {
		return fmt.Errorf("session store write: %w", err)
	}
	s.logger.Debug().Str("key", s.key).Str("provider", sess.Provider().String()).Msg("session saved")
	return nil
}

// Clear removes the persisted session. Clearing an empty store is a no-op.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.slot.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("session store clear: %w", err)
	}
	return nil
}

// Key returns the slot key the session is stored under.
func (s *Store) Key() string {
	return s.key
}
