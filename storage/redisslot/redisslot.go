// Package redisslot provides a storage.Slot on top of Redis, for deployments
// where the session slot is shared with a backend-for-frontend process.
package redisslot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/megayours/tma-session/storage"
	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "tma"

var _ storage.Slot = (*Slot)(nil)

// Slot stores values under "<prefix>:<key>".
type Slot struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	owned  bool
}

// Option configures a Redis Slot.
type Option func(*Slot)

// WithPrefix sets the key prefix. Defaults to "tma".
func WithPrefix(prefix string) Option {
	return func(s *Slot) {
		s.prefix = prefix
	}
}

// WithTTL expires values after ttl. Zero keeps them until deleted.
func WithTTL(ttl time.Duration) Option {
	return func(s *Slot) {
		s.ttl = ttl
	}
}

// WithOwnedClient makes Close also close the Redis client.
func WithOwnedClient() Option {
	return func(s *Slot) {
		s.owned = true
	}
}

// New wraps an existing client.
func New(client redis.UniversalClient, opts ...Option) (*Slot, error) {
	if client == nil {
		return nil, errors.New("[redisslot.New] client is required")
	}
	s := &Slot{
		client: client,
		prefix: defaultPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Slot) Get(ctx context.Context, key string) ([]byte, error) {
	if err := storage.ValidateKey(key); err != nil {
		return nil, err
	}
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return data, nil
}

func (s *Slot) Set(ctx context.Context, key string, value []byte) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *Slot) Delete(ctx context.Context, key string) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (s *Slot) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}

func (s *Slot) key(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}
