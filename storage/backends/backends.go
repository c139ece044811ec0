// Package backends opens a storage.Slot by backend name.
package backends

import (
	"fmt"
	"strings"
	"time"

	interrors "github.com/megayours/tma-session/internal/errors"
	"github.com/megayours/tma-session/storage"
	"github.com/megayours/tma-session/storage/file"
	"github.com/megayours/tma-session/storage/memory"
	"github.com/megayours/tma-session/storage/redisslot"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	Memory = "memory"
	File   = "file"
	Redis  = "redis"
)

// Options selects and configures a backend.
type Options struct {
	Backend string // memory, file or redis

	Dir     string // file: storage directory
	SealKey []byte // file: optional 32 byte encryption key

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
	TTL           time.Duration // redis: value expiry, zero keeps values

	Logger zerolog.Logger
}

// Open returns the slot named by opts.Backend. An empty name selects memory.
func Open(opts Options) (storage.Slot, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", Memory:
		return memory.New(), nil

	case File:
		fileOpts := []file.Option{file.WithLogger(opts.Logger)}
		if len(opts.SealKey) > 0 {
			fileOpts = append(fileOpts, file.WithSealKey(opts.SealKey))
		}
		s, err := file.New(opts.Dir, fileOpts...)
		if err != nil {
			return nil, fmt.Errorf("[backends.Open] file: %w", err)
		}
		return s, nil

	case Redis:
		if opts.RedisAddr == "" {
			return nil, interrors.ErrMissingRedisURL
		}
		client := redis.NewClient(&redis.Options{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
		})
		redisOpts := []redisslot.Option{redisslot.WithOwnedClient(), redisslot.WithTTL(opts.TTL)}
		if opts.RedisPrefix != "" {
			redisOpts = append(redisOpts, redisslot.WithPrefix(opts.RedisPrefix))
		}
		return redisslot.New(client, redisOpts...)
	}
	return nil, interrors.Wrapf(interrors.ErrUnknownBackend, "[backends.Open] %q", opts.Backend)
}
