package backends_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	interrors "github.com/megayours/tma-session/internal/errors"
	"github.com/megayours/tma-session/storage/backends"
	"github.com/megayours/tma-session/storage/file"
	"github.com/megayours/tma-session/storage/memory"
	"github.com/megayours/tma-session/storage/redisslot"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	t.Run("default is memory", func(t *testing.T) {
		s, err := backends.Open(backends.Options{})
		require.NoError(t, err)
		require.IsType(t, &memory.Slot{}, s)
	})

	t.Run("file", func(t *testing.T) {
		dir := t.TempDir()
		s, err := backends.Open(backends.Options{Backend: "FILE", Dir: dir})
		require.NoError(t, err)
		fs, ok := s.(*file.Slot)
		require.True(t, ok)
		require.Equal(t, dir, fs.Dir())
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		s, err := backends.Open(backends.Options{Backend: backends.Redis, RedisAddr: mr.Addr(), RedisPrefix: "x"})
		require.NoError(t, err)
		require.IsType(t, &redisslot.Slot{}, s)
		defer s.Close()

		require.NoError(t, s.Set(context.Background(), "k", []byte("v")))
		require.True(t, mr.Exists("x:k"))
	})

	t.Run("redis without address", func(t *testing.T) {
		_, err := backends.Open(backends.Options{Backend: backends.Redis})
		require.ErrorIs(t, err, interrors.ErrMissingRedisURL)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := backends.Open(backends.Options{Backend: "s3"})
		require.ErrorIs(t, err, interrors.ErrUnknownBackend)
	})
}
