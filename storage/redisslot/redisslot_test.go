package redisslot_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/megayours/tma-session/storage"
	"github.com/megayours/tma-session/storage/redisslot"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedisSlotTest(t *testing.T, opts ...redisslot.Option) (*redisslot.Slot, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	s, err := redisslot.New(rdb, append(opts, redisslot.WithOwnedClient())...)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
		mr.Close()
	})
	return s, mr
}

func TestSlot_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisSlotTest(t)

	_, err := s.Get(ctx, "tma_session")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.Set(ctx, "tma_session", []byte(`{"id":"1"}`)))
	require.True(t, mr.Exists("tma:tma_session"))

	got, err := s.Get(ctx, "tma_session")
	require.NoError(t, err)
	require.Equal(t, `{"id":"1"}`, string(got))

	require.NoError(t, s.Delete(ctx, "tma_session"))
	require.NoError(t, s.Delete(ctx, "tma_session"))
	require.False(t, mr.Exists("tma:tma_session"))
}

func TestSlot_PrefixAndTTL(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisSlotTest(t, redisslot.WithPrefix("app"), redisslot.WithTTL(time.Minute))

	require.NoError(t, s.Set(ctx, "k", []byte("v")))
	require.True(t, mr.Exists("app:k"))
	require.Equal(t, time.Minute, mr.TTL("app:k"))

	mr.FastForward(2 * time.Minute)
	_, err := s.Get(ctx, "k")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSlot_BackendDown(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisSlotTest(t)
	mr.Close()

	_, err := s.Get(ctx, "k")
	require.Error(t, err)
	require.NotErrorIs(t, err, storage.ErrNotFound)
}

func TestNew_RequiresClient(t *testing.T) {
	_, err := redisslot.New(nil)
	require.Error(t, err)
}
