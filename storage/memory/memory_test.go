package memory_test

import (
	"context"
	"testing"

	interrors "github.com/megayours/tma-session/internal/errors"
	"github.com/megayours/tma-session/storage"
	"github.com/megayours/tma-session/storage/memory"
	"github.com/stretchr/testify/require"
)

func TestSlot_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	_, err := s.Get(ctx, "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)

	value := []byte(`{"a":1}`)
	require.NoError(t, s.Set(ctx, "k", value))

	value[0] = 'X'
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, `{"a":1}`, string(got))

	require.NoError(t, s.Delete(ctx, "k"))
	require.NoError(t, s.Delete(ctx, "k"))
	require.Equal(t, 0, s.Len())
}

func TestSlot_RejectsInvalidKey(t *testing.T) {
	s := memory.New()
	require.ErrorIs(t, s.Set(context.Background(), "", []byte("x")), interrors.ErrInvalidKey)
}

func TestSlot_Closed(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.Set(ctx, "k", []byte("v")))
	require.NoError(t, s.Close())

	_, err := s.Get(ctx, "k")
	require.ErrorIs(t, err, interrors.ErrSlotClosed)
	require.ErrorIs(t, s.Set(ctx, "k", []byte("v")), interrors.ErrSlotClosed)
}
