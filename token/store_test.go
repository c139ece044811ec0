package token_test

import (
	"context"
	"testing"

	"github.com/megayours/tma-session/storage/memory"
	"github.com/megayours/tma-session/token"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	slot := memory.New()
	s, err := token.NewStore(slot, "")
	require.NoError(t, err)

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, got)

	require.ErrorIs(t, s.Save(ctx, " "), token.ErrEmptyToken)

	require.NoError(t, s.Save(ctx, " abc.def.ghi\n"))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "abc.def.ghi", got)

	raw, err := slot.Get(ctx, token.DefaultKey)
	require.NoError(t, err)
	require.Equal(t, "abc.def.ghi", string(raw))

	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Clear(ctx))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestNewStore(t *testing.T) {
	_, err := token.NewStore(nil, "")
	require.Error(t, err)

	_, err = token.NewStore(memory.New(), "a/b")
	require.Error(t, err)
}
