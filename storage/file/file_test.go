package file_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	interrors "github.com/megayours/tma-session/internal/errors"
	"github.com/megayours/tma-session/storage"
	"github.com/megayours/tma-session/storage/file"
	"github.com/stretchr/testify/require"
)

func TestSlot_RoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "slots")

	s, err := file.New(dir)
	require.NoError(t, err)

	_, err = s.Get(ctx, "tma_session")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.Set(ctx, "tma_session", []byte(`{"id":"1"}`)))
	got, err := s.Get(ctx, "tma_session")
	require.NoError(t, err)
	require.Equal(t, `{"id":"1"}`, string(got))

	// Overwrite replaces the whole value
	require.NoError(t, s.Set(ctx, "tma_session", []byte(`{}`)))
	got, err = s.Get(ctx, "tma_session")
	require.NoError(t, err)
	require.Equal(t, `{}`, string(got))

	require.NoError(t, s.Delete(ctx, "tma_session"))
	require.NoError(t, s.Delete(ctx, "tma_session"))
	_, err = s.Get(ctx, "tma_session")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSlot_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := file.New(dir)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "k", []byte("persisted")))
	require.NoError(t, first.Close())

	second, err := file.New(dir)
	require.NoError(t, err)
	got, err := second.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "persisted", string(got))
}

func TestSlot_Permissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions only")
	}
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "private")

	s, err := file.New(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "k", []byte("v")))

	dirInfo, err := os.Stat(dir)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0700), dirInfo.Mode().Perm())

	fileInfo, err := os.Stat(filepath.Join(dir, "k.slot"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), fileInfo.Mode().Perm())

	// No temp files are left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestSlot_Sealed(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	key := bytes.Repeat([]byte{7}, 32)

	s, err := file.New(dir, file.WithSealKey(key))
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "k", []byte("secret-token")))

	raw, err := os.ReadFile(filepath.Join(dir, "k.slot"))
	require.NoError(t, err)
	require.NotContains(t, string(raw), "secret-token")

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "secret-token", string(got))

	other, err := file.New(dir, file.WithSealKey(bytes.Repeat([]byte{8}, 32)))
	require.NoError(t, err)
	_, err = other.Get(ctx, "k")
	require.ErrorIs(t, err, interrors.ErrUnsealFailed)
}

func TestSlot_Errors(t *testing.T) {
	_, err := file.New("")
	require.Error(t, err)

	_, err = file.New(t.TempDir(), file.WithSealKey([]byte("short")))
	require.ErrorIs(t, err, interrors.ErrSealKeyLength)

	s, err := file.New(t.TempDir())
	require.NoError(t, err)
	require.ErrorIs(t, s.Set(context.Background(), "../escape", []byte("x")), interrors.ErrInvalidKey)

	require.NoError(t, s.Close())
	_, err = s.Get(context.Background(), "k")
	require.ErrorIs(t, err, interrors.ErrSlotClosed)
}
