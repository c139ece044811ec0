package storage_test

import (
	"testing"

	"github.com/megayours/tma-session/storage"
	"github.com/stretchr/testify/require"
)

func TestValidateKey(t *testing.T) {
	require.NoError(t, storage.ValidateKey("tma_session"))
	require.Error(t, storage.ValidateKey(""))
	require.Error(t, storage.ValidateKey("   "))
	require.Error(t, storage.ValidateKey("../etc/passwd"))
	require.Error(t, storage.ValidateKey("a/b"))
	require.Error(t, storage.ValidateKey(`a\b`))
}
