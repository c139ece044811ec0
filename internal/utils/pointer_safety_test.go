package utils_test

import (
	"testing"

	"github.com/megayours/tma-session/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestPointerHelpers(t *testing.T) {
	var missing *int64
	require.Equal(t, int64(0), utils.Value(missing))
	require.Equal(t, int64(7), utils.ValueOr(missing, 7))

	p := utils.Ptr(int64(42))
	require.Equal(t, int64(42), utils.Value(p))
	require.Equal(t, int64(42), utils.ValueOr(p, 7))
}
