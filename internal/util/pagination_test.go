package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseIntDefault(t *testing.T) {
	require.Equal(t, 1, ParseIntDefault("", 1))
	require.Equal(t, 1, ParseIntDefault("abc", 1))
	require.Equal(t, 7, ParseIntDefault("7", 1))
}

func TestCalculate(t *testing.T) {
	offset, limit := Calculate(3, 10)
	require.Equal(t, 20, offset)
	require.Equal(t, 10, limit)

	offset, _ = Calculate(0, 10)
	require.Equal(t, 0, offset)

	_, limit = Calculate(1, 0)
	require.Equal(t, DefaultPageSize, limit)

	// An oversized page request falls back to the default instead of
	// turning into an unbounded LIMIT.
	_, limit = Calculate(1, 1000000)
	require.Equal(t, DefaultPageSize, limit)

	_, limit = Calculate(1, MaxPageSize)
	require.Equal(t, MaxPageSize, limit)
}
