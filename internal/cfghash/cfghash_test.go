package cfghash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Property #7: config hashing is deterministic regardless of the input
// map's key insertion order (§8).
func TestHashIsIndependentOfMapKeyOrder(t *testing.T) {
	a := map[string]any{"alpha": 1, "beta": 2, "gamma": map[string]any{"x": 1, "y": 2}}
	b := map[string]any{"gamma": map[string]any{"y": 2, "x": 1}, "beta": 2, "alpha": 1}

	digestA, _, err := Hash(a)
	require.NoError(t, err)
	digestB, _, err := Hash(b)
	require.NoError(t, err)

	assert.Equal(t, digestA, digestB)
}

func TestHashDiffersOnValueChange(t *testing.T) {
	a := map[string]any{"alpha": 1}
	b := map[string]any{"alpha": 2}

	digestA, _, err := Hash(a)
	require.NoError(t, err)
	digestB, _, err := Hash(b)
	require.NoError(t, err)

	assert.NotEqual(t, digestA, digestB)
}
