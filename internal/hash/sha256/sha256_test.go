package sha256

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHasher(t *testing.T) {
	t.Parallel()

	h := New()
	digest, err := h.Hash([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", digest)

	again, err := h.Hash([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, digest, again)

	other, err := h.Hash([]byte("hello "))
	require.NoError(t, err)
	require.NotEqual(t, digest, other)
}
