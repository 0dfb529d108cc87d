package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlobStore_PutGetExists(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	ctx := context.Background()

	exists, err := store.Exists(ctx, "a.pdf")
	require.NoError(t, err)
	require.False(t, exists)

	location, err := store.PutObject(ctx, "a.pdf", "application/pdf", []byte("x"))
	require.NoError(t, err)
	require.Equal(t, "memory://a.pdf", location)

	exists, err = store.Exists(ctx, "a.pdf")
	require.NoError(t, err)
	require.True(t, exists)

	data, ok := store.Get("a.pdf")
	require.True(t, ok)
	require.Equal(t, []byte("x"), data)
	require.Equal(t, 1, store.Len())
}

func TestBlobStore_RequiresPath(t *testing.T) {
	t.Parallel()

	_, err := NewBlobStore().PutObject(context.Background(), "", "application/pdf", []byte("x"))
	require.Error(t, err)
}
