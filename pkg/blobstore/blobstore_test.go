package blobstore

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, store BlobStore) {
	ctx := context.Background()

	obj, err := store.Put(ctx, "ads/banner.png", "image/png", strings.NewReader("pngdata"))
	require.NoError(t, err)
	assert.Equal(t, "ads/banner.png", obj.Key)
	assert.Equal(t, int64(7), obj.Size)
	assert.NotEmpty(t, obj.Hash)

	_, err = store.Put(ctx, "ads/banner.png", "image/png", strings.NewReader("again"))
	assert.ErrorIs(t, err, ErrKeyConflict)

	rc, meta, err := store.Get(ctx, "ads/banner.png")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "pngdata", string(data))
	assert.Equal(t, int64(7), meta.Size)

	require.NoError(t, store.Delete(ctx, "ads/banner.png"))
	_, _, err = store.Get(ctx, "ads/banner.png")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "ads/banner.png"), ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(0))
}

func TestLocalStore(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), 0)
	require.NoError(t, err)
	exerciseStore(t, store)
}

func TestLocalStoreUnknownExtension(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir(), 0)
	require.NoError(t, err)

	_, err = store.Put(ctx, "ads/blob.zzq", "image/png", strings.NewReader("x"))
	require.NoError(t, err)
	rc, meta, err := store.Get(ctx, "ads/blob.zzq")
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "application/octet-stream", meta.ContentType)
}

func TestSizeLimit(t *testing.T) {
	store := NewMemoryStore(4)
	_, err := store.Put(context.Background(), "a.png", "image/png", strings.NewReader("12345"))
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.Equal(t, 0, store.Len())
}

func TestCleanKey(t *testing.T) {
	key, err := CleanKey("/ads/x.png")
	require.NoError(t, err)
	assert.Equal(t, "ads/x.png", key)

	for _, bad := range []string{"", "../etc/passwd", "ads/../../x", ".."} {
		_, err := CleanKey(bad)
		assert.ErrorIs(t, err, ErrInvalidKey, bad)
	}
}
