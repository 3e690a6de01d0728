package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURLCacheTable(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	_, ok, err := store.CacheGet(ctx, "category:url:1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.CacheSet(ctx, "category:url:1", "/catalogue/category/books_1/"))

	v, ok, err := store.CacheGet(ctx, "category:url:1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/catalogue/category/books_1/", v)

	// upsert replaces
	require.NoError(t, store.CacheSet(ctx, "category:url:1", "/catalogue/category/ebooks_1/"))
	v, _, _ = store.CacheGet(ctx, "category:url:1")
	assert.Equal(t, "/catalogue/category/ebooks_1/", v)

	require.NoError(t, store.CacheDelete(ctx, "category:url:1"))
	_, ok, _ = store.CacheGet(ctx, "category:url:1")
	assert.False(t, ok)
}

func TestURLCacheAdapter(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	c := store.URLCache()
	require.NoError(t, c.Set(ctx, "k", "v"))

	v, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	require.NoError(t, c.Delete(ctx, "k"))
	_, ok, _ = c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestCacheEntriesVisibleInTransaction(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)

	require.NoError(t, tx.CacheSet(ctx, "k", "v"))
	v, ok, err := tx.CacheGet(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	require.NoError(t, tx.Rollback())

	_, ok, err = store.CacheGet(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "rolled back cache writes must not persist")
}
