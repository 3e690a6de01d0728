package tree

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arborlore/arbor/internal/cache"
	"github.com/arborlore/arbor/internal/urls"
)

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine(t)
	buildCatalogue(t, e)

	// Corrupt derived fields behind the engine's back, then refresh the
	// subtree root.
	horror := mustFindByName(t, store, "Horror")
	require.NoError(t, store.UpdateCategoryDerived(ctx, horror.ID, "Wrong", "wrong"))
	teen := mustFindByName(t, store, "Teen")
	require.NoError(t, store.UpdateCategoryDerived(ctx, teen.ID, "Wrong", "wrong"))

	fiction := mustFindByName(t, store, "Fiction")
	require.NoError(t, e.Refresh(ctx, fiction.ID))

	assert.Equal(t, "Books > Fiction > Horror", mustFindByName(t, store, "Horror").FullName)
	assert.Equal(t, "books/fiction/horror/teen", mustFindByName(t, store, "Teen").FullSlug)
}

func TestURL(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine(t)
	buildCatalogue(t, e)

	horror := mustFindByName(t, store, "Horror")
	got, err := e.URL(ctx, horror)
	require.NoError(t, err)
	assert.Equal(t, urls.DefaultPrefix+"books/fiction/horror_"+strconv.FormatInt(horror.ID, 10)+"/", got)
}

func TestURLCaching(t *testing.T) {
	ctx := context.Background()
	mem := cache.NewMemory()
	e, store := newTestEngine(t, WithURLCache(mem))
	buildCatalogue(t, e)

	horror := mustFindByName(t, store, "Horror")

	first, err := e.URL(ctx, horror)
	require.NoError(t, err)

	cached, ok, err := mem.Get(ctx, urls.CacheKey(horror.ID))
	require.NoError(t, err)
	require.True(t, ok, "URL stored on first build")
	assert.Equal(t, first, cached)

	t.Run("rename invalidates the whole subtree's URLs", func(t *testing.T) {
		fiction := mustFindByName(t, store, "Fiction")
		_, err := e.Rename(ctx, fiction.ID, "Stories", "stories")
		require.NoError(t, err)

		_, ok, err := mem.Get(ctx, urls.CacheKey(horror.ID))
		require.NoError(t, err)
		assert.False(t, ok, "stale URL dropped")

		fresh, err := e.URL(ctx, mustFindByName(t, store, "Horror"))
		require.NoError(t, err)
		assert.Contains(t, fresh, "books/stories/horror")
	})

	t.Run("delete invalidates", func(t *testing.T) {
		gothic := mustFindByName(t, store, "Gothic")
		_, err := e.URL(ctx, gothic)
		require.NoError(t, err)

		require.NoError(t, e.DeleteSubtree(ctx, gothic.ID))

		_, ok, err := mem.Get(ctx, urls.CacheKey(gothic.ID))
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
