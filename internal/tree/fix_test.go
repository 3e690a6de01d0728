package tree

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arborlore/arbor/internal/storage"
)

func TestFixTreeClosesPathGaps(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine(t)
	buildCatalogue(t, e)

	// Simulate external corruption: Comedy's step jumps far past its sibling.
	comedy := mustFindByName(t, store, "Comedy")
	require.NoError(t, store.UpdateCategoryPath(ctx, comedy.ID, "000100010050", comedy.Depth))

	require.NoError(t, e.FixTree(ctx, FixOptions{FixPaths: true}))

	// Relative order is preserved, the gap is gone.
	assert.Equal(t, "000100010001", mustFindByName(t, store, "Horror").Path)
	assert.Equal(t, "000100010002", mustFindByName(t, store, "Comedy").Path)

	checkInvariants(t, store)
}

func TestFixTreeGraftsOrphans(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine(t)
	buildCatalogue(t, e)

	// Move Non-fiction's own row off its subtree: Biography and Programming
	// still carry the 00010002 prefix but their parent path no longer exists.
	nonFiction := mustFindByName(t, store, "Non-fiction")
	require.NoError(t, store.UpdateCategoryPath(ctx, nonFiction.ID, "00010050", nonFiction.Depth))

	require.NoError(t, e.FixTree(ctx, FixOptions{FixPaths: true}))

	// Level two renumbered in relative path order: Fiction, Children,
	// Non-fiction (its corrupted step sorted it last).
	assert.Equal(t, "00010001", mustFindByName(t, store, "Fiction").Path)
	assert.Equal(t, "00010002", mustFindByName(t, store, "Children").Path)
	assert.Equal(t, "00010003", mustFindByName(t, store, "Non-fiction").Path)

	// The orphans were grafted under their nearest surviving ancestor, Books,
	// after its legitimate children.
	biography := mustFindByName(t, store, "Biography")
	assert.Equal(t, "00010004", biography.Path)
	assert.Equal(t, "Books > Biography", biography.FullName)
	programming := mustFindByName(t, store, "Programming")
	assert.Equal(t, "00010005", programming.Path)

	books := mustFindByName(t, store, "Books")
	assert.Equal(t, 5, books.NumChild)

	checkInvariants(t, store)
}

func TestFixTreeRepairsCountersWithoutFixPaths(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine(t)
	buildCatalogue(t, e)

	fiction := mustFindByName(t, store, "Fiction")
	require.NoError(t, store.SetNumChild(ctx, fiction.ID, 99))
	require.NoError(t, store.SetRootCount(ctx, 42))

	// Stale derived fields are repaired too.
	horror := mustFindByName(t, store, "Horror")
	require.NoError(t, store.UpdateCategoryDerived(ctx, horror.ID, "Bogus", "bogus"))

	require.NoError(t, e.FixTree(ctx, FixOptions{}))

	assert.Equal(t, 2, mustFindByName(t, store, "Fiction").NumChild)
	assert.Equal(t, "Books > Fiction > Horror", mustFindByName(t, store, "Horror").FullName)

	count, err := store.RootCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	checkInvariants(t, store)
}

func TestFixTreeRepairsDepth(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine(t)
	buildCatalogue(t, e)

	teen := mustFindByName(t, store, "Teen")
	require.NoError(t, store.UpdateCategoryPath(ctx, teen.ID, teen.Path, 1))

	require.NoError(t, e.FixTree(ctx, FixOptions{}))

	assert.Equal(t, 4, mustFindByName(t, store, "Teen").Depth)
	checkInvariants(t, store)
}

func TestFixTreeDeduplicatesSiblingSlugs(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine(t)
	buildCatalogue(t, e)

	// Force a collision behind the engine's back.
	comedy := mustFindByName(t, store, "Comedy")
	require.NoError(t, store.UpdateCategoryLabel(ctx, comedy.ID, "Comedy", "horror"))

	require.NoError(t, e.FixTree(ctx, FixOptions{}))

	// The first holder in path order keeps the slug.
	assert.Equal(t, "horror", mustFindByName(t, store, "Horror").Slug)
	assert.Equal(t, "horror-2", mustFindByName(t, store, "Comedy").Slug)
	assert.Equal(t, "books/fiction/horror-2", mustFindByName(t, store, "Comedy").FullSlug)

	checkInvariants(t, store)
}

func TestFixTreeFillsEmptySlugs(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := storage.NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(ctx))

	e := New(store)
	buildCatalogue(t, e)

	// Blank the slug with raw SQL: the storage API validates its inputs, so
	// this kind of damage only arrives from outside the application.
	comedy := mustFindByName(t, store, "Comedy")
	raw, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	_, err = raw.ExecContext(ctx, "UPDATE categories SET slug = '' WHERE id = ?", comedy.ID)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	require.NoError(t, e.FixTree(ctx, FixOptions{}))

	assert.Equal(t, "category", mustFindByName(t, store, "Comedy").Slug)
	checkInvariants(t, store)
}

func TestFixTreeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine(t)
	buildCatalogue(t, e)

	comedy := mustFindByName(t, store, "Comedy")
	require.NoError(t, store.UpdateCategoryPath(ctx, comedy.ID, "000100010050", comedy.Depth))

	require.NoError(t, e.FixTree(ctx, FixOptions{FixPaths: true}))
	first, err := store.AllCategories(ctx)
	require.NoError(t, err)

	require.NoError(t, e.FixTree(ctx, FixOptions{FixPaths: true}))
	second, err := store.AllCategories(ctx)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Path, second[i].Path)
		assert.Equal(t, first[i].Slug, second[i].Slug)
		assert.Equal(t, first[i].FullName, second[i].FullName)
	}
}

func TestFixTreeEmptyDatabase(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine(t)

	require.NoError(t, e.FixTree(ctx, FixOptions{FixPaths: true}))

	count, err := store.RootCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
