package tree

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arborlore/arbor/internal/common"
	"github.com/arborlore/arbor/internal/model"
	"github.com/arborlore/arbor/internal/storage"
	"github.com/arborlore/arbor/internal/treepath"
)

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *storage.SQLiteStorage) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	return New(store, opts...), store
}

// buildCatalogue creates the shared book-catalogue fixture:
//
//	Books
//	├── Fiction
//	│   ├── Horror
//	│   │   ├── Teen
//	│   │   └── Gothic
//	│   └── Comedy
//	├── Non-fiction
//	│   ├── Biography
//	│   └── Programming
//	└── Children
func buildCatalogue(t *testing.T, e *Engine) {
	t.Helper()
	ctx := context.Background()
	trails := []string{
		"Books > Fiction > Horror > Teen",
		"Books > Fiction > Horror > Gothic",
		"Books > Fiction > Comedy",
		"Books > Non-fiction > Biography",
		"Books > Non-fiction > Programming",
		"Books > Children",
	}
	for _, trail := range trails {
		_, err := e.CreateFromBreadcrumbs(ctx, trail, ">")
		require.NoError(t, err)
	}
}

func mustFindByName(t *testing.T, store *storage.SQLiteStorage, name string) *model.Category {
	t.Helper()
	all, err := store.AllCategories(context.Background())
	require.NoError(t, err)
	for i := range all {
		if all[i].Name == name {
			return &all[i]
		}
	}
	t.Fatalf("category %q not found", name)
	return nil
}

// checkInvariants asserts the structural invariants that must hold after
// every mutation: depth matches path length, parents exist, counters are
// exact, sibling slugs are unique, derived fields match the ancestor chain.
func checkInvariants(t *testing.T, store *storage.SQLiteStorage) {
	t.Helper()
	ctx := context.Background()

	all, err := store.AllCategories(ctx)
	require.NoError(t, err)

	byPath := make(map[string]*model.Category, len(all))
	childCounts := make(map[string]int, len(all))
	for i := range all {
		byPath[all[i].Path] = &all[i]
		childCounts[treepath.Parent(all[i].Path)]++
	}

	slugSeen := make(map[string]bool)
	for i := range all {
		c := &all[i]

		assert.True(t, treepath.Valid(c.Path), "path %q must be well formed", c.Path)
		assert.Equal(t, treepath.Depth(c.Path), c.Depth, "depth of %q", c.Path)
		assert.Equal(t, childCounts[c.Path], c.NumChild, "numchild of %q", c.Path)

		parentPath := treepath.Parent(c.Path)
		if parentPath != "" {
			require.NotNil(t, byPath[parentPath], "parent of %q must exist", c.Path)
		}

		key := parentPath + "\x00" + c.Slug
		assert.False(t, slugSeen[key], "sibling slug %q under %q duplicated", c.Slug, parentPath)
		slugSeen[key] = true

		wantFullName := c.Name
		wantFullSlug := c.Slug
		if parent := byPath[parentPath]; parent != nil {
			wantFullName = parent.FullName + model.FullNameSeparator + c.Name
			wantFullSlug = parent.FullSlug + model.FullSlugSeparator + c.Slug
		}
		assert.Equal(t, wantFullName, c.FullName, "full name of %q", c.Path)
		assert.Equal(t, wantFullSlug, c.FullSlug, "full slug of %q", c.Path)
	}

	rootCount, err := store.RootCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, childCounts[""], rootCount, "root counter")
}

func TestAddRoot(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine(t)

	books, err := e.AddRoot(ctx, "Books", "")
	require.NoError(t, err)
	assert.Equal(t, "0001", books.Path)
	assert.Equal(t, 1, books.Depth)
	assert.Equal(t, "books", books.Slug)
	assert.Equal(t, "Books", books.FullName)
	assert.Equal(t, "books", books.FullSlug)

	games, err := e.AddRoot(ctx, "Games", "game-zone")
	require.NoError(t, err)
	assert.Equal(t, "0002", games.Path)
	assert.Equal(t, "game-zone", games.Slug)

	checkInvariants(t, store)
}

func TestAddChild(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine(t)

	books, err := e.AddRoot(ctx, "Books", "")
	require.NoError(t, err)

	fiction, err := e.AddChild(ctx, books.ID, "Fiction", "")
	require.NoError(t, err)
	assert.Equal(t, "00010001", fiction.Path)
	assert.Equal(t, 2, fiction.Depth)
	assert.Equal(t, "Books > Fiction", fiction.FullName)
	assert.Equal(t, "books/fiction", fiction.FullSlug)

	horror, err := e.AddChild(ctx, fiction.ID, "Horror", "")
	require.NoError(t, err)
	assert.Equal(t, "000100010001", horror.Path)
	assert.Equal(t, "Books > Fiction > Horror", horror.FullName)

	parent, err := store.GetCategoryByID(ctx, books.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, parent.NumChild)

	checkInvariants(t, store)
}

func TestAddChildMissingParent(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	_, err := e.AddChild(ctx, 12345, "Fiction", "")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSiblingSlugCollisions(t *testing.T) {
	ctx := context.Background()

	t.Run("generated slugs get numeric suffixes", func(t *testing.T) {
		e, store := newTestEngine(t)

		first, err := e.AddRoot(ctx, "Books", "")
		require.NoError(t, err)
		second, err := e.AddRoot(ctx, "Books", "")
		require.NoError(t, err)
		third, err := e.AddRoot(ctx, "Books", "")
		require.NoError(t, err)

		assert.Equal(t, "books", first.Slug)
		assert.Equal(t, "books-2", second.Slug)
		assert.Equal(t, "books-3", third.Slug)

		checkInvariants(t, store)
	})

	t.Run("explicit duplicate slug never rewrites the existing sibling", func(t *testing.T) {
		e, store := newTestEngine(t)

		books, err := e.AddRoot(ctx, "Books", "")
		require.NoError(t, err)
		existing, err := e.AddChild(ctx, books.ID, "Fiction", "fiction")
		require.NoError(t, err)

		intruder, err := e.AddChild(ctx, books.ID, "More Fiction", "fiction")
		require.NoError(t, err)
		assert.Equal(t, "fiction-2", intruder.Slug)

		kept, err := store.GetCategoryByID(ctx, existing.ID)
		require.NoError(t, err)
		assert.Equal(t, "fiction", kept.Slug)

		checkInvariants(t, store)
	})

	t.Run("same slug under different parents is fine", func(t *testing.T) {
		e, store := newTestEngine(t)

		books, err := e.AddRoot(ctx, "Books", "")
		require.NoError(t, err)
		games, err := e.AddRoot(ctx, "Games", "")
		require.NoError(t, err)

		a, err := e.AddChild(ctx, books.ID, "Horror", "")
		require.NoError(t, err)
		b, err := e.AddChild(ctx, games.ID, "Horror", "")
		require.NoError(t, err)

		assert.Equal(t, "horror", a.Slug)
		assert.Equal(t, "horror", b.Slug)

		checkInvariants(t, store)
	})
}

func TestUnicodeSlugs(t *testing.T) {
	ctx := context.Background()

	t.Run("transliterated by default", func(t *testing.T) {
		e, _ := newTestEngine(t)
		c, err := e.AddRoot(ctx, "Château d'Yquem", "")
		require.NoError(t, err)
		assert.Equal(t, "chateau-dyquem", c.Slug)
	})

	t.Run("preserved when enabled", func(t *testing.T) {
		e, _ := newTestEngine(t, WithUnicodeSlugs(true))
		c, err := e.AddRoot(ctx, "Château d'Yquem", "")
		require.NoError(t, err)
		assert.Equal(t, "château-dyquem", c.Slug)
	})
}

func TestRename(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine(t)
	buildCatalogue(t, e)

	fiction := mustFindByName(t, store, "Fiction")

	renamed, err := e.Rename(ctx, fiction.ID, "Stories", "")
	require.NoError(t, err)
	assert.Equal(t, "Stories", renamed.Name)
	assert.Equal(t, "fiction", renamed.Slug, "slug kept when no new slug given")
	assert.Equal(t, "Books > Stories", renamed.FullName)

	// Every descendant's full name follows the rename.
	horror := mustFindByName(t, store, "Horror")
	assert.Equal(t, "Books > Stories > Horror", horror.FullName)
	teen := mustFindByName(t, store, "Teen")
	assert.Equal(t, "Books > Stories > Horror > Teen", teen.FullName)

	t.Run("with new slug", func(t *testing.T) {
		_, err := e.Rename(ctx, fiction.ID, "Stories", "stories")
		require.NoError(t, err)

		teen := mustFindByName(t, store, "Teen")
		assert.Equal(t, "books/stories/horror/teen", teen.FullSlug)
	})

	checkInvariants(t, store)
}

func TestDeleteSubtree(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine(t)
	buildCatalogue(t, e)

	fiction := mustFindByName(t, store, "Fiction")
	require.NoError(t, e.DeleteSubtree(ctx, fiction.ID))

	all, err := store.AllCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 5, "Fiction, Horror, Teen, Gothic and Comedy removed")
	for _, c := range all {
		assert.NotContains(t, []string{"Fiction", "Horror", "Teen", "Gothic", "Comedy"}, c.Name)
	}

	// Trailing siblings were renumbered down.
	nonFiction := mustFindByName(t, store, "Non-fiction")
	assert.Equal(t, "00010001", nonFiction.Path)
	children := mustFindByName(t, store, "Children")
	assert.Equal(t, "00010002", children.Path)

	checkInvariants(t, store)
}

func TestDeleteRoot(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine(t)

	books, err := e.AddRoot(ctx, "Books", "")
	require.NoError(t, err)
	_, err = e.AddRoot(ctx, "Games", "")
	require.NoError(t, err)

	require.NoError(t, e.DeleteSubtree(ctx, books.ID))

	games := mustFindByName(t, store, "Games")
	assert.Equal(t, "0001", games.Path)

	count, err := store.RootCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	checkInvariants(t, store)
}

func TestPathLengthAlwaysMatchesDepth(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine(t)
	buildCatalogue(t, e)

	horror := mustFindByName(t, store, "Horror")
	programming := mustFindByName(t, store, "Programming")
	require.NoError(t, e.Move(ctx, horror.ID, programming.ID, PositionLastChild))

	all, err := store.AllCategories(ctx)
	require.NoError(t, err)
	for _, c := range all {
		assert.Equal(t, c.Depth*treepath.StepLen, len(c.Path), "node %q", c.Name)
	}
}
