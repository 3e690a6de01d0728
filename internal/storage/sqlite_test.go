package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arborlore/arbor/internal/model"
)

func createTestStorage(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	return store, func() { _ = store.Close() }
}

// seedCategory inserts a category row directly, bypassing the tree engine.
func seedCategory(t *testing.T, store *SQLiteStorage, path, name, slug string) *model.Category {
	t.Helper()
	c := &model.Category{
		Path:     path,
		Depth:    len(path) / 4,
		Name:     name,
		Slug:     slug,
		FullName: name,
		FullSlug: slug,
	}
	require.NoError(t, store.CreateCategory(context.Background(), c))
	return c
}

func TestNewSQLiteStorage(t *testing.T) {
	t.Run("creates database and directories", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "nested", "dir", "test.db")
		store, err := NewSQLiteStorage(dbPath)
		require.NoError(t, err)
		defer func() { _ = store.Close() }()

		require.NoError(t, store.Migrate(context.Background()))
	})

	t.Run("rejects empty path", func(t *testing.T) {
		_, err := NewSQLiteStorage("")
		assert.ErrorIs(t, err, ErrEmptyString)
	})

	t.Run("unopenable path fails on ping", func(t *testing.T) {
		// A directory is a valid path but not a database file; sql.Open is
		// lazy, so the failure surfaces on the ping.
		_, err := NewSQLiteStorage(t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to ping database")
	})
}

func TestTransactionCommitAndRollback(t *testing.T) {
	ctx := context.Background()

	t.Run("commit persists writes", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		tx, err := store.BeginTx(ctx)
		require.NoError(t, err)

		c := &model.Category{Path: "0001", Depth: 1, Name: "Books", Slug: "books"}
		require.NoError(t, tx.CreateCategory(ctx, c))
		require.NoError(t, tx.Commit())

		got, err := store.GetCategoryByID(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "Books", got.Name)
	})

	t.Run("rollback discards writes", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		tx, err := store.BeginTx(ctx)
		require.NoError(t, err)

		c := &model.Category{Path: "0001", Depth: 1, Name: "Books", Slug: "books"}
		require.NoError(t, tx.CreateCategory(ctx, c))
		require.NoError(t, tx.Rollback())

		got, err := store.GetCategoryByPath(ctx, "0001")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("nested transactions rejected", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		tx, err := store.BeginTx(ctx)
		require.NoError(t, err)
		defer func() { _ = tx.Rollback() }()

		_, err = tx.BeginTx(ctx)
		assert.Error(t, err)
	})
}
