package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arborlore/arbor/internal/model"
)

func TestMigrate(t *testing.T) {
	t.Run("reaches expected schema version", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		var version int
		err := store.db.QueryRow("PRAGMA user_version").Scan(&version)
		require.NoError(t, err)
		assert.Equal(t, ExpectedSchemaVersion, version)
	})

	t.Run("is idempotent", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		require.NoError(t, store.Migrate(context.Background()))
	})

	t.Run("seeds root counter", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		count, err := store.RootCount(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("reopening keeps schema", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "test.db")
		ctx := context.Background()

		store, err := NewSQLiteStorage(dbPath)
		require.NoError(t, err)
		require.NoError(t, store.Migrate(ctx))
		require.NoError(t, store.Close())

		store, err = NewSQLiteStorage(dbPath)
		require.NoError(t, err)
		defer func() { _ = store.Close() }()
		require.NoError(t, store.Migrate(ctx))
	})
}

func TestPathUniqueConstraint(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	seedCategory(t, store, "0001", "Books", "books")

	err := store.CreateCategory(ctx, &model.Category{
		Path: "0001", Depth: 1, Name: "Music", Slug: "music",
	})
	assert.Error(t, err, "duplicate paths must be rejected by the schema")
}
