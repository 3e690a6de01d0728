// Package testutil provides shared helpers for tests that need a migrated
// database with a seeded category tree.
package testutil

import (
	"context"
	"testing"

	"github.com/arborlore/arbor/internal/model"
	"github.com/arborlore/arbor/internal/storage"
	"github.com/arborlore/arbor/internal/tree"
)

// TestDB bundles a migrated in-memory database with a tree engine on top.
type TestDB struct {
	Storage *storage.SQLiteStorage
	Engine  *tree.Engine
	t       *testing.T
}

// SetupTestDB creates an in-memory database, runs migrations, and seeds one
// category chain per breadcrumb trail. Cleanup is registered automatically.
//
// Example:
//
//	db := testutil.SetupTestDB(t,
//		"Books > Fiction > Horror",
//		"Books > Non-fiction",
//	)
func SetupTestDB(t *testing.T, trails ...string) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	engine := tree.New(store)
	for _, trail := range trails {
		if _, err := engine.CreateFromBreadcrumbs(ctx, trail, ">"); err != nil {
			t.Fatalf("failed to seed trail %q: %v", trail, err)
		}
	}

	return &TestDB{
		Storage: store,
		Engine:  engine,
		t:       t,
	}
}

// MustFind returns the category with the given name or fails the test.
func (db *TestDB) MustFind(name string) *model.Category {
	db.t.Helper()

	all, err := db.Storage.AllCategories(context.Background())
	if err != nil {
		db.t.Fatalf("failed to list categories: %v", err)
	}
	for i := range all {
		if all[i].Name == name {
			return &all[i]
		}
	}
	db.t.Fatalf("category %q not found", name)
	return nil
}
