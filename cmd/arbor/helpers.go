package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/arborlore/arbor/internal/config"
	"github.com/arborlore/arbor/internal/storage"
	"github.com/arborlore/arbor/internal/tree"
	"github.com/arborlore/arbor/internal/urls"
)

// initStorage initializes the storage service with proper path expansion.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	// Get database path from config
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/arbor/arbor.db"
	}

	// Expand tilde and environment variables
	dbPath = config.ExpandPath(dbPath)

	// Initialize storage
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// newEngine builds a tree engine over the store with the configured slug and
// URL behavior. Built URLs are memoized in the database-backed cache.
func newEngine(store *storage.SQLiteStorage) *tree.Engine {
	return tree.New(store,
		tree.WithUnicodeSlugs(viper.GetBool("slugs.allow_unicode")),
		tree.WithURLBuilder(urls.NewBuilder(viper.GetString("urls.prefix"))),
		tree.WithURLCache(store.URLCache()),
	)
}

// resolveCategory accepts a numeric id or a full slug like
// "books/fiction/horror" and returns the matching category's id.
func resolveCategory(ctx context.Context, store *storage.SQLiteStorage, ref string) (int64, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return 0, fmt.Errorf("empty category reference")
	}

	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return id, nil
	}

	c, err := store.GetCategoryByFullSlug(ctx, ref)
	if err != nil {
		return 0, err
	}
	if c == nil {
		return 0, fmt.Errorf("no category matches %q", ref)
	}
	return c.ID, nil
}
