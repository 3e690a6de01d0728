package main

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arborlore/arbor/internal/testutil"
)

func TestResolveCategory(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t,
		"Books > Fiction > Horror",
		"Books > Non-fiction",
	)

	horror := db.MustFind("Horror")

	t.Run("by numeric id", func(t *testing.T) {
		id, err := resolveCategory(ctx, db.Storage, strconv.FormatInt(horror.ID, 10))
		require.NoError(t, err)
		assert.Equal(t, horror.ID, id)
	})

	t.Run("by full slug", func(t *testing.T) {
		id, err := resolveCategory(ctx, db.Storage, "books/fiction/horror")
		require.NoError(t, err)
		assert.Equal(t, horror.ID, id)
	})

	t.Run("unknown slug", func(t *testing.T) {
		_, err := resolveCategory(ctx, db.Storage, "books/poetry")
		assert.Error(t, err)
	})

	t.Run("empty reference", func(t *testing.T) {
		_, err := resolveCategory(ctx, db.Storage, "  ")
		assert.Error(t, err)
	})
}

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		want string
		size int64
	}{
		{"512 B", 512},
		{"1.0 KB", 1024},
		{"1.5 MB", 1536 * 1024},
		{"2.0 GB", 2 * 1024 * 1024 * 1024},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatFileSize(tt.size))
	}
}

func TestFormatRelativeTime(t *testing.T) {
	now := time.Now()

	assert.Equal(t, "just now", formatRelativeTime(now.Add(-30*time.Second)))
	assert.Equal(t, "5 minutes ago", formatRelativeTime(now.Add(-5*time.Minute)))
	assert.Equal(t, "1 hour ago", formatRelativeTime(now.Add(-90*time.Minute)))
	assert.Equal(t, "yesterday", formatRelativeTime(now.Add(-30*time.Hour)))

	old := now.Add(-30 * 24 * time.Hour)
	assert.Equal(t, old.Format("2006-01-02 15:04"), formatRelativeTime(old))
}
