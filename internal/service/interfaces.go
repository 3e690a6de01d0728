// Package service defines the interfaces between the tree engine and its collaborators.
package service

import (
	"context"
	"time"

	"github.com/arborlore/arbor/internal/model"
)

// Storage defines the contract for the persistence layer.
//
// Structural queries are ordered by path, which is pre-order traversal order.
// Path, depth and the numchild/root counters are owned by the tree engine;
// full_name/full_slug are owned by the derived-field propagator. Nothing else
// writes them.
type Storage interface {
	// Category persistence
	CreateCategory(ctx context.Context, category *model.Category) error
	GetCategoryByID(ctx context.Context, id int64) (*model.Category, error)
	GetCategoryByPath(ctx context.Context, path string) (*model.Category, error)
	GetCategoryByFullSlug(ctx context.Context, fullSlug string) (*model.Category, error)
	AllCategories(ctx context.Context) ([]model.Category, error)
	UpdateCategoryPath(ctx context.Context, id int64, path string, depth int) error
	UpdateCategoryLabel(ctx context.Context, id int64, name, slug string) error
	UpdateCategoryDerived(ctx context.Context, id int64, fullName, fullSlug string) error
	SetNumChild(ctx context.Context, id int64, numChild int) error
	AdjustNumChild(ctx context.Context, id int64, delta int) error
	DeleteByPathPrefix(ctx context.Context, path string) ([]int64, error)

	// Structural queries
	Roots(ctx context.Context) ([]model.Category, error)
	ChildrenOf(ctx context.Context, path string) ([]model.Category, error)
	DescendantsOf(ctx context.Context, path string) ([]model.Category, error)
	SubtreeOf(ctx context.Context, path string) ([]model.Category, error)
	SiblingsOf(ctx context.Context, path string) ([]model.Category, error)
	CountChildren(ctx context.Context, path string) (int, error)
	FindChildByName(ctx context.Context, parentPath, name string) (*model.Category, error)
	SiblingSlugExists(ctx context.Context, parentPath, slug string, excludeID int64) (bool, error)

	// Root-level sibling counter
	RootCount(ctx context.Context) (int, error)
	SetRootCount(ctx context.Context, count int) error
	AdjustRootCount(ctx context.Context, delta int) error

	// URL cache table
	CacheGet(ctx context.Context, key string) (string, bool, error)
	CacheSet(ctx context.Context, key, value string) error
	CacheDelete(ctx context.Context, key string) error

	// Lifecycle
	BeginTx(ctx context.Context) (Transaction, error)
	Migrate(ctx context.Context) error
	Close() error
}

// Transaction represents a storage transaction. It exposes the full Storage
// contract scoped to the transaction; structural mutations that touch several
// rows must run entirely inside one Transaction.
type Transaction interface {
	Storage
	Commit() error
	Rollback() error
}

// RetryOptions configures retry behavior for transient storage conflicts.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
