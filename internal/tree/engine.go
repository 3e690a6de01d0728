// Package tree implements the materialized-path category tree: node creation,
// subtree moves, derived-field propagation and repair of corrupted trees.
//
// Children of any parent always occupy steps 1..numchild without gaps, and
// the root level occupies 1..root_count. That keeps the stored counters the
// source of truth for the next free step, so insertion never scans siblings.
// Every structural mutation runs inside a single storage transaction.
package tree

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/arborlore/arbor/internal/cache"
	"github.com/arborlore/arbor/internal/common"
	"github.com/arborlore/arbor/internal/model"
	"github.com/arborlore/arbor/internal/service"
	"github.com/arborlore/arbor/internal/slug"
	"github.com/arborlore/arbor/internal/storage"
	"github.com/arborlore/arbor/internal/treepath"
	"github.com/arborlore/arbor/internal/urls"
)

// Engine owns all structural mutation of the category tree.
type Engine struct {
	store        service.Storage
	urlCache     cache.Cache
	urlBuilder   *urls.Builder
	retry        service.RetryOptions
	allowUnicode bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithUnicodeSlugs keeps non-ASCII letters in generated slugs instead of
// transliterating them.
func WithUnicodeSlugs(allow bool) Option {
	return func(e *Engine) { e.allowUnicode = allow }
}

// WithURLCache wires a cache for built category URLs. Without one, URLs are
// rebuilt on every request; correctness is unaffected.
func WithURLCache(c cache.Cache) Option {
	return func(e *Engine) { e.urlCache = c }
}

// WithURLBuilder overrides the default URL builder.
func WithURLBuilder(b *urls.Builder) Option {
	return func(e *Engine) { e.urlBuilder = b }
}

// WithRetryOptions controls retries of mutations on transient lock conflicts.
func WithRetryOptions(opts service.RetryOptions) Option {
	return func(e *Engine) { e.retry = opts }
}

// New creates a tree engine on top of the given storage.
func New(store service.Storage, opts ...Option) *Engine {
	e := &Engine{
		store:      store,
		urlBuilder: urls.NewBuilder(""),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// mutate runs fn inside one transaction, retrying the whole transaction on
// transient lock conflicts. Rollback on any error keeps the subtree
// consistent; there is no partial-undo logic here.
func (e *Engine) mutate(ctx context.Context, fn func(tx service.Transaction) error) error {
	operation := func() error {
		tx, err := e.store.BeginTx(ctx)
		if err != nil {
			return classifyRetryable(err)
		}

		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return classifyRetryable(err)
		}

		if err := tx.Commit(); err != nil {
			return classifyRetryable(err)
		}
		return nil
	}

	return common.WithRetry(ctx, operation, e.retry)
}

// classifyRetryable marks lock conflicts as retryable and everything else as
// final, so WithRetry returns domain errors untouched.
func classifyRetryable(err error) error {
	return &common.RetryableError{Err: err, Retryable: storage.IsBusy(err)}
}

// invalidateURLs drops cached URLs for the given category ids. Best effort:
// a cache failure is logged, never surfaced.
func (e *Engine) invalidateURLs(ctx context.Context, ids []int64) {
	if e.urlCache == nil {
		return
	}
	for _, id := range ids {
		if err := e.urlCache.Delete(ctx, urls.CacheKey(id)); err != nil {
			slog.Warn("failed to invalidate cached URL", "id", id, "error", err)
		}
	}
}

// assignSlug returns a slug unique among the direct children of parentPath.
// Preference order: the explicit hint, then the slugified name. Collisions
// get a numeric suffix; the sibling already holding the slug is never touched.
func (e *Engine) assignSlug(ctx context.Context, tx service.Transaction, parentPath, name, hint string, excludeID int64) (string, error) {
	base := strings.TrimSpace(hint)
	if base == "" {
		base = slug.Make(name, e.allowUnicode)
	}
	if base == "" {
		base = "category"
	}

	candidate := base
	for n := 2; ; n++ {
		exists, err := tx.SiblingSlugExists(ctx, parentPath, candidate, excludeID)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}

// AddRoot creates a new top-level category. An empty slugHint derives the
// slug from name.
func (e *Engine) AddRoot(ctx context.Context, name, slugHint string) (*model.Category, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: name", common.ErrInvalidConfig)
	}

	var created *model.Category
	err := e.mutate(ctx, func(tx service.Transaction) error {
		count, err := tx.RootCount(ctx)
		if err != nil {
			return err
		}

		path, err := treepath.Child("", count+1)
		if err != nil {
			return err
		}

		nodeSlug, err := e.assignSlug(ctx, tx, "", name, slugHint, 0)
		if err != nil {
			return err
		}

		c := &model.Category{
			Path:     path,
			Depth:    1,
			Name:     name,
			Slug:     nodeSlug,
			FullName: name,
			FullSlug: nodeSlug,
		}
		if err := tx.CreateCategory(ctx, c); err != nil {
			return err
		}
		if err := tx.AdjustRootCount(ctx, 1); err != nil {
			return err
		}

		created = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Debug("added root category", "id", created.ID, "path", created.Path, "name", name)
	return created, nil
}

// AddChild creates a new category under the given parent. An empty slugHint
// derives the slug from name.
func (e *Engine) AddChild(ctx context.Context, parentID int64, name, slugHint string) (*model.Category, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: name", common.ErrInvalidConfig)
	}

	var created *model.Category
	err := e.mutate(ctx, func(tx service.Transaction) error {
		parent, err := tx.GetCategoryByID(ctx, parentID)
		if err != nil {
			return err
		}

		path, err := treepath.Child(parent.Path, parent.NumChild+1)
		if err != nil {
			return err
		}

		nodeSlug, err := e.assignSlug(ctx, tx, parent.Path, name, slugHint, 0)
		if err != nil {
			return err
		}

		c := &model.Category{
			Path:     path,
			Depth:    parent.Depth + 1,
			Name:     name,
			Slug:     nodeSlug,
			FullName: parent.FullName + model.FullNameSeparator + name,
			FullSlug: parent.FullSlug + model.FullSlugSeparator + nodeSlug,
		}
		if err := tx.CreateCategory(ctx, c); err != nil {
			return err
		}
		if err := tx.AdjustNumChild(ctx, parent.ID, 1); err != nil {
			return err
		}

		created = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Debug("added child category", "id", created.ID, "path", created.Path, "name", name)
	return created, nil
}

// Rename changes a category's display name and, when newSlug is non-empty,
// its slug. Derived fields of the whole subtree are refreshed.
func (e *Engine) Rename(ctx context.Context, id int64, newName, newSlug string) (*model.Category, error) {
	if strings.TrimSpace(newName) == "" {
		return nil, fmt.Errorf("%w: name", common.ErrInvalidConfig)
	}

	var renamed *model.Category
	var stale []int64
	err := e.mutate(ctx, func(tx service.Transaction) error {
		c, err := tx.GetCategoryByID(ctx, id)
		if err != nil {
			return err
		}

		nodeSlug := c.Slug
		if strings.TrimSpace(newSlug) != "" {
			nodeSlug, err = e.assignSlug(ctx, tx, c.ParentPath(), newName, newSlug, c.ID)
			if err != nil {
				return err
			}
		}

		if err := tx.UpdateCategoryLabel(ctx, c.ID, newName, nodeSlug); err != nil {
			return err
		}

		stale, err = refreshSubtree(ctx, tx, c.Path)
		if err != nil {
			return err
		}

		renamed, err = tx.GetCategoryByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.invalidateURLs(ctx, stale)
	slog.Debug("renamed category", "id", id, "name", newName)
	return renamed, nil
}

// DeleteSubtree removes a category and every descendant, renumbers the
// trailing siblings down and fixes the parent's counter.
func (e *Engine) DeleteSubtree(ctx context.Context, id int64) error {
	var deleted []int64
	err := e.mutate(ctx, func(tx service.Transaction) error {
		c, err := tx.GetCategoryByID(ctx, id)
		if err != nil {
			return err
		}

		parentPath := c.ParentPath()
		step, err := treepath.StepOf(c.Path)
		if err != nil {
			return err
		}

		deleted, err = tx.DeleteByPathPrefix(ctx, c.Path)
		if err != nil {
			return err
		}

		if err := closeSiblingGap(ctx, tx, parentPath, step); err != nil {
			return err
		}

		if parentPath == "" {
			return tx.AdjustRootCount(ctx, -1)
		}
		parent, err := tx.GetCategoryByPath(ctx, parentPath)
		if err != nil {
			return err
		}
		if parent == nil {
			return fmt.Errorf("%w: parent of %q", common.ErrNotFound, c.Path)
		}
		return tx.AdjustNumChild(ctx, parent.ID, -1)
	})
	if err != nil {
		return err
	}

	e.invalidateURLs(ctx, deleted)
	slog.Info("deleted subtree", "id", id, "count", len(deleted))
	return nil
}

// URL returns the external path for a category, memoized when a URL cache is
// configured.
func (e *Engine) URL(ctx context.Context, c *model.Category) (string, error) {
	if c == nil {
		return "", fmt.Errorf("%w: category", common.ErrInvalidConfig)
	}

	key := urls.CacheKey(c.ID)
	if e.urlCache != nil {
		if cached, ok, err := e.urlCache.Get(ctx, key); err == nil && ok {
			return cached, nil
		}
	}

	built := e.urlBuilder.Build(c.FullSlug, c.ID)
	if e.urlCache != nil {
		if err := e.urlCache.Set(ctx, key, built); err != nil {
			slog.Warn("failed to cache URL", "id", c.ID, "error", err)
		}
	}
	return built, nil
}

// rewriteSubtree rewrites every path under oldPrefix (inclusive) to start
// with newPrefix instead, by suffix substitution in path order. Depth is
// re-derived from the new path.
func rewriteSubtree(ctx context.Context, tx service.Transaction, oldPrefix, newPrefix string) error {
	rows, err := tx.SubtreeOf(ctx, oldPrefix)
	if err != nil {
		return err
	}
	for _, row := range rows {
		newPath := newPrefix + row.Path[len(oldPrefix):]
		if err := tx.UpdateCategoryPath(ctx, row.ID, newPath, treepath.Depth(newPath)); err != nil {
			return err
		}
	}
	return nil
}

// closeSiblingGap renumbers the children of parentPath with step greater
// than removedStep down by one, in ascending order so the vacated step is
// always free when its successor moves in. Renumbering keeps ancestry, so
// derived fields of the shifted subtrees stay valid.
func closeSiblingGap(ctx context.Context, tx service.Transaction, parentPath string, removedStep int) error {
	siblings, err := tx.ChildrenOf(ctx, parentPath)
	if err != nil {
		return err
	}

	for _, sibling := range siblings {
		step, err := treepath.StepOf(sibling.Path)
		if err != nil {
			return err
		}
		if step <= removedStep {
			continue
		}
		shifted, err := treepath.Child(parentPath, step-1)
		if err != nil {
			return err
		}
		if err := rewriteSubtree(ctx, tx, sibling.Path, shifted); err != nil {
			return err
		}
	}
	return nil
}

// openSiblingGap renumbers the children of parentPath with step greater than
// or equal to insertStep up by one, in descending order so every shift lands
// on a free step. The caller has already checked capacity.
func openSiblingGap(ctx context.Context, tx service.Transaction, parentPath string, insertStep int) error {
	siblings, err := tx.ChildrenOf(ctx, parentPath)
	if err != nil {
		return err
	}

	for i := len(siblings) - 1; i >= 0; i-- {
		step, err := treepath.StepOf(siblings[i].Path)
		if err != nil {
			return err
		}
		if step < insertStep {
			break
		}
		shifted, err := treepath.Child(parentPath, step+1)
		if err != nil {
			return err
		}
		if err := rewriteSubtree(ctx, tx, siblings[i].Path, shifted); err != nil {
			return err
		}
	}
	return nil
}
