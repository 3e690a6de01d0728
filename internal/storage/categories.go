package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/arborlore/arbor/internal/common"
	"github.com/arborlore/arbor/internal/model"
	"github.com/arborlore/arbor/internal/treepath"
)

// queryable is satisfied by both *sql.DB and *sql.Tx, so the helpers below
// serve direct calls and transactions alike.
type queryable interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const categoryColumns = "id, path, depth, numchild, name, slug, full_name, full_slug, created_at, updated_at"

func scanCategory(row interface{ Scan(...any) error }) (*model.Category, error) {
	var c model.Category
	err := row.Scan(&c.ID, &c.Path, &c.Depth, &c.NumChild, &c.Name, &c.Slug,
		&c.FullName, &c.FullSlug, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func queryCategories(ctx context.Context, q queryable, query string, args ...any) ([]model.Category, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		c, scanErr := scanCategory(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan category: %w", scanErr)
		}
		categories = append(categories, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return categories, nil
}

func pathParent(path string) string {
	return treepath.Parent(path)
}

// CreateCategory inserts a new category and assigns its ID.
func (s *SQLiteStorage) CreateCategory(ctx context.Context, category *model.Category) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCategory(category); err != nil {
		return err
	}
	return s.createCategoryTx(ctx, s.db, category)
}

func (s *SQLiteStorage) createCategoryTx(ctx context.Context, q queryable, category *model.Category) error {
	now := time.Now()
	result, err := q.ExecContext(ctx, `
		INSERT INTO categories (path, depth, numchild, name, slug, full_name, full_slug, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		category.Path, category.Depth, category.NumChild, category.Name, category.Slug,
		category.FullName, category.FullSlug, now, now)
	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get category ID: %w", err)
	}

	category.ID = id
	category.CreatedAt = now
	category.UpdatedAt = now

	slog.Debug("created category", "id", id, "path", category.Path, "name", category.Name)
	return nil
}

// GetCategoryByID returns the category with the given id, or ErrNotFound.
func (s *SQLiteStorage) GetCategoryByID(ctx context.Context, id int64) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(id); err != nil {
		return nil, err
	}
	return s.getCategoryByIDTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getCategoryByIDTx(ctx context.Context, q queryable, id int64) (*model.Category, error) {
	row := q.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM categories WHERE id = ?", categoryColumns), id)

	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: category %d", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query category: %w", err)
	}
	return c, nil
}

// GetCategoryByPath returns the category at the given path, or nil when absent.
func (s *SQLiteStorage) GetCategoryByPath(ctx context.Context, path string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validatePath(path, false); err != nil {
		return nil, err
	}
	return s.getCategoryByPathTx(ctx, s.db, path)
}

func (s *SQLiteStorage) getCategoryByPathTx(ctx context.Context, q queryable, path string) (*model.Category, error) {
	row := q.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM categories WHERE path = ?", categoryColumns), path)

	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query category: %w", err)
	}
	return c, nil
}

// GetCategoryByFullSlug returns the category with the given full slug, or nil when absent.
func (s *SQLiteStorage) GetCategoryByFullSlug(ctx context.Context, fullSlug string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(fullSlug, "fullSlug"); err != nil {
		return nil, err
	}
	return s.getCategoryByFullSlugTx(ctx, s.db, fullSlug)
}

func (s *SQLiteStorage) getCategoryByFullSlugTx(ctx context.Context, q queryable, fullSlug string) (*model.Category, error) {
	row := q.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM categories WHERE full_slug = ? ORDER BY path LIMIT 1", categoryColumns), fullSlug)

	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query category: %w", err)
	}
	return c, nil
}

// AllCategories returns every category in pre-order (path order).
func (s *SQLiteStorage) AllCategories(ctx context.Context) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.allCategoriesTx(ctx, s.db)
}

func (s *SQLiteStorage) allCategoriesTx(ctx context.Context, q queryable) ([]model.Category, error) {
	return queryCategories(ctx, q,
		fmt.Sprintf("SELECT %s FROM categories ORDER BY path", categoryColumns))
}

// UpdateCategoryPath rewrites a category's position fields.
func (s *SQLiteStorage) UpdateCategoryPath(ctx context.Context, id int64, path string, depth int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(id); err != nil {
		return err
	}
	return s.updateCategoryPathTx(ctx, s.db, id, path, depth)
}

func (s *SQLiteStorage) updateCategoryPathTx(ctx context.Context, q queryable, id int64, path string, depth int) error {
	_, err := q.ExecContext(ctx,
		"UPDATE categories SET path = ?, depth = ?, updated_at = ? WHERE id = ?",
		path, depth, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update category path: %w", err)
	}
	return nil
}

// UpdateCategoryLabel rewrites a category's name and slug.
func (s *SQLiteStorage) UpdateCategoryLabel(ctx context.Context, id int64, name, slug string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(id); err != nil {
		return err
	}
	if err := validateString(name, "name"); err != nil {
		return err
	}
	if err := validateString(slug, "slug"); err != nil {
		return err
	}
	return s.updateCategoryLabelTx(ctx, s.db, id, name, slug)
}

func (s *SQLiteStorage) updateCategoryLabelTx(ctx context.Context, q queryable, id int64, name, slug string) error {
	_, err := q.ExecContext(ctx,
		"UPDATE categories SET name = ?, slug = ?, updated_at = ? WHERE id = ?",
		name, slug, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update category label: %w", err)
	}
	return nil
}

// UpdateCategoryDerived rewrites a category's denormalized full name and full slug.
func (s *SQLiteStorage) UpdateCategoryDerived(ctx context.Context, id int64, fullName, fullSlug string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(id); err != nil {
		return err
	}
	return s.updateCategoryDerivedTx(ctx, s.db, id, fullName, fullSlug)
}

func (s *SQLiteStorage) updateCategoryDerivedTx(ctx context.Context, q queryable, id int64, fullName, fullSlug string) error {
	_, err := q.ExecContext(ctx,
		"UPDATE categories SET full_name = ?, full_slug = ?, updated_at = ? WHERE id = ?",
		fullName, fullSlug, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update derived fields: %w", err)
	}
	return nil
}

// SetNumChild sets a category's child counter.
func (s *SQLiteStorage) SetNumChild(ctx context.Context, id int64, numChild int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(id); err != nil {
		return err
	}
	return s.setNumChildTx(ctx, s.db, id, numChild)
}

func (s *SQLiteStorage) setNumChildTx(ctx context.Context, q queryable, id int64, numChild int) error {
	_, err := q.ExecContext(ctx,
		"UPDATE categories SET numchild = ?, updated_at = ? WHERE id = ?",
		numChild, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set numchild: %w", err)
	}
	return nil
}

// AdjustNumChild adds delta to a category's child counter.
func (s *SQLiteStorage) AdjustNumChild(ctx context.Context, id int64, delta int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(id); err != nil {
		return err
	}
	return s.adjustNumChildTx(ctx, s.db, id, delta)
}

func (s *SQLiteStorage) adjustNumChildTx(ctx context.Context, q queryable, id int64, delta int) error {
	_, err := q.ExecContext(ctx,
		"UPDATE categories SET numchild = numchild + ?, updated_at = ? WHERE id = ?",
		delta, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to adjust numchild: %w", err)
	}
	return nil
}

// DeleteByPathPrefix removes the node at path and its entire subtree,
// returning the ids of every deleted row.
func (s *SQLiteStorage) DeleteByPathPrefix(ctx context.Context, path string) ([]int64, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validatePath(path, false); err != nil {
		return nil, err
	}
	return s.deleteByPathPrefixTx(ctx, s.db, path)
}

func (s *SQLiteStorage) deleteByPathPrefixTx(ctx context.Context, q queryable, path string) ([]int64, error) {
	rows, err := q.QueryContext(ctx, "SELECT id FROM categories WHERE path LIKE ? ORDER BY path", path+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to query subtree ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if scanErr := rows.Scan(&id); scanErr != nil {
			return nil, fmt.Errorf("failed to scan id: %w", scanErr)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subtree ids: %w", err)
	}

	if _, err := q.ExecContext(ctx, "DELETE FROM categories WHERE path LIKE ?", path+"%"); err != nil {
		return nil, fmt.Errorf("failed to delete subtree: %w", err)
	}

	slog.Debug("deleted subtree", "path", path, "count", len(ids))
	return ids, nil
}

// Roots returns all top-level categories ordered by path.
func (s *SQLiteStorage) Roots(ctx context.Context) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.childrenOfTx(ctx, s.db, "")
}

// ChildrenOf returns the direct children of the node at path, ordered by
// path. The empty path returns the roots.
func (s *SQLiteStorage) ChildrenOf(ctx context.Context, path string) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validatePath(path, true); err != nil {
		return nil, err
	}
	return s.childrenOfTx(ctx, s.db, path)
}

func (s *SQLiteStorage) childrenOfTx(ctx context.Context, q queryable, path string) ([]model.Category, error) {
	return queryCategories(ctx, q,
		fmt.Sprintf("SELECT %s FROM categories WHERE path LIKE ? AND length(path) = ? ORDER BY path", categoryColumns),
		path+"%", len(path)+treepath.StepLen)
}

// DescendantsOf returns every strict descendant of the node at path, in
// pre-order.
func (s *SQLiteStorage) DescendantsOf(ctx context.Context, path string) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validatePath(path, false); err != nil {
		return nil, err
	}
	return s.descendantsOfTx(ctx, s.db, path)
}

func (s *SQLiteStorage) descendantsOfTx(ctx context.Context, q queryable, path string) ([]model.Category, error) {
	return queryCategories(ctx, q,
		fmt.Sprintf("SELECT %s FROM categories WHERE path LIKE ? AND path <> ? ORDER BY path", categoryColumns),
		path+"%", path)
}

// SubtreeOf returns the node at path and every descendant, in pre-order.
func (s *SQLiteStorage) SubtreeOf(ctx context.Context, path string) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validatePath(path, false); err != nil {
		return nil, err
	}
	return s.subtreeOfTx(ctx, s.db, path)
}

func (s *SQLiteStorage) subtreeOfTx(ctx context.Context, q queryable, path string) ([]model.Category, error) {
	return queryCategories(ctx, q,
		fmt.Sprintf("SELECT %s FROM categories WHERE path LIKE ? ORDER BY path", categoryColumns),
		path+"%")
}

// SiblingsOf returns every node sharing the parent of the node at path,
// the node itself included, ordered by path.
func (s *SQLiteStorage) SiblingsOf(ctx context.Context, path string) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validatePath(path, false); err != nil {
		return nil, err
	}
	return s.childrenOfTx(ctx, s.db, pathParent(path))
}

// CountChildren returns the authoritative number of direct children under
// path, counted from storage rather than the numchild aggregate.
func (s *SQLiteStorage) CountChildren(ctx context.Context, path string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validatePath(path, true); err != nil {
		return 0, err
	}
	return s.countChildrenTx(ctx, s.db, path)
}

func (s *SQLiteStorage) countChildrenTx(ctx context.Context, q queryable, path string) (int, error) {
	var count int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM categories WHERE path LIKE ? AND length(path) = ?",
		path+"%", len(path)+treepath.StepLen).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count children: %w", err)
	}
	return count, nil
}

// FindChildByName returns the first direct child of parentPath carrying the
// given name, or nil when absent. The empty parent path searches the roots.
func (s *SQLiteStorage) FindChildByName(ctx context.Context, parentPath, name string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validatePath(parentPath, true); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	return s.findChildByNameTx(ctx, s.db, parentPath, name)
}

func (s *SQLiteStorage) findChildByNameTx(ctx context.Context, q queryable, parentPath, name string) (*model.Category, error) {
	row := q.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM categories WHERE path LIKE ? AND length(path) = ? AND name = ? ORDER BY path LIMIT 1", categoryColumns),
		parentPath+"%", len(parentPath)+treepath.StepLen, name)

	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query child by name: %w", err)
	}
	return c, nil
}

// SiblingSlugExists reports whether any direct child of parentPath other than
// excludeID already holds the given slug.
func (s *SQLiteStorage) SiblingSlugExists(ctx context.Context, parentPath, slug string, excludeID int64) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validatePath(parentPath, true); err != nil {
		return false, err
	}
	if err := validateString(slug, "slug"); err != nil {
		return false, err
	}
	return s.siblingSlugExistsTx(ctx, s.db, parentPath, slug, excludeID)
}

func (s *SQLiteStorage) siblingSlugExistsTx(ctx context.Context, q queryable, parentPath, slug string, excludeID int64) (bool, error) {
	var exists int
	err := q.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM categories
			WHERE path LIKE ? AND length(path) = ? AND slug = ? AND id <> ?
		)`,
		parentPath+"%", len(parentPath)+treepath.StepLen, slug, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check sibling slug: %w", err)
	}
	return exists == 1, nil
}

// RootCount returns the root-level sibling counter.
func (s *SQLiteStorage) RootCount(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	return s.rootCountTx(ctx, s.db)
}

func (s *SQLiteStorage) rootCountTx(ctx context.Context, q queryable) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, "SELECT value FROM tree_meta WHERE key = 'root_count'").Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get root count: %w", err)
	}
	return count, nil
}

// SetRootCount sets the root-level sibling counter.
func (s *SQLiteStorage) SetRootCount(ctx context.Context, count int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.setRootCountTx(ctx, s.db, count)
}

func (s *SQLiteStorage) setRootCountTx(ctx context.Context, q queryable, count int) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO tree_meta (key, value) VALUES ('root_count', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, count)
	if err != nil {
		return fmt.Errorf("failed to set root count: %w", err)
	}
	return nil
}

// AdjustRootCount adds delta to the root-level sibling counter.
func (s *SQLiteStorage) AdjustRootCount(ctx context.Context, delta int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.adjustRootCountTx(ctx, s.db, delta)
}

func (s *SQLiteStorage) adjustRootCountTx(ctx context.Context, q queryable, delta int) error {
	_, err := q.ExecContext(ctx,
		"UPDATE tree_meta SET value = value + ? WHERE key = 'root_count'", delta)
	if err != nil {
		return fmt.Errorf("failed to adjust root count: %w", err)
	}
	return nil
}
