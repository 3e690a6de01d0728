package tree

import (
	"context"
	"fmt"

	"github.com/arborlore/arbor/internal/common"
	"github.com/arborlore/arbor/internal/model"
	"github.com/arborlore/arbor/internal/service"
)

// refreshSubtree recomputes full_name and full_slug for the node at rootPath
// and every descendant, persisting rows that changed. The subtree comes back
// in path order, so a single top-down pass sees every ancestor before its
// children; no recursion, stack depth stays flat for arbitrarily deep trees.
// Returns the ids whose full_slug changed, i.e. whose cached URL is stale.
func refreshSubtree(ctx context.Context, tx service.Transaction, rootPath string) ([]int64, error) {
	rows, err := tx.SubtreeOf(ctx, rootPath)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: path %q", common.ErrNotFound, rootPath)
	}

	// Seed the prefix table with the chain above the subtree.
	type derived struct {
		fullName string
		fullSlug string
	}
	byPath := make(map[string]derived, len(rows))

	parentPath := rows[0].ParentPath()
	if parentPath != "" {
		parent, err := tx.GetCategoryByPath(ctx, parentPath)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, fmt.Errorf("%w: parent of %q", common.ErrNotFound, rootPath)
		}
		byPath[parent.Path] = derived{fullName: parent.FullName, fullSlug: parent.FullSlug}
	}

	var stale []int64
	for _, row := range rows {
		fullName := row.Name
		fullSlug := row.Slug
		if up, ok := byPath[row.ParentPath()]; ok {
			fullName = up.fullName + model.FullNameSeparator + row.Name
			fullSlug = up.fullSlug + model.FullSlugSeparator + row.Slug
		}
		byPath[row.Path] = derived{fullName: fullName, fullSlug: fullSlug}

		if fullName == row.FullName && fullSlug == row.FullSlug {
			continue
		}
		if err := tx.UpdateCategoryDerived(ctx, row.ID, fullName, fullSlug); err != nil {
			return nil, err
		}
		if fullSlug != row.FullSlug {
			stale = append(stale, row.ID)
		}
	}

	return stale, nil
}

// Refresh recomputes the derived fields of a single category's subtree in
// its own transaction and drops stale cached URLs.
func (e *Engine) Refresh(ctx context.Context, id int64) error {
	var stale []int64
	err := e.mutate(ctx, func(tx service.Transaction) error {
		c, err := tx.GetCategoryByID(ctx, id)
		if err != nil {
			return err
		}
		stale, err = refreshSubtree(ctx, tx, c.Path)
		return err
	})
	if err != nil {
		return err
	}

	e.invalidateURLs(ctx, stale)
	return nil
}
