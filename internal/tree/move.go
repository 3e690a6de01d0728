package tree

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/arborlore/arbor/internal/common"
	"github.com/arborlore/arbor/internal/model"
	"github.com/arborlore/arbor/internal/service"
	"github.com/arborlore/arbor/internal/treepath"
)

// parkPrefix sorts below every step character, so parked rows never collide
// with live paths while a move is in flight inside a transaction.
const parkPrefix = "!"

// Move relocates a category and its entire subtree relative to target.
//
// The subtree is first parked on a sentinel prefix, the vacated sibling gap
// is closed, the destination gap is opened, and the parked rows are rewritten
// to the destination by suffix substitution in path order. All inside one
// transaction: a failure at any step rolls the whole move back.
func (e *Engine) Move(ctx context.Context, nodeID, targetID int64, pos Position) error {
	if _, err := ParsePosition(string(pos)); err != nil {
		return err
	}

	var stale []int64
	err := e.mutate(ctx, func(tx service.Transaction) error {
		node, err := tx.GetCategoryByID(ctx, nodeID)
		if err != nil {
			return err
		}
		target, err := tx.GetCategoryByID(ctx, targetID)
		if err != nil {
			return err
		}

		// Reject cycles before anything is written.
		if node.ID == target.ID {
			return fmt.Errorf("%w: cannot move a node relative to itself", common.ErrInvalidMove)
		}
		if treepath.IsAncestor(node.Path, target.Path) {
			return fmt.Errorf("%w: %q is a descendant of %q", common.ErrInvalidMove, target.Path, node.Path)
		}

		oldPath := node.Path
		oldParentPath := node.ParentPath()
		oldStep, err := treepath.StepOf(oldPath)
		if err != nil {
			return err
		}

		// Snapshot the subtree, then park it out of the live path space.
		subtree, err := tx.SubtreeOf(ctx, oldPath)
		if err != nil {
			return err
		}
		for _, row := range subtree {
			if err := tx.UpdateCategoryPath(ctx, row.ID, parkPrefix+row.Path, row.Depth); err != nil {
				return err
			}
		}

		// Leave the old sibling group dense and fix the old parent's counter.
		if err := closeSiblingGap(ctx, tx, oldParentPath, oldStep); err != nil {
			return err
		}
		if oldParentPath == "" {
			if err := tx.AdjustRootCount(ctx, -1); err != nil {
				return err
			}
		} else {
			oldParent, parentErr := tx.GetCategoryByPath(ctx, oldParentPath)
			if parentErr != nil {
				return parentErr
			}
			if oldParent == nil {
				return fmt.Errorf("%w: parent of %q", common.ErrNotFound, oldPath)
			}
			if err := tx.AdjustNumChild(ctx, oldParent.ID, -1); err != nil {
				return err
			}
		}

		// The target may have been renumbered by the gap close; reload it.
		target, err = tx.GetCategoryByID(ctx, targetID)
		if err != nil {
			return err
		}

		newParentPath, insertStep, err := destination(ctx, tx, target, pos)
		if err != nil {
			return err
		}

		// Capacity: the group grows by one.
		siblingCount, err := destinationCount(ctx, tx, newParentPath)
		if err != nil {
			return err
		}
		if _, err := treepath.EncodeStep(siblingCount + 1); err != nil {
			return err
		}

		if err := openSiblingGap(ctx, tx, newParentPath, insertStep); err != nil {
			return err
		}

		newPath, err := treepath.Child(newParentPath, insertStep)
		if err != nil {
			return err
		}

		// Land the parked subtree: suffix substitution, path order.
		for _, row := range subtree {
			landed := newPath + row.Path[len(oldPath):]
			if err := tx.UpdateCategoryPath(ctx, row.ID, landed, treepath.Depth(landed)); err != nil {
				return err
			}
		}

		if newParentPath == "" {
			if err := tx.AdjustRootCount(ctx, 1); err != nil {
				return err
			}
		} else {
			newParent, parentErr := tx.GetCategoryByPath(ctx, newParentPath)
			if parentErr != nil {
				return parentErr
			}
			if newParent == nil {
				return fmt.Errorf("%w: destination parent %q", common.ErrNotFound, newParentPath)
			}
			if err := tx.AdjustNumChild(ctx, newParent.ID, 1); err != nil {
				return err
			}
		}

		// The node's slug must stay unique in its new sibling group.
		deduped, err := e.assignSlug(ctx, tx, newParentPath, node.Name, node.Slug, node.ID)
		if err != nil {
			return err
		}
		if deduped != node.Slug {
			if err := tx.UpdateCategoryLabel(ctx, node.ID, node.Name, deduped); err != nil {
				return err
			}
		}

		// Ancestry changed for the whole subtree.
		stale, err = refreshSubtree(ctx, tx, newPath)
		return err
	})
	if err != nil {
		return err
	}

	e.invalidateURLs(ctx, stale)
	slog.Info("moved subtree", "node", nodeID, "target", targetID, "position", pos)
	return nil
}

// destination resolves the new parent path and 1-based insertion step for a
// move, evaluated against the target's current state.
func destination(ctx context.Context, tx service.Transaction, target *model.Category, pos Position) (string, int, error) {
	if pos.isChild() {
		switch pos {
		case PositionFirstChild:
			return target.Path, 1, nil
		default: // PositionLastChild
			return target.Path, target.NumChild + 1, nil
		}
	}

	parentPath := target.ParentPath()
	switch pos {
	case PositionFirstSibling:
		return parentPath, 1, nil
	case PositionLeft:
		step, err := treepath.StepOf(target.Path)
		if err != nil {
			return "", 0, err
		}
		return parentPath, step, nil
	case PositionRight:
		step, err := treepath.StepOf(target.Path)
		if err != nil {
			return "", 0, err
		}
		return parentPath, step + 1, nil
	default: // PositionLastSibling
		count, err := destinationCount(ctx, tx, parentPath)
		if err != nil {
			return "", 0, err
		}
		return parentPath, count + 1, nil
	}
}

// destinationCount returns the current child count of the destination group:
// the root counter for the virtual root, numchild otherwise.
func destinationCount(ctx context.Context, tx service.Transaction, parentPath string) (int, error) {
	if parentPath == "" {
		return tx.RootCount(ctx)
	}
	parent, err := tx.GetCategoryByPath(ctx, parentPath)
	if err != nil {
		return 0, err
	}
	if parent == nil {
		return 0, fmt.Errorf("%w: %q", common.ErrNotFound, parentPath)
	}
	return parent.NumChild, nil
}
