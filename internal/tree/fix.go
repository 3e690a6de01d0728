package tree

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/arborlore/arbor/internal/model"
	"github.com/arborlore/arbor/internal/service"
	"github.com/arborlore/arbor/internal/treepath"
)

// FixOptions selects what FixTree repairs.
type FixOptions struct {
	// FixPaths re-derives every path from the relative order of the stored
	// (possibly corrupted) paths, closing gaps and collisions. Without it,
	// only depth, the child counters and the derived fields are repaired.
	FixPaths bool
}

// FixTree repairs the tree after external corruption: direct storage edits,
// interrupted imports, anything that bypassed the engine. It never fails on
// corrupted input, only on storage errors, and it is idempotent: repairing a
// repaired tree changes nothing.
//
// Counters and depth are always recomputed from the stored rows. With
// FixPaths, paths are rebuilt purely from the corrupted paths' relative
// ordering (id breaking ties), so the absolute corrupted values never matter.
// Sibling slugs are deduplicated and every derived field is refreshed.
func (e *Engine) FixTree(ctx context.Context, opts FixOptions) error {
	var stale []int64
	err := e.mutate(ctx, func(tx service.Transaction) error {
		var err error
		if opts.FixPaths {
			if err = rebuildPaths(ctx, tx); err != nil {
				return err
			}
		}
		if err = repairDepthAndCounters(ctx, tx); err != nil {
			return err
		}
		if err = dedupeSiblingSlugs(ctx, tx); err != nil {
			return err
		}
		stale, err = refreshAllDerived(ctx, tx)
		return err
	})
	if err != nil {
		return err
	}

	e.invalidateURLs(ctx, stale)
	slog.Info("repaired tree", "fix_paths", opts.FixPaths, "stale_urls", len(stale))
	return nil
}

// rebuildPaths assigns every node a fresh dense path. Nodes are taken level
// by level (shorter corrupted paths first, then corrupted path, then id), so
// a node's corrupted parent is always placed before the node itself. A node
// whose exact corrupted parent prefix was placed follows it; orphans are
// grafted under their nearest placed corrupted-prefix ancestor, after that
// ancestor's legitimate children, or at root level when nothing matches.
func rebuildPaths(ctx context.Context, tx service.Transaction) error {
	rows, err := tx.AllCategories(ctx)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	sort.Slice(rows, func(i, j int) bool {
		if len(rows[i].Path) != len(rows[j].Path) {
			return len(rows[i].Path) < len(rows[j].Path)
		}
		if rows[i].Path != rows[j].Path {
			return rows[i].Path < rows[j].Path
		}
		return rows[i].ID < rows[j].ID
	})

	// placed maps a corrupted path to the new path of the first node that
	// held it. Duplicated corrupted paths keep their first holder; later
	// holders still get their own new path.
	placed := make(map[string]string, len(rows))
	childCount := make(map[string]int, len(rows))
	newPathByID := make(map[int64]string, len(rows))

	assign := func(row *model.Category, newParent string) error {
		childCount[newParent]++
		newPath, encErr := treepath.Child(newParent, childCount[newParent])
		if encErr != nil {
			return encErr
		}
		newPathByID[row.ID] = newPath
		if _, taken := placed[row.Path]; !taken {
			placed[row.Path] = newPath
		}
		return nil
	}

	// nearestPlacedAncestor finds the longest placed strict prefix of a
	// corrupted path, stepping down in step-width chunks.
	nearestPlacedAncestor := func(path string) (string, bool) {
		for l := len(path) - treepath.StepLen; l > 0; l -= treepath.StepLen {
			if newParent, ok := placed[path[:l]]; ok {
				return newParent, true
			}
		}
		return "", false
	}

	for start := 0; start < len(rows); {
		end := start
		for end < len(rows) && len(rows[end].Path) == len(rows[start].Path) {
			end++
		}
		level := rows[start:end]

		// Nodes whose exact parent prefix was placed go first, keeping their
		// corrupted relative order; orphans of this level follow.
		var orphans []*model.Category
		for i := range level {
			row := &level[i]
			if len(row.Path) <= treepath.StepLen {
				if err := assign(row, ""); err != nil {
					return err
				}
				continue
			}
			if newParent, ok := placed[row.Path[:len(row.Path)-treepath.StepLen]]; ok {
				if err := assign(row, newParent); err != nil {
					return err
				}
				continue
			}
			orphans = append(orphans, row)
		}
		for _, row := range orphans {
			newParent, ok := nearestPlacedAncestor(row.Path)
			if !ok {
				newParent = ""
			}
			if err := assign(row, newParent); err != nil {
				return err
			}
		}

		start = end
	}

	// Two-phase rewrite so the unique path constraint never sees a clash
	// between an old corrupted path and a new one.
	for _, row := range rows {
		parked := fmt.Sprintf("%s%010d", parkPrefix, row.ID)
		if err := tx.UpdateCategoryPath(ctx, row.ID, parked, row.Depth); err != nil {
			return err
		}
	}
	for _, row := range rows {
		newPath := newPathByID[row.ID]
		if err := tx.UpdateCategoryPath(ctx, row.ID, newPath, treepath.Depth(newPath)); err != nil {
			return err
		}
	}

	return nil
}

// repairDepthAndCounters recomputes depth from path length, numchild from an
// authoritative count of matching children, and the root counter from the
// root set.
func repairDepthAndCounters(ctx context.Context, tx service.Transaction) error {
	rows, err := tx.AllCategories(ctx)
	if err != nil {
		return err
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[treepath.Parent(row.Path)]++
	}

	for _, row := range rows {
		if depth := treepath.Depth(row.Path); depth != row.Depth {
			if err := tx.UpdateCategoryPath(ctx, row.ID, row.Path, depth); err != nil {
				return err
			}
		}
		if want := counts[row.Path]; want != row.NumChild {
			if err := tx.SetNumChild(ctx, row.ID, want); err != nil {
				return err
			}
		}
	}

	return tx.SetRootCount(ctx, counts[""])
}

// dedupeSiblingSlugs walks every sibling group in path order and suffixes
// later holders of a colliding slug. The first holder keeps its slug.
func dedupeSiblingSlugs(ctx context.Context, tx service.Transaction) error {
	rows, err := tx.AllCategories(ctx)
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(rows))
	groupKey := func(parent, nodeSlug string) string {
		return parent + "\x00" + nodeSlug
	}

	for _, row := range rows {
		parent := treepath.Parent(row.Path)
		nodeSlug := row.Slug
		if nodeSlug == "" {
			nodeSlug = "category"
		}

		if !seen[groupKey(parent, nodeSlug)] {
			seen[groupKey(parent, nodeSlug)] = true
			if nodeSlug != row.Slug {
				if err := tx.UpdateCategoryLabel(ctx, row.ID, row.Name, nodeSlug); err != nil {
					return err
				}
			}
			continue
		}

		base := nodeSlug
		for n := 2; ; n++ {
			candidate := fmt.Sprintf("%s-%d", base, n)
			if !seen[groupKey(parent, candidate)] {
				nodeSlug = candidate
				break
			}
		}
		seen[groupKey(parent, nodeSlug)] = true
		if err := tx.UpdateCategoryLabel(ctx, row.ID, row.Name, nodeSlug); err != nil {
			return err
		}
	}

	return nil
}

// refreshAllDerived recomputes full_name/full_slug for every node in one
// path-ordered pass. Returns ids whose full_slug changed.
func refreshAllDerived(ctx context.Context, tx service.Transaction) ([]int64, error) {
	rows, err := tx.AllCategories(ctx)
	if err != nil {
		return nil, err
	}

	fullNames := make(map[string]string, len(rows))
	fullSlugs := make(map[string]string, len(rows))

	var stale []int64
	for _, row := range rows {
		fullName := row.Name
		fullSlug := row.Slug
		if parent := treepath.Parent(row.Path); parent != "" {
			fullName = fullNames[parent] + model.FullNameSeparator + row.Name
			fullSlug = fullSlugs[parent] + model.FullSlugSeparator + row.Slug
		}
		fullNames[row.Path] = fullName
		fullSlugs[row.Path] = fullSlug

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
