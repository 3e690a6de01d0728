package tree

import (
	"context"
	"iter"

	"github.com/arborlore/arbor/internal/model"
)

// NodeInfo is the rendering metadata attached to each node of an annotated
// traversal.
type NodeInfo struct {
	// HasChildren reports whether the node opens a nested group in this
	// traversal. Children cut off by MaxDepth do not count.
	HasChildren bool
	// CloseCount is how many nested groups end at this node: the depth drop
	// to the next node in pre-order, and at the final node the drop back to
	// the traversal's starting level.
	CloseCount int
}

// Annotated pairs a category with its traversal metadata.
type Annotated struct {
	Category model.Category
	Info     NodeInfo
}

// AnnotateOptions bounds an annotated traversal.
type AnnotateOptions struct {
	// Parent restricts the traversal to the descendants of this category;
	// nil traverses the whole forest.
	Parent *model.Category
	// MaxDepth drops nodes more than this many levels below the traversal
	// root (the forest floor, or Parent when set); 0 means no limit.
	MaxDepth int
}

// AnnotatedList returns the pre-order traversal selected by opts as a
// sequence of (category, info) pairs. The sequence is computed over a
// snapshot taken now: it is finite, can be ranged over more than once, and
// later tree mutations do not affect it.
func (e *Engine) AnnotatedList(ctx context.Context, opts AnnotateOptions) (iter.Seq2[model.Category, NodeInfo], error) {
	var rows []model.Category
	var err error
	startDepth := 1
	if opts.Parent != nil {
		startDepth = opts.Parent.Depth + 1
		rows, err = e.store.DescendantsOf(ctx, opts.Parent.Path)
	} else {
		rows, err = e.store.AllCategories(ctx)
	}
	if err != nil {
		return nil, err
	}

	depthLimit := opts.MaxDepth
	if opts.MaxDepth > 0 && opts.Parent != nil {
		depthLimit = opts.Parent.Depth + opts.MaxDepth
	}

	visible := rows[:0:0]
	for _, row := range rows {
		if depthLimit > 0 && row.Depth > depthLimit {
			continue
		}
		visible = append(visible, row)
	}

	return func(yield func(model.Category, NodeInfo) bool) {
		for i, row := range visible {
			info := NodeInfo{
				HasChildren: row.NumChild > 0 && (depthLimit == 0 || row.Depth < depthLimit),
			}
			if i+1 < len(visible) {
				if drop := row.Depth - visible[i+1].Depth; drop > 0 {
					info.CloseCount = drop
				}
			} else {
				info.CloseCount = row.Depth - startDepth
			}
			if !yield(row, info) {
				return
			}
		}
	}, nil
}

// CollectAnnotated materializes an annotated traversal into a slice.
func CollectAnnotated(seq iter.Seq2[model.Category, NodeInfo]) []Annotated {
	var out []Annotated
	for c, info := range seq {
		out = append(out, Annotated{Category: c, Info: info})
	}
	return out
}
