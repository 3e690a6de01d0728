package tree

import (
	"context"
	"fmt"
	"strings"

	"github.com/arborlore/arbor/internal/common"
	"github.com/arborlore/arbor/internal/model"
)

// DefaultBreadcrumbSeparator splits breadcrumb trails like
// "Books > Fiction > Horror".
const DefaultBreadcrumbSeparator = ">"

// CreateFromBreadcrumbs walks a breadcrumb trail from the root, reusing the
// category whose name matches at each level and creating the rest. Creation
// delegates entirely to AddRoot/AddChild; the returned category is the leaf.
// An empty separator falls back to DefaultBreadcrumbSeparator.
func (e *Engine) CreateFromBreadcrumbs(ctx context.Context, trail, separator string) (*model.Category, error) {
	if separator == "" {
		separator = DefaultBreadcrumbSeparator
	}

	var names []string
	for _, segment := range strings.Split(trail, separator) {
		if trimmed := strings.TrimSpace(segment); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: empty breadcrumb trail %q", common.ErrInvalidConfig, trail)
	}

	var current *model.Category
	for _, name := range names {
		parentPath := ""
		if current != nil {
			parentPath = current.Path
		}

		existing, err := e.store.FindChildByName(ctx, parentPath, name)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			current = existing
			continue
		}

		if current == nil {
			current, err = e.AddRoot(ctx, name, "")
		} else {
			current, err = e.AddChild(ctx, current.ID, name, "")
		}
		if err != nil {
			return nil, err
		}
	}

	return current, nil
}
