// Package model defines the domain types shared across the application.
package model

import (
	"strings"
	"time"

	"github.com/arborlore/arbor/internal/treepath"
)

// FullNameSeparator joins ancestor names into a category's full name.
const FullNameSeparator = " > "

// FullSlugSeparator joins ancestor slugs into a category's full slug.
const FullSlugSeparator = "/"

// Category is a node in the catalogue tree. Its position is encoded in Path;
// Depth and NumChild are maintained aggregates. FullName and FullSlug are
// denormalized from the ancestor chain and refreshed whenever ancestry changes.
type Category struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	Path      string
	Name      string
	Slug      string
	FullName  string
	FullSlug  string
	ID        int64
	Depth     int
	NumChild  int
}

// IsRoot reports whether the category is a top-level node.
func (c *Category) IsRoot() bool {
	return c.Depth == 1
}

// HasChildren reports whether the category has any direct children.
func (c *Category) HasChildren() bool {
	return c.NumChild > 0
}

// ParentPath returns the materialized path of the parent, or "" for roots.
func (c *Category) ParentPath() string {
	return treepath.Parent(c.Path)
}

// NameSegments splits the full name back into its per-level labels.
func (c *Category) NameSegments() []string {
	if c.FullName == "" {
		return nil
	}
	return strings.Split(c.FullName, FullNameSeparator)
}
