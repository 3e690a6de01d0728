// Package storage provides the data persistence layer for the arbor application.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/arborlore/arbor/internal/model"
	"github.com/arborlore/arbor/internal/treepath"
)

// Validation errors.
var (
	ErrNilContext      = errors.New("context cannot be nil")
	ErrEmptyString     = errors.New("string parameter cannot be empty")
	ErrNilParameter    = errors.New("parameter cannot be nil")
	ErrInvalidPath     = errors.New("invalid materialized path")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidID       = errors.New("id must be positive")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validatePath ensures a path is well-formed. The empty path is allowed where
// noted: it denotes the virtual root above all top-level categories.
func validatePath(path string, allowEmpty bool) error {
	if path == "" {
		if allowEmpty {
			return nil
		}
		return fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	if !treepath.Valid(path) {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return nil
}

// validateID ensures an id is positive.
func validateID(id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidID, id)
	}
	return nil
}

// validateCategory validates a category before insertion.
func validateCategory(c *model.Category) error {
	if c == nil {
		return fmt.Errorf("%w: category", ErrNilParameter)
	}
	if !treepath.Valid(c.Path) {
		return fmt.Errorf("%w: path %q", ErrInvalidCategory, c.Path)
	}
	if c.Depth != treepath.Depth(c.Path) {
		return fmt.Errorf("%w: depth %d does not match path %q", ErrInvalidCategory, c.Depth, c.Path)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidCategory)
	}
	if strings.TrimSpace(c.Slug) == "" {
		return fmt.Errorf("%w: missing slug", ErrInvalidCategory)
	}
	return nil
}
