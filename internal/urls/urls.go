// Package urls builds the external catalogue paths for categories.
package urls

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultPrefix is the mount point of the catalogue category pages.
const DefaultPrefix = "/catalogue/category/"

// Builder renders category URLs from full slugs.
type Builder struct {
	prefix string
}

// NewBuilder creates a Builder mounted at prefix; an empty prefix uses
// DefaultPrefix. The prefix is normalized to have leading and trailing
// slashes.
func NewBuilder(prefix string) *Builder {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Builder{prefix: prefix}
}

// Build renders the category page path: the percent-encoded full slug with
// the category id appended to the final segment. The raw slug is escaped
// exactly once here; callers must pass unescaped slugs.
func (b *Builder) Build(fullSlug string, id int64) string {
	segments := strings.Split(fullSlug, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return fmt.Sprintf("%s%s_%d/", b.prefix, strings.Join(segments, "/"), id)
}

// CacheKey is the URL-cache key for a category.
func CacheKey(id int64) string {
	return fmt.Sprintf("category:url:%d", id)
}
