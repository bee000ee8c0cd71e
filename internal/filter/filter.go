package filter

import (
	"path/filepath"
)

// Filter decides whether a changed path should be ignored by the watcher.
// Filters are stateless once constructed and safe for concurrent use.
type Filter interface {
	// Excludes reports whether path is ignored and, if so, a human-readable
	// reason. path is absolute and cleaned.
	Excludes(path string) (bool, string)
}

// Func adapts a plain predicate to a Filter.
type Func func(path string) bool

// Excludes calls f.
func (f Func) Excludes(path string) (bool, string) {
	if f(path) {
		return true, "excluded by predicate"
	}

	return false, ""
}

// Chain applies multiple filters in order; the first one that excludes a
// path wins.
type Chain struct {
	filters []Filter
}

// NewChain creates a filter chain from the given filters. Nil filters are
// skipped.
func NewChain(filters ...Filter) *Chain {
	c := &Chain{}

	for _, f := range filters {
		if f != nil {
			c.filters = append(c.filters, f)
		}
	}

	return c
}

// Excludes runs all filters in order and returns the first exclusion.
func (c *Chain) Excludes(path string) (bool, string) {
	path = filepath.Clean(path)

	for _, f := range c.filters {
		if excluded, reason := f.Excludes(path); excluded {
			return true, reason
		}
	}

	return false, ""
}

// Len returns the number of filters in the chain.
func (c *Chain) Len() int { return len(c.filters) }

// relativeTo returns path relative to root in slash form, and false when
// path lies outside root.
func relativeTo(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || hasParentPrefix(rel) {
		return "", false
	}

	return filepath.ToSlash(rel), true
}

func hasParentPrefix(rel string) bool {
	return len(rel) >= 3 && rel[:2] == ".." && rel[2] == filepath.Separator
}
