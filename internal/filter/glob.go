package filter

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// DefaultRules ignores version-control metadata and the build-output
// directory at the workspace root.
var DefaultRules = []string{".git", ".hg", ".svn", ".jj", "./bin"}

type globRule struct {
	pattern  string
	anchored bool
	absolute bool
	match    glob.Glob
	subtree  glob.Glob
}

// GlobFilter excludes paths matching any of a set of glob rules.
type GlobFilter struct {
	root  string
	rules []globRule
}

// NewGlobFilter compiles rules relative to root. Empty rules are skipped.
func NewGlobFilter(root string, rules []string) (*GlobFilter, error) {
	f := &GlobFilter{root: filepath.Clean(root)}

	for _, raw := range rules {
		r, ok, err := compileRule(raw)
		if err != nil {
			return nil, err
		}

		if ok {
			f.rules = append(f.rules, r)
		}
	}

	return f, nil
}

func compileRule(raw string) (globRule, bool, error) {
	pattern := strings.TrimSpace(raw)
	pattern = strings.TrimSuffix(filepath.ToSlash(pattern), "/")

	if pattern == "" || pattern == "." {
		return globRule{}, false, nil
	}

	r := globRule{pattern: raw}

	switch {
	case filepath.IsAbs(raw):
		r.absolute = true
		r.anchored = true
	case strings.HasPrefix(pattern, "./"):
		pattern = strings.TrimPrefix(pattern, "./")
		r.anchored = true
	case strings.Contains(pattern, "/"):
		r.anchored = true
	}

	var err error

	r.match, err = glob.Compile(pattern, '/')
	if err != nil {
		return globRule{}, false, fmt.Errorf("compiling ignore rule %q: %w", raw, err)
	}

	if r.anchored {
		r.subtree, err = glob.Compile(pattern+"/**", '/')
		if err != nil {
			return globRule{}, false, fmt.Errorf("compiling ignore rule %q: %w", raw, err)
		}
	}

	return r, true, nil
}

// Excludes reports whether path matches one of the rules.
func (f *GlobFilter) Excludes(path string) (bool, string) {
	abs := filepath.ToSlash(path)
	rel, inside := relativeTo(f.root, path)

	for _, r := range f.rules {
		if r.matches(abs, rel, inside) {
			return true, fmt.Sprintf("matches ignore rule %q", r.pattern)
		}
	}

	return false, ""
}

func (r globRule) matches(abs, rel string, inside bool) bool {
	if r.absolute {
		return r.match.Match(abs) || r.subtree.Match(abs)
	}

	if !inside || rel == "." {
		return false
	}

	if r.anchored {
		return r.match.Match(rel) || r.subtree.Match(rel)
	}

	for _, part := range strings.Split(rel, "/") {
		if r.match.Match(part) {
			return true
		}
	}

	return false
}

// Len returns the number of compiled rules.
func (f *GlobFilter) Len() int { return len(f.rules) }
