package filter

import (
	"fmt"
	"path/filepath"
	"strings"
)

// PrefixFilter excludes paths equal to, or below, one of a set of paths.
type PrefixFilter struct {
	prefixes []string
}

// NewPrefixFilter creates a filter for the given paths. Relative paths are
// resolved against base.
func NewPrefixFilter(base string, paths []string) *PrefixFilter {
	f := &PrefixFilter{}

	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}

		if !filepath.IsAbs(p) {
			p = filepath.Join(base, p)
		}

		f.prefixes = append(f.prefixes, filepath.Clean(p))
	}

	return f
}

// Excludes reports whether path lies under one of the prefixes.
func (f *PrefixFilter) Excludes(path string) (bool, string) {
	for _, prefix := range f.prefixes {
		if _, inside := relativeTo(prefix, path); inside {
			return true, fmt.Sprintf("under excluded path %s", prefix)
		}
	}

	return false, ""
}

// HiddenFilter excludes paths with a component starting with "." below
// one of the watch roots. The roots themselves may be hidden.
type HiddenFilter struct {
	roots []string
}

// NewHiddenFilter creates a filter for the given watch roots.
func NewHiddenFilter(roots []string) *HiddenFilter {
	f := &HiddenFilter{}

	for _, r := range roots {
		f.roots = append(f.roots, filepath.Clean(r))
	}

	return f
}

// Excludes reports whether path is hidden relative to the closest root
// containing it. Paths outside every root are checked by base name only.
func (f *HiddenFilter) Excludes(path string) (bool, string) {
	rel, found := "", false

	for _, root := range f.roots {
		r, inside := relativeTo(root, path)
		if inside && (!found || len(r) < len(rel)) {
			rel, found = r, true
		}
	}

	if !found {
		rel = filepath.Base(path)
	}

	for _, part := range strings.Split(rel, "/") {
		if isHidden(part) {
			return true, fmt.Sprintf("hidden path component %q", part)
		}
	}

	return false, ""
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// BackupFilter excludes editor backup, swap, and lock files.
type BackupFilter struct{}

// Excludes reports whether the base name of path looks like an editor
// artefact rather than a source file.
func (BackupFilter) Excludes(path string) (bool, string) {
	if IsEditorArtefact(filepath.Base(path)) {
		return true, "editor backup or swap file"
	}

	return false, ""
}

// IsEditorArtefact reports whether name is a backup ("file~"), vim swap
// (".swp", ".swo", ".swx", "4913"), or emacs autosave/lock ("#file#",
// ".#file") file.
func IsEditorArtefact(name string) bool {
	switch {
	case strings.HasSuffix(name, "~"):
		return true
	case strings.HasSuffix(name, ".swp"), strings.HasSuffix(name, ".swo"), strings.HasSuffix(name, ".swx"):
		return true
	case name == "4913":
		// vim tests directory writability with this name
		return true
	case strings.HasPrefix(name, "#") && strings.HasSuffix(name, "#"):
		return true
	case strings.HasPrefix(name, ".#"):
		return true
	}

	return false
}
