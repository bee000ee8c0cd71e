// Package workspace locates the root of the project being watched: the
// directory holding go.work, else the nearest go.mod, else the nearest
// version-control root.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
)

// Marker files, in order of precedence. A go.work anywhere above the start
// directory wins over a closer go.mod, matching how the go command resolves
// workspaces.
var markers = [][]string{
	{"go.work"},
	{"go.mod"},
	{".git", ".hg", ".svn", ".jj"},
}

// Root returns the workspace root containing dir. When no marker is found
// the absolute form of dir itself is returned.
func Root(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving %q: %w", dir, err)
	}

	for _, names := range markers {
		if root, ok := findUp(abs, names); ok {
			return root, nil
		}
	}

	return abs, nil
}

// findUp walks from dir towards the filesystem root and returns the first
// directory containing one of names.
func findUp(dir string, names []string) (string, bool) {
	for {
		for _, name := range names {
			if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
				return dir, true
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}

		dir = parent
	}
}
