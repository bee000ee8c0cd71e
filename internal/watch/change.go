package watch

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// maxBatchPaths caps how many distinct paths a Batch remembers. Counts keep
// growing past it; a branch switch can touch thousands of files.
const maxBatchPaths = 64

// Change is a single qualifying file-system event.
type Change struct {
	Path string
	Op   fsnotify.Op
}

// Batch is the set of changes coalesced into one debounce window.
type Batch struct {
	// Paths are the distinct changed paths in arrival order, capped at
	// maxBatchPaths.
	Paths []string

	// Events is the total number of events in the window.
	Events int

	Created  int
	Modified int
	Removed  int
	Renamed  int

	// Overflow is set when the watcher dropped events; the exact set of
	// changes is unknown.
	Overflow bool
}

func (b *Batch) add(c Change) {
	b.Events++

	switch {
	case c.Op.Has(fsnotify.Create):
		b.Created++
	case c.Op.Has(fsnotify.Remove):
		b.Removed++
	case c.Op.Has(fsnotify.Rename):
		b.Renamed++
	case c.Op.Has(fsnotify.Write):
		b.Modified++
	}

	if c.Path == "" || len(b.Paths) >= maxBatchPaths {
		return
	}

	for _, p := range b.Paths {
		if p == c.Path {
			return
		}
	}

	b.Paths = append(b.Paths, c.Path)
}

// Summary returns a human-readable one-line description of the batch,
// with paths shown relative to base when possible.
func (b Batch) Summary(base string) string {
	var subject string

	switch {
	case len(b.Paths) == 0 && b.Overflow:
		subject = "event overflow"
	case len(b.Paths) == 0:
		subject = "no changes"
	case len(b.Paths) == 1:
		subject = displayPath(base, b.Paths[0])
	default:
		subject = fmt.Sprintf("%s (+%d more)", displayPath(base, b.Paths[0]), len(b.Paths)-1)
	}

	parts := make([]string, 0, 4)

	if b.Created > 0 {
		parts = append(parts, fmt.Sprintf("+%d created", b.Created))
	}

	if b.Modified > 0 {
		parts = append(parts, fmt.Sprintf("~%d modified", b.Modified))
	}

	if b.Removed > 0 {
		parts = append(parts, fmt.Sprintf("-%d removed", b.Removed))
	}

	if b.Renamed > 0 {
		parts = append(parts, fmt.Sprintf(">%d renamed", b.Renamed))
	}

	if len(parts) == 0 {
		return subject
	}

	return subject + " [" + strings.Join(parts, ", ") + "]"
}

func displayPath(base, path string) string {
	if base == "" {
		return path
	}

	rel, err := filepath.Rel(base, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}

	return rel
}
