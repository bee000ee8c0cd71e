// Package terminal holds the little terminal handling the watcher needs.
package terminal

import (
	"io"

	"golang.org/x/term"
)

// clearSequence erases the screen and scrollback, then homes the cursor.
const clearSequence = "\x1b[H\x1b[2J\x1b[3J"

type fder interface {
	Fd() uintptr
}

// IsTerminal reports whether w is a file attached to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(fder)

	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec
}

// Clear clears the screen when w is a terminal and reports whether it did.
// Redirected output is left alone so logs do not fill up with escapes.
func Clear(w io.Writer) bool {
	if !IsTerminal(w) {
		return false
	}

	_, err := io.WriteString(w, clearSequence)

	return err == nil
}

// ANSI colours used for status lines.
const (
	Red   = "\033[31m"
	Green = "\033[32m"
	Cyan  = "\033[36m"
	Dim   = "\033[2m"
	Bold  = "\033[1m"
	reset = "\033[0m"
)

// Paint wraps s in the given colour when enabled is true.
func Paint(s, color string, enabled bool) string {
	if !enabled || color == "" {
		return s
	}

	return color + s + reset
}
