// Package watch implements the watch-and-respawn loop: it runs a command,
// watches source directories for changes, debounces rapid events, and
// restarts the command when something relevant changed. The loop owns the
// single child process; at most one is alive at a time.
package watch
