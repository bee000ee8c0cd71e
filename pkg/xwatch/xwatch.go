// Package xwatch provides a public Go API for running a command and
// restarting it whenever files change.
//
// It exposes the xwatch watch loop as a library, so build-automation
// programs can embed it without the CLI.
//
// Basic usage:
//
//	err := xwatch.New().Run(ctx, exec.Command("go", "run", "./cmd/server"))
//
// With options:
//
//	err := xwatch.New().
//	    WatchPath("internal").
//	    WatchPath("cmd").
//	    ExcludeWorkspacePath("internal/gen").
//	    IgnoreRule("*.pb.go").
//	    Debounce(200 * time.Millisecond).
//	    NoClear().
//	    Run(ctx, exec.Command("go", "test", "./..."))
package xwatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/hupe1980/xwatch/internal/filter"
	"github.com/hupe1980/xwatch/internal/process"
	"github.com/hupe1980/xwatch/internal/terminal"
	"github.com/hupe1980/xwatch/internal/watch"
	"github.com/hupe1980/xwatch/internal/workspace"
)

// Errors returned by Run. Test with errors.Is.
var (
	ErrSpawn       = watch.ErrSpawn
	ErrWatchInit   = watch.ErrWatchInit
	ErrEventStream = watch.ErrEventStream
	ErrStop        = watch.ErrStop
)

// SpawnError carries the command and cause of a spawn failure.
type SpawnError = process.SpawnError

// Event describes a lifecycle transition of the managed command.
type Event = watch.Event

// EventKind identifies a lifecycle transition.
type EventKind = watch.EventKind

// Lifecycle event kinds.
const (
	EventSpawned    = watch.EventSpawned
	EventRestarting = watch.EventRestarting
	EventStopped    = watch.EventStopped
	EventExited     = watch.EventExited
)

// Watch configures a watch loop. The zero value is not usable; create one
// with New. Methods return the receiver for chaining.
type Watch struct {
	watchPaths     []string
	excludePaths   []string
	workspacePaths []string
	rules          []string
	rulesSet       bool
	debounce       time.Duration
	gracePeriod    time.Duration
	noClear        bool
	logger         *slog.Logger
	out            io.Writer
	onEvent        func(Event)
}

// New returns a Watch with default settings: the workspace root is watched,
// VCS metadata, ./bin, hidden paths and editor backups are ignored, and the
// debounce period is 50ms.
func New() *Watch {
	return &Watch{
		debounce:    watch.DefaultDebounce,
		gracePeriod: watch.DefaultGracePeriod,
	}
}

// WatchPath adds a path to watch. Without any, the workspace root is watched.
func (w *Watch) WatchPath(path string) *Watch {
	w.watchPaths = append(w.watchPaths, path)
	return w
}

// WatchPaths adds several paths to watch.
func (w *Watch) WatchPaths(paths ...string) *Watch {
	w.watchPaths = append(w.watchPaths, paths...)
	return w
}

// ExcludePath ignores changes below path, which is absolute or relative to
// the current directory.
func (w *Watch) ExcludePath(path string) *Watch {
	w.excludePaths = append(w.excludePaths, path)
	return w
}

// ExcludePaths ignores changes below several paths.
func (w *Watch) ExcludePaths(paths ...string) *Watch {
	w.excludePaths = append(w.excludePaths, paths...)
	return w
}

// ExcludeWorkspacePath ignores changes below path, relative to the workspace
// root.
func (w *Watch) ExcludeWorkspacePath(path string) *Watch {
	w.workspacePaths = append(w.workspacePaths, path)
	return w
}

// ExcludeWorkspacePaths ignores changes below several workspace-relative
// paths.
func (w *Watch) ExcludeWorkspacePaths(paths ...string) *Watch {
	w.workspacePaths = append(w.workspacePaths, paths...)
	return w
}

// IgnoreRule adds a glob rule for ignored paths. The first rule replaces the
// built-in rules.
func (w *Watch) IgnoreRule(rule string) *Watch {
	w.rules = append(w.rules, rule)
	w.rulesSet = true

	return w
}

// IgnoreRules adds several glob rules. Calling it with no rules disables the
// built-in ones.
func (w *Watch) IgnoreRules(rules ...string) *Watch {
	w.rules = append(w.rules, rules...)
	w.rulesSet = true

	return w
}

// Debounce sets the quiet period before a restart.
func (w *Watch) Debounce(d time.Duration) *Watch {
	w.debounce = d
	return w
}

// GracePeriod sets how long a stopped command may take to exit before it is
// killed.
func (w *Watch) GracePeriod(d time.Duration) *Watch {
	w.gracePeriod = d
	return w
}

// NoClear keeps the terminal as is on restart.
func (w *Watch) NoClear() *Watch {
	w.noClear = true
	return w
}

// Logger sets the structured logger. The default discards log output.
func (w *Watch) Logger(l *slog.Logger) *Watch {
	w.logger = l
	return w
}

// Output sets the writer for status lines. The default is os.Stderr. It may
// be the same writer as the command's Stdout or Stderr: Run serializes
// writes to writers other than *os.File.
func (w *Watch) Output(out io.Writer) *Watch {
	w.out = out
	return w
}

// OnEvent registers fn to be called for every lifecycle transition of the
// command. fn runs on the loop goroutine and must not block.
func (w *Watch) OnEvent(fn func(Event)) *Watch {
	w.onEvent = fn
	return w
}

// Run starts cmd, watches the configured paths, and restarts cmd after every
// debounced batch of changes. cmd serves as a template: every instance is
// started from its path, arguments, directory, environment, and standard
// streams, and cmd itself is never started.
//
// Run returns nil when ctx is cancelled or the process receives SIGINT,
// SIGTERM, or on Unix SIGHUP. The command is stopped before Run returns.
func (w *Watch) Run(ctx context.Context, cmd *exec.Cmd) error {
	if cmd == nil {
		return errors.New("command must not be nil")
	}

	if cmd.Process != nil {
		return errors.New("command must not be started")
	}

	if cmd.Err != nil {
		return fmt.Errorf("%w: %w", ErrSpawn, &SpawnError{Command: cmd.String(), Err: cmd.Err})
	}

	if w.debounce <= 0 {
		return fmt.Errorf("debounce must be positive, got %s", w.debounce)
	}

	command := fromExecCmd(cmd)

	dir := cmd.Dir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("determining working directory: %w", err)
		}

		dir = cwd
	}

	root, err := workspace.Root(dir)
	if err != nil {
		return fmt.Errorf("locating workspace root: %w", err)
	}

	opts, err := w.options(root)
	if err != nil {
		return err
	}

	ws := terminal.Share(opts.Out, command.Stdout, command.Stderr)
	opts.Out, command.Stdout, command.Stderr = ws[0], ws[1], ws[2]

	return watch.Run(ctx, opts, command)
}

func (w *Watch) options(root string) (watch.Options, error) {
	paths := []string{root}
	if len(w.watchPaths) > 0 {
		paths = make([]string, 0, len(w.watchPaths))

		for _, p := range w.watchPaths {
			abs, err := filepath.Abs(p)
			if err != nil {
				return watch.Options{}, fmt.Errorf("resolving watch path %q: %w", p, err)
			}

			paths = append(paths, abs)
		}
	}

	excludes := make([]string, 0, len(w.excludePaths)+len(w.workspacePaths))

	for _, p := range w.excludePaths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return watch.Options{}, fmt.Errorf("resolving exclude path %q: %w", p, err)
		}

		excludes = append(excludes, abs)
	}

	for _, p := range w.workspacePaths {
		excludes = append(excludes, filepath.Join(root, p))
	}

	var rules []string
	if w.rulesSet {
		rules = append([]string{}, w.rules...)
	}

	chain, err := filter.Build(filter.Options{
		Root:       root,
		WatchRoots: paths,
		Rules:      rules,
		Excludes:   excludes,
	})
	if err != nil {
		return watch.Options{}, err
	}

	opts := watch.DefaultOptions()
	opts.Paths = paths
	opts.Filter = chain
	opts.Debounce = w.debounce
	opts.GracePeriod = w.gracePeriod
	opts.ClearScreen = !w.noClear
	opts.OnEvent = w.onEvent
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	if w.logger != nil {
		opts.Logger = w.logger
	}

	if w.out != nil {
		opts.Out = w.out
	}

	return opts, nil
}

// fromExecCmd copies the parts of cmd needed to start fresh instances.
func fromExecCmd(cmd *exec.Cmd) process.Command {
	c := process.Command{
		Name:   cmd.Path,
		Dir:    cmd.Dir,
		Env:    cmd.Env,
		Stdin:  cmd.Stdin,
		Stdout: cmd.Stdout,
		Stderr: cmd.Stderr,
	}

	if len(cmd.Args) > 1 {
		c.Args = append([]string{}, cmd.Args[1:]...)
	}

	return c
}
