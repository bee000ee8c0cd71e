package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hupe1980/xwatch/internal/filter"
	"github.com/hupe1980/xwatch/internal/process"
	"github.com/hupe1980/xwatch/internal/terminal"
)

// Defaults applied to zero-valued Options fields.
const (
	DefaultDebounce    = 50 * time.Millisecond
	DefaultGracePeriod = 2 * time.Second
)

// Options configures the watch behaviour.
type Options struct {
	// Paths are the directories (or single files) watched recursively.
	Paths []string

	// Filter drops events on ignored paths. Nil keeps every event.
	Filter filter.Filter

	// Debounce is the quiet period before a restart.
	Debounce time.Duration

	// GracePeriod is how long a terminated command may take to exit before
	// it is killed.
	GracePeriod time.Duration

	// ClearScreen clears Screen before every restart when it is a terminal.
	ClearScreen bool

	// Screen is the terminal that gets cleared. Defaults to os.Stdout.
	Screen io.Writer

	// Logger is used for structured logging.
	Logger *slog.Logger

	// Out is the writer for user-facing status lines.
	Out io.Writer

	// Color enables ANSI colours in status lines.
	Color bool

	// OnEvent, when set, is called from the loop goroutine for every
	// process lifecycle transition.
	OnEvent func(Event)
}

// DefaultOptions returns sensible default watch options.
func DefaultOptions() Options {
	return Options{
		Debounce:    DefaultDebounce,
		GracePeriod: DefaultGracePeriod,
		ClearScreen: true,
		Screen:      os.Stdout,
		Logger:      slog.Default(),
		Out:         os.Stderr,
	}
}

func (o Options) withDefaults() Options {
	if o.Debounce <= 0 {
		o.Debounce = DefaultDebounce
	}

	if o.GracePeriod <= 0 {
		o.GracePeriod = DefaultGracePeriod
	}

	if o.Filter == nil {
		o.Filter = filter.NewChain()
	}

	if o.Screen == nil {
		o.Screen = os.Stdout
	}

	if o.Logger == nil {
		o.Logger = slog.Default()
	}

	if o.Out == nil {
		o.Out = io.Discard
	}

	return o
}

// EventKind identifies a process lifecycle transition.
type EventKind int

const (
	// EventSpawned: a new command instance was started.
	EventSpawned EventKind = iota
	// EventRestarting: a batch of changes triggered a restart.
	EventRestarting
	// EventStopped: the loop terminated the command and it was reaped.
	EventStopped
	// EventExited: the command exited on its own.
	EventExited
)

func (k EventKind) String() string {
	switch k {
	case EventSpawned:
		return "spawned"
	case EventRestarting:
		return "restarting"
	case EventStopped:
		return "stopped"
	case EventExited:
		return "exited"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event describes a lifecycle transition of the managed command.
type Event struct {
	Kind EventKind
	PID  int

	// ExitCode is set for EventStopped and EventExited.
	ExitCode int

	// Forced is set for EventStopped when the command had to be killed.
	Forced bool

	// Batch is set for EventRestarting.
	Batch *Batch
}

// Run starts the command, then watches opts.Paths and restarts the command
// after every debounced batch of relevant changes. It blocks until ctx is
// cancelled or a shutdown signal arrives (returning nil), or a fatal error
// occurs. Shutdown signals are SIGINT and SIGTERM, plus SIGHUP on Unix. The
// command is never left running when Run returns.
func Run(ctx context.Context, opts Options, command process.Command) error {
	opts = opts.withDefaults()

	if len(opts.Paths) == 0 {
		return fmt.Errorf("%w: no paths to watch", ErrWatchInit)
	}

	l := &loop{
		opts:    opts,
		command: command,
		changes: make(chan Batch, 1),
	}

	if cwd, err := os.Getwd(); err == nil {
		l.base = cwd
	}

	// Trapped before the first spawn: a signal that killed xwatch would skip
	// the deferred shutdown and leave the command running.
	sigCtx, stop := signal.NotifyContext(ctx, shutdownSignals...)
	defer stop()

	// The command is started first: a command that cannot even spawn is
	// reported before any watch is set up.
	if err := l.spawn(); err != nil {
		return err
	}
	defer l.shutdown()

	watcher, err := newWatcher()
	if err != nil {
		return fmt.Errorf("%w: creating watcher: %w", ErrWatchInit, err)
	}
	defer watcher.Close()

	for _, p := range opts.Paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("%w: resolving %s: %w", ErrWatchInit, p, err)
		}

		if err := l.addRecursive(watcher, abs); err != nil {
			return fmt.Errorf("%w: watching %s: %w", ErrWatchInit, p, err)
		}
	}

	debouncer := NewDebouncer(opts.Debounce, func(b Batch) {
		select {
		case l.changes <- b:
		default:
			// A restart is already queued and will pick up these changes.
		}
	})
	defer debouncer.Stop()

	l.status(terminal.Cyan, "watching %d path(s) (debounce=%s)", len(opts.Paths), opts.Debounce)

	return l.run(sigCtx, watcher, debouncer)
}

// newWatcher is replaced in tests to reach the watcher's channels.
var newWatcher = fsnotify.NewWatcher

// stopProcess is replaced in tests to simulate a command that cannot be
// stopped.
var stopProcess = (*process.Process).Stop

// loop holds the state owned by the Run goroutine.
type loop struct {
	opts    Options
	command process.Command
	base    string

	// proc is the current child. Only the Run goroutine reads or writes it.
	proc         *process.Process
	exitReported bool

	changes chan Batch
}

func (l *loop) run(ctx context.Context, watcher *fsnotify.Watcher, debouncer *Debouncer) error {
	for {
		var exited <-chan struct{}
		if l.proc != nil && !l.exitReported {
			exited = l.proc.Done()
		}

		select {
		case <-ctx.Done():
			l.status(terminal.Dim, "shutting down watcher")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("%w: event channel closed", ErrEventStream)
			}

			l.handleEvent(watcher, debouncer, event)

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("%w: error channel closed", ErrEventStream)
			}

			if errors.Is(watchErr, fsnotify.ErrEventOverflow) {
				l.opts.Logger.Warn("watcher dropped events, restarting to be safe",
					slog.String("error", watchErr.Error()))
				debouncer.TriggerOverflow()

				continue
			}

			return fmt.Errorf("%w: %w", ErrEventStream, watchErr)

		case batch := <-l.changes:
			if err := l.restart(batch); err != nil {
				return err
			}

		case <-exited:
			l.reportExit()
		}
	}
}

func (l *loop) handleEvent(watcher *fsnotify.Watcher, debouncer *Debouncer, event fsnotify.Event) {
	if !isRelevant(event) {
		return
	}

	path := filepath.Clean(event.Name)

	if excluded, reason := l.opts.Filter.Excludes(path); excluded {
		l.opts.Logger.Debug("ignoring change",
			slog.String("path", path),
			slog.String("reason", reason))

		return
	}

	// If a new directory was created, watch it too.
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := l.addRecursive(watcher, path); err != nil {
				l.opts.Logger.Warn("cannot watch new directory",
					slog.String("path", path),
					slog.String("error", err.Error()))
			}
		}
	}

	l.opts.Logger.Debug("change detected",
		slog.String("path", path),
		slog.String("op", event.Op.String()))

	debouncer.Trigger(Change{Path: path, Op: event.Op})
}

func (l *loop) restart(batch Batch) error {
	l.status(terminal.Cyan, "%s → restarting", batch.Summary(l.base))
	l.emit(Event{Kind: EventRestarting, Batch: &batch})

	if err := l.terminate(); err != nil {
		return err
	}

	if l.opts.ClearScreen {
		terminal.Clear(l.opts.Screen)
	}

	return l.spawn()
}

func (l *loop) spawn() error {
	p, err := process.Start(l.command)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSpawn, err)
	}

	l.proc = p
	l.exitReported = false

	l.opts.Logger.Info("command started",
		slog.String("command", l.command.String()),
		slog.Int("pid", p.PID()))
	l.emit(Event{Kind: EventSpawned, PID: p.PID()})

	return nil
}

// terminate stops the current command and waits until it is reaped. A
// command that outlives the grace period is killed, which is only worth a
// warning.
func (l *loop) terminate() error {
	p := l.proc
	if p == nil {
		return nil
	}

	if p.Exited() {
		if !l.exitReported {
			l.reportExit()
		}

		l.proc = nil

		return nil
	}

	forced, err := stopProcess(p, l.opts.GracePeriod)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStop, err)
	}

	if forced {
		l.opts.Logger.Warn("command did not exit within grace period, killed",
			slog.Int("pid", p.PID()),
			slog.Duration("gracePeriod", l.opts.GracePeriod))
	}

	l.proc = nil
	l.emit(Event{Kind: EventStopped, PID: p.PID(), ExitCode: p.ExitCode(), Forced: forced})

	return nil
}

// shutdown is deferred by Run so no exit path leaves the command running.
func (l *loop) shutdown() {
	if err := l.terminate(); err != nil {
		l.opts.Logger.Error("stopping command on shutdown", slog.String("error", err.Error()))
	}
}

func (l *loop) reportExit() {
	p := l.proc
	l.exitReported = true

	attrs := []any{slog.Int("pid", p.PID()), slog.Int("exitCode", p.ExitCode())}
	if err := p.Err(); err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}

	color := terminal.Green
	if p.ExitCode() != 0 {
		color = terminal.Red
	}

	l.opts.Logger.Info("command exited", attrs...)
	l.status(color, "command exited (code %d), waiting for changes", p.ExitCode())
	l.emit(Event{Kind: EventExited, PID: p.PID(), ExitCode: p.ExitCode()})
}

func (l *loop) emit(e Event) {
	if l.opts.OnEvent != nil {
		l.opts.OnEvent(e)
	}
}

// status prints a timestamped user-facing line.
func (l *loop) status(color, format string, args ...any) {
	now := terminal.Paint("["+time.Now().Format("15:04:05")+"]", terminal.Dim, l.opts.Color)
	msg := terminal.Paint(fmt.Sprintf(format, args...), color, l.opts.Color)
	fmt.Fprintf(l.opts.Out, "%s %s\n", now, msg)
}

// addRecursive walks root and adds all directories to the watcher, skipping
// ignored ones. A root that is a file is watched directly.
func (l *loop) addRecursive(watcher *fsnotify.Watcher, root string) error {
	root = filepath.Clean(root)

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path != root && errors.Is(err, fs.ErrNotExist) {
				// Removed while walking.
				return nil
			}

			return err
		}

		if !d.IsDir() {
			if path == root {
				return watcher.Add(path)
			}

			return nil
		}

		if path != root {
			if excluded, _ := l.opts.Filter.Excludes(path); excluded {
				return filepath.SkipDir
			}
		}

		return watcher.Add(path)
	})
}

// isRelevant filters out events that do not change content or layout.
func isRelevant(event fsnotify.Event) bool {
	if event.Op == 0 {
		return false
	}

	// Only care about write, create, remove, rename.
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}
