package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hupe1980/xwatch/internal/config"
	"github.com/hupe1980/xwatch/internal/filter"
	"github.com/hupe1980/xwatch/internal/logging"
	"github.com/hupe1980/xwatch/internal/process"
	"github.com/hupe1980/xwatch/internal/terminal"
	"github.com/hupe1980/xwatch/internal/watch"
	"github.com/hupe1980/xwatch/internal/workspace"
)

// defaultCommand runs when neither the command line nor the config names one.
var defaultCommand = []string{"go", "build", "./..."}

func newWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [flags] [--] [command [args...]]",
		Short: "Run a command and restart it whenever files change",
		Long: `Watch starts the given command, watches the workspace for file
changes, and restarts the command after every debounced burst of changes.

Without a command the "command" config value is used, falling back to
"go build ./...". Everything after the first positional argument is passed
to the command unchanged, so its own flags need no "--".

The workspace root is the directory holding go.work, else the nearest
go.mod, else the nearest version-control root. It is watched when no
--watch path is given, and anchored --ignore rules are resolved against it.

A command that exits on its own is not relaunched until the next change.
On SIGINT, SIGTERM, or SIGHUP the command is stopped and xwatch exits.`,
		Example: `  # Rebuild on every change
  xwatch watch

  # Restart a server, ignoring generated files
  xwatch watch -i '*.gen.go' -- go run ./cmd/server --port 8080

  # Watch two directories with a longer quiet period
  xwatch watch -w internal -w cmd --debounce-ms 300 go test ./...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), cmd, args)
		},
	}

	// Flags after the command belong to the command.
	cmd.Flags().SetInterspersed(false)

	registerWatchFlags(cmd)

	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, args []string) error {
	cfg := config.FromContext(ctx)
	logger := logging.FromContext(ctx)

	argv := args
	if len(argv) == 0 {
		argv = cfg.CommandLine()
	}

	if len(argv) == 0 {
		argv = defaultCommand
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determining working directory: %w", err)
	}

	root, err := workspace.Root(cwd)
	if err != nil {
		return fmt.Errorf("locating workspace root: %w", err)
	}

	paths, err := watchPaths(cfg.WatchPaths, root)
	if err != nil {
		return &ExitError{Code: 2, Err: err}
	}

	chain, err := filter.Build(filter.Options{
		Root:       root,
		WatchRoots: paths,
		Rules:      cfg.IgnoredRules,
		Excludes:   cfg.ExcludePaths,
	})
	if err != nil {
		return &ExitError{Code: 2, Err: err}
	}

	logger.Debug("watch configured",
		slog.String("workspace", root),
		slog.Any("paths", paths),
		slog.Int("filters", chain.Len()),
		slog.Any("command", argv))

	// Status lines and the command's output may land in the same writer.
	ws := terminal.Share(cmd.ErrOrStderr(), cmd.OutOrStdout())
	status, stdout := ws[0], ws[1]

	opts := watch.DefaultOptions()
	opts.Paths = paths
	opts.Filter = chain
	opts.Debounce = cfg.Debounce()
	opts.GracePeriod = cfg.GracePeriod
	opts.ClearScreen = !cfg.NoClear
	opts.Screen = stdout
	opts.Logger = logger
	opts.Out = status
	opts.Color = !cfg.NoColor && terminal.IsTerminal(status)

	command := process.Command{
		Name:   argv[0],
		Args:   argv[1:],
		Dir:    cwd,
		Stdout: stdout,
		Stderr: status,
	}

	return watch.Run(ctx, opts, command)
}

// watchPaths returns the configured paths made absolute, or the workspace
// root when none are configured. Every path must exist.
func watchPaths(configured []string, root string) ([]string, error) {
	if len(configured) == 0 {
		return []string{root}, nil
	}

	paths := make([]string, 0, len(configured))

	for _, p := range configured {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolving watch path %q: %w", p, err)
		}

		if _, err := os.Stat(abs); err != nil {
			return nil, fmt.Errorf("watch path %q: %w", p, err)
		}

		paths = append(paths, abs)
	}

	return paths, nil
}
