package cli

import (
	"github.com/spf13/cobra"

	"github.com/hupe1980/xwatch/internal/config"
)

// registerWatchFlags adds the watch loop flags to a cobra command. Values are
// read back through config.Load so that env vars and the config file apply
// when a flag is not given.
func registerWatchFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringSliceP("watch", "w", nil, "path to watch, repeatable (default: workspace root)")
	f.StringSliceP("ignore", "i", nil, "glob rule for ignored paths, repeatable (replaces the built-in rules)")
	f.StringSlice("exclude", nil, "path ignored with everything below it, repeatable")
	f.Int("debounce-ms", config.DefaultDebounceMS, "quiet period in milliseconds before restarting")
	f.Bool("no-clear", false, "do not clear the terminal before restarting")
	f.Duration("grace-period", config.DefaultGracePeriod, "time a stopped command may take to exit before it is killed")
}
