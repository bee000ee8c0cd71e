package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/xwatch/internal/version"
)

// versionFormats lists the accepted values of version --output.
var versionFormats = []string{"text", "short", "long", "json"}

func newVersionCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long: `Print the xwatch version.

The text format is a single line. The long format adds the file watcher
backend in use on this platform (inotify, kqueue, ...) and the fsnotify
release it was built with. Use short in scripts that only need the version.`,
		Example: `  xwatch version
  xwatch version -o short
  xwatch version -o json`,
		Args: cobra.NoArgs,
		// Runs without a workspace or config file.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := renderVersion(version.GetInfo(), format)
			if err != nil {
				return &ExitError{Code: 2, Err: err}
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)

			return err
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", "text", "output format: text, short, long, json")
	_ = cmd.RegisterFlagCompletionFunc("output", cobra.FixedCompletions(versionFormats, cobra.ShellCompDirectiveNoFileComp))

	return cmd
}

func renderVersion(info version.Info, format string) (string, error) {
	switch format {
	case "text":
		return info.String(), nil
	case "short":
		return info.Version, nil
	case "long":
		return info.Details(), nil
	case "json":
		return info.JSON()
	default:
		return "", fmt.Errorf("invalid output format %q: must be one of %v", format, versionFormats)
	}
}
