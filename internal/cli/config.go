package cli

import (
	"github.com/spf13/cobra"

	"github.com/hupe1980/xwatch/internal/config"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration that watch would use, after merging the
config file, XWATCH_ environment variables, and flags.

The output is in config file format and can be saved as .xwatch.yaml.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := config.FromContext(cmd.Context()).YAML()
			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(out)

			return err
		},
	}

	// Same flags as watch so their effect can be previewed.
	registerWatchFlags(cmd)

	return cmd
}
