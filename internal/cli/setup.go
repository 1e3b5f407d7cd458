package cli

import (
	"github.com/spf13/cobra"

	"github.com/vadiminshakov/solescrow/internal/setup"
)

func newSetupCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Interactive configuration wizard",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return setup.RunTUI(out)
		},
	}

	cmd.Flags().StringVarP(&out, "output", "o", setup.DefaultConfigFile, "where to write the config")
	return cmd
}
