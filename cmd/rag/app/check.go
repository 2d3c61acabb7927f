package app

import (
	"github.com/spf13/cobra"

	"github.com/kart-io/sentinel-rag/cmd/rag/app/options"
)

func newCheckCommand(opts *options.ServerOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check connectivity to the generation backend and document store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.Config()
			if err != nil {
				return err
			}

			ctx, stop := signalContext()
			defer stop()

			return cfg.RunCheck(ctx, cmd.OutOrStdout())
		},
	}
}
