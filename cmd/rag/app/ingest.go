package app

import (
	"github.com/spf13/cobra"

	"github.com/kart-io/sentinel-rag/cmd/rag/app/options"
	ragsvc "github.com/kart-io/sentinel-rag/internal/rag"
)

func newIngestCommand(opts *options.ServerOptions) *cobra.Command {
	var ingestOpts ragsvc.IngestOptions

	cmd := &cobra.Command{
		Use:   "ingest [files...]",
		Short: "Add text files to the knowledge base",
		Long: `Add text files to the knowledge base.

Each file becomes one document whose id is the file name without extension.
With no arguments the file configured by --rag.default-file is ingested.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.Config()
			if err != nil {
				return err
			}

			ctx, stop := signalContext()
			defer stop()

			ingestOpts.Paths = args
			return cfg.RunIngest(ctx, ingestOpts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&ingestOpts.ID, "id", "", "Document id for a single file, defaults to the file name.")
	cmd.Flags().BoolVarP(&ingestOpts.Watch, "watch", "w", false, "Keep running and re-ingest files when they change.")
	return cmd
}
