package main

import (
	"github.com/spf13/cobra"

	"photoimport/internal/pipeline"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Import everything staged and exit",
		Long: "Extract staged archives, flatten export bundles, and upload every eligible\n" +
			"folder one at a time. Only one run per lock path proceeds; a second one exits 0.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dryRun {
				return runScan(cmd, ctx)
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			_, err = pipeline.New(cfg, logger, pipeline.Dependencies{}).Run(cmd.Context())
			return err
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be imported without changing anything")
	return cmd
}
