package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"photoimport/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		lines  int
		follow bool
		runID  string
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the tail of the import log file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if cfg.Paths.LogFile == "" {
				fmt.Fprintln(out, "No log file configured (set paths.log_file)")
				return nil
			}

			filter := logs.Filter{RunID: runID}
			tail, offset, err := logs.Last(cfg.Paths.LogFile, lines, filter)
			if err != nil {
				return err
			}
			for _, line := range tail {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}
			err = logs.Follow(cmd.Context(), cfg.Paths.LogFile, offset, 0, filter, func(line string) {
				fmt.Fprintln(out, line)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing appended lines")
	cmd.Flags().StringVar(&runID, "run", "", "Only show lines from this run ID (prefix)")
	return cmd
}
