package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"photoimport/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recent runs, or the folders of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if _, err := os.Stat(cfg.Paths.HistoryDB); errors.Is(err, os.ErrNotExist) {
				fmt.Fprintln(out, "No runs recorded yet")
				return nil
			}
			store, err := history.Open(cfg.Paths.HistoryDB)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			if len(args) == 1 {
				run, err := store.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				results, err := store.FolderResults(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, renderRunDetail(run, results))
				return nil
			}

			runs, err := store.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded yet")
				return nil
			}
			fmt.Fprintln(out, renderRuns(runs))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show")
	return cmd
}

func renderRuns(runs []history.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortID(run.ID),
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			runDuration(run),
			string(run.Outcome),
			fmt.Sprintf("%d/%d", run.Stats.FoldersSucceeded, run.Stats.FoldersTotal),
			strconv.Itoa(run.Stats.AssetsUploaded),
			strconv.Itoa(run.Stats.AssetsSkipped),
			strconv.Itoa(run.Stats.ArchivesExtracted),
		})
	}
	return renderTable(
		[]string{"Run", "Started", "Duration", "Outcome", "Folders ok", "Uploaded", "Skipped", "Archives"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignRight, alignRight, alignRight},
	)
}

func renderRunDetail(run history.Run, results []history.FolderResult) string {
	header := fmt.Sprintf("Run %s  %s  %s  (%s)", run.ID, run.StartedAt.Local().Format("2006-01-02 15:04:05"), run.Outcome, runDuration(run))
	if run.Error != "" {
		header += "\nError: " + run.Error
	}
	if run.Stats.FoldersPending > 0 {
		header += fmt.Sprintf("\nNot attempted: %d folder(s)", run.Stats.FoldersPending)
	}
	if len(results) == 0 {
		return header + "\nNo folders uploaded"
	}
	rows := make([][]string, 0, len(results))
	for _, res := range results {
		rows = append(rows, []string{
			res.Account,
			res.Folder,
			strconv.Itoa(res.MediaFiles),
			strconv.Itoa(res.ExitCode),
			strconv.Itoa(res.Uploaded),
			strconv.Itoa(res.Skipped),
			yesNo(res.Deleted),
			res.Duration.Round(time.Second).String(),
		})
	}
	return header + "\n" + renderTable(
		[]string{"Account", "Folder", "Media", "Exit", "Uploaded", "Skipped", "Deleted", "Took"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft, alignRight},
	)
}

func runDuration(run history.Run) string {
	if run.FinishedAt.IsZero() {
		return "-"
	}
	return run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
