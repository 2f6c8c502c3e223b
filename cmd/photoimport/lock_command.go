package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"photoimport/internal/lock"
	"photoimport/internal/logging"
)

func newLockCommand(ctx *commandContext) *cobra.Command {
	lockCmd := &cobra.Command{
		Use:   "lock",
		Short: "Inspect the single-instance lock",
	}
	lockCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show whether an import currently holds the lock",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			manager := lock.NewManager(cfg.Paths.LockPath, cfg.LockTimeout(), logging.NewNop())
			assessment, err := manager.Inspect()
			if err != nil {
				return fmt.Errorf("inspect lock: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderLockStatus(manager.Path(), assessment))
			return nil
		},
	})
	return lockCmd
}

func renderLockStatus(path string, a lock.Assessment) string {
	rows := [][]string{
		{"Path", path},
		{"State", a.State.String()},
	}
	if a.State != lock.StateAbsent {
		pid := "-"
		if a.PID > 0 {
			pid = strconv.Itoa(a.PID)
		}
		rows = append(rows,
			[]string{"Owner PID", pid},
			[]string{"Age", a.Age.Round(time.Second).String()},
		)
	}
	if a.Reason != "" {
		rows = append(rows, []string{"Detail", a.Reason})
	}
	if a.State != lock.StateAbsent && a.State.Reclaimable() {
		rows = append(rows, []string{"Next run", "reclaims the lock"})
	}
	return renderTable([]string{"Lock", ""}, rows, nil)
}
