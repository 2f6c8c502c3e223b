package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"photoimport/internal/archive"
	"photoimport/internal/config"
	"photoimport/internal/logging"
	"photoimport/internal/media"
	"photoimport/internal/takeout"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "List staged archives and eligible folders without importing",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, ctx)
		},
	}
}

type archiveRow struct {
	account string
	name    string
	size    int64
	age     time.Duration
}

type folderRow struct {
	account string
	rel     string
	media   int
	bundle  bool
}

// runScan never takes the lock and never waits for archives to settle.
func runScan(cmd *cobra.Command, ctx *commandContext) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	title := cases.Title(language.Und)

	var archives []archiveRow
	var folders []folderRow
	loose := 0
	for _, account := range cfg.StagingAccounts() {
		name := title.String(account.Label())
		if _, err := os.Stat(account.StagingDir); err != nil {
			fmt.Fprintf(out, "%s: staging directory %s unavailable (%v)\n", name, account.StagingDir, err)
			continue
		}
		found, err := archive.Find(account.StagingDir)
		if err != nil {
			return fmt.Errorf("list archives: %w", err)
		}
		for _, path := range found {
			info, err := os.Stat(path)
			if err != nil {
				continue
			}
			archives = append(archives, archiveRow{
				account: name,
				name:    filepath.Base(path),
				size:    info.Size(),
				age:     time.Since(info.ModTime()),
			})
		}

		rows, looseFiles, err := scanAccount(cfg, account, name)
		if err != nil {
			return err
		}
		folders = append(folders, rows...)
		loose += len(looseFiles)
	}

	fmt.Fprintf(out, "Staging: %s\n\n", cfg.Paths.StagingDir)
	if len(archives) > 0 {
		rows := make([][]string, 0, len(archives))
		var total int64
		for _, a := range archives {
			total += a.size
			rows = append(rows, []string{a.account, a.name, logging.ByteSize(a.size).String(), a.age.Round(time.Second).String()})
		}
		fmt.Fprintln(out, tableView{
			Title:   "Archives",
			Headers: []string{"Account", "Archive", "Size", "Last write"},
			Rows:    rows,
			Align:   []columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
			Footer:  []string{"", fmt.Sprintf("%d archive(s)", len(archives)), logging.ByteSize(total).String(), ""},
		}.Render())
		fmt.Fprintln(out)
	}
	if len(folders) == 0 && len(archives) == 0 {
		fmt.Fprintln(out, "nothing to import")
	} else if len(folders) > 0 {
		rows := make([][]string, 0, len(folders))
		total := 0
		for _, f := range folders {
			total += f.media
			rows = append(rows, []string{f.account, f.rel, strconv.Itoa(f.media), yesNo(f.bundle)})
		}
		fmt.Fprintln(out, tableView{
			Title:   "Folders",
			Headers: []string{"Account", "Folder", "Media", "Export bundle"},
			Rows:    rows,
			Align:   []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			Footer:  []string{"", fmt.Sprintf("%d folder(s)", len(folders)), strconv.Itoa(total), ""},
		}.Render())
	}
	if loose > 0 {
		fmt.Fprintf(out, "\n%d media file(s) directly in a staging root are not uploaded; move them into a folder.\n", loose)
	}
	return nil
}

func scanAccount(cfg *config.Config, account config.Account, name string) ([]folderRow, []string, error) {
	inv, err := media.Scan(account.StagingDir, account.ExtractDir, cfg.Paths.ExtractDir)
	if err != nil {
		return nil, nil, fmt.Errorf("scan %s: %w", account.StagingDir, err)
	}
	found := inv.Folders
	if extracted, err := media.EligibleFolders(account.ExtractDir); err == nil {
		found = append(found, extracted...)
	}

	var rows []folderRow
	for _, folder := range found {
		rel, err := filepath.Rel(cfg.Paths.StagingDir, folder.Path)
		if err != nil {
			rel = folder.Path
		}
		bundle := false
		if cfg.Import.TakeoutCleanup {
			bundle, _ = takeout.Detect(folder.Path)
		}
		rows = append(rows, folderRow{account: name, rel: rel, media: folder.MediaCount, bundle: bundle})
	}
	// Unflattened bundles have no media at their top level yet.
	if cfg.Import.TakeoutCleanup {
		entries, _ := os.ReadDir(account.StagingDir)
		for _, entry := range entries {
			path := filepath.Join(account.StagingDir, entry.Name())
			if !entry.IsDir() || media.IsHidden(entry.Name()) || path == account.ExtractDir || path == cfg.Paths.ExtractDir {
				continue
			}
			if slices.ContainsFunc(found, func(f media.Folder) bool { return f.Path == path }) {
				continue
			}
			if bundle, _ := takeout.Detect(path); bundle {
				count, _ := media.CountMedia(path)
				rel, _ := filepath.Rel(cfg.Paths.StagingDir, path)
				rows = append(rows, folderRow{account: name, rel: rel, media: count, bundle: true})
			}
		}
	}
	return rows, inv.LooseFiles, nil
}
