package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"photoimport/internal/archive"
	"photoimport/internal/config"
	"photoimport/internal/fileutil"
	"photoimport/internal/history"
	"photoimport/internal/logging"
	"photoimport/internal/media"
	"photoimport/internal/services"
	"photoimport/internal/takeout"
	"photoimport/internal/upload"
)

// processAccount runs extraction, normalization, enumeration and upload for
// one staging subtree. Only a canceled ctx or an unreadable staging root
// is returned as an error.
func (r *Runner) processAccount(ctx context.Context, account config.Account, ledger *history.Store, runID string) (AccountReport, error) {
	if account.Name != "" {
		ctx = services.WithAccount(ctx, account.Name)
	}
	logger := logging.WithContext(ctx, r.logger)
	base := logging.WithContext(ctx, r.base)
	report := AccountReport{Account: account.Label(), StagingDir: account.StagingDir}

	if err := os.MkdirAll(account.StagingDir, 0o755); err != nil {
		return report, services.Wrap(services.ErrConfiguration, "pipeline", "create account staging", account.StagingDir, err)
	}

	extractor := archive.NewExtractor(r.deps.Expander, archive.Options{
		ExtractDir:      account.ExtractDir,
		Settle:          r.cfg.SettleInterval(),
		DeleteOnSuccess: r.cfg.Import.DeleteOnSuccess,
		TakeoutCleanup:  r.cfg.Import.TakeoutCleanup,
		Sleep:           r.deps.Sleep,
	}, base)
	outcomes, err := extractor.ExtractAll(ctx, account.StagingDir)
	report.Archives = outcomes
	if err != nil {
		return report, err
	}

	skip := r.scratchDirs(account)
	if r.cfg.Import.TakeoutCleanup {
		report.Bundles = r.normalizeLooseBundles(logger, account.StagingDir, skip)
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	folders, loose, err := enumerate(account, skip)
	if err != nil {
		return report, fmt.Errorf("enumerate %s: %w", account.StagingDir, err)
	}
	if account.Name != "" && len(loose) > 0 {
		// An account directory is itself a drop folder; its top-level media
		// becomes one upload unit beside the archives and subfolders.
		collected, err := collectLooseFiles(logger, account.StagingDir, loose)
		if err != nil {
			logging.WarnWithContext(logger, "Could not collect loose media files", "staging_collect_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "files left in place"),
			)
		}
		if collected != "" {
			if folders, loose, err = enumerate(account, skip); err != nil {
				return report, fmt.Errorf("enumerate %s: %w", account.StagingDir, err)
			}
		}
	}
	folders, err = coverExtracted(logger, account.ExtractDir, folders)
	if err != nil {
		return report, fmt.Errorf("enumerate %s: %w", account.ExtractDir, err)
	}
	report.Folders = folders
	report.LooseFiles = loose
	if len(loose) > 0 {
		logging.WarnWithContext(logger, "Media files directly in the staging root are not uploaded", "staging_loose_files",
			logging.Int("files", len(loose)),
			logging.String("example", filepath.Base(loose[0])),
			logging.String(logging.FieldErrorHint, "move them into a folder"),
			logging.String(logging.FieldImpact, "files left in place"),
		)
	}
	if len(folders) == 0 {
		logger.Debug("no eligible folders", logging.String("staging_dir", account.StagingDir))
	} else {
		logger.Info("Eligible folders found", logging.Int("folders", len(folders)))
	}

	driver := upload.NewDriver(r.deps.Clients(account), upload.Options{
		Delay:           r.cfg.Delay(),
		DeleteOnSuccess: r.cfg.Import.DeleteOnSuccess,
		ScratchDir:      account.ExtractDir,
		Sleep:           r.deps.Sleep,
		Recorder:        recorder(ledger, runID, account),
	}, base)
	summary, err := driver.Run(ctx, folders)
	report.Upload = summary
	return report, err
}

func recorder(ledger *history.Store, runID string, account config.Account) upload.Recorder {
	if ledger == nil {
		return nil
	}
	return history.FolderRecorder{Store: ledger, RunID: runID, Account: account.Label()}
}

// scratchDirs lists the extraction directories that must not be treated as
// staged payloads when they live inside the staging tree.
func (r *Runner) scratchDirs(account config.Account) []string {
	dirs := []string{filepath.Clean(account.ExtractDir)}
	if root := filepath.Clean(r.cfg.Paths.ExtractDir); root != dirs[0] {
		dirs = append(dirs, root)
	}
	return dirs
}

// enumerate merges the eligible folders of the staging subtree and of the
// account's extraction directory.
func enumerate(account config.Account, skip []string) ([]media.Folder, []string, error) {
	inv, err := media.Scan(account.StagingDir, skip...)
	if err != nil {
		return nil, nil, err
	}
	folders := inv.Folders
	extracted, err := media.EligibleFolders(account.ExtractDir)
	switch {
	case err == nil:
		folders = append(folders, extracted...)
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, nil, err
	}
	sort.Slice(folders, func(i, j int) bool { return folders[i].Path < folders[j].Path })
	return folders, inv.LooseFiles, nil
}

// collectLooseFiles moves media sitting directly in root into a new "loose"
// folder and returns its path. Nothing is created when no file moved.
func collectLooseFiles(logger *slog.Logger, root string, files []string) (string, error) {
	dir := fileutil.UniqueDir(root, "loose")
	if err := os.Mkdir(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	reserved := make(map[string]struct{}, len(files))
	moved := 0
	var firstErr error
	for _, file := range files {
		target := fileutil.UniquePath(dir, filepath.Base(file), reserved)
		if err := fileutil.MoveFile(file, target); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("collect %s: %w", file, err)
			}
			continue
		}
		moved++
	}
	if moved == 0 {
		_ = os.Remove(dir)
		return "", firstErr
	}
	logger.Info("Collected loose media files",
		logging.String(logging.FieldFolder, dir),
		logging.Int("files", moved),
	)
	return dir, firstErr
}

// coverExtracted makes sure every extracted archive holding media is
// uploaded. Media nested deeper than the enumeration depth belongs to no
// eligible folder; such an extraction target is uploaded whole instead of
// its partially covering subfolders. The client uploads recursively.
func coverExtracted(logger *slog.Logger, extractDir string, folders []media.Folder) ([]media.Folder, error) {
	entries, err := os.ReadDir(extractDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return folders, nil
		}
		return folders, err
	}
	for _, entry := range entries {
		if !entry.IsDir() || media.IsHidden(entry.Name()) {
			continue
		}
		target := filepath.Join(extractDir, entry.Name())
		total, err := media.CountMedia(target)
		if err != nil {
			return folders, err
		}
		if total == 0 {
			continue
		}
		covered := 0
		var rest []media.Folder
		for _, folder := range folders {
			if folder.Path != target && !strings.HasPrefix(folder.Path, target+string(os.PathSeparator)) {
				rest = append(rest, folder)
				continue
			}
			n, err := media.CountMedia(folder.Path)
			if err != nil {
				return folders, err
			}
			covered += n
		}
		if covered >= total {
			continue
		}
		logger.Info("Uploading extracted archive as one folder",
			logging.String(logging.FieldFolder, target),
			logging.Int("media_files", total),
			logging.Int("uncovered", total-covered),
		)
		folders = append(rest, media.Folder{Path: target, MediaCount: total})
	}
	sort.Slice(folders, func(i, j int) bool { return folders[i].Path < folders[j].Path })
	return folders, nil
}

// normalizeLooseBundles flattens export bundles a user extracted into the
// staging root by hand.
func (r *Runner) normalizeLooseBundles(logger *slog.Logger, root string, skip []string) []BundleResult {
	entries, err := os.ReadDir(root)
	if err != nil {
		logger.Debug("list staging root failed", logging.Error(err))
		return nil
	}
	var results []BundleResult
	for _, entry := range entries {
		if !entry.IsDir() || media.IsHidden(entry.Name()) {
			continue
		}
		path := filepath.Join(root, entry.Name())
		if slices.Contains(skip, path) {
			continue
		}
		bundle, err := takeout.Detect(path)
		if err != nil || !bundle {
			continue
		}
		bundleLogger := logger.With(logging.String(logging.FieldFolder, path))
		result, err := takeout.Normalize(path, bundleLogger)
		results = append(results, BundleResult{Path: path, Result: result, Err: err})
		if err != nil {
			logging.WarnWithContext(bundleLogger, "Export bundle normalization failed", "takeout_normalize_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "folder uploaded as-is"),
			)
		}
	}
	return results
}

// pruneScratchRoot removes the shared extraction root once every account
// subdirectory below it is gone.
func (r *Runner) pruneScratchRoot(logger *slog.Logger) {
	if len(r.cfg.Accounts) == 0 {
		return
	}
	root := r.cfg.Paths.ExtractDir
	if removed, err := fileutil.PruneEmpty(root); err != nil {
		logger.Debug("scratch prune failed", logging.String("path", root), logging.Error(err))
	} else if removed {
		logger.Debug("Removed empty extraction root", logging.String("path", root))
	}
}
