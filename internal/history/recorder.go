package history

import (
	"context"

	"photoimport/internal/upload"
)

// FolderRecorder adapts a Store to upload.Recorder for one run and account.
type FolderRecorder struct {
	Store   *Store
	RunID   string
	Account string
}

func (r FolderRecorder) RecordFolder(ctx context.Context, report upload.FolderReport) error {
	if r.Store == nil {
		return nil
	}
	return r.Store.RecordFolder(ctx, FolderResult{
		RunID:      r.RunID,
		Account:    r.Account,
		Folder:     report.Folder,
		MediaFiles: report.MediaCount,
		ExitCode:   report.Result.ExitCode,
		Uploaded:   report.Result.Uploaded,
		Skipped:    report.Result.Skipped,
		Deleted:    report.Deleted,
		StartedAt:  report.StartedAt,
		Duration:   report.Duration,
		Output:     report.Result.RawOutput,
	})
}
