package upload

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"photoimport/internal/fileutil"
	"photoimport/internal/logging"
	"photoimport/internal/media"
	"photoimport/internal/services"
)

// FolderReport describes the handling of one folder.
type FolderReport struct {
	Folder     string
	MediaCount int
	Result     Result
	Deleted    bool
	StartedAt  time.Time
	Duration   time.Duration
	// Err is set when the client could not run or the folder failed.
	Err error
}

// Recorder receives every FolderReport, e.g. to persist run history.
type Recorder interface {
	RecordFolder(ctx context.Context, report FolderReport) error
}

// Summary aggregates a driver run.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Uploaded  int
	Skipped   int
	// Pending counts folders not attempted because the run was interrupted.
	Pending int
}

// Add folds another summary into s.
func (s *Summary) Add(other Summary) {
	s.Total += other.Total
	s.Succeeded += other.Succeeded
	s.Failed += other.Failed
	s.Uploaded += other.Uploaded
	s.Skipped += other.Skipped
	s.Pending += other.Pending
}

// Options tunes a Driver.
type Options struct {
	// Delay is the pause between two folders.
	Delay           time.Duration
	DeleteOnSuccess bool
	// ScratchDir is pruned after the run when it is left empty.
	ScratchDir string
	Sleep      services.SleepFunc
	Recorder   Recorder
}

// Driver uploads folders one at a time.
type Driver struct {
	client Client
	opts   Options
	logger *slog.Logger
}

// NewDriver builds a Driver around client.
func NewDriver(client Client, opts Options, logger *slog.Logger) *Driver {
	if opts.Sleep == nil {
		opts.Sleep = services.Sleep
	}
	return &Driver{
		client: client,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "upload"),
	}
}

// Run uploads each folder in order. A failed folder is kept and the run moves
// on; only a canceled ctx stops it early, in which case the error is
// returned alongside the partial summary.
func (d *Driver) Run(ctx context.Context, folders []media.Folder) (Summary, error) {
	summary := Summary{Total: len(folders)}
	defer d.pruneScratch()

	for idx, folder := range folders {
		if err := ctx.Err(); err != nil {
			summary.Pending = len(folders) - idx
			return summary, err
		}

		report := d.uploadOne(ctx, folder, idx, len(folders))
		if report.Err == nil {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
		summary.Uploaded += report.Result.Uploaded
		summary.Skipped += report.Result.Skipped

		if d.opts.Recorder != nil {
			if err := d.opts.Recorder.RecordFolder(ctx, report); err != nil {
				d.logger.Debug("record folder result failed", logging.Error(err))
			}
		}

		if err := ctx.Err(); err != nil {
			summary.Pending = len(folders) - idx - 1
			return summary, err
		}
		if idx < len(folders)-1 {
			if err := d.opts.Sleep(ctx, d.opts.Delay); err != nil {
				summary.Pending = len(folders) - idx - 1
				return summary, err
			}
		}
	}
	return summary, nil
}

func (d *Driver) uploadOne(ctx context.Context, folder media.Folder, idx, total int) FolderReport {
	logger := d.logger.With(logging.String(logging.FieldFolder, folder.Path))
	report := FolderReport{Folder: folder.Path, MediaCount: folder.MediaCount, StartedAt: time.Now()}

	logger.Info("Uploading folder",
		logging.Int("index", idx+1),
		logging.Int("total", total),
		logging.Int("media_files", folder.MediaCount),
	)

	result, err := d.client.Upload(services.WithFolder(ctx, folder.Path), folder.Path)
	report.Duration = time.Since(report.StartedAt)
	if !result.CountsKnown {
		if u, s, ok := ParseCounts(result.RawOutput); ok {
			result.Uploaded, result.Skipped, result.CountsKnown = u, s, true
		}
	}
	report.Result = result

	switch {
	case err != nil:
		report.Err = services.Wrap(services.ErrUploadFailure, "upload", "run client", folder.Path, err)
		logging.ErrorWithContext(logger, "Upload client could not run; folder kept", "upload_client_error",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the container runtime and photo server URL"),
		)
		return report
	case !result.Succeeded():
		report.Err = services.Wrap(services.ErrUploadFailure, "upload", "exit status", folder.Path, nil)
		logging.ErrorWithContext(logger, "Upload failed; folder kept for retry", "upload_failed",
			logging.Int("exit_code", result.ExitCode),
			logging.String("output", strings.TrimSpace(result.RawOutput)),
			logging.String(logging.FieldErrorHint, "the next run retries this folder"),
		)
		return report
	}

	attrs := []logging.Attr{logging.Duration("elapsed", report.Duration.Round(time.Second))}
	if result.CountsKnown {
		attrs = append(attrs, logging.Int("uploaded", result.Uploaded), logging.Int("skipped", result.Skipped))
	}
	logger.Info("Upload complete", logging.Args(attrs...)...)

	if d.opts.DeleteOnSuccess {
		if err := os.RemoveAll(folder.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logging.WarnWithContext(logger, "Could not delete uploaded folder", "folder_delete_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "folder uploads again next run; the server skips duplicates"),
			)
		} else {
			report.Deleted = true
			logger.Info("Deleted uploaded folder")
		}
	}
	return report
}

func (d *Driver) pruneScratch() {
	if strings.TrimSpace(d.opts.ScratchDir) == "" {
		return
	}
	removed, err := fileutil.PruneEmpty(d.opts.ScratchDir)
	if err != nil {
		d.logger.Debug("scratch prune failed", logging.String("path", d.opts.ScratchDir), logging.Error(err))
		return
	}
	if removed {
		d.logger.Info("Removed empty extraction directory", logging.String("path", d.opts.ScratchDir))
	}
}
