package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"photoimport/internal/fileutil"
	"photoimport/internal/logging"
	"photoimport/internal/media"
	"photoimport/internal/services"
	"photoimport/internal/takeout"
)

// Status is what happened to one archive.
type Status string

const (
	StatusExtracted Status = "extracted"
	StatusInFlight  Status = "in_flight"
	StatusCorrupt   Status = "corrupt"
	StatusFailed    Status = "failed"
)

// Outcome reports one archive's processing.
type Outcome struct {
	Archive string
	Status  Status
	// Target is the extraction directory when Status is StatusExtracted.
	Target string
	// Bundle is true when the extracted tree was an export bundle.
	Bundle     bool
	MediaFiles int
	Deleted    bool
	Err        error
}

// Options tunes an Extractor.
type Options struct {
	ExtractDir      string
	Settle          time.Duration
	DeleteOnSuccess bool
	TakeoutCleanup  bool
	// Sleep waits between the two size observations. Defaults to services.Sleep.
	Sleep services.SleepFunc
}

// Extractor expands the archives found at the top of a staging root.
type Extractor struct {
	expander Expander
	opts     Options
	logger   *slog.Logger
}

// NewExtractor builds an Extractor writing into opts.ExtractDir.
func NewExtractor(expander Expander, opts Options, logger *slog.Logger) *Extractor {
	if opts.Sleep == nil {
		opts.Sleep = services.Sleep
	}
	if expander == nil {
		expander = UnzipTool{}
	}
	return &Extractor{
		expander: expander,
		opts:     opts,
		logger:   logging.NewComponentLogger(logger, "archive"),
	}
}

// Find lists the zip files directly inside root, sorted by path.
func Find(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var archives []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !IsArchive(entry.Name()) {
			continue
		}
		archives = append(archives, filepath.Join(root, entry.Name()))
	}
	sort.Strings(archives)
	return archives, nil
}

// IsArchive reports whether name has a recognized archive extension.
func IsArchive(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	return strings.EqualFold(filepath.Ext(name), ".zip")
}

// ExtractAll expands every settled archive in stagingRoot. Failures are local
// to their archive and reported in the outcomes; the returned error is only
// set for a canceled context or an unreadable staging root. A missing
// expansion tool turns the whole step into a logged no-op.
func (e *Extractor) ExtractAll(ctx context.Context, stagingRoot string) ([]Outcome, error) {
	archives, err := Find(stagingRoot)
	if err != nil {
		return nil, fmt.Errorf("list archives in %s: %w", stagingRoot, err)
	}
	if len(archives) == 0 {
		return nil, nil
	}

	if err := e.expander.Available(); err != nil {
		logging.WarnWithContext(e.logger, "Archive tool unavailable; archives left in place", "archive_tool_missing",
			logging.Int("archives", len(archives)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "install unzip or set archive.tool = \"builtin\""),
			logging.String(logging.FieldImpact, "archives are not extracted this run"),
		)
		return nil, nil
	}

	settled, inFlight, err := e.settled(ctx, archives)
	if err != nil {
		return nil, err
	}

	outcomes := make([]Outcome, 0, len(archives))
	for _, path := range inFlight {
		e.logger.Info("Archive still being written; deferring", logging.String(logging.FieldArchive, filepath.Base(path)))
		outcomes = append(outcomes, Outcome{
			Archive: path,
			Status:  StatusInFlight,
			Err:     services.Wrap(services.ErrInFlightArchive, "archive", "settle", filepath.Base(path), nil),
		})
	}
	for _, path := range settled {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, e.extractOne(ctx, path))
	}
	sort.SliceStable(outcomes, func(i, j int) bool { return outcomes[i].Archive < outcomes[j].Archive })
	if err := ctx.Err(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

// settled observes every archive size twice, one settle interval apart, and
// splits the list into archives whose size held steady and those still
// growing or shrinking.
func (e *Extractor) settled(ctx context.Context, archives []string) ([]string, []string, error) {
	first := make(map[string]int64, len(archives))
	for _, path := range archives {
		if info, err := os.Stat(path); err == nil {
			first[path] = info.Size()
		}
	}
	if err := e.opts.Sleep(ctx, e.opts.Settle); err != nil {
		return nil, nil, err
	}
	var settled, inFlight []string
	for _, path := range archives {
		before, seen := first[path]
		info, err := os.Stat(path)
		if err != nil || !seen {
			continue
		}
		if info.Size() != before {
			inFlight = append(inFlight, path)
			continue
		}
		settled = append(settled, path)
	}
	return settled, inFlight, nil
}

func (e *Extractor) extractOne(ctx context.Context, path string) Outcome {
	name := filepath.Base(path)
	outcome := Outcome{Archive: path}
	logger := e.logger.With(logging.String(logging.FieldArchive, name))

	if err := e.expander.Test(ctx, path); err != nil {
		if ctx.Err() != nil {
			outcome.Status = StatusFailed
			outcome.Err = ctx.Err()
			return outcome
		}
		outcome.Status = StatusCorrupt
		outcome.Err = services.Wrap(services.ErrArchiveIntegrity, "archive", "test", name, err)
		logging.WarnWithContext(logger, "Archive failed integrity test; left in place", "archive_corrupt",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "re-download or re-export the archive"),
			logging.String(logging.FieldImpact, "archive skipped"),
		)
		return outcome
	}

	if err := os.MkdirAll(e.opts.ExtractDir, 0o755); err != nil {
		outcome.Status = StatusFailed
		outcome.Err = services.Wrap(services.ErrExternalTool, "archive", "create extract dir", e.opts.ExtractDir, err)
		logging.ErrorWithContext(logger, "Cannot create extraction directory", "archive_extract_failed", logging.Error(err))
		return outcome
	}
	target := fileutil.UniqueDir(e.opts.ExtractDir, strings.TrimSuffix(name, filepath.Ext(name)))

	attrs := []logging.Attr{logging.String("target", target), logging.String("tool", e.expander.Name())}
	if info, err := os.Stat(path); err == nil {
		attrs = append(attrs, logging.Bytes("size", info.Size()))
	}
	logger.Info("Extracting archive", logging.Args(attrs...)...)
	if err := e.expander.Extract(ctx, path, target); err != nil {
		_ = os.RemoveAll(target)
		outcome.Status = StatusFailed
		if ctx.Err() != nil {
			outcome.Err = ctx.Err()
			return outcome
		}
		outcome.Err = services.Wrap(services.ErrArchiveIntegrity, "archive", "extract", name, err)
		logging.WarnWithContext(logger, "Archive extraction failed; left in place", "archive_extract_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check free space in the extraction directory"),
			logging.String(logging.FieldImpact, "archive retried next run"),
		)
		return outcome
	}
	outcome.Status = StatusExtracted
	outcome.Target = target

	if e.opts.TakeoutCleanup {
		e.normalize(logger, &outcome)
	}
	if outcome.MediaFiles == 0 {
		if n, err := media.CountMedia(target); err == nil {
			outcome.MediaFiles = n
		}
	}

	if e.opts.DeleteOnSuccess {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logging.WarnWithContext(logger, "Could not delete extracted archive", "archive_delete_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "archive will be extracted again next run"),
			)
		} else {
			outcome.Deleted = true
		}
	}

	logger.Info("Archive extracted",
		logging.String("target", target),
		logging.Int("media_files", outcome.MediaFiles),
		logging.Bool("export_bundle", outcome.Bundle),
		logging.Bool("archive_deleted", outcome.Deleted),
	)
	return outcome
}

func (e *Extractor) normalize(logger *slog.Logger, outcome *Outcome) {
	bundle, err := takeout.Detect(outcome.Target)
	if err != nil {
		logger.Debug("export bundle detection failed", logging.Error(err))
		return
	}
	if !bundle {
		return
	}
	outcome.Bundle = true
	result, err := takeout.Normalize(outcome.Target, logger)
	if err != nil {
		logging.WarnWithContext(logger, "Export bundle normalization failed", "takeout_normalize_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "extracted tree uploaded as-is"),
		)
		return
	}
	outcome.MediaFiles = result.MediaFiles
}
