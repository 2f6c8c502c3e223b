package pipeline

import (
	"context"
	"errors"
	"time"

	"photoimport/internal/archive"
	"photoimport/internal/history"
	"photoimport/internal/media"
	"photoimport/internal/services"
	"photoimport/internal/takeout"
	"photoimport/internal/upload"
)

// AccountReport describes the work done for one staging account.
type AccountReport struct {
	Account    string
	StagingDir string
	Archives   []archive.Outcome
	// Bundles are loose export bundles normalized in the staging root.
	Bundles    []BundleResult
	Folders    []media.Folder
	LooseFiles []string
	Upload     upload.Summary
}

// BundleResult is one loose export bundle normalized before enumeration.
type BundleResult struct {
	Path   string
	Result takeout.Result
	Err    error
}

// Report is the outcome of one run.
type Report struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Accounts   []AccountReport
	Err        error
}

// Upload sums the upload summaries of every account.
func (r Report) Upload() upload.Summary {
	var total upload.Summary
	for _, account := range r.Accounts {
		total.Add(account.Upload)
	}
	return total
}

// NothingToImport reports whether no account had an eligible folder.
func (r Report) NothingToImport() bool {
	return r.Err == nil && r.Upload().Total == 0
}

// Stats flattens the report into ledger counters.
func (r Report) Stats() history.RunStats {
	var stats history.RunStats
	for _, account := range r.Accounts {
		for _, outcome := range account.Archives {
			switch outcome.Status {
			case archive.StatusExtracted:
				stats.ArchivesExtracted++
			case archive.StatusInFlight:
				stats.ArchivesDeferred++
			default:
				stats.ArchivesFailed++
			}
		}
	}
	totals := r.Upload()
	stats.FoldersTotal = totals.Total
	stats.FoldersSucceeded = totals.Succeeded
	stats.FoldersFailed = totals.Failed
	stats.FoldersPending = totals.Pending
	stats.AssetsUploaded = totals.Uploaded
	stats.AssetsSkipped = totals.Skipped
	return stats
}

// Outcome classifies the run for the ledger.
func (r Report) Outcome() history.Outcome {
	switch {
	case r.Err != nil && (services.IsInterrupted(r.Err) || errors.Is(r.Err, context.DeadlineExceeded)):
		return history.OutcomeInterrupted
	case r.Err != nil:
		return history.OutcomeFailed
	case r.NothingToImport():
		return history.OutcomeNothing
	default:
		return history.OutcomeCompleted
	}
}
