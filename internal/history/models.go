package history

import "time"

// Outcome is the final state of a run.
type Outcome string

const (
	OutcomeRunning     Outcome = "running"
	OutcomeCompleted   Outcome = "completed"
	OutcomeNothing     Outcome = "nothing_to_import"
	OutcomeInterrupted Outcome = "interrupted"
	OutcomeFailed      Outcome = "failed"
)

// RunStats are the counters stored with a finished run.
type RunStats struct {
	ArchivesExtracted int
	ArchivesDeferred  int
	ArchivesFailed    int
	FoldersTotal      int
	FoldersSucceeded  int
	FoldersFailed     int
	FoldersPending    int
	AssetsUploaded    int
	AssetsSkipped     int
}

// Run is one pipeline invocation.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Outcome    Outcome
	Stats      RunStats
	Error      string
}

// FolderResult is the ledger row for one uploaded folder.
type FolderResult struct {
	RunID      string
	Account    string
	Folder     string
	MediaFiles int
	ExitCode   int
	Uploaded   int
	Skipped    int
	Deleted    bool
	StartedAt  time.Time
	Duration   time.Duration
	Output     string
}
