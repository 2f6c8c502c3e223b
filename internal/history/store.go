package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const timeLayout = time.RFC3339Nano

// maxOutputBytes caps stored client output; failures keep the tail where the
// error usually is.
const maxOutputBytes = 16 << 10

// BeginRun inserts a run in the running state.
func (s *Store) BeginRun(ctx context.Context, id string, startedAt time.Time) error {
	return s.exec(ctx,
		"INSERT INTO runs (id, started_at, outcome) VALUES (?, ?, ?)",
		id, startedAt.UTC().Format(timeLayout), string(OutcomeRunning),
	)
}

// FinishRun stores the final outcome and counters of a run.
func (s *Store) FinishRun(ctx context.Context, id string, finishedAt time.Time, outcome Outcome, stats RunStats, runErr error) error {
	var message sql.NullString
	if runErr != nil {
		message = sql.NullString{String: runErr.Error(), Valid: true}
	}
	return s.exec(ctx, `UPDATE runs SET
		finished_at = ?, outcome = ?,
		archives_extracted = ?, archives_deferred = ?, archives_failed = ?,
		folders_total = ?, folders_succeeded = ?, folders_failed = ?, folders_pending = ?,
		assets_uploaded = ?, assets_skipped = ?, error_message = ?
		WHERE id = ?`,
		finishedAt.UTC().Format(timeLayout), string(outcome),
		stats.ArchivesExtracted, stats.ArchivesDeferred, stats.ArchivesFailed,
		stats.FoldersTotal, stats.FoldersSucceeded, stats.FoldersFailed, stats.FoldersPending,
		stats.AssetsUploaded, stats.AssetsSkipped, message,
		id,
	)
}

// RecordFolder appends one folder result to a run.
func (s *Store) RecordFolder(ctx context.Context, result FolderResult) error {
	output := result.Output
	if len(output) > maxOutputBytes {
		output = output[len(output)-maxOutputBytes:]
	}
	deleted := 0
	if result.Deleted {
		deleted = 1
	}
	return s.exec(ctx, `INSERT INTO folder_results
		(run_id, account, folder, media_files, exit_code, uploaded, skipped, deleted, started_at, duration_ms, output)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.RunID, result.Account, result.Folder, result.MediaFiles, result.ExitCode,
		result.Uploaded, result.Skipped, deleted,
		result.StartedAt.UTC().Format(timeLayout), result.Duration.Milliseconds(), output,
	)
}

const runColumns = `id, started_at, finished_at, outcome,
	archives_extracted, archives_deferred, archives_failed,
	folders_total, folders_succeeded, folders_failed, folders_pending,
	assets_uploaded, assets_skipped, error_message`

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.queryRuns(ctx, "SELECT "+runColumns+" FROM runs ORDER BY started_at DESC, id DESC LIMIT ?", limit)
}

func (s *Store) queryRuns(ctx context.Context, query string, args ...any) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run      Run
			started  string
			finished sql.NullString
			outcome  string
			message  sql.NullString
		)
		if err := rows.Scan(&run.ID, &started, &finished, &outcome,
			&run.Stats.ArchivesExtracted, &run.Stats.ArchivesDeferred, &run.Stats.ArchivesFailed,
			&run.Stats.FoldersTotal, &run.Stats.FoldersSucceeded, &run.Stats.FoldersFailed, &run.Stats.FoldersPending,
			&run.Stats.AssetsUploaded, &run.Stats.AssetsSkipped, &message); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt = parseTime(started)
		if finished.Valid {
			run.FinishedAt = parseTime(finished.String)
		}
		run.Outcome = Outcome(outcome)
		run.Error = message.String
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// FolderResults returns the folder rows of a run in insertion order.
func (s *Store) FolderResults(ctx context.Context, runID string) ([]FolderResult, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, account, folder, media_files, exit_code,
		uploaded, skipped, deleted, started_at, duration_ms, output
		FROM folder_results WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query folder results: %w", err)
	}
	defer rows.Close()

	var results []FolderResult
	for rows.Next() {
		var (
			res      FolderResult
			deleted  int
			started  string
			duration int64
			output   sql.NullString
		)
		if err := rows.Scan(&res.RunID, &res.Account, &res.Folder, &res.MediaFiles, &res.ExitCode,
			&res.Uploaded, &res.Skipped, &deleted, &started, &duration, &output); err != nil {
			return nil, fmt.Errorf("scan folder result: %w", err)
		}
		res.Deleted = deleted != 0
		res.StartedAt = parseTime(started)
		res.Duration = time.Duration(duration) * time.Millisecond
		res.Output = output.String
		results = append(results, res)
	}
	return results, rows.Err()
}

// ErrRunNotFound is returned by GetRun for an unknown id.
var ErrRunNotFound = errors.New("run not found")

// GetRun loads one run by id or unambiguous id prefix.
func (s *Store) GetRun(ctx context.Context, idPrefix string) (Run, error) {
	idPrefix = strings.TrimSpace(idPrefix)
	if idPrefix == "" {
		return Run{}, fmt.Errorf("%w: empty id", ErrRunNotFound)
	}
	pattern := strings.NewReplacer("%", `\%`, "_", `\_`).Replace(idPrefix) + "%"
	runs, err := s.queryRuns(ctx, "SELECT "+runColumns+` FROM runs WHERE id LIKE ? ESCAPE '\' ORDER BY id LIMIT 2`, pattern)
	if err != nil {
		return Run{}, err
	}
	switch len(runs) {
	case 0:
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, idPrefix)
	case 1:
		return runs[0], nil
	default:
		if runs[0].ID == idPrefix {
			return runs[0], nil
		}
		return Run{}, fmt.Errorf("run id prefix %q is ambiguous", idPrefix)
	}
}

func parseTime(value string) time.Time {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
