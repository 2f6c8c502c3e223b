package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"photoimport/internal/archive"
	"photoimport/internal/config"
	"photoimport/internal/history"
	"photoimport/internal/lock"
	"photoimport/internal/logging"
	"photoimport/internal/notifications"
	"photoimport/internal/preflight"
	"photoimport/internal/services"
	"photoimport/internal/services/immich"
	"photoimport/internal/upload"
)

// ClientFactory builds the upload client used for one account.
type ClientFactory func(account config.Account) upload.Client

// Dependencies replaces the collaborators a Runner talks to. Zero values
// select the production implementations.
type Dependencies struct {
	Clients  ClientFactory
	Expander archive.Expander
	Notifier notifications.Service
	Sleep    services.SleepFunc
	// LockOptions tune the lock manager, e.g. a fake liveness check.
	LockOptions []lock.Option
	// SkipPreflight disables the readiness checks; tests that stub every
	// external tool use it.
	SkipPreflight bool
	Now           func() time.Time
}

// Runner executes import runs for one configuration.
type Runner struct {
	cfg *config.Config
	// base is handed to sub-components, which add their own component.
	base   *slog.Logger
	logger *slog.Logger
	deps   Dependencies
}

// New builds a Runner. cfg must already be validated.
func New(cfg *config.Config, logger *slog.Logger, deps Dependencies) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	if deps.Clients == nil {
		deps.Clients = func(account config.Account) upload.Client {
			return immich.NewClient(cfg, account.APIKey, logger)
		}
	}
	if deps.Expander == nil {
		deps.Expander = archive.NewExpander(cfg)
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewService(cfg)
	}
	if deps.Sleep == nil {
		deps.Sleep = services.Sleep
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Runner{
		cfg:    cfg,
		base:   logger,
		logger: logging.NewComponentLogger(logger, "pipeline"),
		deps:   deps,
	}
}

// Run performs one import. A run that finds another instance holding the
// lock returns services.ErrAlreadyRunning without touching the staging tree.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	if r.cfg == nil {
		return Report{}, services.Wrap(services.ErrConfiguration, "pipeline", "run", "config is nil", nil)
	}
	if !r.deps.SkipPreflight {
		if err := preflight.Verify(ctx, r.cfg, r.base); err != nil {
			logging.ErrorWithContext(r.logger, "Preflight failed; nothing was changed", "preflight_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "fix the configuration and rerun"),
			)
			r.notifyFailure(ctx, err, "preflight")
			return Report{}, err
		}
	}
	if err := r.cfg.EnsureDirectories(); err != nil {
		return Report{}, services.Wrap(services.ErrConfiguration, "pipeline", "prepare directories", "", err)
	}

	manager := lock.NewManager(r.cfg.Paths.LockPath, r.cfg.LockTimeout(), r.base, r.deps.LockOptions...)
	var report Report
	err := manager.Run(ctx, func(ctx context.Context) error {
		var runErr error
		report, runErr = r.locked(ctx)
		return runErr
	})
	if errors.Is(err, services.ErrAlreadyRunning) {
		r.logger.Info("Another import is already running; exiting", logging.Error(err))
	}
	return report, err
}

func (r *Runner) locked(ctx context.Context) (Report, error) {
	report := Report{RunID: uuid.NewString(), StartedAt: r.deps.Now()}
	ctx = services.WithRunID(ctx, report.RunID)
	logger := logging.WithContext(ctx, r.logger)

	ledger := r.openHistory(ctx, logger, report)
	if ledger != nil {
		defer ledger.Close()
	}

	logger.Info("Import run started",
		logging.String("staging_dir", r.cfg.Paths.StagingDir),
		logging.Bool("delete_on_success", r.cfg.Import.DeleteOnSuccess),
	)

	var runErr error
	for _, account := range r.cfg.StagingAccounts() {
		accountReport, err := r.processAccount(ctx, account, ledger, report.RunID)
		report.Accounts = append(report.Accounts, accountReport)
		if err != nil {
			runErr = err
			break
		}
	}
	r.pruneScratchRoot(logger)

	report.FinishedAt = r.deps.Now()
	report.Err = runErr
	r.logSummary(logger, &report)
	r.notify(ctx, logger, report)

	if ledger != nil {
		if err := ledger.FinishRun(ctx, report.RunID, report.FinishedAt, report.Outcome(), report.Stats(), runErr); err != nil {
			logger.Debug("record run outcome failed", logging.Error(err))
		}
	}
	return report, runErr
}

// openHistory returns nil when the ledger is disabled or unusable; history
// never blocks an import.
func (r *Runner) openHistory(ctx context.Context, logger *slog.Logger, report Report) *history.Store {
	if !r.cfg.History.Enabled {
		return nil
	}
	store, err := history.Open(r.cfg.Paths.HistoryDB)
	if err != nil {
		logging.WarnWithContext(logger, "Run history unavailable", "history_open_failed",
			logging.String("path", r.cfg.Paths.HistoryDB),
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run is not recorded"),
		)
		return nil
	}
	if err := store.BeginRun(ctx, report.RunID, report.StartedAt); err != nil {
		logging.WarnWithContext(logger, "Run history unavailable", "history_begin_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run is not recorded"),
		)
		_ = store.Close()
		return nil
	}
	return store
}

func (r *Runner) logSummary(logger *slog.Logger, report *Report) {
	if report.NothingToImport() {
		logger.Info("nothing to import", logging.String(logging.FieldEventType, "run_nothing_to_import"))
		return
	}
	totals := report.Upload()
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "run_summary"),
		logging.Int("folders", totals.Total),
		logging.Int("succeeded", totals.Succeeded),
		logging.Int("failed", totals.Failed),
		logging.Int("uploaded", totals.Uploaded),
		logging.Int("skipped", totals.Skipped),
		logging.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt).Round(time.Second)),
	}
	if totals.Pending > 0 {
		attrs = append(attrs, logging.Int("pending", totals.Pending))
	}
	stats := report.Stats()
	if stats.ArchivesDeferred > 0 || stats.ArchivesFailed > 0 {
		attrs = append(attrs,
			logging.Int("archives_deferred", stats.ArchivesDeferred),
			logging.Int("archives_failed", stats.ArchivesFailed),
		)
	}
	msg := "Import run complete"
	if report.Err != nil {
		msg = fmt.Sprintf("Import run stopped: %v", report.Err)
	}
	logger.Info(msg, logging.Args(attrs...)...)
}

func (r *Runner) notify(ctx context.Context, logger *slog.Logger, report Report) {
	if report.Err != nil && !services.IsInterrupted(report.Err) {
		r.notifyFailure(ctx, report.Err, "import")
		return
	}
	if report.NothingToImport() && report.Stats().ArchivesDeferred == 0 && !r.cfg.Notifications.NotifyEmptyRuns {
		return
	}
	totals := report.Upload()
	stats := report.Stats()
	// Delivery must not be cut short by the signal that ended the run.
	err := r.deps.Notifier.NotifyRunCompleted(context.WithoutCancel(ctx), notifications.RunSummary{
		RunID:            report.RunID,
		Folders:          totals.Total,
		Succeeded:        totals.Succeeded,
		Failed:           totals.Failed,
		Uploaded:         totals.Uploaded,
		Skipped:          totals.Skipped,
		Pending:          totals.Pending,
		ArchivesDeferred: stats.ArchivesDeferred,
		ArchivesFailed:   stats.ArchivesFailed,
		Duration:         report.FinishedAt.Sub(report.StartedAt),
	})
	if err != nil {
		logging.WarnWithContext(logger, "Run notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "import results are still in the log and history"),
		)
	}
}

func (r *Runner) notifyFailure(ctx context.Context, runErr error, stage string) {
	if err := r.deps.Notifier.NotifyRunFailed(context.WithoutCancel(ctx), runErr, stage); err != nil {
		r.logger.Debug("failure notification failed", logging.Error(err))
	}
}
