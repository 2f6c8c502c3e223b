package preflight

import (
	"context"
	"log/slog"

	"photoimport/internal/config"
	"photoimport/internal/logging"
	"photoimport/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// RunAll executes the local checks for the given config. Network checks are
// left to callers because a run must not fail while the server restarts.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir),
		CheckCredentials(cfg),
	}
	for _, status := range CheckSystemDeps(ctx, cfg) {
		result := Result{Name: status.Name, Passed: status.Available, Optional: status.Optional, Detail: status.Detail}
		if status.Available {
			result.Detail = status.Path
		}
		results = append(results, result)
	}
	return results
}

// Verify runs RunAll, logs optional failures, and returns a configuration
// error for the first required check that failed.
func Verify(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg == nil {
		return services.Wrap(services.ErrConfiguration, "preflight", "verify", "config is nil", nil)
	}
	logger = logging.WithContext(ctx, logging.NewComponentLogger(logger, "preflight"))
	for _, result := range RunAll(ctx, cfg) {
		if result.Passed {
			logger.Debug("preflight check passed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
			)
			continue
		}
		if result.Optional {
			logging.WarnWithContext(logger, "optional tool unavailable", "preflight_optional_missing",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
				logging.String(logging.FieldErrorHint, "install it or set archive.tool = \"builtin\""),
			)
			continue
		}
		return services.Wrap(services.ErrConfiguration, "preflight", result.Name, result.Detail, nil)
	}
	return nil
}
