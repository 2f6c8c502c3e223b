package logging

import (
	"context"
	"log/slog"

	"photoimport/internal/services"
)

const (
	// FieldComponent names the subsystem emitting the record. The console
	// handler renders it as a "component:" prefix instead of a key/value pair.
	FieldComponent = "component"
	// FieldRunID identifies one invocation of the pipeline.
	FieldRunID = "run_id"
	// FieldAccount names the staging account being processed.
	FieldAccount = "account"
	// FieldFolder is the media folder handed to the upload client.
	FieldFolder = "folder"
	// FieldArchive is the archive file being expanded.
	FieldArchive = "archive"
	// FieldEventType classifies warnings and errors for grepping.
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to check next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if account, ok := services.AccountFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldAccount, account))
	}
	if folder, ok := services.FolderFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldFolder, folder))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
