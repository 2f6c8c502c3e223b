package services

import "context"

type contextKey string

const (
	runIDKey   contextKey = "run_id"
	accountKey contextKey = "account"
	folderKey  contextKey = "folder"
)

// WithRunID annotates context with the run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, runIDKey)
}

// WithAccount annotates context with the staging account being processed.
func WithAccount(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, accountKey, name)
}

// AccountFromContext extracts the staging account if present.
func AccountFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, accountKey)
}

// WithFolder annotates context with the media folder being uploaded.
func WithFolder(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, folderKey, path)
}

// FolderFromContext extracts the media folder if present.
func FolderFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, folderKey)
}

func stringValue(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(key).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
