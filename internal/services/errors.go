package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration    = errors.New("configuration error")
	ErrAlreadyRunning   = errors.New("another import is already running")
	ErrArchiveIntegrity = errors.New("archive integrity error")
	ErrInFlightArchive  = errors.New("archive still being written")
	ErrUploadFailure    = errors.New("upload failure")
	ErrExternalTool     = errors.New("external tool error")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ExitCode maps the outcome of a run to the process exit status. A run that
// found another instance holding the lock is a normal completion.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrAlreadyRunning):
		return 0
	default:
		return 1
	}
}

// IsLocal reports whether err is scoped to a single archive or folder and must
// not abort the rest of the run.
func IsLocal(err error) bool {
	return errors.Is(err, ErrArchiveIntegrity) ||
		errors.Is(err, ErrInFlightArchive) ||
		errors.Is(err, ErrUploadFailure)
}

// IsInterrupted reports whether err stems from a canceled run.
func IsInterrupted(err error) bool {
	return errors.Is(err, context.Canceled)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "import failure"
	}
	return strings.Join(parts, ": ")
}
