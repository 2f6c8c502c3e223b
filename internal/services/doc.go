// Package services defines shared utilities consumed by the import components
// and the external upload integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, staging accounts, and folder paths
//     for logging.
//   - Structured error markers plus the Wrap helper that separate fatal
//     configuration failures from failures local to one archive or folder.
//   - ExitCode, which turns the outcome of a run into the process status.
//
// Use these helpers when wiring new components so failure handling stays
// uniform: local errors are logged and counted, never escalated.
package services
