// Package notifications publishes run summaries to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// the pipeline can notify unconditionally. Callers depend only on the Service
// interface.
package notifications
