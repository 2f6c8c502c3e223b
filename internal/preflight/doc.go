// Package preflight provides readiness checks run before a pipeline touches
// the staging tree.
//
// Verify runs in the pipeline after the configuration is loaded and before
// the lock is taken. Required failures (staging root, credential, container
// runtime) become configuration errors; optional ones (the unzip tool) are
// logged and the run continues. The CLI uses the individual checks
// (CheckDirectoryAccess, CheckImmich) to display health without running.
package preflight
