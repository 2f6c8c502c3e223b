// Package pipeline orchestrates one import run.
//
// A Runner checks the configuration, takes the single-instance lock, and then
// works through each staging account in name order: expand archives, flatten
// export bundles, enumerate eligible folders, upload them one by one, and
// prune the extraction scratch directory. The lock is released on every
// return path. Per-archive and per-folder failures are counted in the Report
// and never abort the run; only configuration problems, a held lock, or a
// canceled context are returned as errors.
package pipeline
