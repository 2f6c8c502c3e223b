// Package logs reads back the import log file written by the logging
// package.
//
// Last returns the trailing lines of the file with an offset that Follow can
// resume from, polling for appended lines until the context ends. Filter
// narrows lines to a single run by its run_id field.
package logs
