// Package logging assembles the slog loggers used by photoimport.
//
// Console output is one line per record, "[YYYY-MM-DD HH:MM:SS] message",
// followed by key=value attributes. WARN and ERROR records carry a level
// label, coloured only when the destination is a terminal. The same lines
// can be duplicated into a persistent log file, or emitted as JSON for log
// shippers. Context helpers tag records with the run ID, staging account,
// and folder in flight.
package logging
