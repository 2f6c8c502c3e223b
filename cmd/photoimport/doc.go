// Command photoimport imports staged photo and video payloads into an Immich
// server.
//
// `photoimport run` is meant to be started by cron or a systemd timer. It
// exits 0 when the import completed, when there was nothing to import, and
// when another run already holds the lock; it exits 1 on configuration
// errors and when interrupted. The remaining commands only read state.
package main
