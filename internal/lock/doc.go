// Package lock keeps a single import run active per staging area.
//
// The lock file holds the owner's process id as plain text and its
// modification time is the age reference. Evaluate classifies an existing
// file without side effects; Manager decides whether to reclaim it. A
// short-lived flock guard serializes instances that start at the same time.
package lock
