package lock

import (
	"strconv"
	"strings"
	"time"
)

// State classifies an existing lock file.
type State int

const (
	// StateAbsent means no lock file exists.
	StateAbsent State = iota
	// StateValid means a live owner holds the lock within the timeout.
	StateValid
	// StateStale means the owner is gone or the lock outlived the timeout.
	StateStale
	// StateCorrupt means the file does not hold a process identifier.
	StateCorrupt
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateValid:
		return "valid"
	case StateStale:
		return "stale"
	case StateCorrupt:
		return "corrupt"
	default:
		return "unknown"
	}
}

// Reclaimable reports whether a new instance may take over the lock.
func (s State) Reclaimable() bool {
	return s != StateValid
}

// Observation is what was read from the lock path.
type Observation struct {
	Exists  bool
	Content string
	ModTime time.Time
}

// Assessment is the result of evaluating an observation.
type Assessment struct {
	State  State
	PID    int
	Age    time.Duration
	Reason string
}

// Evaluate classifies a lock observation. It performs no I/O: liveness is
// answered by alive and the age is measured against now.
func Evaluate(obs Observation, alive func(int) bool, now time.Time, timeout time.Duration) Assessment {
	if !obs.Exists {
		return Assessment{State: StateAbsent}
	}

	pid, ok := parsePID(obs.Content)
	if !ok {
		return Assessment{State: StateCorrupt, Reason: "lock file does not contain a process id"}
	}

	age := now.Sub(obs.ModTime)
	if age < 0 {
		age = 0
	}
	result := Assessment{PID: pid, Age: age}

	if alive == nil || !alive(pid) {
		result.State = StateStale
		result.Reason = "owner process is not running"
		return result
	}
	if timeout > 0 && age > timeout {
		result.State = StateStale
		result.Reason = "lock is older than the timeout"
		return result
	}
	result.State = StateValid
	return result
}

func parsePID(content string) (int, bool) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return 0, false
	}
	pid, err := strconv.Atoi(trimmed)
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}
