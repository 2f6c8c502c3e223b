package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const probeTimeout = 15 * time.Second

// Requirement defines an external program photoimport shells out to.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	// Probe, when set, is run as extra arguments to the resolved binary. A
	// non-zero exit marks the requirement unavailable, e.g. a container
	// runtime whose daemon is down.
	Probe []string
}

// Status reports the availability of a requirement.
type Status struct {
	Name        string
	Command     string
	Path        string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(ctx context.Context, requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		results = append(results, check(ctx, req))
	}
	return results
}

func check(ctx context.Context, req Requirement) Status {
	cmd := strings.TrimSpace(req.Command)
	status := Status{
		Name:        req.Name,
		Command:     cmd,
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
	if cmd == "" {
		status.Detail = "command not configured"
		return status
	}
	path, err := exec.LookPath(cmd)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", cmd)
		return status
	}
	status.Path = path
	if len(req.Probe) > 0 {
		if detail := probe(ctx, path, req.Probe); detail != "" {
			status.Detail = detail
			return status
		}
	}
	status.Available = true
	return status
}

func probe(ctx context.Context, path string, args []string) string {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	output, err := exec.CommandContext(ctx, path, args...).CombinedOutput()
	if err == nil {
		return ""
	}
	label := strings.Join(append([]string{path}, args...), " ")
	if msg := lastLine(string(output)); msg != "" {
		return fmt.Sprintf("%s failed: %s", label, msg)
	}
	return fmt.Sprintf("%s failed: %v", label, err)
}

func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// Missing returns the unavailable statuses that are not optional.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status)
		}
	}
	return missing
}
