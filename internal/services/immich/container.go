package immich

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"photoimport/internal/upload"
)

// MountPoint is where the folder appears inside the client container.
const MountPoint = "/import"

// ContainerClient runs the Immich CLI image once per folder with the folder
// bind-mounted read-only.
type ContainerClient struct {
	Runtime string
	Image   string
	Network string
	URL     string
	APIKey  string
}

// Args returns the runtime arguments for folder. The credential is passed
// through the environment so it never appears in the process list.
func (c *ContainerClient) Args(folder string) []string {
	args := []string{
		"run", "--rm",
		"--mount", mountSpec(folder),
		"-e", "IMMICH_INSTANCE_URL",
		"-e", "IMMICH_API_KEY",
	}
	if network := strings.TrimSpace(c.Network); network != "" {
		args = append(args, "--network", network)
	}
	return append(args, c.Image, "upload", "--recursive", MountPoint)
}

// mountSpec builds a read-only bind mount. --mount is parsed as CSV, so a
// source holding a comma or quote is quoted; colons need no escaping.
func mountSpec(folder string) string {
	source := "source=" + folder
	if strings.ContainsAny(source, ",\"\n") {
		source = `"` + strings.ReplaceAll(source, `"`, `""`) + `"`
	}
	return "type=bind," + source + ",target=" + MountPoint + ",readonly"
}

func (c *ContainerClient) Upload(ctx context.Context, folder string) (upload.Result, error) {
	abs, err := filepath.Abs(folder)
	if err != nil {
		return upload.Result{ExitCode: -1}, fmt.Errorf("resolve folder: %w", err)
	}
	cmd := exec.CommandContext(ctx, c.Runtime, c.Args(abs)...)
	cmd.Env = append(os.Environ(),
		"IMMICH_INSTANCE_URL="+InstanceURL(c.URL),
		"IMMICH_API_KEY="+c.APIKey,
	)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	err = cmd.Run()
	result := upload.Result{RawOutput: output.String()}
	if u, s, ok := upload.ParseCounts(result.RawOutput); ok {
		result.Uploaded, result.Skipped, result.CountsKnown = u, s, true
	}
	if err == nil {
		return result, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		if result.ExitCode < 0 {
			// Killed by a signal, typically the run being canceled.
			result.ExitCode = 1
		}
		return result, nil
	}
	result.ExitCode = -1
	return result, fmt.Errorf("%s run: %w", c.Runtime, err)
}

// InstanceURL returns the API base the CLI expects, which ends in /api.
func InstanceURL(base string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(base), "/")
	if strings.HasSuffix(trimmed, "/api") {
		return trimmed
	}
	return trimmed + "/api"
}
