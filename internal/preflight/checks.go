package preflight

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"photoimport/internal/config"
	"photoimport/internal/deps"
)

// CheckImmich verifies server connectivity and that apiKey is accepted.
func CheckImmich(ctx context.Context, baseURL, apiKey string) Result {
	const name = "Immich"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}
	if strings.TrimSpace(apiKey) == "" {
		return Result{Name: name, Detail: "missing api key"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/api/users/me", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("auth check failed (%v)", err)}
	}
	req.Header.Set("x-api-key", strings.TrimSpace(apiKey))
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("auth check failed (%v)", err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return Result{Name: name, Passed: true, Detail: "Reachable"}
	case http.StatusUnauthorized, http.StatusForbidden:
		return Result{Name: name, Detail: "auth failed (invalid api key)"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("auth check failed (%d)", resp.StatusCode)}
	}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "path not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCredentials verifies every staging account has an API key.
func CheckCredentials(cfg *config.Config) Result {
	const name = "Credentials"

	var missing []string
	accounts := cfg.StagingAccounts()
	for _, account := range accounts {
		if strings.TrimSpace(account.APIKey) == "" {
			missing = append(missing, account.Label())
		}
	}
	if len(missing) > 0 {
		return Result{Name: name, Detail: "missing api key for " + strings.Join(missing, ", ")}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d account(s)", len(accounts))}
}

// CheckSystemDeps evaluates the external programs the configured upload mode
// and archive tool shell out to.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	var requirements []deps.Requirement
	if cfg.Upload.Mode == config.UploadModeContainer {
		requirements = append(requirements, deps.Requirement{
			Name:        "Container runtime",
			Command:     cfg.Upload.ContainerRuntime,
			Description: "Required to run the upload client image",
			Probe:       []string{"info"},
		})
	}
	if cfg.Archive.Tool == config.ArchiveToolUnzip {
		requirements = append(requirements, deps.Requirement{
			Name:        "unzip",
			Command:     "unzip",
			Description: "Tests and extracts staged archives",
			Optional:    true,
		})
	}
	return deps.CheckBinaries(ctx, requirements)
}
