package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"photoimport/internal/services"
	"photoimport/internal/testsupport"
)

type cliTestEnv struct {
	configPath string
	stagingDir string
	lockPath   string
	uploads    *atomic.Int64
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	env := &cliTestEnv{
		configPath: filepath.Join(base, "config.toml"),
		stagingDir: filepath.Join(base, "staging"),
		lockPath:   filepath.Join(base, "run", "photoimport.lock"),
		uploads:    &atomic.Int64{},
	}
	if err := os.MkdirAll(env.stagingDir, 0o755); err != nil {
		t.Fatalf("mkdir staging: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/assets" || r.Header.Get("x-api-key") != "cli-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if _, _, err := r.FormFile("assetData"); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		env.uploads.Add(1)
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id":"asset","status":"created"}`)
	}))
	t.Cleanup(srv.Close)

	content := fmt.Sprintf(`[paths]
staging_dir = %q
lock_path = %q
history_db = %q

[immich]
url = %q
api_key = "cli-key"

[import]
delay_seconds = 0

[upload]
mode = "api"

[archive]
tool = "builtin"
settle_seconds = 0
`, env.stagingDir, env.lockPath, filepath.Join(base, "state", "history.db"), srv.URL)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestRunUploadsAndRecordsHistory(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteTree(t, env.stagingDir, map[string]string{
		"vacation/1.jpg": "a",
		"vacation/2.mp4": "b",
	})
	testsupport.WriteZip(t, filepath.Join(env.stagingDir, "export.zip"), map[string]string{
		"Takeout/Google Photos/Trip/c.jpg":      "c",
		"Takeout/Google Photos/Trip/c.jpg.json": "{}",
	})

	out, _, err := runCLI(t, []string{"scan"}, env.configPath)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	requireContains(t, out, "export.zip")
	requireContains(t, out, "vacation")
	requireContains(t, out, "1 archive(s)")

	if _, _, err := runCLI(t, []string{"run"}, env.configPath); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := env.uploads.Load(); got != 3 {
		t.Fatalf("expected 3 uploaded assets, got %d", got)
	}
	if left := testsupport.ListFiles(t, env.stagingDir); len(left) != 0 {
		t.Fatalf("expected staging to be emptied, found %v", left)
	}

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "completed")
	requireContains(t, out, "2/2")
}

func TestScanEmptyStaging(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"scan"}, env.configPath)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	requireContains(t, out, "nothing to import")
}

func TestRunDryRunChangesNothing(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteTree(t, env.stagingDir, map[string]string{"album/a.jpg": "a"})

	out, _, err := runCLI(t, []string{"run", "--dry-run"}, env.configPath)
	if err != nil {
		t.Fatalf("run --dry-run: %v", err)
	}
	requireContains(t, out, "album")
	if env.uploads.Load() != 0 {
		t.Fatalf("dry run must not upload")
	}
	if _, err := os.Stat(filepath.Join(env.stagingDir, "album", "a.jpg")); err != nil {
		t.Fatalf("dry run must not delete: %v", err)
	}
}

func TestRunWhileLockedExitsZero(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteTree(t, env.stagingDir, map[string]string{"album/a.jpg": "a"})
	// The parent of the test process is alive and is not us.
	testsupport.WriteTree(t, filepath.Dir(env.lockPath), map[string]string{
		filepath.Base(env.lockPath): fmt.Sprintf("%d\n", os.Getppid()),
	})

	_, _, err := runCLI(t, []string{"run"}, env.configPath)
	if services.ExitCode(err) != 0 {
		t.Fatalf("expected exit code 0 while locked, got err=%v", err)
	}
	if env.uploads.Load() != 0 {
		t.Fatalf("locked run must not upload")
	}

	out, _, err := runCLI(t, []string{"lock", "status"}, env.configPath)
	if err != nil {
		t.Fatalf("lock status: %v", err)
	}
	requireContains(t, out, "valid")
	requireContains(t, out, fmt.Sprint(os.Getppid()))
}

func TestLockStatusAbsent(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"lock", "status"}, env.configPath)
	if err != nil {
		t.Fatalf("lock status: %v", err)
	}
	requireContains(t, out, "absent")
}

func TestHistoryBeforeFirstRun(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No runs recorded yet")
}

func TestConfigInitShowAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v\n%s", err, out)
	}
	requireContains(t, out, "Configuration valid")

	out, _, err = runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "****-key")
	if strings.Contains(out, "cli-key") {
		t.Fatalf("api key must be masked:\n%s", out)
	}

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse to overwrite")
	}
}

func TestConfigValidateReportsMissingStaging(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.Remove(env.stagingDir); err != nil {
		t.Fatal(err)
	}
	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err == nil {
		t.Fatal("expected validation failure")
	}
	requireContains(t, out, "does not exist")
}

func TestMissingCredentialIsConfigurationError(t *testing.T) {
	env := setupCLITestEnv(t)
	data, err := os.ReadFile(env.configPath)
	if err != nil {
		t.Fatal(err)
	}
	stripped := strings.Replace(string(data), `api_key = "cli-key"`, "", 1)
	if err := os.WriteFile(env.configPath, []byte(stripped), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("IMPORT_API_KEY", "")
	t.Setenv("IMMICH_API_KEY", "")

	_, _, err = runCLI(t, []string{"run"}, env.configPath)
	if services.ExitCode(err) != 1 {
		t.Fatalf("expected exit code 1, got err=%v", err)
	}
}

func TestTestNotifyDisabled(t *testing.T) {
	env := setupCLITestEnv(t)
	t.Setenv("IMPORT_NTFY_TOPIC", "")
	out, _, err := runCLI(t, []string{"test-notify"}, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Notifications disabled")
}

func TestLogsShowsRunOutput(t *testing.T) {
	env := setupCLITestEnv(t)
	logPath := filepath.Join(t.TempDir(), "import.log")
	t.Setenv("IMPORT_LOG_FILE", logPath)
	testsupport.WriteTree(t, env.stagingDir, map[string]string{"trip/1.jpg": "a"})

	if _, _, err := runCLI(t, []string{"run"}, env.configPath); err != nil {
		t.Fatalf("run: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "-n", "20"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "Import run complete")

	out, _, err = runCLI(t, []string{"logs", "--run", "no-such-run"}, env.configPath)
	if err != nil {
		t.Fatalf("logs --run: %v", err)
	}
	if strings.TrimSpace(out) != "" {
		t.Fatalf("expected no lines for unknown run, got %q", out)
	}
}

func TestLogsWithoutLogFile(t *testing.T) {
	env := setupCLITestEnv(t)
	t.Setenv("IMPORT_LOG_FILE", "")
	out, _, err := runCLI(t, []string{"logs"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "No log file configured")
}
