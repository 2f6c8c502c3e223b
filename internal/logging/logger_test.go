package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"photoimport/internal/config"
	"photoimport/internal/logging"
	"photoimport/internal/services"
)

var linePattern = regexp.MustCompile(`^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\] `)

func newTestLogger(t *testing.T, w io.Writer, level string) *slog.Logger {
	t.Helper()
	return slog.New(logging.NewWriterHandler(w, level))
}

func TestConsoleLineFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(t, &buf, "info")

	logger.Info("Uploading folder", logging.String("folder", "/import/vacation"))

	line := strings.TrimSpace(buf.String())
	if !linePattern.MatchString(line) {
		t.Fatalf("line missing timestamp prefix: %q", line)
	}
	if !strings.HasSuffix(line, "] Uploading folder folder=/import/vacation") {
		t.Fatalf("unexpected line: %q", line)
	}
}

func TestConsoleValueFormatting(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(t, &buf, "info")

	logger.Info("Extracting archive",
		logging.String("folder", "Summer trip"),
		logging.Bytes("size", 5*1024*1024+512*1024),
		logging.Duration("elapsed", 1234567*time.Microsecond),
		logging.String("empty", ""),
	)

	line := buf.String()
	for _, want := range []string{
		`folder="Summer trip"`,
		`size="5.5 MiB"`,
		`elapsed=1.235s`,
		`empty=""`,
	} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %s in %q", want, line)
		}
	}
}

func TestByteSizeString(t *testing.T) {
	cases := map[logging.ByteSize]string{
		0:                      "0 B",
		1023:                   "1023 B",
		1024:                   "1.0 KiB",
		3 * 1024 * 1024 * 1024: "3.0 GiB",
	}
	for size, want := range cases {
		if got := size.String(); got != want {
			t.Fatalf("ByteSize(%d) = %q, want %q", int64(size), got, want)
		}
	}
}

func TestConsoleLevelLabelsAndComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewComponentLogger(newTestLogger(t, &buf, "debug"), "lock")

	logger.Debug("checking lock")
	logger.Warn("stale lock", logging.Int("pid", 42))
	logger.Error("boom", logging.Error(errors.New("disk full")))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "] DEBUG checking lock component=lock") {
		t.Fatalf("unexpected debug line: %q", lines[0])
	}
	if !strings.Contains(lines[1], "] WARN stale lock pid=42 component=lock") {
		t.Fatalf("unexpected warn line: %q", lines[1])
	}
	if !strings.Contains(lines[2], `] ERROR boom error="disk full" component=lock`) {
		t.Fatalf("unexpected error line: %q", lines[2])
	}
	if strings.Contains(buf.String(), "\x1b[") {
		t.Fatal("writer handler must not emit colour codes")
	}
}

func TestConsoleInfoLineKeepsMessageFirst(t *testing.T) {
	var buf bytes.Buffer
	base := logging.NewComponentLogger(newTestLogger(t, &buf, "info"), "pipeline")
	logging.NewComponentLogger(base, "upload").Info("Import run started", logging.Int("accounts", 1))

	line := strings.TrimSpace(buf.String())
	if !linePattern.MatchString(line) {
		t.Fatalf("line missing timestamp prefix: %q", line)
	}
	if !strings.HasSuffix(line, "] Import run started accounts=1 component=upload") {
		t.Fatalf("unexpected line: %q", line)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(t, &buf, "warn")
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected filtering result: %q", buf.String())
	}
}

func TestWithContextAddsRunFields(t *testing.T) {
	var buf bytes.Buffer
	ctx := services.WithRunID(context.Background(), "run-1")
	ctx = services.WithAccount(ctx, "lauren")

	logging.WithContext(ctx, newTestLogger(t, &buf, "info")).Info("start")

	out := buf.String()
	if !strings.Contains(out, "run_id=run-1") || !strings.Contains(out, "account=lauren") {
		t.Fatalf("expected context fields, got %q", out)
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logging.WarnWithContext(newTestLogger(t, &buf, "info"), "archive skipped", "archive_in_flight",
		logging.String(logging.FieldImpact, "retried next run"))

	out := buf.String()
	if !strings.Contains(out, "event_type=archive_in_flight") {
		t.Fatalf("missing event type: %q", out)
	}
	if !strings.Contains(out, `impact="retried next run"`) {
		t.Fatalf("caller impact should win: %q", out)
	}
	if !strings.Contains(out, "error_hint=") {
		t.Fatalf("missing default hint: %q", out)
	}
}

func TestNewWritesToLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "import.log")
	logger, err := logging.New(logging.Options{Level: "info", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("Import completed", logging.Int("uploaded", 3))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := strings.TrimSpace(string(data))
	if !linePattern.MatchString(line) || !strings.HasSuffix(line, "Import completed uploaded=3") {
		t.Fatalf("unexpected file line: %q", line)
	}
}

func TestNewJSONFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "import.json")
	logger, err := logging.New(logging.Options{Level: "info", Format: "json", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("hello",
		logging.String("account", "rusty"),
		logging.Bytes("size", 2048),
		logging.Duration("elapsed", 1500*time.Millisecond),
	)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &payload); err != nil {
		t.Fatalf("decode json line: %v", err)
	}
	if payload["msg"] != "hello" || payload["level"] != "info" || payload["account"] != "rusty" {
		t.Fatalf("unexpected payload: %v", payload)
	}
	if payload["size"] != float64(2048) || payload["elapsed"] != 1.5 {
		t.Fatalf("expected raw size and seconds, got %v", payload)
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("expected ts key: %v", payload)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNewFromConfigTeesToFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogFile = filepath.Join(t.TempDir(), "import.log")
	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("tee check")
	data, err := os.ReadFile(cfg.Paths.LogFile)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "tee check") {
		t.Fatalf("expected line in log file, got %q", data)
	}
}

func TestTeeLoggerDuplicates(t *testing.T) {
	var a, b bytes.Buffer
	logger := logging.TeeLogger(newTestLogger(t, &a, "info"), logging.NewWriterHandler(&b, "info"))
	logger.Info("twice")
	if !strings.Contains(a.String(), "twice") || !strings.Contains(b.String(), "twice") {
		t.Fatalf("expected both outputs, got %q and %q", a.String(), b.String())
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("nop logger should not be enabled")
	}
}
