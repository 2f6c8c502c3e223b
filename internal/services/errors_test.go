package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestWrapKeepsMarkerAndCause(t *testing.T) {
	cause := errors.New("exit status 3")
	err := Wrap(ErrArchiveIntegrity, "archive", "test", "photos.zip", cause)

	if !errors.Is(err, ErrArchiveIntegrity) {
		t.Fatalf("expected marker to be preserved: %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be preserved: %v", err)
	}
	if !strings.Contains(err.Error(), "archive: test: photos.zip") {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := Wrap(nil, "", "", "", nil)
	if !errors.Is(err, ErrExternalTool) {
		t.Fatalf("expected default marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "import failure") {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"already running", Wrap(ErrAlreadyRunning, "lock", "acquire", "pid 42", nil), 0},
		{"configuration", Wrap(ErrConfiguration, "preflight", "", "staging missing", nil), 1},
		{"interrupted", fmt.Errorf("run: %w", context.Canceled), 1},
		{"other", errors.New("boom"), 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExitCode(tc.err); got != tc.want {
				t.Fatalf("ExitCode(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}

func TestIsLocal(t *testing.T) {
	if !IsLocal(Wrap(ErrUploadFailure, "upload", "", "", nil)) {
		t.Fatal("upload failure should be local")
	}
	if IsLocal(Wrap(ErrConfiguration, "config", "", "", nil)) {
		t.Fatal("configuration error should not be local")
	}
}

func TestSleepHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if err := Sleep(context.Background(), 0); err != nil {
		t.Fatalf("zero sleep should return nil, got %v", err)
	}
}
