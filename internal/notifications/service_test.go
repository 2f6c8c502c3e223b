package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"photoimport/internal/config"
	"photoimport/internal/notifications"
)

type captured struct {
	title    string
	body     string
	tags     string
	priority string
}

func ntfyServer(t *testing.T, status int) (*httptest.Server, *[]captured) {
	t.Helper()
	var got []captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = append(got, captured{
			title:    r.Header.Get("Title"),
			body:     string(body),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
		})
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func serviceFor(url string) notifications.Service {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = url
	return notifications.NewService(&cfg)
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg)
	if notifications.Enabled(svc) {
		t.Fatal("expected noop service without a topic")
	}
	if err := svc.NotifyRunCompleted(context.Background(), notifications.RunSummary{Folders: 1}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		summary        notifications.RunSummary
		expectTitle    string
		expectMessage  []string
		expectTags     string
		expectPriority string
	}{
		{
			name:          "clean run",
			summary:       notifications.RunSummary{Folders: 2, Succeeded: 2, Uploaded: 5, Skipped: 1, Duration: 61 * time.Second},
			expectTitle:   "Photo import - Complete",
			expectMessage: []string{"📷 Uploaded 5, skipped 1 from 2 folder(s) in 1m1s"},
			expectTags:    "photoimport,completed",
		},
		{
			name:           "failed folder",
			summary:        notifications.RunSummary{Folders: 2, Succeeded: 1, Failed: 1, Uploaded: 3, ArchivesDeferred: 1},
			expectTitle:    "Photo import - Completed with failures",
			expectMessage:  []string{"1 folder(s) failed", "1 archive(s) still being written"},
			expectTags:     "photoimport,warning",
			expectPriority: "high",
		},
		{
			name:           "nothing staged",
			summary:        notifications.RunSummary{},
			expectTitle:    "Photo import - Idle",
			expectMessage:  []string{"Nothing to import"},
			expectTags:     "photoimport,idle",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv, got := ntfyServer(t, http.StatusOK)
			if err := serviceFor(srv.URL).NotifyRunCompleted(context.Background(), tc.summary); err != nil {
				t.Fatalf("NotifyRunCompleted: %v", err)
			}
			if len(*got) != 1 {
				t.Fatalf("expected one request, got %d", len(*got))
			}
			req := (*got)[0]
			if req.title != tc.expectTitle {
				t.Fatalf("title = %q, want %q", req.title, tc.expectTitle)
			}
			for _, fragment := range tc.expectMessage {
				if !strings.Contains(req.body, fragment) {
					t.Fatalf("message %q missing %q", req.body, fragment)
				}
			}
			if req.tags != tc.expectTags {
				t.Fatalf("tags = %q, want %q", req.tags, tc.expectTags)
			}
			if req.priority != tc.expectPriority {
				t.Fatalf("priority = %q, want %q", req.priority, tc.expectPriority)
			}
		})
	}
}

func TestNotifyRunFailed(t *testing.T) {
	srv, got := ntfyServer(t, http.StatusOK)
	err := serviceFor(srv.URL).NotifyRunFailed(context.Background(), errors.New("staging dir missing"), "preflight")
	if err != nil {
		t.Fatalf("NotifyRunFailed: %v", err)
	}
	req := (*got)[0]
	if req.body != "❌ Import failed during preflight: staging dir missing" || req.priority != "high" {
		t.Fatalf("unexpected request %+v", req)
	}
}

func TestNtfyErrorStatus(t *testing.T) {
	srv, _ := ntfyServer(t, http.StatusForbidden)
	err := serviceFor(srv.URL).TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
