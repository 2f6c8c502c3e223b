package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"photoimport/internal/config"
)

const userAgent = "photoimport/1.0"

// RunSummary is the part of a run worth telling a person about.
type RunSummary struct {
	RunID            string
	Folders          int
	Succeeded        int
	Failed           int
	Uploaded         int
	Skipped          int
	Pending          int
	ArchivesDeferred int
	ArchivesFailed   int
	Duration         time.Duration
}

// Service defines the notification surface used by the pipeline and CLI.
type Service interface {
	NotifyRunCompleted(ctx context.Context, summary RunSummary) error
	NotifyRunFailed(ctx context.Context, err error, stage string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := cfg.NotifyTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, summary RunSummary) error {
	return n.send(ctx, completedPayload(summary))
}

func completedPayload(s RunSummary) payload {
	if s.Folders == 0 && s.ArchivesDeferred == 0 && s.ArchivesFailed == 0 {
		return payload{
			title:    "Photo import - Idle",
			message:  "Nothing to import",
			tags:     []string{"photoimport", "idle"},
			priority: "low",
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📷 Uploaded %d, skipped %d from %d folder(s)", s.Uploaded, s.Skipped, s.Folders)
	if s.Duration > 0 {
		fmt.Fprintf(&b, " in %s", s.Duration.Round(time.Second))
	}
	if s.Failed > 0 {
		fmt.Fprintf(&b, "\n⚠️ %d folder(s) failed and were kept for retry", s.Failed)
	}
	if s.Pending > 0 {
		fmt.Fprintf(&b, "\n⏸ %d folder(s) not attempted", s.Pending)
	}
	if s.ArchivesDeferred > 0 {
		fmt.Fprintf(&b, "\n⏳ %d archive(s) still being written", s.ArchivesDeferred)
	}
	if s.ArchivesFailed > 0 {
		fmt.Fprintf(&b, "\n❌ %d archive(s) could not be extracted", s.ArchivesFailed)
	}

	data := payload{
		title:   "Photo import - Complete",
		message: b.String(),
		tags:    []string{"photoimport", "completed"},
	}
	if s.Failed > 0 || s.ArchivesFailed > 0 {
		data.title = "Photo import - Completed with failures"
		data.tags = []string{"photoimport", "warning"}
		data.priority = "high"
	}
	return data
}

func (n *ntfyService) NotifyRunFailed(ctx context.Context, err error, stage string) error {
	var builder strings.Builder
	builder.WriteString("❌ Import failed")
	if stage = strings.TrimSpace(stage); stage != "" {
		builder.WriteString(" during ")
		builder.WriteString(stage)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	return n.send(ctx, payload{
		title:    "Photo import - Error",
		message:  builder.String(),
		tags:     []string{"photoimport", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "Photo import - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"photoimport", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyRunCompleted(context.Context, RunSummary) error { return nil }
func (noopService) NotifyRunFailed(context.Context, error, string) error { return nil }
func (noopService) TestNotification(context.Context) error               { return nil }

// Enabled reports whether svc actually delivers notifications.
func Enabled(svc Service) bool {
	_, noop := svc.(noopService)
	return svc != nil && !noop
}
