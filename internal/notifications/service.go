package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"voiceloom/internal/config"
)

const userAgent = "Voiceloom-Go/0.1.0"

// Event identifies a pipeline milestone worth telling the user about.
type Event string

const (
	EventLabelingReady     Event = "labeling_ready"
	EventTrainingCompleted Event = "training_completed"
	EventTrainingFailed    Event = "training_failed"
	EventTest              Event = "test"
)

// Payload carries the event-specific fields used to format the message.
type Payload map[string]string

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventLabelingReady:     cfg.Notifications.LabelingReady,
			EventTrainingCompleted: cfg.Notifications.Training,
			EventTrainingFailed:    cfg.Notifications.Errors,
			EventTest:              true,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

// Publish formats and delivers the event. Disabled or unknown events are
// dropped without error.
func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled[event] {
		return nil
	}
	msg, ok := formatEvent(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func formatEvent(event Event, payload Payload) (message, bool) {
	get := func(key string) string { return strings.TrimSpace(payload[key]) }

	switch event {
	case EventLabelingReady:
		project := get("project")
		body := fmt.Sprintf("🎙️ Ready for labeling: %s", project)
		if segments := get("segments"); segments != "" {
			body = fmt.Sprintf("%s (%s segments)", body, segments)
		}
		return message{
			title: "Voiceloom - Labeling Ready",
			body:  body,
			tags:  []string{"voiceloom", "labeling", "ready"},
		}, true
	case EventTrainingCompleted:
		body := fmt.Sprintf("✅ Voice ready: %s", get("project"))
		if profile := get("profile"); profile != "" {
			body = fmt.Sprintf("%s\nProfile: %s", body, profile)
		}
		return message{
			title:    "Voiceloom - Training Complete",
			body:     body,
			tags:     []string{"voiceloom", "training", "completed"},
			priority: "high",
		}, true
	case EventTrainingFailed:
		cause := get("error")
		if cause == "" {
			cause = "unknown"
		}
		return message{
			title:    "Voiceloom - Training Failed",
			body:     fmt.Sprintf("❌ Training failed for %s: %s", get("project"), cause),
			tags:     []string{"voiceloom", "training", "failed"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Voiceloom - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"voiceloom", "test"},
			priority: "low",
		}, true
	}
	return message{}, false
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
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

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
