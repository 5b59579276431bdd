package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"voiceloom/internal/config"
	"voiceloom/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventTrainingCompleted, notifications.Payload{"project": "narrator"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:  "labeling ready",
			event: notifications.EventLabelingReady,
			payload: notifications.Payload{
				"project":  "narrator",
				"segments": "42",
			},
			expectTitle:   "Voiceloom - Labeling Ready",
			expectMessage: "🎙️ Ready for labeling: narrator (42 segments)",
			expectTags:    "voiceloom,labeling,ready",
		},
		{
			name:  "training completed",
			event: notifications.EventTrainingCompleted,
			payload: notifications.Payload{
				"project": "narrator",
				"profile": "ab12cd34",
			},
			expectTitle:    "Voiceloom - Training Complete",
			expectMessage:  "✅ Voice ready: narrator\nProfile: ab12cd34",
			expectTags:     "voiceloom,training,completed",
			expectPriority: "high",
		},
		{
			name:  "training failed",
			event: notifications.EventTrainingFailed,
			payload: notifications.Payload{
				"project": "narrator",
				"error":   "s1_train.py exited with 1",
			},
			expectTitle:    "Voiceloom - Training Failed",
			expectMessage:  "❌ Training failed for narrator: s1_train.py exited with 1",
			expectTags:     "voiceloom,training,failed",
			expectPriority: "high",
		},
		{
			name:           "test",
			event:          notifications.EventTest,
			payload:        nil,
			expectTitle:    "Voiceloom - Test",
			expectMessage:  "🧪 Notification system test",
			expectTags:     "voiceloom,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Fatalf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceIgnoresDisabledEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected call for disabled event: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.LabelingReady = false
	cfg.Notifications.Training = false
	cfg.Notifications.Errors = false

	svc := notifications.NewService(&cfg)
	disabled := []notifications.Event{
		notifications.EventLabelingReady,
		notifications.EventTrainingCompleted,
		notifications.EventTrainingFailed,
	}

	for _, event := range disabled {
		if err := svc.Publish(context.Background(), event, notifications.Payload{"project": "ignored"}); err != nil {
			t.Fatalf("expected no error for disabled event %s, got %v", event, err)
		}
	}
}

func TestNtfyServiceSurfacesHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	err := svc.Publish(context.Background(), notifications.EventTest, nil)
	if err == nil {
		t.Fatal("expected error from 429 response")
	}
}
