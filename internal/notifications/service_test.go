package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"tagprint/internal/config"
	"tagprint/internal/delivery"
	"tagprint/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventFailed, notifications.Payload{"unit": "SN1"}); err != nil {
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
			name:          "delivered",
			event:         notifications.EventDelivered,
			payload:       notifications.Payload{"unit": "SN-100", "transport": "socket"},
			expectTitle:   "tagprint - Printed",
			expectMessage: "🏷️ Printed: SN-100 via socket",
			expectTags:    "tagprint,print,delivered",
		},
		{
			name:          "fallback",
			event:         notifications.EventFallback,
			payload:       notifications.Payload{"unit": "SN-101", "path": "/labels/tagcode_SN-101_1.zpl"},
			expectTitle:   "tagprint - Saved to File",
			expectMessage: "📄 Printer unreachable, saved SN-101 to file\nFile: /labels/tagcode_SN-101_1.zpl",
			expectTags:    "tagprint,print,fallback",
		},
		{
			name:           "failed",
			event:          notifications.EventFailed,
			payload:        notifications.Payload{"unit": "SN-102", "reason": "all transports failed"},
			expectTitle:    "tagprint - Print Failed",
			expectMessage:  "❌ Print failed for SN-102: all transports failed",
			expectTags:     "tagprint,error,alert",
			expectPriority: "high",
		},
		{
			name:          "printer attached",
			event:         notifications.EventPrinterAttached,
			payload:       notifications.Payload{"device": "usb/lp0"},
			expectTitle:   "tagprint - Printer Attached",
			expectMessage: "🔌 USB printer attached: usb/lp0",
			expectTags:    "tagprint,usb,attached",
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
					t.Errorf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Errorf("read body: %v", err)
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

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic not found", http.StatusNotFound)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventTestNotification, nil); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestReporterHonoursToggles(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Delivered = false
	cfg.Notifications.Fallback = true
	cfg.Notifications.Failures = true

	reporter := notifications.Reporter(notifications.NewService(&cfg), &cfg, nil)
	ctx := context.Background()
	reporter.Report(ctx, delivery.Outcome{JobID: "1", Kind: delivery.KindDelivered})
	reporter.Report(ctx, delivery.Outcome{JobID: "2", Kind: delivery.KindFellBack})
	reporter.Report(ctx, delivery.Outcome{JobID: "3", Kind: delivery.KindTimedOut})

	if got := calls.Load(); got != 2 {
		t.Fatalf("expected 2 notifications, got %d", got)
	}
}
