package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tagprint/internal/config"
)

const userAgent = "tagprint/1.0.0"

// Event enumerates notification types.
type Event string

const (
	EventDelivered        Event = "delivered"
	EventFallback         Event = "fallback"
	EventFailed           Event = "failed"
	EventPrinterAttached  Event = "printer_attached"
	EventPrinterDetached  Event = "printer_detached"
	EventTestNotification Event = "test"
)

// Payload carries event-specific values. Known keys: unit, transport,
// printer, path, reason, device.
type Payload map[string]string

// Service publishes notification events.
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
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	get := func(key string) string { return strings.TrimSpace(payload[key]) }
	unit := get("unit")
	if unit == "" {
		unit = "label"
	}

	switch event {
	case EventDelivered:
		body := fmt.Sprintf("🏷️ Printed: %s", unit)
		if via := get("transport"); via != "" {
			body = fmt.Sprintf("%s via %s", body, via)
		}
		return message{
			title: "tagprint - Printed",
			body:  body,
			tags:  []string{"tagprint", "print", "delivered"},
		}, true
	case EventFallback:
		body := fmt.Sprintf("📄 Printer unreachable, saved %s to file", unit)
		if path := get("path"); path != "" {
			body = fmt.Sprintf("%s\nFile: %s", body, path)
		}
		return message{
			title: "tagprint - Saved to File",
			body:  body,
			tags:  []string{"tagprint", "print", "fallback"},
		}, true
	case EventFailed:
		reason := get("reason")
		if reason == "" {
			reason = "unknown"
		}
		return message{
			title:    "tagprint - Print Failed",
			body:     fmt.Sprintf("❌ Print failed for %s: %s", unit, reason),
			tags:     []string{"tagprint", "error", "alert"},
			priority: "high",
		}, true
	case EventPrinterAttached:
		return message{
			title: "tagprint - Printer Attached",
			body:  fmt.Sprintf("🔌 USB printer attached: %s", get("device")),
			tags:  []string{"tagprint", "usb", "attached"},
		}, true
	case EventPrinterDetached:
		return message{
			title: "tagprint - Printer Detached",
			body:  fmt.Sprintf("🔌 USB printer detached: %s", get("device")),
			tags:  []string{"tagprint", "usb", "detached"},
		}, true
	case EventTestNotification:
		return message{
			title:    "tagprint - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"tagprint", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
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
