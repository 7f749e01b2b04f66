package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gamedeck/internal/config"
	"gamedeck/internal/events"
)

const userAgent = "gamedeck/0.1.0"

// Event names a notification the pipeline can emit.
type Event string

const (
	EventInstallCompleted Event = "install_completed"
	EventInstallFailed    Event = "install_failed"
	EventLibraryChanged   Event = "library_changed"
	EventTest             Event = "test"
)

// Payload carries the string fields a notification message is built from.
type Payload map[string]string

// Service delivers notifications.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
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

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

// FromBusEvent maps a pipeline broadcast onto a notification. The bool is
// false for broadcasts that should not notify anyone.
func FromBusEvent(evt events.Event) (Event, Payload, bool) {
	titles := strings.Join(evt.Titles, ", ")
	switch evt.Kind {
	case events.KindLibraryChanged:
		if evt.Reason == "direct_install" || evt.Reason == "batch_install" {
			return EventInstallCompleted, Payload{
				"titles": titles,
				"count":  fmt.Sprint(len(evt.Titles)),
			}, true
		}
		return EventLibraryChanged, Payload{"reason": evt.Reason, "titles": titles}, true
	case events.KindInstallFailed:
		return EventInstallFailed, Payload{"titles": titles, "reason": evt.Reason}, true
	default:
		return "", nil, false
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

func (n *ntfyService) Publish(ctx context.Context, event Event, data Payload) error {
	msg, ok := format(event, data)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, data Payload) (payload, bool) {
	get := func(key string) string { return strings.TrimSpace(data[key]) }
	switch event {
	case EventInstallCompleted:
		titles := get("titles")
		message := fmt.Sprintf("🎮 Installed: %s", titles)
		if count := get("count"); count != "" && count != "1" {
			message = fmt.Sprintf("🎮 Installed %s games: %s", count, titles)
		}
		return payload{
			title:   "gamedeck - Installed",
			message: message,
			tags:    []string{"gamedeck", "install", "completed"},
		}, true
	case EventInstallFailed:
		var b strings.Builder
		b.WriteString("❌ Install failed")
		if titles := get("titles"); titles != "" {
			b.WriteString(": ")
			b.WriteString(titles)
		}
		if errText := get("error"); errText != "" {
			b.WriteString("\n")
			b.WriteString(errText)
		}
		return payload{
			title:    "gamedeck - Install Failed",
			message:  b.String(),
			tags:     []string{"gamedeck", "install", "error"},
			priority: "high",
		}, true
	case EventLibraryChanged:
		reason := get("reason")
		if reason == "" {
			reason = "rescan"
		}
		message := fmt.Sprintf("📚 Library updated (%s)", reason)
		if titles := get("titles"); titles != "" {
			message = fmt.Sprintf("%s\n%s", message, titles)
		}
		return payload{
			title:   "gamedeck - Library Updated",
			message: message,
			tags:    []string{"gamedeck", "library"},
		}, true
	case EventTest:
		return payload{
			title:    "gamedeck - Test",
			message:  "🧪 Notification system test",
			tags:     []string{"gamedeck", "test"},
			priority: "low",
		}, true
	default:
		return payload{}, false
	}
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

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
