package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"slopreel/internal/config"
)

const userAgent = "slopreel/0.1"

// Event names a notification kind.
type Event string

const (
	EventGenerationStarted   Event = "generation_started"
	EventGenerationCompleted Event = "generation_completed"
	EventAssemblyCompleted   Event = "assembly_completed"
	EventError               Event = "error"
	EventTest                Event = "test"
)

// Payload carries event fields. Keys are event specific.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy-backed service, or a no-op one when no topic is
// configured.
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
			EventGenerationStarted:   cfg.Notifications.Generation,
			EventGenerationCompleted: cfg.Notifications.Generation,
			EventAssemblyCompleted:   cfg.Notifications.Assembly,
			EventError:               cfg.Notifications.Errors,
			EventTest:                true,
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

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, p Payload) (message, bool) {
	topic := p.text("topic")
	if topic == "" {
		topic = "untitled"
	}
	switch event {
	case EventGenerationStarted:
		return message{
			title: "slopreel - Generating",
			body:  fmt.Sprintf("🎬 Generating %d scenes: %s", p.count("scenes"), topic),
			tags:  []string{"slopreel", "generate", "started"},
		}, true
	case EventGenerationCompleted:
		failed := p.count("failed")
		title := "slopreel - Assets Ready"
		if failed > 0 {
			title = "slopreel - Assets Ready (with failures)"
		}
		body := fmt.Sprintf("🖼️ %s: %d/%d assets complete", topic, p.count("complete"), p.count("total"))
		if failed > 0 {
			body += fmt.Sprintf(", %d failed", failed)
		}
		if d := p.elapsed("duration"); d > 0 {
			body += " in " + d.Round(time.Second).String()
		}
		return message{title: title, body: body, tags: []string{"slopreel", "generate", "completed"}}, true
	case EventAssemblyCompleted:
		body := fmt.Sprintf("✅ Video ready: %s", topic)
		if path := p.text("path"); path != "" {
			body += "\nFile: " + path
		}
		if secs, ok := p["seconds"].(float64); ok && secs > 0 {
			body += fmt.Sprintf("\nLength: %.1fs", secs)
		}
		return message{
			title:    "slopreel - Video Ready",
			body:     body,
			tags:     []string{"slopreel", "assembly", "completed"},
			priority: "high",
		}, true
	case EventError:
		var b strings.Builder
		b.WriteString("❌ Error")
		if label := p.text("context"); label != "" {
			b.WriteString(" with ")
			b.WriteString(label)
		}
		b.WriteString(": ")
		if err, ok := p["error"].(error); ok && err != nil {
			b.WriteString(strings.TrimSpace(err.Error()))
		} else if text := p.text("error"); text != "" {
			b.WriteString(text)
		} else {
			b.WriteString("unknown")
		}
		return message{
			title:    "slopreel - Error",
			body:     b.String(),
			tags:     []string{"slopreel", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "slopreel - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"slopreel", "test"},
			priority: "low",
		}, true
	}
	return message{}, false
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
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
	if msg.priority != "" {
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

func (p Payload) text(key string) string {
	if v, ok := p[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func (p Payload) count(key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func (p Payload) elapsed(key string) time.Duration {
	if v, ok := p[key].(time.Duration); ok && v > 0 {
		return v
	}
	return 0
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
