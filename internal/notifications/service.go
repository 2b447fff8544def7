package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"kiosk/internal/clock"
	"kiosk/internal/config"
)

const userAgent = "Kiosk-Go/0.1.0"

// Event identifies a notification kind.
type Event string

const (
	EventPlaylistFailed Event = "playlist_failed"
	EventPlaylistEmpty  Event = "playlist_empty"
	EventSlideFailed    Event = "slide_failed"
	EventTest           Event = "test"
)

// Payload carries event fields keyed by name.
type Payload map[string]any

// Service defines the notification surface used by the session manager and
// the daemon.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
	NotifyPlaylistFailed(ctx context.Context, source string, err error) error
	NotifyPlaylistEmpty(ctx context.Context, source string) error
	NotifySlideFailed(ctx context.Context, source, detail string) error
	TestNotification(ctx context.Context) error
}

// Option adjusts the ntfy service.
type Option func(*ntfyService)

// WithClock replaces the clock used for dedup bookkeeping.
func WithClock(c clock.Clock) Option {
	return func(n *ntfyService) {
		if c != nil {
			n.clock = c
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(n *ntfyService) {
		if client != nil {
			n.client = client
		}
	}
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config, opts ...Option) Service {
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

	svc := &ntfyService{
		endpoint:       topic,
		client:         &http.Client{Timeout: timeout},
		clock:          clock.Real(),
		playlistErrors: cfg.Notifications.PlaylistErrors,
		renderFailures: cfg.Notifications.RenderFailures,
		dedupWindow:    time.Duration(cfg.Notifications.DedupWindowSeconds) * time.Second,
		lastSent:       make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
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
	clock    clock.Clock

	playlistErrors bool
	renderFailures bool
	dedupWindow    time.Duration

	mu       sync.Mutex
	lastSent map[string]time.Time
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled(event) {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	if key := dedupKey(event, payload); key != "" && !n.admit(key) {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) NotifyPlaylistFailed(ctx context.Context, source string, err error) error {
	detail := "unknown"
	if err != nil {
		detail = strings.TrimSpace(err.Error())
	}
	return n.Publish(ctx, EventPlaylistFailed, Payload{"source": source, "error": detail})
}

func (n *ntfyService) NotifyPlaylistEmpty(ctx context.Context, source string) error {
	return n.Publish(ctx, EventPlaylistEmpty, Payload{"source": source})
}

func (n *ntfyService) NotifySlideFailed(ctx context.Context, source, detail string) error {
	return n.Publish(ctx, EventSlideFailed, Payload{"source": source, "detail": detail})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.Publish(ctx, EventTest, nil)
}

func (n *ntfyService) enabled(event Event) bool {
	switch event {
	case EventPlaylistFailed, EventPlaylistEmpty:
		return n.playlistErrors
	case EventSlideFailed:
		return n.renderFailures
	default:
		return true
	}
}

// admit records key and reports whether it is outside the dedup window.
func (n *ntfyService) admit(key string) bool {
	if n.dedupWindow <= 0 {
		return true
	}
	now := n.clock.Now()
	n.mu.Lock()
	defer n.mu.Unlock()
	if last, ok := n.lastSent[key]; ok && now.Sub(last) < n.dedupWindow {
		return false
	}
	for k, at := range n.lastSent {
		if now.Sub(at) >= n.dedupWindow {
			delete(n.lastSent, k)
		}
	}
	n.lastSent[key] = now
	return true
}

func dedupKey(event Event, payload Payload) string {
	if event == EventTest {
		return ""
	}
	return string(event) + "|" + payloadString(payload, "source")
}

func format(event Event, payload Payload) (message, bool) {
	source := payloadString(payload, "source")
	switch event {
	case EventPlaylistFailed:
		return message{
			title:    "Kiosk - Playlist Failed",
			body:     fmt.Sprintf("❌ Error loading configuration: %s\nSource: %s", payloadString(payload, "error"), source),
			tags:     []string{"kiosk", "playlist", "error"},
			priority: "high",
		}, true
	case EventPlaylistEmpty:
		return message{
			title: "Kiosk - Playlist Empty",
			body:  fmt.Sprintf("⚠️ Playlist has no slides: %s", source),
			tags:  []string{"kiosk", "playlist", "empty"},
		}, true
	case EventSlideFailed:
		body := fmt.Sprintf("🖼️ Slide failed to render: %s", source)
		if detail := payloadString(payload, "detail"); detail != "" {
			body += "\n" + detail
		}
		return message{
			title: "Kiosk - Slide Failed",
			body:  body,
			tags:  []string{"kiosk", "render", "failed"},
		}, true
	case EventTest:
		return message{
			title:    "Kiosk - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"kiosk", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func payloadString(payload Payload, key string) string {
	if payload == nil {
		return ""
	}
	switch v := payload[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
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

func (noopService) Publish(context.Context, Event, Payload) error             { return nil }
func (noopService) NotifyPlaylistFailed(context.Context, string, error) error { return nil }
func (noopService) NotifyPlaylistEmpty(context.Context, string) error         { return nil }
func (noopService) NotifySlideFailed(context.Context, string, string) error   { return nil }
func (noopService) TestNotification(context.Context) error                    { return nil }
