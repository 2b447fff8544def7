package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"kiosk/internal/clock"
	"kiosk/internal/config"
	"kiosk/internal/notifications"
)

type captured struct {
	title    string
	tags     string
	priority string
	body     string
}

type recorder struct {
	mu    sync.Mutex
	calls []captured
}

func (r *recorder) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", req.Method)
		}
		body, err := io.ReadAll(req.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		r.mu.Lock()
		r.calls = append(r.calls, captured{
			title:    req.Header.Get("Title"),
			tags:     req.Header.Get("Tags"),
			priority: req.Header.Get("Priority"),
			body:     string(body),
		})
		r.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *recorder) last() captured {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[len(r.calls)-1]
}

func newService(t *testing.T, mutate func(*config.Config), opts ...notifications.Option) (notifications.Service, *recorder) {
	t.Helper()
	rec := &recorder{}
	server := httptest.NewServer(rec.handler(t))
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.RequestTimeout = 5
	if mutate != nil {
		mutate(&cfg)
	}
	return notifications.NewService(&cfg, opts...), rec
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyPlaylistFailed(context.Background(), "x", errors.New("boom")); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := notifications.NewService(nil).TestNotification(context.Background()); err != nil {
		t.Fatalf("nil config should be noop, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		send           func(notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "playlist failed",
			send: func(s notifications.Service) error {
				return s.NotifyPlaylistFailed(context.Background(), "http://host/config.json", errors.New("failed to load configuration file (500)"))
			},
			expectTitle:    "Kiosk - Playlist Failed",
			expectMessage:  "❌ Error loading configuration: failed to load configuration file (500)\nSource: http://host/config.json",
			expectTags:     "kiosk,playlist,error",
			expectPriority: "high",
		},
		{
			name: "playlist empty",
			send: func(s notifications.Service) error {
				return s.NotifyPlaylistEmpty(context.Background(), "/srv/playlist.json")
			},
			expectTitle:   "Kiosk - Playlist Empty",
			expectMessage: "⚠️ Playlist has no slides: /srv/playlist.json",
			expectTags:    "kiosk,playlist,empty",
		},
		{
			name: "slide failed",
			send: func(s notifications.Service) error {
				return s.NotifySlideFailed(context.Background(), "lobby.mp4", "not found")
			},
			expectTitle:   "Kiosk - Slide Failed",
			expectMessage: "🖼️ Slide failed to render: lobby.mp4\nnot found",
			expectTags:    "kiosk,render,failed",
		},
		{
			name: "test",
			send: func(s notifications.Service) error {
				return s.TestNotification(context.Background())
			},
			expectTitle:    "Kiosk - Test",
			expectMessage:  "🧪 Notification system test",
			expectTags:     "kiosk,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, rec := newService(t, nil)
			if err := tc.send(svc); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}
			if rec.count() != 1 {
				t.Fatalf("expected 1 request, got %d", rec.count())
			}
			got := rec.last()
			if got.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, got.title)
			}
			if got.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, got.body)
			}
			if got.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, got.tags)
			}
			if got.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, got.priority)
			}
		})
	}
}

func TestNtfyServiceDeduplicatesWithinWindow(t *testing.T) {
	fake := clock.NewFake(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
	svc, rec := newService(t, func(cfg *config.Config) {
		cfg.Notifications.DedupWindowSeconds = 60
	}, notifications.WithClock(fake))
	ctx := context.Background()

	for range 3 {
		if err := svc.NotifySlideFailed(ctx, "a.glb", "bad header"); err != nil {
			t.Fatalf("NotifySlideFailed: %v", err)
		}
	}
	if rec.count() != 1 {
		t.Fatalf("expected repeats to be dropped, got %d requests", rec.count())
	}
	if err := svc.NotifySlideFailed(ctx, "b.glb", "bad header"); err != nil {
		t.Fatalf("NotifySlideFailed: %v", err)
	}
	if rec.count() != 2 {
		t.Fatalf("different source should send, got %d requests", rec.count())
	}

	fake.Advance(61 * time.Second)
	if err := svc.NotifySlideFailed(ctx, "a.glb", "bad header"); err != nil {
		t.Fatalf("NotifySlideFailed: %v", err)
	}
	if rec.count() != 3 {
		t.Fatalf("expected send after window, got %d requests", rec.count())
	}

	for range 2 {
		if err := svc.TestNotification(ctx); err != nil {
			t.Fatalf("TestNotification: %v", err)
		}
	}
	if rec.count() != 5 {
		t.Fatalf("test notifications are never deduplicated, got %d requests", rec.count())
	}
}

func TestNtfyServiceHonoursToggles(t *testing.T) {
	svc, rec := newService(t, func(cfg *config.Config) {
		cfg.Notifications.PlaylistErrors = false
		cfg.Notifications.RenderFailures = false
	})
	ctx := context.Background()
	if err := svc.NotifyPlaylistFailed(ctx, "p", errors.New("x")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.NotifyPlaylistEmpty(ctx, "p"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.NotifySlideFailed(ctx, "s", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.count() != 0 {
		t.Fatalf("expected suppressed events, got %d requests", rec.count())
	}
	if err := svc.Publish(ctx, notifications.Event("unknown"), nil); err != nil {
		t.Fatalf("unknown event should be ignored, got %v", err)
	}
	if rec.count() != 0 {
		t.Fatalf("unknown event sent a request")
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic gone", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)
	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for 403 response")
	}
}
