package daemon

import (
	"context"
	"testing"
	"time"

	"kiosk/internal/config"
	"kiosk/internal/logging"
	"kiosk/internal/playlist"
	"kiosk/internal/render"
	"kiosk/internal/session"
	"kiosk/internal/testsupport"
)

type staticLoader struct{ pl playlist.Playlist }

func (l staticLoader) Load(context.Context) (playlist.Playlist, error) { return l.pl, nil }
func (l staticLoader) Source() string                                 { return "memory://playlist" }

type readyRenderer struct{ kind playlist.Kind }

func (r readyRenderer) Kind() playlist.Kind                           { return r.kind }
func (r readyRenderer) Prepare(context.Context, playlist.Slide) error { return nil }

// newTestDaemon builds an unstarted daemon around a one-slide playlist.
func newTestDaemon(t *testing.T, cfg *config.Config, hub *logging.StreamHub) *Daemon {
	t.Helper()
	if cfg == nil {
		cfg = testsupport.NewConfig(t)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	pl := playlist.New(playlist.Slide{Source: "intro.mp4", Duration: time.Minute, Kind: playlist.KindVideo})
	sessions, err := session.NewManager(session.Options{
		Config:    cfg,
		Renderers: []render.Renderer{readyRenderer{kind: playlist.KindVideo}, readyRenderer{kind: playlist.KindModel3D}},
		LoaderFactory: func(string) (playlist.Loader, error) {
			return staticLoader{pl: pl}, nil
		},
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	d, err := New(cfg, sessions, nil, logging.NewNop(), "", hub, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func startTestDaemon(t *testing.T, cfg *config.Config, hub *logging.StreamHub) *Daemon {
	t.Helper()
	d := newTestDaemon(t, cfg, hub)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return d
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
