package history_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"kiosk/internal/history"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndRecent(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := store.BeginSession(ctx, history.Session{ID: "s1", Source: "/srv/playlist.json", StartedAt: base}); err != nil {
		t.Fatalf("BeginSession failed: %v", err)
	}
	if err := store.UpdateSession(ctx, "s1", 2); err != nil {
		t.Fatalf("UpdateSession failed: %v", err)
	}
	slides := []history.Activation{
		{SessionID: "s1", Activation: 1, Index: 0, Kind: "video", Source: "a.mp4", Duration: 5 * time.Second, StartedAt: base},
		{SessionID: "s1", Activation: 2, Index: 1, Kind: "model3d", Source: "b.glb", Duration: 3 * time.Second, StartedAt: base.Add(5500 * time.Millisecond)},
	}
	for _, a := range slides {
		if err := store.RecordActivation(ctx, a); err != nil {
			t.Fatalf("RecordActivation failed: %v", err)
		}
	}
	if err := store.RecordRender(ctx, "s1", 1, history.StatusReady, "prepared", base.Add(time.Second)); err != nil {
		t.Fatalf("RecordRender failed: %v", err)
	}
	if err := store.RecordRender(ctx, "s1", 2, history.StatusFailed, "not found", base.Add(6*time.Second)); err != nil {
		t.Fatalf("RecordRender failed: %v", err)
	}
	// A second outcome for the same activation is ignored.
	if err := store.RecordRender(ctx, "s1", 1, history.StatusFailed, "late", base.Add(2*time.Second)); err != nil {
		t.Fatalf("repeat RecordRender failed: %v", err)
	}

	recent, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recent))
	}
	if recent[0].Source != "b.glb" || recent[0].RenderStatus != history.StatusFailed {
		t.Fatalf("unexpected newest record: %#v", recent[0])
	}
	if recent[1].RenderStatus != history.StatusReady || recent[1].RenderDetail != "prepared" {
		t.Fatalf("first outcome should stick, got %#v", recent[1])
	}
	if recent[1].Duration != 5*time.Second || !recent[1].StartedAt.Equal(base) {
		t.Fatalf("unexpected round trip: %#v", recent[1])
	}

	sessions, err := store.Sessions(ctx, 5)
	if err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}
	if len(sessions) != 1 || sessions[0].SlideCount != 2 || !sessions[0].EndedAt.IsZero() {
		t.Fatalf("unexpected sessions: %#v", sessions)
	}
}

func TestRecordRenderUnknownActivation(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	if err := store.BeginSession(ctx, history.Session{ID: "s1", Source: "x"}); err != nil {
		t.Fatalf("BeginSession failed: %v", err)
	}
	err := store.RecordRender(ctx, "s1", 9, history.StatusReady, "", time.Time{})
	if !errors.Is(err, history.ErrUnknownActivation) {
		t.Fatalf("expected ErrUnknownActivation, got %v", err)
	}
	if err := store.RecordRender(ctx, "s1", 9, "bogus", "", time.Time{}); err == nil {
		t.Fatal("expected invalid status error")
	}
}

func TestSummaryCountsFailures(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if err := store.BeginSession(ctx, history.Session{ID: "s1", Source: "p", StartedAt: base}); err != nil {
		t.Fatalf("BeginSession failed: %v", err)
	}
	for i := range 4 {
		act := uint64(i + 1)
		src := "a.mp4"
		if i%2 == 1 {
			src = "b.glb"
		}
		at := base.Add(time.Duration(i) * time.Minute)
		if err := store.RecordActivation(ctx, history.Activation{SessionID: "s1", Activation: act, Index: i % 2, Kind: "video", Source: src, Duration: time.Second, StartedAt: at}); err != nil {
			t.Fatalf("RecordActivation failed: %v", err)
		}
		status := history.StatusReady
		if src == "b.glb" {
			status = history.StatusFailed
		}
		if err := store.RecordRender(ctx, "s1", act, status, "", at); err != nil {
			t.Fatalf("RecordRender failed: %v", err)
		}
	}

	summary, err := store.Summary(ctx, time.Time{})
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if len(summary) != 2 {
		t.Fatalf("expected 2 sources, got %#v", summary)
	}
	for _, row := range summary {
		if row.Plays != 2 {
			t.Fatalf("expected 2 plays for %s, got %d", row.Source, row.Plays)
		}
		wantFailures := 0
		if row.Source == "b.glb" {
			wantFailures = 2
		}
		if row.Failures != wantFailures {
			t.Fatalf("expected %d failures for %s, got %d", wantFailures, row.Source, row.Failures)
		}
	}

	recentOnly, err := store.Summary(ctx, base.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("Summary since failed: %v", err)
	}
	total := 0
	for _, row := range recentOnly {
		total += row.Plays
	}
	if total != 2 {
		t.Fatalf("expected 2 plays since cutoff, got %d", total)
	}
}

func TestPruneRemovesEndedSessions(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fresh := old.AddDate(0, 2, 0)

	for _, sess := range []history.Session{
		{ID: "old", Source: "p", StartedAt: old},
		{ID: "open", Source: "p", StartedAt: old},
		{ID: "fresh", Source: "p", StartedAt: fresh},
	} {
		if err := store.BeginSession(ctx, sess); err != nil {
			t.Fatalf("BeginSession failed: %v", err)
		}
		if err := store.RecordActivation(ctx, history.Activation{SessionID: sess.ID, Activation: 1, Kind: "video", Source: "a.mp4", Duration: time.Second, StartedAt: sess.StartedAt}); err != nil {
			t.Fatalf("RecordActivation failed: %v", err)
		}
	}
	if err := store.EndSession(ctx, "old", "playing", old.Add(time.Hour)); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}
	if err := store.EndSession(ctx, "fresh", "playing", fresh.Add(time.Hour)); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}

	removed, err := store.Prune(ctx, old.AddDate(0, 1, 0))
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 session removed, got %d", removed)
	}
	recent, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected cascade to leave 2 activations, got %d", len(recent))
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	_ = store.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open failed: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = db.Close()

	if _, err := history.Open(path); !errors.Is(err, history.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
