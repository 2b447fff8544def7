package api

import (
	"testing"
	"time"

	"kiosk/internal/history"
	"kiosk/internal/player"
	"kiosk/internal/playlist"
)

func TestFromSnapshotPlaying(t *testing.T) {
	now := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	snap := player.Snapshot{
		Presentation: player.PresentationPlaying,
		Phase:        player.PhaseSteady,
		Index:        1,
		Slide:        playlist.Slide{Source: "lobby.mp4", Duration: 5 * time.Second, Kind: playlist.KindVideo},
		HasSlide:     true,
		Total:        3,
		Activation:   7,
		ActivatedAt:  now.Add(-2 * time.Second),
		Render:       player.RenderFailed,
		RenderDetail: "not found",
		Deadline:     now.Add(3 * time.Second),
	}
	state := FromSnapshot(snap, SnapshotContext{
		SessionID: "abc",
		Fade:      500 * time.Millisecond,
		Now:       now,
		URLFor:    func(src string) string { return "/media/" + src },
	})
	if state.Presentation != "playing" || state.Phase != "steady" || state.Treatment != "fade-in" {
		t.Fatalf("unexpected phase fields: %#v", state)
	}
	if state.Slide == nil || state.Slide.URL != "/media/lobby.mp4" || state.Slide.Kind != "video" || state.Slide.DurationMS != 5000 {
		t.Fatalf("unexpected slide: %#v", state.Slide)
	}
	if !state.Placeholder || state.Render != "failed" {
		t.Fatalf("expected placeholder for failed render: %#v", state)
	}
	if state.RemainingMS != 3000 || state.FadeMS != 500 {
		t.Fatalf("unexpected timing: remaining=%d fade=%d", state.RemainingMS, state.FadeMS)
	}
	if state.Message != "" {
		t.Fatalf("playing state should not carry a message, got %q", state.Message)
	}
	if got, ok := ParseTime(state.ActivatedAt); !ok || !got.Equal(now.Add(-2*time.Second)) {
		t.Fatalf("unexpected activatedAt %q", state.ActivatedAt)
	}
}

func TestFromSnapshotMessages(t *testing.T) {
	cases := []struct {
		name string
		snap player.Snapshot
		want string
	}{
		{"loading", player.Snapshot{Presentation: player.PresentationLoading, Index: -1}, LoadingMessage},
		{"empty", player.Snapshot{Presentation: player.PresentationEmpty, Index: -1}, LoadingMessage},
		{"error", player.Snapshot{Presentation: player.PresentationError, Index: -1, Error: "failed to load configuration file (404)"}, "Error loading configuration: failed to load configuration file (404)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			state := FromSnapshot(tc.snap, SnapshotContext{})
			if state.Message != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, state.Message)
			}
			if state.Slide != nil {
				t.Fatalf("expected no slide, got %#v", state.Slide)
			}
		})
	}
}

func TestFromHistoryRecordsOmitsZeroTimes(t *testing.T) {
	records := FromHistoryRecords([]history.Record{{
		Activation:   history.Activation{SessionID: "s", Activation: 2, Source: "a.glb", Kind: "model3d", StartedAt: time.Unix(0, 0)},
		RenderStatus: history.StatusPending,
	}})
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].RenderedAt != "" || records[0].StartedAt == "" {
		t.Fatalf("unexpected timestamps: %#v", records[0])
	}
	if FromHistoryRecords(nil) != nil {
		t.Fatal("expected nil for empty input")
	}
}
