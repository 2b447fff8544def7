package api

import (
	"time"

	"kiosk/internal/history"
	"kiosk/internal/logging"
	"kiosk/internal/player"
)

// SnapshotContext carries the session facts a scheduler snapshot does not
// know about.
type SnapshotContext struct {
	SessionID string
	Source    string
	Fade      time.Duration
	Now       time.Time
	// URLFor maps a slide source to the URL the display page should load.
	URLFor func(source string) string
}

// FromSnapshot converts a scheduler snapshot to its API representation.
func FromSnapshot(snap player.Snapshot, sc SnapshotContext) PlayerState {
	state := PlayerState{
		SessionID:    sc.SessionID,
		Source:       sc.Source,
		Presentation: snap.Presentation.String(),
		Phase:        snap.Phase.String(),
		Treatment:    snap.Phase.Treatment(),
		Total:        snap.Total,
		Activation:   snap.Activation,
		Render:       snap.Render.String(),
		RenderDetail: snap.RenderDetail,
		Placeholder:  snap.Placeholder(),
		RemainingMS:  snap.Remaining(sc.Now).Milliseconds(),
		FadeMS:       sc.Fade.Milliseconds(),
		Advances:     snap.Advances,
		Closed:       snap.Closed,
	}
	if snap.HasSlide {
		slide := &Slide{
			Index:      snap.Index,
			Kind:       snap.Slide.Kind.String(),
			Source:     snap.Slide.Source,
			DurationMS: snap.Slide.Duration.Milliseconds(),
		}
		if sc.URLFor != nil {
			slide.URL = sc.URLFor(snap.Slide.Source)
		}
		state.Slide = slide
	}
	if !snap.ActivatedAt.IsZero() {
		state.ActivatedAt = formatTime(snap.ActivatedAt)
	}
	switch snap.Presentation {
	case player.PresentationLoading, player.PresentationEmpty:
		state.Message = LoadingMessage
	case player.PresentationError:
		state.Message = snap.ErrorMessage()
	}
	return state
}

// FromHistoryRecords converts play-log rows.
func FromHistoryRecords(records []history.Record) []HistoryRecord {
	if len(records) == 0 {
		return nil
	}
	out := make([]HistoryRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, HistoryRecord{
			SessionID:    rec.SessionID,
			Activation:   rec.Activation.Activation,
			Index:        rec.Index,
			Kind:         rec.Kind,
			Source:       rec.Source,
			DurationMS:   rec.Duration.Milliseconds(),
			StartedAt:    formatTime(rec.StartedAt),
			RenderStatus: rec.RenderStatus,
			RenderDetail: rec.RenderDetail,
			RenderedAt:   formatTime(rec.RenderedAt),
		})
	}
	return out
}

// FromHistorySessions converts session rows.
func FromHistorySessions(sessions []history.Session) []HistorySession {
	if len(sessions) == 0 {
		return nil
	}
	out := make([]HistorySession, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, HistorySession{
			ID:         sess.ID,
			Source:     sess.Source,
			SlideCount: sess.SlideCount,
			StartedAt:  formatTime(sess.StartedAt),
			EndedAt:    formatTime(sess.EndedAt),
			Outcome:    sess.Outcome,
		})
	}
	return out
}

// FromHistorySummary converts per-source aggregates.
func FromHistorySummary(rows []history.SourceSummary) []HistorySummary {
	if len(rows) == 0 {
		return nil
	}
	out := make([]HistorySummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, HistorySummary{
			Source:     row.Source,
			Kind:       row.Kind,
			Plays:      row.Plays,
			Failures:   row.Failures,
			LastPlayed: formatTime(row.LastPlayed),
		})
	}
	return out
}

// FromLogEvents converts stream log events.
func FromLogEvents(events []logging.LogEvent) []LogEvent {
	if len(events) == 0 {
		return nil
	}
	out := make([]LogEvent, 0, len(events))
	for _, evt := range events {
		out = append(out, LogEvent{
			Sequence:      evt.Sequence,
			Timestamp:     evt.Timestamp,
			Level:         evt.Level,
			Message:       evt.Message,
			Component:     evt.Component,
			SessionID:     evt.SessionID,
			Activation:    evt.Activation,
			CorrelationID: evt.CorrelationID,
			Fields:        evt.Fields,
		})
	}
	return out
}

// ParseTime reads a timestamp produced by this package.
func ParseTime(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(dateTimeFormat, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
