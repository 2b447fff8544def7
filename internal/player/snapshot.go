package player

import (
	"time"

	"kiosk/internal/playlist"
)

// Snapshot is a point-in-time copy of scheduler state.
type Snapshot struct {
	Presentation Presentation
	Phase        Phase
	// Index is the current slide position, -1 until a playlist resolves.
	Index        int
	Slide        playlist.Slide
	HasSlide     bool
	Total        int
	Activation   uint64
	ActivatedAt  time.Time
	Render       RenderStatus
	RenderDetail string
	// Error carries the load failure message when Presentation is error.
	Error    string
	Deadline time.Time
	Advances uint64
	Closed   bool
}

// Placeholder reports whether the presentation layer should show the
// failed-asset placeholder instead of the slide content.
func (s Snapshot) Placeholder() bool {
	return s.HasSlide && s.Render == RenderFailed
}

// ErrorMessage renders the user-facing load failure text.
func (s Snapshot) ErrorMessage() string {
	if s.Presentation != PresentationError {
		return ""
	}
	return ErrorMessagePrefix + s.Error
}

// Remaining returns how long until the pending timer fires, relative to now.
func (s Snapshot) Remaining(now time.Time) time.Duration {
	if s.Deadline.IsZero() {
		return 0
	}
	if d := s.Deadline.Sub(now); d > 0 {
		return d
	}
	return 0
}
