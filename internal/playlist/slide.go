package playlist

import (
	"fmt"
	"strings"
	"time"
)

// Kind selects the renderer variant for a slide.
type Kind int

const (
	KindModel3D Kind = iota + 1
	KindVideo
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindModel3D:
		return "3d"
	case KindVideo:
		return "video"
	default:
		return "unknown"
	}
}

// Noun returns a lower-case human name for the kind.
func (k Kind) Noun() string {
	switch k {
	case KindModel3D:
		return "model"
	case KindVideo:
		return "video"
	default:
		return "unknown"
	}
}

// ParseKind maps a wire value to a Kind.
func ParseKind(value string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "3d", "model3d":
		return KindModel3D, true
	case "video":
		return KindVideo, true
	default:
		return 0, false
	}
}

// Slide describes one playlist entry.
type Slide struct {
	Source   string
	Duration time.Duration
	Kind     Kind
}

// Validate reports whether the slide can be scheduled.
func (s Slide) Validate() error {
	if strings.TrimSpace(s.Source) == "" {
		return fmt.Errorf("source is empty")
	}
	if s.Duration <= 0 {
		return fmt.Errorf("duration %s is not positive", s.Duration)
	}
	if s.Kind != KindModel3D && s.Kind != KindVideo {
		return fmt.Errorf("kind %d is not supported", int(s.Kind))
	}
	return nil
}

// Playlist is an ordered, immutable sequence of slides.
type Playlist struct {
	slides []Slide
}

// New builds a playlist holding a private copy of slides.
func New(slides ...Slide) Playlist {
	if len(slides) == 0 {
		return Playlist{}
	}
	cp := make([]Slide, len(slides))
	copy(cp, slides)
	return Playlist{slides: cp}
}

// Len returns the number of slides.
func (p Playlist) Len() int {
	return len(p.slides)
}

// Empty reports whether the playlist has no slides.
func (p Playlist) Empty() bool {
	return len(p.slides) == 0
}

// At returns the slide at index i. It panics when i is out of range.
func (p Playlist) At(i int) Slide {
	return p.slides[i]
}

// Slides returns a copy of the slides in playback order.
func (p Playlist) Slides() []Slide {
	if len(p.slides) == 0 {
		return nil
	}
	cp := make([]Slide, len(p.slides))
	copy(cp, p.slides)
	return cp
}

// LoopDuration returns how long one full pass over the playlist takes when
// every slide is followed by one transition of the given length.
func (p Playlist) LoopDuration(fade time.Duration) time.Duration {
	var total time.Duration
	for _, slide := range p.slides {
		total += slide.Duration + fade
	}
	return total
}

// Result carries the outcome of one playlist load.
type Result struct {
	Playlist Playlist
	Err      error
}
