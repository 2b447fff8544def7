package player

// Phase is the transition state of the scheduler.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseSteady
	PhaseFadingOut
	PhaseFadingIn
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseSteady:
		return "steady"
	case PhaseFadingOut:
		return "fading_out"
	case PhaseFadingIn:
		return "fading_in"
	default:
		return "unknown"
	}
}

// Treatment names the visual effect the presentation layer applies to the
// current slide in this phase.
func (p Phase) Treatment() string {
	if p == PhaseFadingOut {
		return "fade-out"
	}
	return "fade-in"
}

// Presentation is the top-level view the session should display.
type Presentation int

const (
	PresentationLoading Presentation = iota
	PresentationPlaying
	PresentationEmpty
	PresentationError
)

func (p Presentation) String() string {
	switch p {
	case PresentationLoading:
		return "loading"
	case PresentationPlaying:
		return "playing"
	case PresentationEmpty:
		return "empty"
	case PresentationError:
		return "error"
	default:
		return "unknown"
	}
}

// Terminal reports whether the presentation can never progress.
func (p Presentation) Terminal() bool {
	return p == PresentationEmpty || p == PresentationError
}

// RenderStatus is the renderer's verdict for the current activation.
type RenderStatus int

const (
	RenderPending RenderStatus = iota
	RenderReady
	RenderFailed
)

func (r RenderStatus) String() string {
	switch r {
	case RenderPending:
		return "pending"
	case RenderReady:
		return "ready"
	case RenderFailed:
		return "failed"
	default:
		return "unknown"
	}
}
