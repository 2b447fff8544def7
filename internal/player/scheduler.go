package player

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"kiosk/internal/clock"
	"kiosk/internal/logging"
	"kiosk/internal/playlist"
)

// DefaultFadeDuration is how long the transition between two slides lasts.
// The incoming slide is activated as soon as the fade completes.
const DefaultFadeDuration = 500 * time.Millisecond

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock used for timers.
func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithFadeDuration overrides the fade length. Negative values are ignored.
func WithFadeDuration(d time.Duration) Option {
	return func(s *Scheduler) {
		if d >= 0 {
			s.fade = d
		}
	}
}

// WithLogger attaches a logger for transition diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Scheduler drives the slide rotation for one player session.
type Scheduler struct {
	clock  clock.Clock
	fade   time.Duration
	logger *slog.Logger

	mu           sync.Mutex
	playlist     playlist.Playlist
	phase        Phase
	presentation Presentation
	index        int
	loadErr      error
	errMsg       string
	generation   uint64
	timer        clock.Timer
	deadline     time.Time
	activation   uint64
	activatedAt  time.Time
	render       RenderStatus
	renderDetail string
	advances     uint64
	closed       bool

	events eventQueue
}

// New returns a scheduler in the loading state. No timer is armed until a
// playlist is resolved.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		clock:        clock.Real(),
		fade:         DefaultFadeDuration,
		logger:       logging.NewNop(),
		phase:        PhaseUninitialized,
		presentation: PresentationLoading,
		index:        -1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// FadeDuration returns the configured fade length.
func (s *Scheduler) FadeDuration() time.Duration {
	return s.fade
}

// Subscribe registers an observer for all subsequent events.
func (s *Scheduler) Subscribe(o Observer) {
	s.events.subscribe(o)
}

// Deliver applies a load result: failures go to Fail, playlists to Resolve.
func (s *Scheduler) Deliver(res playlist.Result) {
	if res.Err != nil {
		s.Fail(res.Err)
		return
	}
	s.Resolve(res.Playlist)
}

// Resolve starts playback of pl. An empty playlist moves the session to the
// empty presentation without arming a timer. Calls after the first load
// outcome, or after Close, are ignored.
func (s *Scheduler) Resolve(pl playlist.Playlist) {
	s.mu.Lock()
	if !s.awaitingLoadLocked() {
		s.mu.Unlock()
		s.logger.Debug("playlist resolve ignored", logging.String("presentation", s.presentationName()))
		return
	}
	s.playlist = pl
	if pl.Empty() {
		s.presentation = PresentationEmpty
		s.loadErr = ErrEmptyPlaylist
		s.emitLocked(EventPlaylistEmpty)
		s.mu.Unlock()
		s.events.flush()
		logging.WarnWithContext(s.logger, "playlist has no slides", "playlist_empty",
			logging.String(logging.FieldErrorHint, "add entries to the files array"),
			logging.String(logging.FieldImpact, "player shows the loading view indefinitely"),
		)
		return
	}
	s.presentation = PresentationPlaying
	s.index = 0
	s.emitLocked(EventPlaylistLoaded)
	s.enterSteadyLocked()
	s.mu.Unlock()
	s.events.flush()
	s.logger.Debug("playlist resolved",
		logging.Int("slides", pl.Len()),
		logging.Duration("loop_duration", pl.LoopDuration(s.fade)),
	)
}

// Fail records a load failure. The session shows the error view and never
// arms a timer.
func (s *Scheduler) Fail(err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	s.mu.Lock()
	if !s.awaitingLoadLocked() {
		s.mu.Unlock()
		return
	}
	s.presentation = PresentationError
	s.loadErr = fmt.Errorf("%w: %w", ErrConfigLoadFailed, err)
	s.errMsg = err.Error()
	s.emitLocked(EventPlaylistFailed)
	s.mu.Unlock()
	s.events.flush()
	logging.ErrorWithContext(s.logger, "playlist load failed", "playlist_load_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check the playlist source and its format"),
	)
}

// Err returns the terminal reason for an error or empty session.
func (s *Scheduler) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadErr
}

// Current returns the slide on screen. It reports false before a playlist
// resolves, in terminal states, and after Close.
func (s *Scheduler) Current() (playlist.Slide, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.presentation != PresentationPlaying || s.index < 0 {
		return playlist.Slide{}, false
	}
	return s.playlist.At(s.index), true
}

// Phase returns the transition state.
func (s *Scheduler) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Snapshot copies the full scheduler state.
func (s *Scheduler) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// PendingTimers reports how many timers are outstanding (zero or one).
func (s *Scheduler) PendingTimers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		return 1
	}
	return 0
}

// ReportReady records that the renderer for activation finished preparing
// its asset. Only the first report for the current activation is accepted.
func (s *Scheduler) ReportReady(activation uint64, detail string) bool {
	return s.report(activation, RenderReady, detail)
}

// ReportFailed records that the renderer for activation could not present
// its asset. The slide keeps its full duration behind a placeholder.
func (s *Scheduler) ReportFailed(activation uint64, detail string) bool {
	return s.report(activation, RenderFailed, detail)
}

func (s *Scheduler) report(activation uint64, status RenderStatus, detail string) bool {
	s.mu.Lock()
	if s.closed || activation == 0 || activation != s.activation || s.render != RenderPending {
		current := s.activation
		s.mu.Unlock()
		s.logger.Debug("render report ignored",
			logging.Uint64(logging.FieldActivation, activation),
			logging.Uint64("current_activation", current),
			logging.String("status", status.String()),
		)
		return false
	}
	s.render = status
	s.renderDetail = detail
	slide := s.playlist.At(s.index)
	index := s.index
	kind := EventRenderReady
	if status == RenderFailed {
		kind = EventRenderFailed
	}
	s.emitLocked(kind)
	s.mu.Unlock()
	s.events.flush()

	if status == RenderFailed {
		logging.WarnWithContext(s.logger, "slide render failed; showing placeholder", "slide_render_failed",
			logging.Uint64(logging.FieldActivation, activation),
			logging.Int(logging.FieldSlideIndex, index),
			logging.String(logging.FieldSource, slide.Source),
			logging.String(logging.FieldErrorMessage, detail),
			logging.String(logging.FieldErrorHint, "verify the asset exists and is a supported "+slide.Kind.Noun()),
			logging.String(logging.FieldImpact, "placeholder shown for the slide duration"),
		)
	} else {
		s.logger.Debug("slide ready",
			logging.Uint64(logging.FieldActivation, activation),
			logging.Int(logging.FieldSlideIndex, index),
		)
	}
	return true
}

// Close cancels the pending timer and discards further state changes.
// Subsequent timer callbacks, reports, and load results are no-ops.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.cancelLocked()
	s.generation++
	s.closed = true
	s.emitLocked(EventClosed)
	s.mu.Unlock()
	s.events.flush()
	s.logger.Debug("scheduler closed")
}

func (s *Scheduler) awaitingLoadLocked() bool {
	return !s.closed && s.phase == PhaseUninitialized && s.presentation == PresentationLoading
}

func (s *Scheduler) presentationName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presentation.String()
}

func (s *Scheduler) enterSteadyLocked() {
	slide := s.playlist.At(s.index)
	s.phase = PhaseSteady
	s.activation++
	s.activatedAt = s.clock.Now()
	s.render = RenderPending
	s.renderDetail = ""
	s.armLocked(slide.Duration, s.beginFadeOutLocked)
	s.emitLocked(EventSlideActivated)
	s.logger.Debug("slide activated",
		logging.Uint64(logging.FieldActivation, s.activation),
		logging.Int(logging.FieldSlideIndex, s.index),
		logging.String(logging.FieldSource, slide.Source),
		logging.String("kind", slide.Kind.String()),
		logging.Duration("duration", slide.Duration),
	)
}

func (s *Scheduler) beginFadeOutLocked() {
	s.phase = PhaseFadingOut
	s.armLocked(s.fade, s.completeFadeLocked)
	s.emitLocked(EventFadeOut)
}

func (s *Scheduler) completeFadeLocked() {
	s.index = (s.index + 1) % s.playlist.Len()
	s.advances++
	s.phase = PhaseFadingIn
	s.emitLocked(EventFadeIn)
	s.enterSteadyLocked()
}

// armLocked replaces any pending timer with one that runs next after d.
func (s *Scheduler) armLocked(d time.Duration, next func()) {
	s.cancelLocked()
	s.generation++
	gen := s.generation
	s.deadline = s.clock.Now().Add(d)
	s.timer = s.clock.AfterFunc(d, func() { s.fire(gen, next) })
}

func (s *Scheduler) cancelLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.deadline = time.Time{}
}

func (s *Scheduler) fire(gen uint64, next func()) {
	s.mu.Lock()
	if s.closed || gen != s.generation {
		current := s.generation
		s.mu.Unlock()
		s.logger.Debug("stale timer ignored",
			logging.Uint64("generation", gen),
			logging.Uint64("current_generation", current),
		)
		return
	}
	s.timer = nil
	s.deadline = time.Time{}
	next()
	s.mu.Unlock()
	s.events.flush()
}

func (s *Scheduler) emitLocked(kind EventKind) {
	s.events.push(Event{Kind: kind, At: s.clock.Now(), Snapshot: s.snapshotLocked()})
}

func (s *Scheduler) snapshotLocked() Snapshot {
	snap := Snapshot{
		Presentation: s.presentation,
		Phase:        s.phase,
		Index:        s.index,
		Total:        s.playlist.Len(),
		Activation:   s.activation,
		ActivatedAt:  s.activatedAt,
		Render:       s.render,
		RenderDetail: s.renderDetail,
		Error:        s.errMsg,
		Deadline:     s.deadline,
		Advances:     s.advances,
		Closed:       s.closed,
	}
	if s.presentation == PresentationPlaying && s.index >= 0 && s.index < s.playlist.Len() {
		snap.Slide = s.playlist.At(s.index)
		snap.HasSlide = true
	}
	return snap
}
