package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"kiosk/internal/api"
	"kiosk/internal/clock"
	"kiosk/internal/config"
	"kiosk/internal/history"
	"kiosk/internal/logging"
	"kiosk/internal/notifications"
	"kiosk/internal/player"
	"kiosk/internal/playlist"
	"kiosk/internal/render"
	"kiosk/internal/services"
	"kiosk/internal/stream"
)

// ErrNotRunning is returned by operations that need a mounted session.
var ErrNotRunning = errors.New("no playback session is running")

// EventSessionStarted is published to the feed when a session mounts.
const EventSessionStarted = "session_started"

// feedCapacity bounds the player feed; the display only needs recent events.
const feedCapacity = 256

// Options configures a Manager. Only Config is required.
type Options struct {
	Config     *config.Config
	Logger     *slog.Logger
	Clock      clock.Clock
	HTTPClient *http.Client
	History    *history.Store
	Notifier   notifications.Service
	// Renderers overrides the renderers built from Config.
	Renderers []render.Renderer
	// LoaderFactory overrides how the playlist loader is built.
	LoaderFactory func(source string) (playlist.Loader, error)
}

// Manager mounts and tears down playback sessions.
type Manager struct {
	cfg           *config.Config
	logger        *slog.Logger
	clock         clock.Clock
	client        *http.Client
	history       *history.Store
	notifier      notifications.Service
	renderers     []render.Renderer
	loaderFactory func(string) (playlist.Loader, error)
	feed          *stream.Hub[api.PlayerEvent]

	mu      sync.Mutex
	current *mounted
	// background tracks notification sends that outlive a session.
	background sync.WaitGroup
}

type mounted struct {
	id        string
	source    string
	assets    render.Assets
	scheduler *player.Scheduler
	host      *render.Host
	logger    *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	loaded    chan struct{}
}

// NewManager builds a manager. No session is mounted until Start.
func NewManager(opts Options) (*Manager, error) {
	if opts.Config == nil {
		return nil, errors.New("session manager requires configuration")
	}
	m := &Manager{
		cfg:           opts.Config,
		logger:        opts.Logger,
		clock:         opts.Clock,
		client:        opts.HTTPClient,
		history:       opts.History,
		notifier:      opts.Notifier,
		renderers:     opts.Renderers,
		loaderFactory: opts.LoaderFactory,
		feed:          stream.New[api.PlayerEvent](feedCapacity),
	}
	if m.logger == nil {
		m.logger = logging.NewNop()
	}
	m.logger = logging.NewComponentLogger(m.logger, "session")
	if m.clock == nil {
		m.clock = clock.Real()
	}
	if m.client == nil {
		m.client = &http.Client{Timeout: opts.Config.RenderTimeout()}
	}
	if m.notifier == nil {
		m.notifier = notifications.NewService(opts.Config)
	}
	if m.loaderFactory == nil {
		client := m.client
		m.loaderFactory = func(source string) (playlist.Loader, error) {
			return playlist.NewLoader(source, client)
		}
	}
	return m, nil
}

// Start mounts a session if none is running.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		return nil
	}
	mnt, err := m.mountLocked(ctx)
	if err != nil {
		return err
	}
	m.current = mnt
	return nil
}

// Reload tears down the running session and mounts a new one. It returns the
// id of the new session.
func (m *Manager) Reload(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		m.unmountLocked(m.current, "reloaded")
		m.current = nil
	}
	mnt, err := m.mountLocked(ctx)
	if err != nil {
		return "", err
	}
	m.current = mnt
	m.logger.Info("playback session reloaded",
		logging.String(logging.FieldEventType, "session_reloaded"),
		logging.String(logging.FieldSessionID, mnt.id),
	)
	return mnt.id, nil
}

// Stop tears down the running session and waits for pending notifications.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.current != nil {
		m.unmountLocked(m.current, "stopped")
		m.current = nil
	}
	m.mu.Unlock()
	m.background.Wait()
}

// Running reports whether a session is mounted.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil
}

// SessionID returns the id of the mounted session.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return ""
	}
	return m.current.id
}

// Snapshot returns the raw scheduler snapshot of the mounted session.
func (m *Manager) Snapshot() (player.Snapshot, bool) {
	m.mu.Lock()
	mnt := m.current
	m.mu.Unlock()
	if mnt == nil {
		return player.Snapshot{}, false
	}
	return mnt.scheduler.Snapshot(), true
}

// State returns the API view of the mounted session.
func (m *Manager) State() api.PlayerState {
	m.mu.Lock()
	mnt := m.current
	m.mu.Unlock()
	if mnt == nil {
		return api.PlayerState{Presentation: "stopped", Phase: player.PhaseUninitialized.String(), Treatment: "fade-in", Render: player.RenderPending.String()}
	}
	return m.stateFor(mnt, mnt.scheduler.Snapshot())
}

// Events returns player feed entries after since. With wait set the call
// blocks until an entry arrives or ctx ends.
func (m *Manager) Events(ctx context.Context, since uint64, limit int, wait bool) ([]api.PlayerEvent, uint64, error) {
	entries, next, err := m.feed.Fetch(ctx, since, limit, wait)
	out := make([]api.PlayerEvent, 0, len(entries))
	for _, entry := range entries {
		evt := entry.Value
		evt.Sequence = entry.Seq
		out = append(out, evt)
	}
	return out, next, err
}

// ReportRender applies a render outcome reported by the display page. It
// reports whether the outcome was accepted for the current activation.
func (m *Manager) ReportRender(activation uint64, status, detail string) (bool, error) {
	m.mu.Lock()
	mnt := m.current
	m.mu.Unlock()
	if mnt == nil {
		return false, ErrNotRunning
	}
	var accepted bool
	switch strings.ToLower(strings.TrimSpace(status)) {
	case player.RenderReady.String():
		accepted = mnt.scheduler.ReportReady(activation, detail)
	case player.RenderFailed.String():
		accepted = mnt.scheduler.ReportFailed(activation, detail)
	default:
		return false, services.Wrap(services.ErrValidation, "session", "report render", fmt.Sprintf("unknown render status %q", status), nil)
	}
	if accepted {
		mnt.host.Settle(activation)
	}
	return accepted, nil
}

func (m *Manager) mountLocked(parent context.Context) (*mounted, error) {
	source := strings.TrimSpace(m.cfg.Player.Playlist)
	loader, err := m.loaderFactory(source)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	logger := m.logger.With(logging.String(logging.FieldSessionID, id))
	ctx, cancel := context.WithCancel(services.WithSessionID(context.WithoutCancel(parent), id))
	assets := render.NewAssets(m.cfg.Paths.MediaDir, loader.Source())

	renderers := m.renderers
	if len(renderers) == 0 {
		renderers = []render.Renderer{
			&render.VideoRenderer{Assets: assets, Client: m.client, FFprobe: m.cfg.FFprobeBinary(), Probe: m.cfg.Render.ProbeVideos},
			&render.ModelRenderer{Assets: assets, Client: m.client, Verify: m.cfg.Render.VerifyModels},
		}
	}

	mnt := &mounted{
		id:     id,
		source: loader.Source(),
		assets: assets,
		scheduler: player.New(
			player.WithClock(m.clock),
			player.WithFadeDuration(m.cfg.FadeDuration()),
			player.WithLogger(logger),
		),
		host: render.NewHost(renderers,
			render.WithTimeout(m.cfg.RenderTimeout()),
			render.WithDisplayAcknowledgement(m.cfg.Render.AwaitDisplay),
			render.WithHostLogger(logger),
		),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		loaded: make(chan struct{}),
	}
	mnt.scheduler.Subscribe(func(evt player.Event) { m.observe(mnt, evt) })

	if m.history != nil {
		if err := m.history.BeginSession(ctx, history.Session{ID: id, Source: mnt.source, StartedAt: m.clock.Now()}); err != nil {
			logger.Warn("history session not recorded", logging.Error(err))
		}
	}
	m.publish(mnt, EventSessionStarted, m.clock.Now(), mnt.scheduler.Snapshot())

	logger.Info("playback session started",
		logging.String(logging.FieldEventType, "session_started"),
		logging.String(logging.FieldSource, mnt.source),
		logging.Duration("fade", m.cfg.FadeDuration()),
		logging.Duration("render_timeout", m.cfg.RenderTimeout()),
	)

	go func() {
		defer close(mnt.loaded)
		res := playlist.Fetch(ctx, loader)
		if ctx.Err() != nil {
			return
		}
		mnt.scheduler.Deliver(res)
	}()
	return mnt, nil
}

func (m *Manager) unmountLocked(mnt *mounted, outcome string) {
	final := mnt.scheduler.Snapshot()
	mnt.cancel()
	mnt.scheduler.Close()
	mnt.host.Stop()
	<-mnt.loaded

	if m.history != nil {
		result := final.Presentation.String()
		if outcome != "" && final.Presentation == player.PresentationPlaying {
			result = outcome
		}
		if err := m.history.EndSession(context.Background(), mnt.id, result, m.clock.Now()); err != nil {
			mnt.logger.Warn("history session not closed", logging.Error(err))
		}
	}
	mnt.logger.Info("playback session ended",
		logging.String(logging.FieldEventType, "session_ended"),
		logging.String("presentation", final.Presentation.String()),
		logging.Uint64("advances", final.Advances),
	)
}

// observe runs outside the scheduler lock for every scheduler event.
func (m *Manager) observe(mnt *mounted, evt player.Event) {
	snap := evt.Snapshot
	m.publish(mnt, evt.Kind.String(), evt.At, snap)

	switch evt.Kind {
	case player.EventPlaylistLoaded:
		if m.history != nil {
			if err := m.history.UpdateSession(context.WithoutCancel(mnt.ctx), mnt.id, snap.Total); err != nil {
				mnt.logger.Warn("history session not updated", logging.Error(err))
			}
		}
		mnt.logger.Info("playlist loaded",
			logging.String(logging.FieldEventType, "playlist_loaded"),
			logging.Int("slides", snap.Total),
		)
	case player.EventPlaylistEmpty:
		m.notify(mnt, func(ctx context.Context) error {
			return m.notifier.NotifyPlaylistEmpty(ctx, mnt.source)
		})
	case player.EventPlaylistFailed:
		loadErr := mnt.scheduler.Err()
		m.notify(mnt, func(ctx context.Context) error {
			return m.notifier.NotifyPlaylistFailed(ctx, mnt.source, loadErr)
		})
	case player.EventSlideActivated:
		if m.history != nil {
			err := m.history.RecordActivation(context.WithoutCancel(mnt.ctx), history.Activation{
				SessionID:  mnt.id,
				Activation: snap.Activation,
				Index:      snap.Index,
				Kind:       snap.Slide.Kind.String(),
				Source:     snap.Slide.Source,
				Duration:   snap.Slide.Duration,
				StartedAt:  snap.ActivatedAt,
			})
			if err != nil {
				mnt.logger.Warn("history activation not recorded", logging.Error(err))
			}
		}
		mnt.host.Activate(mnt.ctx, snap.Activation, snap.Slide, mnt.scheduler)
	case player.EventRenderReady, player.EventRenderFailed:
		status := history.StatusReady
		if evt.Kind == player.EventRenderFailed {
			status = history.StatusFailed
			source, detail := snap.Slide.Source, snap.RenderDetail
			m.notify(mnt, func(ctx context.Context) error {
				return m.notifier.NotifySlideFailed(ctx, source, detail)
			})
		}
		if m.history != nil {
			if err := m.history.RecordRender(context.WithoutCancel(mnt.ctx), mnt.id, snap.Activation, status, snap.RenderDetail, evt.At); err != nil {
				mnt.logger.Warn("history render outcome not recorded", logging.Error(err))
			}
		}
	}
}

func (m *Manager) publish(mnt *mounted, kind string, at time.Time, snap player.Snapshot) {
	m.feed.Publish(api.PlayerEvent{
		Kind:      kind,
		Timestamp: at.UTC().Format(time.RFC3339Nano),
		State:     m.stateFor(mnt, snap),
	})
}

func (m *Manager) stateFor(mnt *mounted, snap player.Snapshot) api.PlayerState {
	return api.FromSnapshot(snap, api.SnapshotContext{
		SessionID: mnt.id,
		Source:    mnt.source,
		Fade:      mnt.scheduler.FadeDuration(),
		Now:       m.clock.Now(),
		URLFor:    mnt.assets.PublicURL,
	})
}

// notify sends in the background so slow ntfy requests never stall the
// timer goroutine that delivered the event.
func (m *Manager) notify(mnt *mounted, send func(context.Context) error) {
	m.background.Add(1)
	go func() {
		defer m.background.Done()
		if err := send(context.WithoutCancel(mnt.ctx)); err != nil {
			logging.WarnWithContext(mnt.logger, "notification failed", "notification_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic and network access"),
				logging.String(logging.FieldImpact, "alert was not delivered"),
			)
		}
	}()
}
