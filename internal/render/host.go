package render

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"kiosk/internal/logging"
	"kiosk/internal/playlist"
	"kiosk/internal/services"
)

// DefaultTimeout bounds how long an activation may stay pending.
const DefaultTimeout = 10 * time.Second

// Timeout details reported when the safety bound elapses.
const (
	DetailPrepared = "prepared"
	DetailTimeout  = "render timeout"
)

// HostOption customizes a Host.
type HostOption func(*Host)

// WithTimeout sets the safety bound. Non-positive values keep the default.
func WithTimeout(d time.Duration) HostOption {
	return func(h *Host) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// WithDisplayAcknowledgement makes the host wait, after a successful
// prepare, for the display page to report the activation itself. The ready
// report is only sent by the host when the safety bound elapses first.
func WithDisplayAcknowledgement(enabled bool) HostOption {
	return func(h *Host) {
		h.awaitDisplay = enabled
	}
}

// WithHostLogger attaches a logger.
func WithHostLogger(logger *slog.Logger) HostOption {
	return func(h *Host) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// Host runs one renderer per activation and reports its outcome.
type Host struct {
	renderers    map[playlist.Kind]Renderer
	timeout      time.Duration
	awaitDisplay bool
	logger       *slog.Logger

	mu      sync.Mutex
	current uint64
	cancel  context.CancelFunc
	closed  bool
	wg      sync.WaitGroup
}

// NewHost registers renderers by kind. Later renderers of the same kind
// replace earlier ones.
func NewHost(renderers []Renderer, opts ...HostOption) *Host {
	h := &Host{
		renderers: make(map[playlist.Kind]Renderer, len(renderers)),
		timeout:   DefaultTimeout,
		logger:    logging.NewNop(),
	}
	for _, r := range renderers {
		if r != nil {
			h.renderers[r.Kind()] = r
		}
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Timeout returns the safety bound.
func (h *Host) Timeout() time.Duration {
	return h.timeout
}

// Activate supersedes any running activation and prepares slide in the
// background. Exactly one report is sent for activation unless it is
// superseded, settled, or the host stops first.
func (h *Host) Activate(ctx context.Context, activation uint64, slide playlist.Slide, reporter Reporter) {
	if reporter == nil {
		return
	}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	if h.cancel != nil {
		h.cancel()
	}
	actCtx, cancel := context.WithTimeout(services.WithActivation(ctx, activation), h.timeout)
	h.current = activation
	h.cancel = cancel
	h.wg.Add(1)
	h.mu.Unlock()

	go h.run(actCtx, cancel, activation, slide, reporter)
}

// Settle ends the wait for activation once another party has reported it.
func (h *Host) Settle(activation uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current == activation && h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// Stop cancels the running activation and waits for its goroutine.
func (h *Host) Stop() {
	h.mu.Lock()
	h.closed = true
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
	h.mu.Unlock()
	h.wg.Wait()
}

func (h *Host) run(ctx context.Context, cancel context.CancelFunc, activation uint64, slide playlist.Slide, reporter Reporter) {
	defer h.wg.Done()
	defer cancel()

	logger := logging.WithContext(ctx, h.logger)
	started := time.Now()
	err := h.prepare(ctx, slide)

	switch {
	case err == nil:
		if h.awaitDisplay {
			<-ctx.Done()
			if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return
			}
			reporter.ReportReady(activation, DetailTimeout)
			return
		}
		reporter.ReportReady(activation, DetailPrepared)
		logger.Debug("slide prepared", logging.Duration("elapsed", time.Since(started)))
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		logger.Info("slide render timed out; treating as ready",
			logging.String(logging.FieldSource, slide.Source),
			logging.Duration("timeout", h.timeout),
		)
		reporter.ReportReady(activation, DetailTimeout)
	case ctx.Err() != nil:
		// superseded or settled
	default:
		reporter.ReportFailed(activation, err.Error())
	}
}

func (h *Host) prepare(ctx context.Context, slide playlist.Slide) error {
	renderer, ok := h.renderers[slide.Kind]
	if !ok {
		return renderFailure(services.ErrConfiguration, "render", "prepare", "no renderer for "+slide.Kind.String()+" slides", nil)
	}
	return renderer.Prepare(ctx, slide)
}
