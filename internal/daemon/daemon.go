package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"kiosk/internal/api"
	"kiosk/internal/clock"
	"kiosk/internal/config"
	"kiosk/internal/deps"
	"kiosk/internal/history"
	"kiosk/internal/hoststat"
	"kiosk/internal/logging"
	"kiosk/internal/notifications"
	"kiosk/internal/preflight"
	"kiosk/internal/session"
)

// LockFileName is the flock guard shared by the daemon and daemonctl.
const LockFileName = "kiosk.lock"

// pruneInterval is how often the play log is trimmed to its retention window.
const pruneInterval = 6 * time.Hour

// Daemon owns the playback session, the HTTP display server, and the hotplug
// monitor, and enforces single-instance execution.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	sessions   *session.Manager
	history    *history.Store
	notifier   notifications.Service
	clock      clock.Clock
	logPath    string
	logHub     *logging.StreamHub
	logArchive *logging.EventArchive

	lockPath string
	lock     *flock.Flock

	apiSrv  *apiServer
	hotplug *netlinkMonitor

	depsMu       sync.RWMutex
	dependencies []deps.Status

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	PID           int
	Player        api.PlayerState
	Host          *hoststat.Stats
	HostErr       error
	HistoryDBPath string
	LockFilePath  string
	LogPath       string
	DisplayURL    string
	Dependencies  []deps.Status
}

// API converts the status to its transport form.
func (s Status) API() api.DaemonStatus {
	deps := make([]api.DependencyStatus, len(s.Dependencies))
	for i, dep := range s.Dependencies {
		deps[i] = api.DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
			Severity:    dep.Severity(),
		}
	}
	out := api.DaemonStatus{
		Running:       s.Running,
		PID:           s.PID,
		HistoryDBPath: s.HistoryDBPath,
		LockFilePath:  s.LockFilePath,
		LogPath:       s.LogPath,
		DisplayURL:    s.DisplayURL,
		Player:        s.Player,
		Dependencies:  deps,
	}
	if s.Host != nil {
		out.Host = &api.HostStats{
			Hostname:      s.Host.Hostname,
			UptimeSeconds: uint64(s.Host.Uptime / time.Second),
			Load1:         s.Host.Load1,
			MemoryUsedPct: s.Host.MemoryUsedPct,
			CPUPercent:    s.Host.CPUPercent,
		}
		if s.HostErr != nil {
			out.Host.Detail = s.HostErr.Error()
		}
	}
	return out
}

// New constructs a daemon. history may be nil when the play log is disabled.
func New(
	cfg *config.Config,
	sessions *session.Manager,
	store *history.Store,
	logger *slog.Logger,
	logPath string,
	logHub *logging.StreamHub,
	logArchive *logging.EventArchive,
	notifier notifications.Service,
) (*Daemon, error) {
	if cfg == nil || sessions == nil {
		return nil, errors.New("daemon requires config and session manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	if strings.TrimSpace(logPath) == "" {
		logPath = filepath.Join(cfg.Paths.LogDir, "kiosk.log")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, LockFileName)
	d := &Daemon{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		sessions:   sessions,
		history:    store,
		notifier:   notifier,
		clock:      clock.Real(),
		logPath:    logPath,
		logHub:     logHub,
		logArchive: logArchive,
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}
	d.hotplug = newNetlinkMonitor(cfg, logger, d.clock, d.Reload)

	apiSrv, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.apiSrv = apiSrv
	return d, nil
}

// Start acquires the daemon lock, serves the display page, and mounts the
// first playback session.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another kiosk daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	fail := func(err error) error {
		d.apiSrv.stop()
		d.sessions.Stop()
		d.cancel()
		_ = d.lock.Unlock()
		d.ctx, d.cancel = nil, nil
		return err
	}

	d.refreshDependencies(d.ctx)
	if err := d.apiSrv.start(d.ctx); err != nil {
		return fail(err)
	}
	if err := d.sessions.Start(d.ctx); err != nil {
		return fail(fmt.Errorf("start playback: %w", err))
	}
	if err := d.hotplug.Start(d.ctx); err != nil {
		return fail(fmt.Errorf("start hotplug monitor: %w", err))
	}
	if d.history != nil {
		d.wg.Add(1)
		go d.pruneLoop(d.ctx)
	}

	d.running.Store(true)
	d.logger.Info("kiosk daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("display_url", d.cfg.DisplayURL()),
	)
	return nil
}

// Stop tears down playback and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.hotplug.Stop()
	d.sessions.Stop()
	d.apiSrv.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_lock_release_failed"),
			logging.String(logging.FieldErrorHint, "remove "+d.lockPath+" if the next start reports a running instance"),
		)
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("kiosk daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.history != nil {
		return d.history.Close()
	}
	return nil
}

// Running reports whether Start has succeeded and Stop has not been called.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Sessions exposes the playback session manager.
func (d *Daemon) Sessions() *session.Manager {
	return d.sessions
}

// Reload remounts the playlist and returns the new session id.
func (d *Daemon) Reload(ctx context.Context) (string, error) {
	if !d.running.Load() {
		return "", session.ErrNotRunning
	}
	id, err := d.sessions.Reload(ctx)
	if err != nil {
		return "", err
	}
	d.logger.Info("playlist reloaded",
		logging.String(logging.FieldEventType, "playlist_reloaded"),
		logging.String(logging.FieldSessionID, id),
	)
	return id, nil
}

// History returns the recent play log. The response reports Enabled=false
// when no store is configured.
func (d *Daemon) History(ctx context.Context, limit int) (api.HistoryResponse, error) {
	if d.history == nil {
		return api.HistoryResponse{Enabled: false}, nil
	}
	if limit <= 0 {
		limit = 50
	}
	records, err := d.history.Recent(ctx, limit)
	if err != nil {
		return api.HistoryResponse{}, fmt.Errorf("recent activations: %w", err)
	}
	sessions, err := d.history.Sessions(ctx, 10)
	if err != nil {
		return api.HistoryResponse{}, fmt.Errorf("recent sessions: %w", err)
	}
	since := d.clock.Now().AddDate(0, 0, -max(d.cfg.History.RetentionDays, 1))
	summary, err := d.history.Summary(ctx, since)
	if err != nil {
		return api.HistoryResponse{}, fmt.Errorf("history summary: %w", err)
	}
	return api.HistoryResponse{
		Enabled:  true,
		Records:  api.FromHistoryRecords(records),
		Sessions: api.FromHistorySessions(sessions),
		Summary:  api.FromHistorySummary(summary),
	}, nil
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// LogStream returns the in-memory structured log hub.
func (d *Daemon) LogStream() *logging.StreamHub {
	return d.logHub
}

// LogArchive returns the on-disk structured log archive.
func (d *Daemon) LogArchive() *logging.EventArchive {
	return d.logArchive
}

// Status returns the current daemon status. Host sampling failures are
// reported through HostErr rather than failing the call.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Player:       d.sessions.State(),
		LockFilePath: d.lockPath,
		LogPath:      d.logPath,
		DisplayURL:   d.cfg.DisplayURL(),
		Dependencies: d.currentDependencies(),
	}
	if d.history != nil {
		status.HistoryDBPath = d.history.Path()
	}
	stats, err := hoststat.Sample(ctx)
	status.Host = &stats
	status.HostErr = err
	return status
}

func (d *Daemon) refreshDependencies(ctx context.Context) {
	results := preflight.CheckSystemDeps(ctx, d.cfg)
	d.depsMu.Lock()
	d.dependencies = results
	d.depsMu.Unlock()
	for _, dep := range results {
		if dep.Available || dep.Optional {
			continue
		}
		logging.WarnWithContext(d.logger, "required dependency missing", "dependency_missing",
			logging.String("dependency", dep.Name),
			logging.String("detail", dep.Detail),
			logging.String(logging.FieldImpact, "slides that need it will fail to render"),
			logging.String(logging.FieldErrorHint, "install "+dep.Command+" or set render.probe_videos = false"),
		)
	}
}

func (d *Daemon) currentDependencies() []deps.Status {
	d.depsMu.RLock()
	defer d.depsMu.RUnlock()
	out := make([]deps.Status, len(d.dependencies))
	copy(out, d.dependencies)
	return out
}

func (d *Daemon) pruneLoop(ctx context.Context) {
	defer d.wg.Done()
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		d.pruneHistory(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (d *Daemon) pruneHistory(ctx context.Context) {
	days := d.cfg.History.RetentionDays
	if days <= 0 {
		return
	}
	cutoff := d.clock.Now().AddDate(0, 0, -days)
	removed, err := d.history.Prune(ctx, cutoff)
	if err != nil {
		if ctx.Err() == nil {
			logging.WarnWithContext(d.logger, "history prune failed", "history_prune_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "play log keeps growing until the next prune"),
			)
		}
		return
	}
	if removed > 0 {
		d.logger.Info("pruned play history",
			logging.String(logging.FieldEventType, "history_pruned"),
			logging.Int64("sessions_removed", removed),
			logging.Int("retention_days", days),
		)
	}
}
