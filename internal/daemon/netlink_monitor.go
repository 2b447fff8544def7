package daemon

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pilebones/go-udev/netlink"

	"kiosk/internal/clock"
	"kiosk/internal/config"
	"kiosk/internal/logging"
)

// hotplugDebounce swallows the burst of uevents a single stick produces
// (one per partition plus the whole disk).
const hotplugDebounce = 5 * time.Second

// netlinkMonitor listens for udev block events and reloads the playlist when
// a removable filesystem appears. Operators swap content by plugging in a USB
// stick that holds the media directory.
type netlinkMonitor struct {
	logger *slog.Logger
	clock  clock.Clock
	label  string
	reload func(ctx context.Context) (string, error)

	mu         sync.Mutex
	conn       *netlink.UEventConn
	quit       chan struct{}
	running    bool
	lastReload time.Time
}

// newNetlinkMonitor returns nil when hotplug reloads are disabled.
func newNetlinkMonitor(cfg *config.Config, logger *slog.Logger, clk clock.Clock, reload func(ctx context.Context) (string, error)) *netlinkMonitor {
	if cfg == nil || !cfg.Hotplug.Enabled {
		return nil
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &netlinkMonitor{
		logger: logging.NewComponentLogger(logger, "hotplug"),
		clock:  clk,
		label:  strings.TrimSpace(cfg.Hotplug.Label),
		reload: reload,
	}
}

func (m *netlinkMonitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		logging.WarnWithContext(m.logger, "failed to connect to netlink socket; media changes need a manual reload",
			"netlink_connect_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run the daemon with access to NETLINK_KOBJECT_UEVENT or use kiosk reload"),
			logging.String(logging.FieldImpact, "automatic reload on USB insert unavailable"),
		)
		return nil
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true
	go m.monitorLoop(ctx, conn, m.quit)

	m.logger.Info("hotplug monitor started",
		logging.String(logging.FieldEventType, "hotplug_monitor_started"),
		logging.String("label", m.label),
	)
	return nil
}

func (m *netlinkMonitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	close(m.quit)
	m.quit = nil
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false
	m.logger.Info("hotplug monitor stopped", logging.String(logging.FieldEventType, "hotplug_monitor_stopped"))
}

func (m *netlinkMonitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *netlinkMonitor) monitorLoop(ctx context.Context, conn *netlink.UEventConn, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := conn.Monitor(queue, errs, m.buildMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(ctx, uevent)
		case err := <-errs:
			logging.WarnWithContext(m.logger, "netlink monitor error", "netlink_monitor_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "media insert may go unnoticed"),
			)
		}
	}
}

// buildMatcher accepts newly added block devices that carry a filesystem.
func (m *netlinkMonitor) buildMatcher() netlink.Matcher {
	action := "add"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM":   "block",
			"ID_FS_USAGE": "filesystem",
		},
	})
	return rules
}

func (m *netlinkMonitor) handleEvent(ctx context.Context, uevent netlink.UEvent) {
	device := deviceName(uevent)
	label := uevent.Env["ID_FS_LABEL"]
	if m.label != "" && !strings.EqualFold(label, m.label) {
		m.logger.Debug("ignoring filesystem with different label",
			logging.String("device", device),
			logging.String("label", label),
			logging.String("want_label", m.label),
		)
		return
	}

	now := m.clock.Now()
	m.mu.Lock()
	if !m.lastReload.IsZero() && now.Sub(m.lastReload) < hotplugDebounce {
		m.mu.Unlock()
		m.logger.Debug("hotplug reload debounced", logging.String("device", device))
		return
	}
	m.lastReload = now
	m.mu.Unlock()

	m.logger.Info("removable media detected; reloading playlist",
		logging.String(logging.FieldEventType, "hotplug_media_detected"),
		logging.String("device", device),
		logging.String("label", label),
	)
	if m.reload == nil {
		return
	}
	sessionID, err := m.reload(ctx)
	if err != nil {
		logging.WarnWithContext(m.logger, "hotplug reload failed", "hotplug_reload_failed",
			logging.Error(err),
			logging.String("device", device),
			logging.String(logging.FieldErrorHint, "check that the media directory is mounted and run kiosk reload"),
			logging.String(logging.FieldImpact, "display keeps the previous playlist"),
		)
		return
	}
	m.logger.Info("playlist reloaded from hotplug",
		logging.String(logging.FieldEventType, "hotplug_reloaded"),
		logging.String(logging.FieldSessionID, sessionID),
	)
}

// deviceName prefers DEVNAME and falls back to the last DEVPATH element.
func deviceName(uevent netlink.UEvent) string {
	if devname := uevent.Env["DEVNAME"]; devname != "" {
		return devname
	}
	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}
	parts := strings.Split(devpath, "/")
	return "/dev/" + parts[len(parts)-1]
}
