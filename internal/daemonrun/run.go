package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"kiosk/internal/config"
	"kiosk/internal/daemon"
	"kiosk/internal/deps"
	"kiosk/internal/history"
	"kiosk/internal/ipc"
	"kiosk/internal/logging"
	"kiosk/internal/notifications"
	"kiosk/internal/session"
)

const (
	// SocketName is the IPC socket created under the log directory.
	SocketName  = "kiosk.sock"
	pidFileName = "kiosk.pid"
	logPointer  = "kiosk.log"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	Diagnostic  bool
	SocketPath  string
}

// Run starts the kiosk daemon runtime loop and blocks until a signal or
// cmdCtx cancellation.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("kiosk-%s.log", runID))
	eventsPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("kiosk-%s.events", runID))
	logHub := logging.NewStreamHub(4096)
	eventArchive, archiveErr := logging.NewEventArchive(eventsPath)
	if archiveErr != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to initialize log archive: %v\n", archiveErr)
	} else if eventArchive != nil {
		logHub.AddSink(eventArchive)
	}

	var runSessionID string
	var debugLogPath string
	if opts.Diagnostic {
		runSessionID = uuid.NewString()
		debugDir := filepath.Join(cfg.Paths.LogDir, "debug")
		if err := os.MkdirAll(debugDir, 0o755); err != nil {
			return fmt.Errorf("create debug log directory: %w", err)
		}
		debugLogPath = filepath.Join(debugDir, fmt.Sprintf("kiosk-%s.log", runID))
	}

	logger, err := logging.New(logging.Options{
		Level:            firstNonEmpty(opts.LogLevel, cfg.Logging.Level),
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
		Stream:           logHub,
		SessionID:        runSessionID,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if opts.Diagnostic {
		debugLogger, debugErr := logging.New(logging.Options{
			Level:            "debug",
			Format:           "json",
			OutputPaths:      []string{debugLogPath},
			ErrorOutputPaths: []string{debugLogPath},
			Development:      true,
			SessionID:        runSessionID,
		})
		if debugErr != nil {
			fmt.Fprintf(os.Stderr, "warn: unable to initialize debug logger: %v\n", debugErr)
		} else {
			logger = logging.TeeLogger(logger, debugLogger.Handler())
			if err := ensureCurrentLogPointer(filepath.Join(cfg.Paths.LogDir, "debug"), debugLogPath); err != nil {
				fmt.Fprintf(os.Stderr, "warn: unable to update debug/%s link: %v\n", logPointer, err)
			}
		}
		logger.Info("diagnostic mode enabled",
			logging.String(logging.FieldEventType, "diagnostic_mode_enabled"),
			logging.String("debug_log_path", debugLogPath),
		)
	}

	logDependencySnapshot(logger, cfg)
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update %s link: %v\n", logPointer, err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "kiosk-*.log", Exclude: []string{logPath}},
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "kiosk-*.events", Exclude: []string{eventsPath}},
		logging.RetentionTarget{Dir: filepath.Join(cfg.Paths.LogDir, "debug"), Pattern: "kiosk-*.log", Exclude: []string{debugLogPath}},
	)
	pidPath := filepath.Join(cfg.Paths.LogDir, pidFileName)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.Open(cfg.History.Path)
		if err != nil {
			logging.WarnWithContext(logger, "play log unavailable", "history_open_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check history.path permissions or delete the database"),
				logging.String(logging.FieldImpact, "slide activations will not be recorded"),
			)
			store = nil
		}
	}

	notifier := notifications.NewService(cfg)
	sessions, err := session.NewManager(session.Options{
		Config:   cfg,
		Logger:   logger,
		History:  store,
		Notifier: notifier,
	})
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return fmt.Errorf("create session manager: %w", err)
	}

	d, err := daemon.New(cfg, sessions, store, logger, logPath, logHub, eventArchive, notifier)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	socketPath := strings.TrimSpace(opts.SocketPath)
	if socketPath == "" {
		socketPath = filepath.Join(cfg.Paths.LogDir, SocketName)
	}
	ipcServer, err := ipc.NewServer(signalCtx, socketPath, d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		logging.WarnWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check configuration, api_bind and the playlist source"),
			logging.String(logging.FieldImpact, "screens stay on the loading message until `kiosk start` succeeds"),
		)
	}

	<-signalCtx.Done()
	logger.Info("kiosk daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, logPointer)
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	ffprobe := deps.CheckFFprobe(cfg.FFprobeBinary(), cfg.Render.ProbeVideos)
	logger.Info("dependency snapshot",
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("ffprobe_available", ffprobe.Available),
		logging.String("ffprobe_binary", ffprobe.Command),
		logging.Bool("probe_videos", cfg.Render.ProbeVideos),
		logging.Bool("verify_models", cfg.Render.VerifyModels),
		logging.Bool("await_display", cfg.Render.AwaitDisplay),
		logging.Bool("hotplug_enabled", cfg.Hotplug.Enabled),
		logging.Bool("history_enabled", cfg.History.Enabled),
		logging.Bool("ntfy_configured", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
		logging.String("playlist", cfg.Player.Playlist),
	)
}
