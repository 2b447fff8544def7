package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"kiosk/internal/api"
	"kiosk/internal/config"
	"kiosk/internal/daemon"
	"kiosk/internal/deps"
	"kiosk/internal/history"
	"kiosk/internal/ipc"
	"kiosk/internal/preflight"
)

// PIDFileName is written next to the lock by the daemon runtime.
const PIDFileName = "kiosk.pid"

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	SocketPath string
	ConfigPath string
	Diagnostic bool
}

type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
	StartStateRequested      StartState = "start_requested"
)

// StartResult captures daemon start orchestration state.
type StartResult struct {
	State    StartState
	Launched bool
	Message  string
}

// Launch starts a detached kiosk daemon process.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}

	args := []string{"daemon"}
	if socket := strings.TrimSpace(opts.SocketPath); socket != "" {
		args = append(args, "--socket", socket)
	}
	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		args = append(args, "--config", cfg)
	}
	if opts.Diagnostic {
		args = append(args, "--diagnostic")
	}

	proc := exec.Command(executablePath, args...)
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// WaitForClient polls the socket until the daemon accepts connections.
func WaitForClient(socketPath string, timeout time.Duration) (*ipc.Client, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		client, err := ipc.Dial(socketPath)
		if err == nil {
			return client, nil
		}
		lastErr = err
		time.Sleep(200 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for daemon")
	}
	return nil, fmt.Errorf("daemon failed to start: %w", lastErr)
}

// EnsureStarted launches the daemon if its socket is absent, then asks it to
// start playback.
func EnsureStarted(socketPath, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	client, err := ipc.Dial(socketPath)
	launched := false
	if err != nil {
		if launchErr := Launch(executablePath, opts); launchErr != nil {
			return StartResult{}, launchErr
		}
		client, err = WaitForClient(socketPath, waitTimeout)
		if err != nil {
			return StartResult{}, err
		}
		launched = true
	}
	defer client.Close()

	if status, statusErr := client.Status(); statusErr == nil && status.Running {
		if launched {
			return StartResult{State: StartStateStarted, Launched: true}, nil
		}
		return StartResult{State: StartStateAlreadyRunning}, nil
	}

	resp, err := client.Start()
	if err != nil {
		return StartResult{}, err
	}
	message := strings.TrimSpace(resp.Message)
	switch {
	case resp.Started:
		return StartResult{State: StartStateStarted, Launched: launched, Message: message}, nil
	case strings.EqualFold(message, "daemon already running"):
		if launched {
			return StartResult{State: StartStateStarted, Launched: true, Message: message}, nil
		}
		return StartResult{State: StartStateAlreadyRunning, Message: message}, nil
	case message != "":
		return StartResult{State: StartStateRequested, Launched: launched, Message: message}, nil
	}
	return StartResult{State: StartStateRequested, Launched: launched, Message: "Start request sent"}, nil
}

// WaitForShutdown waits for daemon IPC to disappear or report not-running.
func WaitForShutdown(socketPath string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		client, err := ipc.Dial(socketPath)
		if err != nil {
			if isDaemonUnavailable(err) {
				return nil
			}
			lastErr = err
			time.Sleep(200 * time.Millisecond)
			continue
		}
		status, statusErr := client.Status()
		_ = client.Close()
		if statusErr == nil && !status.Running {
			return nil
		}
		if statusErr != nil {
			lastErr = statusErr
		} else {
			lastErr = fmt.Errorf("daemon still running")
		}
		time.Sleep(200 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for shutdown")
	}
	return fmt.Errorf("daemon did not stop: %w", lastErr)
}

// ProcessInfo returns whether daemon IPC is reachable and the daemon PID when available.
func ProcessInfo(socketPath string) (bool, int, error) {
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if isDaemonUnavailable(err) {
			return false, 0, nil
		}
		return false, 0, err
	}
	defer client.Close()
	status, err := client.Status()
	if err != nil {
		return true, 0, err
	}
	return true, status.PID, nil
}

// DeriveLogDir determines the daemon log directory from status and config hints.
func DeriveLogDir(lockPath string, cfg *config.Config) string {
	if lockPath != "" {
		return filepath.Dir(lockPath)
	}
	if cfg != nil && strings.TrimSpace(cfg.Paths.LogDir) != "" {
		return cfg.Paths.LogDir
	}
	return ""
}

// ForceKillProcess sends SIGKILL to the daemon and removes its pid and lock files.
func ForceKillProcess(pidPath, lockPath string, fallbackPID int) (int, error) {
	pid := fallbackPID
	data, err := os.ReadFile(pidPath)
	switch {
	case err == nil:
		if parsed, parseErr := strconv.Atoi(strings.TrimSpace(string(data))); parseErr == nil && parsed > 0 {
			pid = parsed
		}
	case !errors.Is(err, os.ErrNotExist):
		return 0, fmt.Errorf("read daemon pid file %q: %w", pidPath, err)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("unable to determine daemon pid (pid file: %s)", pidPath)
	}
	if pid == os.Getpid() {
		return 0, fmt.Errorf("refusing to kill current process (pid %d)", pid)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, fmt.Errorf("locate daemon process %d: %w", pid, err)
	}
	if err := proc.Kill(); err != nil {
		return 0, fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	if err := os.Remove(pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("remove pid file %q: %w", pidPath, err)
	}
	if lockPath != "" {
		_ = os.Remove(lockPath)
	}
	return pid, nil
}

// ErrDaemonNotRunning indicates daemon IPC is unavailable.
var ErrDaemonNotRunning = errors.New("daemon not running")

// StopResult captures daemon stop/termination outcome.
type StopResult struct {
	StopAcknowledged bool
	ForcedKill       bool
	PID              int
}

// RestartResult captures stop/start outcomes for daemon restart.
type RestartResult struct {
	WasRunning bool
	Stop       StopResult
	Start      StartResult
}

// StopAndTerminate requests a graceful stop and force-kills the process if it
// is still reachable after gracePeriod.
func StopAndTerminate(socketPath string, cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if isDaemonUnavailable(err) {
			return StopResult{}, ErrDaemonNotRunning
		}
		return StopResult{}, err
	}
	var lockPath string
	pid := 0
	if status, statusErr := client.Status(); statusErr == nil {
		lockPath = status.LockFilePath
		pid = status.PID
	}
	resp, err := client.Stop()
	_ = client.Close()
	if err != nil {
		return StopResult{}, err
	}
	result := StopResult{PID: pid, StopAcknowledged: resp.Stopped}

	_ = WaitForShutdown(socketPath, gracePeriod)
	alive, livePID, aliveErr := ProcessInfo(socketPath)
	if aliveErr != nil || !alive {
		return result, nil
	}

	if livePID == 0 {
		livePID = pid
	}
	logDir := DeriveLogDir(lockPath, cfg)
	if logDir == "" {
		return result, fmt.Errorf("unable to determine daemon log directory")
	}
	killedPID, killErr := ForceKillProcess(filepath.Join(logDir, PIDFileName), filepath.Join(logDir, daemon.LockFileName), livePID)
	if killErr != nil {
		return result, fmt.Errorf("failed to stop daemon process: %w", killErr)
	}
	_ = os.Remove(socketPath)
	result.ForcedKill = true
	result.PID = killedPID
	return result, nil
}

// Restart stops the daemon if running, then ensures it is started.
func Restart(socketPath string, cfg *config.Config, executablePath string, opts LaunchOptions, stopGracePeriod, startWaitTimeout time.Duration) (RestartResult, error) {
	stopResult, stopErr := StopAndTerminate(socketPath, cfg, stopGracePeriod)
	if stopErr != nil && !errors.Is(stopErr, ErrDaemonNotRunning) {
		return RestartResult{}, stopErr
	}
	startResult, err := EnsureStarted(socketPath, executablePath, opts, startWaitTimeout)
	if err != nil {
		return RestartResult{}, err
	}
	return RestartResult{
		WasRunning: stopErr == nil,
		Stop:       stopResult,
		Start:      startResult,
	}, nil
}

// StatusSnapshot is the data behind `kiosk status`.
type StatusSnapshot struct {
	api.DaemonStatus
	SystemChecks      []api.StatusLine
	PathChecks        []api.StatusLine
	DependencySummary api.DependencySummary
	LastSession       *api.HistorySession
}

// BuildStatusSnapshot asks the daemon for status and fills in offline
// fallbacks from config, preflight checks, and the play log.
func BuildStatusSnapshot(ctx context.Context, socketPath string, cfg *config.Config) (*StatusSnapshot, error) {
	if cfg == nil {
		return nil, errors.New("configuration not available")
	}
	snap := &StatusSnapshot{}

	if client, err := ipc.Dial(socketPath); err == nil {
		if resp, statusErr := client.Status(); statusErr == nil {
			snap.DaemonStatus = *resp
		}
		_ = client.Close()
	}

	if len(snap.Dependencies) == 0 {
		snap.Dependencies = ResolveDependencies(ctx, cfg)
	}
	for i := range snap.Dependencies {
		if snap.Dependencies[i].Severity == "" {
			snap.Dependencies[i].Severity = dependencySeverity(snap.Dependencies[i])
		}
	}
	if !snap.Running {
		snap.LastSession = lastSession(ctx, cfg)
	}

	snap.SystemChecks = BuildSystemChecks(cfg, snap.Running, snap.Player)
	snap.PathChecks = BuildPathChecks(ctx, cfg)
	snap.DependencySummary = BuildDependencySummary(snap.Dependencies)
	return snap, nil
}

func isDaemonUnavailable(err error) bool {
	return os.IsNotExist(err) ||
		errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, syscall.ECONNREFUSED)
}

// ResolveDependencies returns current dependency availability for status output.
func ResolveDependencies(ctx context.Context, cfg *config.Config) []api.DependencyStatus {
	if cfg == nil {
		return nil
	}
	checks := preflight.CheckSystemDeps(ctx, cfg)
	statuses := make([]api.DependencyStatus, 0, len(checks))
	for _, check := range checks {
		status := api.DependencyStatus{
			Name:        check.Name,
			Command:     check.Command,
			Description: check.Description,
			Optional:    check.Optional,
			Available:   check.Available,
			Detail:      check.Detail,
		}
		status.Severity = dependencySeverity(status)
		statuses = append(statuses, status)
	}
	return statuses
}

func dependencySeverity(dep api.DependencyStatus) string {
	return deps.Status{Available: dep.Available, Optional: dep.Optional}.Severity()
}

// lastSession reads the newest play log session without the daemon. It
// returns nil when history is disabled or unreadable.
func lastSession(ctx context.Context, cfg *config.Config) *api.HistorySession {
	if !cfg.History.Enabled {
		return nil
	}
	if _, err := os.Stat(cfg.History.Path); err != nil {
		return nil
	}
	queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return nil
	}
	defer store.Close()
	sessions, err := store.Sessions(queryCtx, 1)
	if err != nil || len(sessions) == 0 {
		return nil
	}
	converted := api.FromHistorySessions(sessions)
	return &converted[0]
}

// BuildSystemChecks resolves status lines that combine runtime state and config.
func BuildSystemChecks(cfg *config.Config, daemonRunning bool, player api.PlayerState) []api.StatusLine {
	lines := make([]api.StatusLine, 0, 5)
	if !daemonRunning {
		lines = append(lines, api.StatusLine{Label: "Kiosk", Severity: "warn", Detail: "Not running (run `kiosk start`)"})
	} else {
		lines = append(lines, api.StatusLine{Label: "Kiosk", Severity: "ok", Detail: "Running"})
		lines = append(lines, playerLine(player))
		lines = append(lines, api.StatusLine{Label: "Display", Severity: "info", Detail: cfg.DisplayURL()})
	}

	if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
		lines = append(lines, api.StatusLine{Label: "Notifications", Severity: "ok", Detail: "Configured"})
	} else {
		lines = append(lines, api.StatusLine{Label: "Notifications", Severity: "info", Detail: "Not configured"})
	}

	switch {
	case !cfg.Hotplug.Enabled:
		lines = append(lines, api.StatusLine{Label: "Hotplug", Severity: "info", Detail: "Disabled"})
	case strings.TrimSpace(cfg.Hotplug.Label) != "":
		lines = append(lines, api.StatusLine{Label: "Hotplug", Severity: "ok", Detail: "Reload on media labelled " + cfg.Hotplug.Label})
	default:
		lines = append(lines, api.StatusLine{Label: "Hotplug", Severity: "ok", Detail: "Reload on any removable filesystem"})
	}
	return lines
}

func playerLine(player api.PlayerState) api.StatusLine {
	line := api.StatusLine{Label: "Playback"}
	switch player.Presentation {
	case "playing":
		line.Severity = "ok"
		line.Detail = fmt.Sprintf("Playing %d slides", player.Total)
		if player.Slide != nil {
			line.Detail = fmt.Sprintf("Slide %d/%d: %s", player.Slide.Index+1, player.Total, player.Slide.Source)
		}
		if player.Placeholder {
			line.Severity = "warn"
			line.Detail += " (render failed)"
		}
	case "error":
		line.Severity = "error"
		line.Detail = player.Message
	case "empty":
		line.Severity = "warn"
		line.Detail = "Playlist has no slides"
	default:
		line.Severity = "info"
		line.Detail = strings.TrimSpace(player.Message)
		if line.Detail == "" {
			line.Detail = player.Presentation
		}
	}
	return line
}

// BuildPathChecks reports readiness of the configured directories, playlist,
// and play log.
func BuildPathChecks(ctx context.Context, cfg *config.Config) []api.StatusLine {
	results := preflight.RunAll(ctx, cfg)
	lines := make([]api.StatusLine, 0, len(results))
	for _, result := range results {
		severity := "error"
		if result.Passed {
			severity = "ok"
		}
		lines = append(lines, api.StatusLine{Label: result.Name, Severity: severity, Detail: result.Detail})
	}
	return lines
}

// BuildDependencySummary computes aggregate dependency readiness.
func BuildDependencySummary(statuses []api.DependencyStatus) api.DependencySummary {
	if len(statuses) == 0 {
		return api.DependencySummary{Severity: "info", Detail: "No dependency checks configured"}
	}

	missingRequired, missingOptional := 0, 0
	for _, dep := range statuses {
		switch {
		case dep.Available:
		case dep.Optional:
			missingOptional++
		default:
			missingRequired++
		}
	}

	missing := missingRequired + missingOptional
	available := len(statuses) - missing
	severity := "ok"
	if missingRequired > 0 {
		severity = "error"
	} else if missingOptional > 0 {
		severity = "warn"
	}
	detail := fmt.Sprintf("%d/%d available", available, len(statuses))
	if missing > 0 {
		detail = fmt.Sprintf("%d/%d available (missing: %d required, %d optional)", available, len(statuses), missingRequired, missingOptional)
	}
	return api.DependencySummary{
		Total:           len(statuses),
		Available:       available,
		MissingRequired: missingRequired,
		MissingOptional: missingOptional,
		Severity:        severity,
		Detail:          detail,
	}
}
