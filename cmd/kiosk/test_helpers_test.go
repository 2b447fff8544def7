package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"kiosk/internal/config"
	"kiosk/internal/daemon"
	"kiosk/internal/ipc"
	"kiosk/internal/logging"
	"kiosk/internal/playlist"
	"kiosk/internal/session"
	"kiosk/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	daemon     *daemon.Daemon
	server     *ipc.Server
	socketPath string
	configPath string
	logPath    string
}

// newCLIConfig writes a two-slide playlist with real media files and a
// config file pointing at it.
func newCLIConfig(t *testing.T) (*config.Config, string) {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.MediaDir, "intro.mp4"), 64)
	testsupport.WriteGLB(t, filepath.Join(cfg.Paths.MediaDir, "engine.glb"))
	testsupport.WritePlaylist(t, cfg.Player.Playlist,
		playlist.Entry{File: "intro.mp4", RotationTime: 60, Type: "video"},
		playlist.Entry{File: "engine.glb", RotationTime: 30, Type: "3d"},
	)

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)
	return cfg, configPath
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg, configPath := newCLIConfig(t)
	logPath := filepath.Join(cfg.Paths.LogDir, "kiosk-test.log")
	if err := os.WriteFile(logPath, nil, 0o644); err != nil {
		t.Fatalf("create log file: %v", err)
	}

	store := testsupport.MustOpenHistory(t, cfg)
	logger := logging.NewNop()
	sessions, err := session.NewManager(session.Options{Config: cfg, Logger: logger, History: store})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	d, err := daemon.New(cfg, sessions, store, logger, logPath, nil, nil, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	socketPath := filepath.Join(cfg.Paths.LogDir, "cli.sock")
	srv, err := ipc.NewServer(ctx, socketPath, d, logger)
	if err != nil {
		cancel()
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping CLI test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	t.Cleanup(func() {
		cancel()
		srv.Close()
		_ = d.Close()
	})

	return &cliTestEnv{
		cfg:        cfg,
		daemon:     d,
		server:     srv,
		socketPath: socketPath,
		configPath: configPath,
		logPath:    logPath,
	}
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if socket != "" {
		flags = append(flags, "--socket", socket)
	}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
log_dir = %q
media_dir = %q
api_bind = %q

[player]
playlist = %q
fade_ms = %d

[render]
probe_videos = false
verify_models = true

[hotplug]
enabled = false

[history]
enabled = true
path = %q
`,
		cfg.Paths.LogDir,
		cfg.Paths.MediaDir,
		cfg.Paths.APIBind,
		cfg.Player.Playlist,
		cfg.Player.FadeMS,
		cfg.History.Path,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(line + "\n")
	return err
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

// syncBuffer is a bytes.Buffer safe for concurrent writer and reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
