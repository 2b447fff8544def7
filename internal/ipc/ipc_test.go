package ipc_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"kiosk/internal/daemon"
	"kiosk/internal/ipc"
	"kiosk/internal/logging"
	"kiosk/internal/playlist"
	"kiosk/internal/render"
	"kiosk/internal/session"
	"kiosk/internal/testsupport"
)

type staticLoader struct{}

func (staticLoader) Load(context.Context) (playlist.Playlist, error) {
	return playlist.New(playlist.Slide{Source: "a.glb", Duration: time.Minute, Kind: playlist.KindModel3D}), nil
}
func (staticLoader) Source() string { return "memory://playlist" }

type readyRenderer struct{ kind playlist.Kind }

func (r readyRenderer) Kind() playlist.Kind                           { return r.kind }
func (r readyRenderer) Prepare(context.Context, playlist.Slide) error { return nil }

func TestIPCServerClient(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = "127.0.0.1:0"
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store := testsupport.MustOpenHistory(t, cfg)
	logPath := filepath.Join(cfg.Paths.LogDir, "ipc-test.log")
	logger := logging.NewNop()

	sessions, err := session.NewManager(session.Options{
		Config:        cfg,
		Logger:        logger,
		History:       store,
		Renderers:     []render.Renderer{readyRenderer{playlist.KindVideo}, readyRenderer{playlist.KindModel3D}},
		LoaderFactory: func(string) (playlist.Loader, error) { return staticLoader{}, nil },
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	d, err := daemon.New(cfg, sessions, store, logger, logPath, logging.NewStreamHub(128), nil, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	socket := filepath.Join(cfg.Paths.LogDir, "kiosk.sock")
	srv, err := ipc.NewServer(ctx, socket, d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	startResp, err := client.Start()
	if err != nil {
		t.Fatalf("Start RPC failed: %v", err)
	}
	if !startResp.Started {
		t.Fatalf("expected Started=true, message=%s", startResp.Message)
	}
	if again, err := client.Start(); err != nil || again.Started {
		t.Fatalf("expected second start to be refused, got %+v err=%v", again, err)
	}

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if !status.Running || status.HistoryDBPath != store.Path() {
		t.Fatalf("unexpected status %+v", status)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		player, err := client.Player()
		if err != nil {
			t.Fatalf("Player RPC failed: %v", err)
		}
		if player.State.Presentation == "playing" && player.State.Slide != nil {
			if player.State.Slide.Kind != "3d" {
				t.Fatalf("unexpected slide kind %q", player.State.Slide.Kind)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("player never started, last state %+v", player.State)
		}
		time.Sleep(10 * time.Millisecond)
	}

	for {
		history, err := client.History(10)
		if err != nil {
			t.Fatalf("History RPC failed: %v", err)
		}
		if !history.Enabled {
			t.Fatal("expected history enabled")
		}
		if len(history.Records) > 0 {
			if history.Records[0].Source != "a.glb" {
				t.Fatalf("unexpected history record %+v", history.Records[0])
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("activation never reached the play log")
		}
		time.Sleep(10 * time.Millisecond)
	}

	before := status.Player.SessionID
	reload, err := client.Reload()
	if err != nil {
		t.Fatalf("Reload RPC failed: %v", err)
	}
	if reload.SessionID == "" || reload.SessionID == before {
		t.Fatalf("expected new session, before=%q after=%q", before, reload.SessionID)
	}

	if err := os.WriteFile(logPath, []byte("first\nsecond\nthird\n"), 0o644); err != nil {
		t.Fatalf("write log file: %v", err)
	}
	logResp, err := client.LogTail(ipc.LogTailRequest{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("LogTail initial failed: %v", err)
	}
	if len(logResp.Lines) != 2 || logResp.Lines[0] != "second" || logResp.Lines[1] != "third" {
		t.Fatalf("unexpected log tail response: %#v", logResp.Lines)
	}

	followDone := make(chan *ipc.LogTailResponse, 1)
	go func(offset int64) {
		resp, err := client.LogTail(ipc.LogTailRequest{Offset: offset, Follow: true, WaitMillis: 2000})
		if err != nil {
			t.Errorf("LogTail follow error: %v", err)
		}
		followDone <- resp
	}(logResp.Offset)

	time.Sleep(100 * time.Millisecond)
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("append log: %v", err)
	}
	_, _ = f.WriteString("fourth\n")
	_ = f.Close()

	select {
	case resp := <-followDone:
		if resp == nil || len(resp.Lines) != 1 || resp.Lines[0] != "fourth" {
			t.Fatalf("unexpected follow response: %#v", resp)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("log tail follow timed out")
	}

	notifyResp, err := client.TestNotification()
	if err != nil {
		t.Fatalf("TestNotification failed: %v", err)
	}
	if notifyResp.Sent || notifyResp.Message != "ntfy topic not configured" {
		t.Fatalf("unexpected notification response: %#v", notifyResp)
	}

	stopResp, err := client.Stop()
	if err != nil {
		t.Fatalf("Stop RPC failed: %v", err)
	}
	if !stopResp.Stopped {
		t.Fatal("expected stop response to be true")
	}
	status2, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if status2.Running || status2.Player.Presentation != "stopped" {
		t.Fatalf("expected stopped daemon, got %+v", status2)
	}
}
