package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"kiosk/internal/services"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected unsupported format error")
	}
}

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "kiosk.log")
	logger, err := New(Options{Format: "json", OutputPaths: []string{path}, ErrorOutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("slide activated", Uint64(FieldActivation, 3), Duration("fade", 1500*time.Millisecond))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &line); err != nil {
		t.Fatalf("decode %q: %v", data, err)
	}
	if line["msg"] != "slide activated" || line["level"] != "info" || line["activation"] != float64(3) {
		t.Fatalf("unexpected json line %v", line)
	}
	if _, ok := line["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", line)
	}
	if line["fade"] != "1.5s" {
		t.Fatalf("expected duration rendered as text, got %v", line["fade"])
	}
}

func TestPrettyHandlerInfoBullets(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newPrettyHandler(&buf, lvl, false)).With(String(FieldComponent, "player"))
	logger.Info("playlist loaded", Int("slides", 2), String("slides", "two"))

	out := buf.String()
	if !strings.Contains(out, "INFO player: playlist loaded\n") {
		t.Fatalf("unexpected header: %q", out)
	}
	if strings.Count(out, "- slides:") != 1 || !strings.Contains(out, "    - slides: two\n") {
		t.Fatalf("expected deduped bullet, got %q", out)
	}
}

func TestPrettyHandlerDebugInline(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelDebug)
	logger := slog.New(newPrettyHandler(&buf, lvl, false))
	logger.Debug("stale timer ignored", Uint64("generation", 4), String("note", "two words"))

	out := buf.String()
	if !strings.Contains(out, `generation=4 note="two words"`) {
		t.Fatalf("expected inline fields, got %q", out)
	}
}

func TestStreamHandlerPublishesEvents(t *testing.T) {
	hub := NewStreamHub(16)
	base := slog.NewTextHandler(&bytes.Buffer{}, nil)
	logger := slog.New(newStreamHandler(base, hub)).
		With(String(FieldComponent, "session"), String(FieldSessionID, "s-1"))

	logger.Info("slide activated", Uint64(FieldActivation, 9), String(FieldSource, "a.mp4"))
	logger.Info("override", String(FieldComponent, "render"))

	entries, _ := hub.Tail(10)
	events := EventsFromEntries(entries)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	first := events[0]
	if first.Sequence != 1 || first.Component != "session" || first.SessionID != "s-1" || first.Activation != 9 {
		t.Fatalf("unexpected event %+v", first)
	}
	if first.Fields[FieldSource] != "a.mp4" {
		t.Fatalf("expected source field, got %+v", first.Fields)
	}
	if events[1].Component != "render" {
		t.Fatalf("call-site component should win, got %q", events[1].Component)
	}
}

func TestStreamHandlerNilHubReturnsBase(t *testing.T) {
	base := slog.NewTextHandler(&bytes.Buffer{}, nil)
	if newStreamHandler(base, nil) != base {
		t.Fatal("expected base handler when hub is nil")
	}
}

func TestSessionIDHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newSessionIDHandler(slog.NewJSONHandler(&buf, nil), "run-123"))

	logger.Info("first")
	logger.With(String(FieldSessionID, "player-7")).Info("second")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", buf.String())
	}
	if !strings.Contains(lines[0], `"session_id":"run-123"`) {
		t.Fatalf("expected run id, got %s", lines[0])
	}
	if strings.Contains(lines[1], "run-123") || !strings.Contains(lines[1], `"session_id":"player-7"`) {
		t.Fatalf("player session id should win, got %s", lines[1])
	}
}

func TestFanoutHandler(t *testing.T) {
	var infoBuf, warnBuf bytes.Buffer
	info := slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	warn := slog.NewJSONHandler(&warnBuf, &slog.HandlerOptions{Level: slog.LevelWarn})

	if _, ok := newFanoutHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected noop for all-nil handlers")
	}
	if newFanoutHandler(nil, info) != info {
		t.Fatal("expected single handler to be returned unwrapped")
	}

	logger := TeeLogger(slog.New(info), warn).With(String("key", "value"))
	if !logger.Handler().Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("expected info enabled through the info handler")
	}
	logger.Info("info only")
	logger.Warn("both")

	if strings.Count(infoBuf.String(), "\n") != 2 {
		t.Fatalf("info handler should see both records, got %q", infoBuf.String())
	}
	if strings.Count(warnBuf.String(), "\n") != 1 || !strings.Contains(warnBuf.String(), `"key":"value"`) {
		t.Fatalf("warn handler should see one record with attrs, got %q", warnBuf.String())
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	WarnWithContext(logger, "slide render failed", "slide_render_failed", String(FieldImpact, "placeholder shown"))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if line[FieldEventType] != "slide_render_failed" || line[FieldErrorHint] != "check logs for details" || line[FieldImpact] != "placeholder shown" {
		t.Fatalf("unexpected fields %v", line)
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	ctx := services.WithSessionID(context.Background(), "s-9")
	ctx = services.WithActivation(ctx, uint64(4))
	ctx = services.WithRequestID(ctx, "req-1")

	WithContext(ctx, slog.New(slog.NewJSONHandler(&buf, nil))).Info("hello", Error(errors.New("boom")))
	out := buf.String()
	for _, want := range []string{`"session_id":"s-9"`, `"activation":4`, `"correlation_id":"req-1"`, `"error":"boom"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in %s", want, out)
		}
	}
}

func TestEventArchiveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.events")
	archive, err := NewEventArchive(path)
	if err != nil {
		t.Fatalf("NewEventArchive: %v", err)
	}
	defer archive.Close()

	hub := NewStreamHub(2)
	hub.AddSink(archive)
	for _, msg := range []string{"one", "two", "three"} {
		hub.Publish(LogEvent{Message: msg, Level: "INFO", Timestamp: time.Now()})
	}

	events, highest, err := archive.ReadSince(1, 0)
	if err != nil {
		t.Fatalf("ReadSince: %v", err)
	}
	if highest != 3 || len(events) != 2 || events[0].Message != "two" || events[0].Sequence != 2 {
		t.Fatalf("unexpected archive read %+v highest=%d", events, highest)
	}
	if first := hub.FirstSequence(); first != 2 {
		t.Fatalf("hub should have rolled over, first=%d", first)
	}
}

func TestNilEventArchive(t *testing.T) {
	archive, err := NewEventArchive("  ")
	if err != nil || archive != nil {
		t.Fatalf("expected disabled archive, got %v %v", archive, err)
	}
	events, since, err := archive.ReadSince(5, 0)
	if err != nil || events != nil || since != 5 {
		t.Fatalf("nil archive should be inert")
	}
}

func TestCleanupOldLogs(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "kiosk-old.log")
	current := filepath.Join(dir, "kiosk-current.log")
	other := filepath.Join(dir, "notes.txt")
	for _, path := range []string{old, current, other} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		past := time.Now().AddDate(0, 0, -30)
		if err := os.Chtimes(path, past, past); err != nil {
			t.Fatal(err)
		}
	}

	if removed := CleanupOldLogs(NewNop(), 7, RetentionTarget{Dir: dir, Pattern: "kiosk-*.log", Exclude: []string{current}}); removed != 1 {
		t.Fatalf("expected 1 file pruned, got %d", removed)
	}

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected old log removed, got %v", err)
	}
	for _, keep := range []string{current, other} {
		if _, err := os.Stat(keep); err != nil {
			t.Fatalf("expected %s kept: %v", keep, err)
		}
	}
}

func TestCleanupOldLogsKeepsRecentAndDisabled(t *testing.T) {
	dir := t.TempDir()
	recent := filepath.Join(dir, "kiosk-recent.events")
	stale := filepath.Join(dir, "kiosk-stale.events")
	for _, path := range []string{recent, stale} {
		if err := os.WriteFile(path, []byte("{}\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().AddDate(0, 0, -10)
	if err := os.Chtimes(stale, past, past); err != nil {
		t.Fatal(err)
	}
	target := RetentionTarget{Dir: dir, Pattern: "kiosk-*.events"}

	if removed := CleanupOldLogs(NewNop(), 0, target); removed != 0 {
		t.Fatalf("retention 0 should keep everything, removed %d", removed)
	}
	if removed := CleanupOldLogs(NewNop(), 3, target); removed != 1 {
		t.Fatalf("expected stale archive pruned, removed %d", removed)
	}
	if _, err := os.Stat(recent); err != nil {
		t.Fatalf("recent archive should survive: %v", err)
	}
	if removed := CleanupOldLogs(NewNop(), 3, RetentionTarget{Pattern: "*"}); removed != 0 {
		t.Fatalf("target without dir should be ignored, removed %d", removed)
	}
}
