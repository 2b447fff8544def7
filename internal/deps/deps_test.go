package deps

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}

	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}

	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}

	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
}

func TestResolveFFprobePathPrefersPATH(t *testing.T) {
	binDir := t.TempDir()
	stub := filepath.Join(binDir, executableName("ffprobe"))
	if err := os.WriteFile(stub, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	t.Setenv("PATH", binDir)

	if got := ResolveFFprobePath(""); got != stub {
		t.Fatalf("expected %q, got %q", stub, got)
	}
	if got := ResolveFFprobePath("/opt/ffmpeg/bin/ffprobe"); got != "/opt/ffmpeg/bin/ffprobe" {
		t.Fatalf("explicit path should be kept, got %q", got)
	}
	if got := ResolveFFprobePath("ffprobe-nightly"); got != "ffprobe-nightly" {
		t.Fatalf("unresolved name should be kept, got %q", got)
	}
}

func TestCheckFFprobeOptionality(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	optional := CheckFFprobe("", false)
	if optional.Available || !optional.Optional {
		t.Fatalf("expected optional missing ffprobe, got %#v", optional)
	}
	required := CheckFFprobe("", true)
	if required.Optional {
		t.Fatalf("expected required ffprobe when probing is enabled, got %#v", required)
	}

	if runtime.GOOS == "windows" {
		return
	}
	dir := t.TempDir()
	plain := filepath.Join(dir, "ffprobe")
	if err := os.WriteFile(plain, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if status := CheckFFprobe(plain, true); status.Available {
		t.Fatalf("non-executable file reported available: %#v", status)
	}
}

func TestStatusSeverity(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{Status{Available: true}, "ok"},
		{Status{Available: true, Optional: true}, "ok"},
		{Status{Optional: true}, "warn"},
		{Status{}, "error"},
	}
	for _, tt := range tests {
		if got := tt.status.Severity(); got != tt.want {
			t.Fatalf("Severity(%#v) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestCheckUnconfiguredCommand(t *testing.T) {
	status := Requirement{Name: "Blank", Command: "  "}.Check()
	if status.Available || status.Detail != "command not configured" {
		t.Fatalf("unexpected status for blank command: %#v", status)
	}
}
