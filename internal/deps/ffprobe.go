package deps

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ResolveFFprobePath returns the ffprobe binary to run. An explicitly
// configured path wins; a bare name is resolved through PATH and returned
// unchanged when it cannot be found.
func ResolveFFprobePath(configured string) string {
	name := strings.TrimSpace(configured)
	if name == "" {
		name = executableName("ffprobe")
	}
	if filepath.IsAbs(name) || strings.ContainsRune(name, os.PathSeparator) {
		return name
	}
	if resolved, err := exec.LookPath(name); err == nil {
		return resolved
	}
	return name
}

// CheckFFprobe reports whether ffprobe is usable. It is optional unless
// video probing is enabled.
func CheckFFprobe(configured string, required bool) Status {
	return Requirement{
		Name:        "FFprobe",
		Command:     ResolveFFprobePath(configured),
		Description: "Verifies video slides carry a playable stream",
		Optional:    !required,
	}.Check()
}

func executableName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
