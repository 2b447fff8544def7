package logging

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// RetentionTarget selects run artifacts in Dir whose names match Pattern.
// Paths listed in Exclude belong to the current run and are never pruned.
type RetentionTarget struct {
	Dir     string
	Pattern string
	Exclude []string
}

func (t RetentionTarget) candidates() []string {
	dir := strings.TrimSpace(t.Dir)
	if dir == "" {
		return nil
	}
	pattern := strings.TrimSpace(t.Pattern)
	if pattern == "" {
		pattern = "*"
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil
	}
	keep := make([]string, 0, len(t.Exclude))
	for _, path := range t.Exclude {
		if abs := absPath(path); abs != "" {
			keep = append(keep, abs)
		}
	}
	out := matches[:0]
	for _, match := range matches {
		if !slices.Contains(keep, absPath(match)) {
			out = append(out, match)
		}
	}
	return out
}

// CleanupOldLogs deletes run logs, event archives and debug logs last written
// more than retentionDays ago and returns how many files were removed.
// retentionDays <= 0 keeps everything.
func CleanupOldLogs(logger *slog.Logger, retentionDays int, targets ...RetentionTarget) int {
	if retentionDays <= 0 {
		return 0
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	removed := 0
	for _, target := range targets {
		for _, path := range target.candidates() {
			info, err := os.Stat(path)
			if err != nil || info.IsDir() || !info.ModTime().Before(cutoff) {
				continue
			}
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				WarnWithContext(logger, "old run log could not be removed", "log_retention_failed",
					String("path", path),
					Error(err),
					String(FieldErrorHint, "check ownership of paths.log_dir"),
					String(FieldImpact, "stale kiosk logs keep using disk space"),
				)
				continue
			}
			removed++
			if logger != nil {
				logger.Debug("run log pruned", String("path", path))
			}
		}
	}
	if removed > 0 && logger != nil {
		logger.Info("old run logs pruned",
			String(FieldEventType, "log_pruned"),
			Int("removed", removed),
			Int("retention_days", retentionDays),
		)
	}
	return removed
}

func absPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
