package preflight

import (
	"context"

	"kiosk/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	var results []Result

	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	results = append(results, CheckDirectoryAccess("Media directory", cfg.Paths.MediaDir))
	results = append(results, CheckPlaylistSource(ctx, cfg.Player.Playlist))

	if cfg.History.Enabled {
		results = append(results, CheckHistoryPath(cfg.History.Path))
	}
	return results
}
