package preflight

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"kiosk/internal/config"
	"kiosk/internal/deps"
	"kiosk/internal/playlist"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckHistoryPath verifies the play log database can be created.
func CheckHistoryPath(path string) Result {
	const name = "History database"
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{Name: name, Detail: "path not configured"}
	}
	// Open creates missing directories, so the nearest existing ancestor
	// is the one that must be writable.
	dir := filepath.Dir(path)
	for {
		if _, err := os.Stat(dir); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	if err := unix.Access(dir, unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s not writable: %v)", path, dir, err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckPlaylistSource verifies the playlist can be reached without decoding
// it: local files must be readable and remote documents must answer 2xx.
func CheckPlaylistSource(ctx context.Context, source string) Result {
	const name = "Playlist"
	loader, err := playlist.NewLoader(source, nil)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	switch l := loader.(type) {
	case *playlist.HTTPLoader:
		return checkRemoteDocument(ctx, name, l.URL)
	default:
		path := loader.Source()
		f, err := os.Open(path)
		if err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
		}
		_ = f.Close()
		return Result{Name: name, Passed: true, Detail: path}
	}
}

func checkRemoteDocument(ctx context.Context, name, rawURL string) Result {
	if _, err := url.Parse(rawURL); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("invalid url (%v)", err)}
	}
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("request failed (%v)", err)}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("unreachable (%v)", err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{Name: name, Detail: fmt.Sprintf("failed to load configuration file (%d)", resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: rawURL + " (reachable)"}
}

// CheckSystemDeps evaluates all system-level dependencies for the given config.
// Both the daemon and the CLI status command use this to avoid duplicating
// the requirements list.
func CheckSystemDeps(_ context.Context, cfg *config.Config) []deps.Status {
	if cfg == nil {
		return nil
	}
	return []deps.Status{deps.CheckFFprobe(cfg.FFprobeBinary(), cfg.Render.ProbeVideos)}
}
