package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	LogDir   string `toml:"log_dir"`
	MediaDir string `toml:"media_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
	// PublicURL is the address screens use to reach the display page. It is
	// derived from api_bind when empty.
	PublicURL string `toml:"public_url"`
}

// Player contains playlist and transition timing settings.
type Player struct {
	Playlist             string `toml:"playlist"`
	FadeMS               int    `toml:"fade_ms"`
	RenderTimeoutSeconds int    `toml:"render_timeout_seconds"`
}

// Render controls how slide assets are checked before display.
type Render struct {
	FFprobeBinary string `toml:"ffprobe_binary"`
	ProbeVideos   bool   `toml:"probe_videos"`
	VerifyModels  bool   `toml:"verify_models"`
	AwaitDisplay  bool   `toml:"await_display"`
}

// Hotplug controls reloading the playlist when removable media appears.
type Hotplug struct {
	Enabled bool   `toml:"enabled"`
	Label   string `toml:"label"`
}

// History controls the SQLite play log.
type History struct {
	Enabled       bool   `toml:"enabled"`
	Path          string `toml:"path"`
	RetentionDays int    `toml:"retention_days"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic          string `toml:"ntfy_topic"`
	RequestTimeout     int    `toml:"request_timeout"`
	PlaylistErrors     bool   `toml:"playlist_errors"`
	RenderFailures     bool   `toml:"render_failures"`
	DedupWindowSeconds int    `toml:"dedup_window_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for kiosk.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Player        Player        `toml:"player"`
	Render        Render        `toml:"render"`
	Hotplug       Hotplug       `toml:"hotplug"`
	History       History       `toml:"history"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path of the per-user config file.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, normalizes and validates a configuration file. When
// no file exists the defaults are returned with exists=false.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the daemon writes to. The media
// directory is created best-effort since it may live on removable storage.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Paths.LogDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.LogDir, err)
	}
	if c.History.Enabled {
		if dir := filepath.Dir(c.History.Path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create history directory %q: %w", dir, err)
			}
		}
	}
	if strings.TrimSpace(c.Paths.MediaDir) != "" {
		_ = os.MkdirAll(c.Paths.MediaDir, 0o755)
	}
	return nil
}

// FFprobeBinary returns the ffprobe executable used for video probing.
func (c *Config) FFprobeBinary() string {
	if bin := strings.TrimSpace(c.Render.FFprobeBinary); bin != "" {
		return bin
	}
	return defaultFFprobeBinary
}

// FadeDuration returns how long the transition between two slides lasts.
func (c *Config) FadeDuration() time.Duration {
	return time.Duration(c.Player.FadeMS) * time.Millisecond
}

// RenderTimeout returns the safety bound for one slide activation.
func (c *Config) RenderTimeout() time.Duration {
	return time.Duration(c.Player.RenderTimeoutSeconds) * time.Second
}

// PlaylistIsRemote reports whether the playlist is fetched over HTTP.
func (c *Config) PlaylistIsRemote() bool {
	return isHTTPURL(c.Player.Playlist)
}

// DisplayURL returns the address of the display page.
func (c *Config) DisplayURL() string {
	if u := strings.TrimSpace(c.Paths.PublicURL); u != "" {
		return u
	}
	host, port := splitBind(c.Paths.APIBind)
	switch host {
	case "", "0.0.0.0", "::":
		if name, err := os.Hostname(); err == nil && name != "" {
			host = name
		} else {
			host = "localhost"
		}
	}
	return (&url.URL{Scheme: "http", Host: joinHostPort(host, port), Path: "/"}).String()
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the annotated sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes the sample configuration to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
