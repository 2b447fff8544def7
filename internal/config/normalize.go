package config

import (
	"fmt"
	"net"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizePlayer(); err != nil {
		return err
	}
	if err := c.normalizeHistory(); err != nil {
		return err
	}
	c.normalizeRender()
	c.normalizeHotplug()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.MediaDir, err = expandPath(c.Paths.MediaDir); err != nil {
		return fmt.Errorf("paths.media_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("KIOSK_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	c.Paths.PublicURL = strings.TrimSpace(c.Paths.PublicURL)
	return nil
}

func (c *Config) normalizePlayer() error {
	c.Player.Playlist = strings.TrimSpace(c.Player.Playlist)
	if value, ok := os.LookupEnv("KIOSK_PLAYLIST"); ok && strings.TrimSpace(value) != "" {
		c.Player.Playlist = strings.TrimSpace(value)
	}
	if c.Player.Playlist != "" && !isHTTPURL(c.Player.Playlist) {
		var err error
		if c.Player.Playlist, err = expandPath(c.Player.Playlist); err != nil {
			return fmt.Errorf("player.playlist: %w", err)
		}
	}
	if c.Player.RenderTimeoutSeconds == 0 {
		c.Player.RenderTimeoutSeconds = defaultRenderTimeout
	}
	return nil
}

func (c *Config) normalizeRender() {
	c.Render.FFprobeBinary = strings.TrimSpace(c.Render.FFprobeBinary)
	if c.Render.FFprobeBinary == "" {
		c.Render.FFprobeBinary = defaultFFprobeBinary
	}
}

func (c *Config) normalizeHotplug() {
	c.Hotplug.Label = strings.TrimSpace(c.Hotplug.Label)
}

func (c *Config) normalizeHistory() error {
	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = defaultHistoryPath
	}
	var err error
	if c.History.Path, err = expandPath(c.History.Path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout == 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func splitBind(bind string) (string, string) {
	host, port, err := net.SplitHostPort(strings.TrimSpace(bind))
	if err != nil {
		return strings.TrimSpace(bind), ""
	}
	return host, port
}

func joinHostPort(host, port string) string {
	if port == "" {
		return host
	}
	return net.JoinHostPort(host, port)
}
