package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validatePaths,
		c.validatePlayer,
		c.validateHistory,
		c.validateNotifications,
		c.validateLogging,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	_, port, err := net.SplitHostPort(c.Paths.APIBind)
	if err != nil {
		return fmt.Errorf("paths.api_bind must be host:port: %w", err)
	}
	if n, err := strconv.Atoi(port); err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("paths.api_bind port %q is out of range", port)
	}
	if c.Paths.PublicURL != "" && !isHTTPURL(c.Paths.PublicURL) {
		return errors.New("paths.public_url must be an http(s) URL")
	}
	return nil
}

func (c *Config) validatePlayer() error {
	if c.Player.FadeMS < 0 || c.Player.FadeMS > maxFadeMS {
		return fmt.Errorf("player.fade_ms must be between 0 and %d", maxFadeMS)
	}
	if c.Player.RenderTimeoutSeconds <= 0 || c.Player.RenderTimeoutSeconds > maxRenderTimeoutSeconds {
		return fmt.Errorf("player.render_timeout_seconds must be between 1 and %d", maxRenderTimeoutSeconds)
	}
	lower := strings.ToLower(c.Player.Playlist)
	if (strings.HasPrefix(lower, "http:") || strings.HasPrefix(lower, "https:")) && !isHTTPURL(c.Player.Playlist) {
		return fmt.Errorf("player.playlist is not a valid URL: %q", c.Player.Playlist)
	}
	return nil
}

func (c *Config) validateHistory() error {
	if c.History.RetentionDays < 0 || c.History.RetentionDays > maxHistoryRetentionDays {
		return fmt.Errorf("history.retention_days must be between 0 and %d", maxHistoryRetentionDays)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 || c.Notifications.RequestTimeout > maxNotifyTimeoutSeconds {
		return fmt.Errorf("notifications.request_timeout must be between 1 and %d", maxNotifyTimeoutSeconds)
	}
	if c.Notifications.DedupWindowSeconds < 0 || c.Notifications.DedupWindowSeconds > maxNotifyDedupWindowSecond {
		return fmt.Errorf("notifications.dedup_window_seconds must be between 0 and %d", maxNotifyDedupWindowSecond)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}
