package config

const (
	defaultConfigPath          = "~/.config/kiosk/config.toml"
	projectConfigName          = "kiosk.toml"
	defaultLogDir              = "~/.local/share/kiosk/logs"
	defaultMediaDir            = "~/.local/share/kiosk/media"
	defaultPlaylist            = "~/.config/kiosk/playlist.json"
	defaultHistoryPath         = "~/.local/share/kiosk/history.db"
	defaultAPIBind             = "127.0.0.1:7490"
	defaultFadeMS              = 500
	defaultRenderTimeout       = 10
	defaultFFprobeBinary       = "ffprobe"
	defaultHistoryRetention    = 30
	defaultNotifyTimeout       = 10
	defaultNotifyDedupWindow   = 600
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 30
	maxFadeMS                  = 10000
	maxRenderTimeoutSeconds    = 600
	maxNotifyTimeoutSeconds    = 120
	maxHistoryRetentionDays    = 3650
	maxNotifyDedupWindowSecond = 86400
)

// Default returns a Config populated with kiosk defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:   defaultLogDir,
			MediaDir: defaultMediaDir,
			APIBind:  defaultAPIBind,
		},
		Player: Player{
			Playlist:             defaultPlaylist,
			FadeMS:               defaultFadeMS,
			RenderTimeoutSeconds: defaultRenderTimeout,
		},
		Render: Render{
			FFprobeBinary: defaultFFprobeBinary,
			ProbeVideos:   true,
			VerifyModels:  true,
		},
		History: History{
			Enabled:       true,
			Path:          defaultHistoryPath,
			RetentionDays: defaultHistoryRetention,
		},
		Notifications: Notifications{
			RequestTimeout:     defaultNotifyTimeout,
			PlaylistErrors:     true,
			RenderFailures:     true,
			DedupWindowSeconds: defaultNotifyDedupWindow,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
