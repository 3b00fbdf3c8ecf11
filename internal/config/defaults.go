package config

const (
	defaultDataDir             = "~/.local/share/streamwatch/data"
	defaultScreenshotsDir      = "~/.local/share/streamwatch/reports/screenshots"
	defaultReportDir           = "~/.local/share/streamwatch/reports"
	defaultLogDir              = "~/.local/share/streamwatch/logs"
	defaultLogoPath            = "~/.local/share/streamwatch/data/logos/reference_logo.png"
	defaultAPIBind             = "127.0.0.1:8591"
	defaultTwitchBaseURL       = "https://api.twitch.tv/helix"
	defaultTwitchAuthURL       = "https://id.twitch.tv/oauth2/token"
	defaultDetectionThreshold  = 0.6
	defaultThumbnailWidth      = 1920
	defaultThumbnailHeight     = 1080
	defaultCheckIntervalHours  = 1
	defaultRetentionDays       = 30
	defaultPruneAt             = "03:00"
	defaultFetchTimeoutSeconds = 10
	defaultNtfyRequestTimeout  = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:        defaultDataDir,
			ScreenshotsDir: defaultScreenshotsDir,
			ReportDir:      defaultReportDir,
			LogDir:         defaultLogDir,
			LogoPath:       defaultLogoPath,
			APIBind:        defaultAPIBind,
		},
		Twitch: Twitch{
			BaseURL: defaultTwitchBaseURL,
			AuthURL: defaultTwitchAuthURL,
		},
		Detection: Detection{
			Threshold:       defaultDetectionThreshold,
			ThumbnailWidth:  defaultThumbnailWidth,
			ThumbnailHeight: defaultThumbnailHeight,
		},
		Monitor: Monitor{
			CheckIntervalHours:  defaultCheckIntervalHours,
			RetentionDays:       defaultRetentionDays,
			PruneAt:             defaultPruneAt,
			FetchTimeoutSeconds: defaultFetchTimeoutSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyRequestTimeout,
			Detections:     true,
			Cycles:         true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
