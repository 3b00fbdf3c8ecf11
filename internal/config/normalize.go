package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeTwitch(); err != nil {
		return err
	}
	if err := c.normalizeDetection(); err != nil {
		return err
	}
	if err := c.normalizeMonitor(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.ScreenshotsDir, err = expandPath(c.Paths.ScreenshotsDir); err != nil {
		return fmt.Errorf("paths.screenshots_dir: %w", err)
	}
	if c.Paths.ReportDir, err = expandPath(c.Paths.ReportDir); err != nil {
		return fmt.Errorf("paths.report_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.LogoPath, err = expandPath(c.Paths.LogoPath); err != nil {
		return fmt.Errorf("paths.logo_path: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeTwitch() error {
	if c.Twitch.ClientID == "" {
		if value, ok := os.LookupEnv("TWITCH_CLIENT_ID"); ok {
			c.Twitch.ClientID = strings.TrimSpace(value)
		}
	}
	if c.Twitch.ClientSecret == "" {
		if value, ok := os.LookupEnv("TWITCH_CLIENT_SECRET"); ok {
			c.Twitch.ClientSecret = strings.TrimSpace(value)
		}
	}
	c.Twitch.BaseURL = strings.TrimSpace(c.Twitch.BaseURL)
	if c.Twitch.BaseURL == "" {
		c.Twitch.BaseURL = defaultTwitchBaseURL
	}
	c.Twitch.AuthURL = strings.TrimSpace(c.Twitch.AuthURL)
	if c.Twitch.AuthURL == "" {
		c.Twitch.AuthURL = defaultTwitchAuthURL
	}

	logins := make([]string, 0, len(c.Twitch.Streamers))
	seen := make(map[string]struct{}, len(c.Twitch.Streamers))
	for _, login := range c.Twitch.Streamers {
		login = strings.ToLower(strings.TrimSpace(login))
		if login == "" {
			continue
		}
		if _, dup := seen[login]; dup {
			continue
		}
		seen[login] = struct{}{}
		logins = append(logins, login)
	}
	c.Twitch.Streamers = logins
	return nil
}

func (c *Config) normalizeDetection() error {
	if value, ok := os.LookupEnv("DETECTION_THRESHOLD"); ok {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return fmt.Errorf("DETECTION_THRESHOLD: %w", err)
		}
		c.Detection.Threshold = parsed
	}
	if c.Detection.ThumbnailWidth <= 0 {
		c.Detection.ThumbnailWidth = defaultThumbnailWidth
	}
	if c.Detection.ThumbnailHeight <= 0 {
		c.Detection.ThumbnailHeight = defaultThumbnailHeight
	}
	return nil
}

func (c *Config) normalizeMonitor() error {
	if value, ok := os.LookupEnv("CHECK_INTERVAL_HOURS"); ok {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("CHECK_INTERVAL_HOURS: %w", err)
		}
		c.Monitor.CheckIntervalHours = parsed
	}
	if value, ok := os.LookupEnv("DATA_RETENTION_DAYS"); ok {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("DATA_RETENTION_DAYS: %w", err)
		}
		c.Monitor.RetentionDays = parsed
	}
	c.Monitor.PruneAt = strings.TrimSpace(c.Monitor.PruneAt)
	if c.Monitor.PruneAt == "" {
		c.Monitor.PruneAt = defaultPruneAt
	}
	if c.Monitor.FetchTimeoutSeconds <= 0 {
		c.Monitor.FetchTimeoutSeconds = defaultFetchTimeoutSeconds
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyRequestTimeout
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
}
