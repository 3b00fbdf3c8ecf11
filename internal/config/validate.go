package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTwitch(); err != nil {
		return err
	}
	if err := c.validateDetection(); err != nil {
		return err
	}
	if err := c.validateMonitor(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTwitch() error {
	if c.Twitch.ClientID == "" || c.Twitch.ClientSecret == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/streamwatch/config.toml"
		}
		return fmt.Errorf("twitch.client_id and twitch.client_secret are required. Set TWITCH_CLIENT_ID/TWITCH_CLIENT_SECRET env vars or edit %s (create with 'streamwatch config init')", defaultPath)
	}
	if c.Twitch.BaseURL == "" {
		return errors.New("twitch.base_url must be set")
	}
	if c.Twitch.AuthURL == "" {
		return errors.New("twitch.auth_url must be set")
	}
	return nil
}

func (c *Config) validateDetection() error {
	if c.Detection.Threshold < 0 || c.Detection.Threshold > 1 {
		return errors.New("detection.threshold must be between 0 and 1")
	}
	if strings.TrimSpace(c.Paths.LogoPath) == "" {
		return errors.New("paths.logo_path must be set")
	}
	return nil
}

func (c *Config) validateMonitor() error {
	if c.Monitor.CheckIntervalHours < 1 {
		return errors.New("monitor.check_interval_hours must be at least 1")
	}
	if c.Monitor.RetentionDays < 1 {
		return errors.New("monitor.retention_days must be at least 1")
	}
	if _, err := time.Parse("15:04", c.Monitor.PruneAt); err != nil {
		return fmt.Errorf("monitor.prune_at must be HH:MM: %w", err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
