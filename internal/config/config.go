package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"streamwatch/internal/fileutil"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory, file, and bind address configuration.
type Paths struct {
	DataDir        string `toml:"data_dir"`
	ScreenshotsDir string `toml:"screenshots_dir"`
	ReportDir      string `toml:"report_dir"`
	LogDir         string `toml:"log_dir"`
	LogoPath       string `toml:"logo_path"`
	APIBind        string `toml:"api_bind"`
}

// Twitch contains credentials and endpoints for the Twitch Helix API.
type Twitch struct {
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	BaseURL      string   `toml:"base_url"`
	AuthURL      string   `toml:"auth_url"`
	Streamers    []string `toml:"streamers"`
}

// Detection contains logo detection tuning.
type Detection struct {
	Threshold       float64 `toml:"threshold"`
	ThumbnailWidth  int     `toml:"thumbnail_width"`
	ThumbnailHeight int     `toml:"thumbnail_height"`
}

// Monitor contains cycle timing and retention settings.
type Monitor struct {
	CheckIntervalHours  int    `toml:"check_interval_hours"`
	RetentionDays       int    `toml:"retention_days"`
	PruneAt             string `toml:"prune_at"`
	FetchTimeoutSeconds int    `toml:"fetch_timeout_seconds"`
}

// Notifications contains ntfy push notification settings.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Detections     bool   `toml:"detections"`
	Cycles         bool   `toml:"cycles"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for streamwatch.
//
// Configuration sections by subsystem:
//   - Paths: data/screenshot/report directories, reference logo, API bind
//   - Twitch: Helix credentials, endpoints, and monitored streamer logins
//   - Detection: template matching threshold and thumbnail capture size
//   - Monitor: check cadence, retention window, and daily prune time
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Twitch        Twitch        `toml:"twitch"`
	Detection     Detection     `toml:"detection"`
	Monitor       Monitor       `toml:"monitor"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/streamwatch/config.toml")
}

// SampleConfig returns the embedded sample configuration file contents.
func SampleConfig() string {
	return sampleConfig
}

// ExpandPath resolves a leading ~ against the current user's home directory.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes the embedded sample configuration to target.
func CreateSample(target string) error {
	if err := os.WriteFile(target, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
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
		if err := decoder.Decode(&cfg); err != nil {
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
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("streamwatch.toml")
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

// DetectionsFile returns the path of the persisted detection record store.
func (c *Config) DetectionsFile() string {
	return filepath.Join(c.Paths.DataDir, "detections.json")
}

// DashboardFile returns the path of the rendered HTML dashboard.
func (c *Config) DashboardFile() string {
	return filepath.Join(c.Paths.ReportDir, "dashboard.html")
}

// LogFile returns the path of the daemon log file.
func (c *Config) LogFile() string {
	return filepath.Join(c.Paths.LogDir, "streamwatch.log")
}

// EnsureDirectories creates the directories the daemon writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.ScreenshotsDir, c.Paths.ReportDir, c.Paths.LogDir} {
		if err := fileutil.EnsureDir(dir); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
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
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
