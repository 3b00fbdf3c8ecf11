package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"streamwatch/internal/config"
)

func TestLoadDefaultsUseEnvCredentialsAndExpandPaths(t *testing.T) {
	t.Setenv("TWITCH_CLIENT_ID", "id-from-env")
	t.Setenv("TWITCH_CLIENT_SECRET", "secret-from-env")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "streamwatch", "data")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Twitch.ClientID != "id-from-env" {
		t.Fatalf("expected client id from env, got %q", cfg.Twitch.ClientID)
	}
	if cfg.Twitch.ClientSecret != "secret-from-env" {
		t.Fatalf("expected client secret from env, got %q", cfg.Twitch.ClientSecret)
	}
	if cfg.Detection.Threshold != 0.6 {
		t.Fatalf("unexpected default threshold: %v", cfg.Detection.Threshold)
	}
	if cfg.Monitor.CheckIntervalHours != 1 {
		t.Fatalf("unexpected default check interval: %d", cfg.Monitor.CheckIntervalHours)
	}
	if cfg.Monitor.RetentionDays != 30 {
		t.Fatalf("unexpected default retention: %d", cfg.Monitor.RetentionDays)
	}
	if cfg.DetectionsFile() != filepath.Join(wantData, "detections.json") {
		t.Fatalf("unexpected detections file: %q", cfg.DetectionsFile())
	}
}

func TestLoadMissingCredentialsFails(t *testing.T) {
	t.Setenv("TWITCH_CLIENT_ID", "")
	t.Setenv("TWITCH_CLIENT_SECRET", "")
	t.Setenv("HOME", t.TempDir())

	_, _, _, err := config.Load("")
	if err == nil {
		t.Fatal("expected error when credentials are missing")
	}
	if !strings.Contains(err.Error(), "twitch.client_id") {
		t.Fatalf("expected credential guidance in error, got: %v", err)
	}
}

func TestLoadParsesFileAndNormalizesStreamers(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
[twitch]
client_id = "abc"
client_secret = "def"
streamers = ["StreamerOne", " streamertwo ", "streamerone", ""]

[detection]
threshold = 0.75

[monitor]
check_interval_hours = 2
retention_days = 7
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	want := []string{"streamerone", "streamertwo"}
	if len(cfg.Twitch.Streamers) != len(want) {
		t.Fatalf("unexpected streamers: %v", cfg.Twitch.Streamers)
	}
	for i, login := range want {
		if cfg.Twitch.Streamers[i] != login {
			t.Fatalf("unexpected streamers: %v", cfg.Twitch.Streamers)
		}
	}
	if cfg.Detection.Threshold != 0.75 {
		t.Fatalf("unexpected threshold: %v", cfg.Detection.Threshold)
	}
	if cfg.Monitor.CheckIntervalHours != 2 {
		t.Fatalf("unexpected interval: %d", cfg.Monitor.CheckIntervalHours)
	}
}

func TestEnvOverridesBeatFileValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("DETECTION_THRESHOLD", "0.9")
	t.Setenv("CHECK_INTERVAL_HOURS", "4")
	t.Setenv("DATA_RETENTION_DAYS", "14")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
[twitch]
client_id = "abc"
client_secret = "def"

[detection]
threshold = 0.5
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Detection.Threshold != 0.9 {
		t.Fatalf("expected env threshold override, got %v", cfg.Detection.Threshold)
	}
	if cfg.Monitor.CheckIntervalHours != 4 {
		t.Fatalf("expected env interval override, got %d", cfg.Monitor.CheckIntervalHours)
	}
	if cfg.Monitor.RetentionDays != 14 {
		t.Fatalf("expected env retention override, got %d", cfg.Monitor.RetentionDays)
	}
}

func TestValidateRejectsBadThreshold(t *testing.T) {
	cfg := config.Default()
	cfg.Twitch.ClientID = "abc"
	cfg.Twitch.ClientSecret = "def"
	cfg.Detection.Threshold = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for threshold > 1")
	}
}

func TestValidateRejectsBadPruneTime(t *testing.T) {
	cfg := config.Default()
	cfg.Twitch.ClientID = "abc"
	cfg.Twitch.ClientSecret = "def"
	cfg.Monitor.PruneAt = "25:99"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid prune_at")
	}
}
