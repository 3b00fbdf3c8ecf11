package testsupport

import (
	"path/filepath"
	"testing"

	"streamwatch/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.ScreenshotsDir = filepath.Join(base, "screenshots")
	cfgVal.Paths.ReportDir = filepath.Join(base, "report")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.LogoPath = filepath.Join(base, "logo.png")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Twitch.ClientID = "test-client"
	cfgVal.Twitch.ClientSecret = "test-secret"
	cfgVal.Twitch.Streamers = []string{"alpha"}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithStreamers overrides the monitored logins on the test config.
func WithStreamers(logins ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Twitch.Streamers = logins
	}
}

// WithThreshold overrides the detection threshold on the test config.
func WithThreshold(threshold float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Detection.Threshold = threshold
	}
}

// WithReferenceLogo writes a gradient reference logo at the configured path.
func WithReferenceLogo() ConfigOption {
	return func(b *configBuilder) {
		WriteLogoPNG(b.t, b.cfg.Paths.LogoPath, 40, 20)
	}
}
