package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"streamwatch/internal/config"
	"streamwatch/internal/detect"
	"streamwatch/internal/logging"
	"streamwatch/internal/monitor"
	"streamwatch/internal/notifications"
	"streamwatch/internal/report"
	"streamwatch/internal/store"
	"streamwatch/internal/twitch"
)

// Components bundles the wired collaborators a check run needs. The CLI and
// the daemon build the same graph through here.
type Components struct {
	Store    *store.Store
	Monitor  *monitor.Monitor
	Reporter *report.Generator
	Notifier notifications.Service
}

// NewComponents constructs the detector, Helix client, store, notifier,
// monitor, and report generator from configuration.
func NewComponents(cfg *config.Config, logger *slog.Logger) (*Components, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	detector, err := detect.New(cfg.Paths.LogoPath, cfg.Detection.Threshold)
	if err != nil {
		if errors.Is(err, detect.ErrReferenceNotFound) {
			return nil, fmt.Errorf("reference logo not found at %s; set logo_path under [paths] or place the image there", cfg.Paths.LogoPath)
		}
		return nil, fmt.Errorf("load reference logo: %w", err)
	}

	client, err := twitch.New(cfg.Twitch.ClientID, cfg.Twitch.ClientSecret, cfg.Twitch.BaseURL, cfg.Twitch.AuthURL)
	if err != nil {
		return nil, fmt.Errorf("build twitch client: %w", err)
	}

	st := store.Open(cfg.DetectionsFile(), logger)
	notifier := notifications.NewService(cfg)

	mon, err := monitor.New(cfg, detector, st, client, notifier, logger)
	if err != nil {
		return nil, err
	}

	reporter, err := report.New(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &Components{
		Store:    st,
		Monitor:  mon,
		Reporter: reporter,
		Notifier: notifier,
	}, nil
}

// RunCheck executes a single check cycle and refreshes the dashboard.
func RunCheck(ctx context.Context, cfg *config.Config, logger *slog.Logger) (monitor.CycleResult, error) {
	components, err := NewComponents(cfg, logger)
	if err != nil {
		return monitor.CycleResult{}, err
	}
	result, err := components.Monitor.CheckStreams(ctx)
	if err != nil {
		return monitor.CycleResult{}, err
	}
	if _, err := components.Reporter.Generate(); err != nil {
		return result, fmt.Errorf("refresh dashboard: %w", err)
	}
	return result, nil
}

// PruneHistory drops expired records and their capture files, then refreshes
// the dashboard. It returns the number of capture files deleted.
func PruneHistory(ctx context.Context, cfg *config.Config, logger *slog.Logger) (int, error) {
	components, err := NewComponents(cfg, logger)
	if err != nil {
		return 0, err
	}
	deleted, err := components.Monitor.PruneOldData(ctx)
	if err != nil {
		return 0, err
	}
	if _, err := components.Reporter.Generate(); err != nil {
		return deleted, fmt.Errorf("refresh dashboard: %w", err)
	}
	return deleted, nil
}

// GenerateReport renders the dashboard from the current history and returns
// its path.
func GenerateReport(cfg *config.Config, logger *slog.Logger) (string, error) {
	if cfg == nil {
		return "", errors.New("configuration is required")
	}
	reporter, err := report.New(cfg, logger)
	if err != nil {
		return "", err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return "", err
	}
	return reporter.Generate()
}
