package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"streamwatch/internal/annotate"
	"streamwatch/internal/config"
	"streamwatch/internal/detect"
	"streamwatch/internal/fileutil"
	"streamwatch/internal/logging"
	"streamwatch/internal/store"
	"streamwatch/internal/twitch"
)

// captureTimeLayout names capture files by check time, second resolution.
const captureTimeLayout = "20060102_150405"

// StreamLister lists the live streams among a set of logins.
type StreamLister interface {
	LiveStreams(ctx context.Context, logins []string) ([]twitch.Stream, error)
}

// Notifier receives monitor events. notifications.Service satisfies it.
type Notifier interface {
	NotifyDetection(ctx context.Context, streamer, game string, confidence float64) error
	NotifyCycleCompleted(ctx context.Context, checked, live, detections int, duration time.Duration) error
	NotifyError(ctx context.Context, err error, label string) error
}

// CycleResult summarizes one completed check cycle. Checked counts only the
// streams that produced a persisted record; a stream counted live but not
// checked failed its capture or analysis.
type CycleResult struct {
	CycleID    string
	Timestamp  time.Time
	Checked    int
	LiveCount  int
	NotLive    []string
	Detections int
	Duration   time.Duration
}

// Monitor runs check cycles against the configured streamers.
type Monitor struct {
	cfg       *config.Config
	detector  *detect.Detector
	annotator *annotate.Annotator
	store     *store.Store
	streams   StreamLister
	notifier  Notifier
	logger    *slog.Logger

	httpClient *http.Client
	now        func() time.Time
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithHTTPClient overrides the thumbnail download client.
func WithHTTPClient(client *http.Client) Option {
	return func(m *Monitor) {
		if client != nil {
			m.httpClient = client
		}
	}
}

// WithClock overrides the time source. Tests use it for stable capture names.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		if now != nil {
			m.now = now
		}
	}
}

// New wires a monitor from its collaborators.
func New(cfg *config.Config, detector *detect.Detector, st *store.Store, streams StreamLister, notifier Notifier, logger *slog.Logger, opts ...Option) (*Monitor, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	if detector == nil {
		return nil, errors.New("detector required")
	}
	if st == nil {
		return nil, errors.New("store required")
	}
	if streams == nil {
		return nil, errors.New("stream lister required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	timeout := time.Duration(cfg.Monitor.FetchTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	m := &Monitor{
		cfg:        cfg,
		detector:   detector,
		annotator:  annotate.New(),
		store:      st,
		streams:    streams,
		notifier:   notifier,
		logger:     logging.WithComponent(logger, "monitor"),
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// CheckStreams runs one full check cycle and persists its outcomes. Failures
// against a single stream are logged and skipped; listing failures abort the
// cycle.
func (m *Monitor) CheckStreams(ctx context.Context) (CycleResult, error) {
	logins := m.cfg.Twitch.Streamers
	if len(logins) == 0 {
		return CycleResult{}, errors.New("no streamers configured, add logins under [twitch] streamers")
	}

	cycleStart := m.now()
	result := CycleResult{
		CycleID:   uuid.NewString(),
		Timestamp: cycleStart.UTC(),
	}
	logger := m.logger.With(logging.String(logging.FieldCycleID, result.CycleID))

	logger.Info("check cycle started", logging.Int("streamers", len(logins)))

	streams, err := m.streams.LiveStreams(ctx, logins)
	if err != nil {
		m.notifyError(ctx, err, "stream listing")
		return CycleResult{}, fmt.Errorf("list live streams: %w", err)
	}

	liveByLogin := make(map[string]twitch.Stream, len(streams))
	for _, stream := range streams {
		liveByLogin[strings.ToLower(stream.UserLogin)] = stream
	}

	for _, login := range logins {
		stream, live := liveByLogin[strings.ToLower(login)]
		if !live {
			result.NotLive = append(result.NotLive, login)
			logger.Debug("streamer offline", logging.String(logging.FieldStreamer, login))
			continue
		}
		result.LiveCount++

		record, err := m.checkStream(ctx, logger, stream)
		if err != nil {
			logger.Warn("stream check failed, skipping",
				logging.String(logging.FieldStreamer, login),
				logging.Error(err))
			continue
		}
		if err := m.store.Append(record); err != nil {
			logger.Warn("record rejected, skipping",
				logging.String(logging.FieldStreamer, login),
				logging.Error(err))
			continue
		}
		result.Checked++
		if record.LogoDetected {
			result.Detections++
			if m.notifier != nil {
				if err := m.notifier.NotifyDetection(ctx, record.Streamer, record.Game, record.Confidence); err != nil {
					logger.Warn("detection notification failed", logging.Error(err))
				}
			}
		}
	}

	if err := m.store.Save(); err != nil {
		m.notifyError(ctx, err, "history save")
		return CycleResult{}, fmt.Errorf("save detection history: %w", err)
	}

	result.Duration = m.now().Sub(cycleStart)
	logger.Info("check cycle completed",
		logging.Int("live", result.LiveCount),
		logging.Int("detections", result.Detections),
		logging.Duration("duration", result.Duration))

	if m.notifier != nil {
		if err := m.notifier.NotifyCycleCompleted(ctx, result.Checked, result.LiveCount, result.Detections, result.Duration); err != nil {
			logger.Warn("cycle notification failed", logging.Error(err))
		}
	}
	return result, nil
}

// checkStream captures, analyzes, and annotates a single live stream.
func (m *Monitor) checkStream(ctx context.Context, logger *slog.Logger, stream twitch.Stream) (store.Record, error) {
	checkedAt := m.now()
	base := fmt.Sprintf("%s_%s", strings.ToLower(stream.UserLogin), checkedAt.Format(captureTimeLayout))
	thumbName := base + "_thumb.jpg"
	annotatedName := base + "_detected.jpg"
	thumbPath := filepath.Join(m.cfg.Paths.ScreenshotsDir, thumbName)

	thumbURL := stream.ResolveThumbnailURL(m.cfg.Detection.ThumbnailWidth, m.cfg.Detection.ThumbnailHeight)
	if err := m.downloadThumbnail(ctx, thumbURL, thumbPath); err != nil {
		return store.Record{}, fmt.Errorf("download thumbnail: %w", err)
	}

	detection := m.detector.DetectFile(thumbPath)
	logger.Info("stream checked",
		logging.String(logging.FieldStreamer, stream.UserLogin),
		logging.String("game", stream.Category()),
		logging.Int("viewers", stream.ViewerCount),
		logging.Bool("logo_detected", detection.Detected),
		logging.Float64("confidence", detection.Confidence))

	record := store.Record{
		Timestamp:     checkedAt.UTC(),
		Streamer:      stream.DisplayName(),
		StreamerLogin: strings.ToLower(stream.UserLogin),
		Title:         stream.Title,
		Game:          stream.Category(),
		Viewers:       stream.ViewerCount,
		LogoDetected:  detection.Detected,
		Confidence:    detection.Confidence,
		Thumbnail:     thumbName,
		StartedAt:     stream.StartedAt.UTC(),
	}

	annotatedPath := filepath.Join(m.cfg.Paths.ScreenshotsDir, annotatedName)
	if err := m.annotator.Annotate(thumbPath, detection, annotatedPath); err != nil {
		// Keep the record; the raw thumbnail is still useful evidence.
		logger.Warn("annotation failed",
			logging.String(logging.FieldStreamer, stream.UserLogin),
			logging.Error(err))
	} else {
		record.Annotated = annotatedName
	}

	return record, nil
}

// downloadThumbnail fetches the stream preview. A timestamp query parameter
// defeats CDN caching so every cycle sees a fresh frame.
func (m *Monitor) downloadThumbnail(ctx context.Context, rawURL, dstPath string) error {
	if strings.TrimSpace(rawURL) == "" {
		return errors.New("empty thumbnail url")
	}
	separator := "?"
	if strings.Contains(rawURL, "?") {
		separator = "&"
	}
	rawURL += separator + "t=" + strconv.FormatInt(m.now().Unix(), 10)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch thumbnail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("thumbnail fetch returned %d", resp.StatusCode)
	}

	if err := fileutil.EnsureDir(filepath.Dir(dstPath)); err != nil {
		return fmt.Errorf("create screenshots dir: %w", err)
	}
	file, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("create capture file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, resp.Body); err != nil {
		os.Remove(dstPath)
		return fmt.Errorf("write capture file: %w", err)
	}
	return nil
}

// PruneOldData drops records older than the retention window and removes the
// capture files they referenced. File removal failures are logged, not fatal.
func (m *Monitor) PruneOldData(ctx context.Context) (int, error) {
	retention := m.cfg.Monitor.RetentionDays
	if retention <= 0 {
		return 0, nil
	}
	cutoff := m.now().UTC().AddDate(0, 0, -retention)

	removed, err := m.store.Prune(cutoff)
	if err != nil {
		m.notifyError(ctx, err, "retention prune")
		return 0, fmt.Errorf("prune history: %w", err)
	}

	deleted := 0
	for _, name := range removed {
		path := filepath.Join(m.cfg.Paths.ScreenshotsDir, name)
		if err := os.Remove(path); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				m.logger.Warn("failed to remove expired capture",
					logging.String("path", path),
					logging.Error(err))
			}
			continue
		}
		deleted++
	}

	if len(removed) > 0 {
		m.logger.Info("retention prune completed",
			logging.Int("expired_captures", len(removed)),
			logging.Int("files_deleted", deleted),
			logging.Time("cutoff", cutoff))
	}
	return deleted, nil
}

func (m *Monitor) notifyError(ctx context.Context, err error, label string) {
	if m.notifier == nil {
		return
	}
	if nerr := m.notifier.NotifyError(ctx, err, label); nerr != nil {
		m.logger.Warn("error notification failed", logging.Error(nerr))
	}
}
