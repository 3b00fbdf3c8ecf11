package monitor_test

import (
	"context"
	"errors"
	"image"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"streamwatch/internal/config"
	"streamwatch/internal/detect"
	"streamwatch/internal/monitor"
	"streamwatch/internal/store"
	"streamwatch/internal/testsupport"
	"streamwatch/internal/twitch"
)

type fakeLister struct {
	streams []twitch.Stream
	err     error
	calls   int
}

func (f *fakeLister) LiveStreams(ctx context.Context, logins []string) ([]twitch.Stream, error) {
	f.calls++
	return f.streams, f.err
}

type fakeNotifier struct {
	detections []string
	cycles     int
	errors     []string
}

func (f *fakeNotifier) NotifyDetection(ctx context.Context, streamer, game string, confidence float64) error {
	f.detections = append(f.detections, streamer)
	return nil
}

func (f *fakeNotifier) NotifyCycleCompleted(ctx context.Context, checked, live, detections int, duration time.Duration) error {
	f.cycles++
	return nil
}

func (f *fakeNotifier) NotifyError(ctx context.Context, err error, label string) error {
	f.errors = append(f.errors, label)
	return nil
}

// frameWithLogo renders a black frame, optionally with the reference pattern
// pasted in. Black keeps the no-logo frame's correlation near zero.
func frameWithLogo(t *testing.T, withLogo bool) []byte {
	t.Helper()
	return testsupport.FrameJPEG(t, 320, 180, 40, 20, withLogo, image.Pt(120, 70))
}

func liveStream(login, thumbnailURL string) twitch.Stream {
	return twitch.Stream{
		ID:           "1",
		UserLogin:    login,
		UserName:     strings.ToUpper(login[:1]) + login[1:],
		GameName:     "Just Chatting",
		Type:         "live",
		Title:        "test stream",
		ViewerCount:  777,
		StartedAt:    time.Now().UTC().Add(-time.Hour),
		ThumbnailURL: thumbnailURL,
	}
}

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	return testsupport.NewConfig(t,
		testsupport.WithReferenceLogo(),
		testsupport.WithStreamers("alpha", "bravo"),
		testsupport.WithThreshold(0.6))
}

func newTestMonitor(t *testing.T, cfg *config.Config, lister monitor.StreamLister, notifier monitor.Notifier, st *store.Store, now time.Time) *monitor.Monitor {
	t.Helper()
	detector, err := detect.New(cfg.Paths.LogoPath, cfg.Detection.Threshold)
	if err != nil {
		t.Fatalf("detect.New: %v", err)
	}
	mon, err := monitor.New(cfg, detector, st, lister, notifier, nil,
		monitor.WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("monitor.New: %v", err)
	}
	return mon
}

func TestCheckStreamsRecordsDetections(t *testing.T) {
	cfg := newTestConfig(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("t") == "" {
			t.Errorf("expected cache-busting query parameter, got %q", r.URL.RawQuery)
		}
		w.Write(frameWithLogo(t, true))
	}))
	defer server.Close()

	lister := &fakeLister{streams: []twitch.Stream{
		liveStream("alpha", server.URL+"/alpha-{width}x{height}.jpg"),
	}}
	notifier := &fakeNotifier{}
	st := store.Open(cfg.DetectionsFile(), nil)
	now := time.Date(2026, 8, 31, 14, 30, 0, 0, time.UTC)

	mon := newTestMonitor(t, cfg, lister, notifier, st, now)
	result, err := mon.CheckStreams(context.Background())
	if err != nil {
		t.Fatalf("CheckStreams: %v", err)
	}

	if result.Checked != 1 || result.LiveCount != 1 || result.Detections != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(result.NotLive) != 1 || result.NotLive[0] != "bravo" {
		t.Fatalf("expected bravo offline, got %v", result.NotLive)
	}
	if result.CycleID == "" {
		t.Fatal("expected cycle id")
	}

	wantThumb := "alpha_20260831_143000_thumb.jpg"
	wantAnnotated := "alpha_20260831_143000_detected.jpg"
	for _, name := range []string{wantThumb, wantAnnotated} {
		if _, err := os.Stat(filepath.Join(cfg.Paths.ScreenshotsDir, name)); err != nil {
			t.Fatalf("expected capture %s: %v", name, err)
		}
	}

	records := store.Open(cfg.DetectionsFile(), nil).Records()
	if len(records) != 1 {
		t.Fatalf("expected 1 persisted record, got %d", len(records))
	}
	record := records[0]
	if !record.LogoDetected || record.Confidence < 0.6 {
		t.Fatalf("expected detection, got %+v", record)
	}
	if record.Thumbnail != wantThumb || record.Annotated != wantAnnotated {
		t.Fatalf("unexpected capture names: %+v", record)
	}
	if record.StreamerLogin != "alpha" || record.Game != "Just Chatting" || record.Viewers != 777 {
		t.Fatalf("stream metadata not carried over: %+v", record)
	}

	if len(notifier.detections) != 1 {
		t.Fatalf("expected 1 detection notification, got %d", len(notifier.detections))
	}
	if notifier.cycles != 1 {
		t.Fatalf("expected cycle notification, got %d", notifier.cycles)
	}
}

func TestCheckStreamsRecordsNonDetection(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Twitch.Streamers = []string{"alpha"}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(frameWithLogo(t, false))
	}))
	defer server.Close()

	lister := &fakeLister{streams: []twitch.Stream{
		liveStream("alpha", server.URL+"/alpha-{width}x{height}.jpg"),
	}}
	notifier := &fakeNotifier{}
	st := store.Open(cfg.DetectionsFile(), nil)

	mon := newTestMonitor(t, cfg, lister, notifier, st, time.Now())
	result, err := mon.CheckStreams(context.Background())
	if err != nil {
		t.Fatalf("CheckStreams: %v", err)
	}
	if result.Detections != 0 {
		t.Fatalf("expected no detections, got %d", result.Detections)
	}

	records := store.Open(cfg.DetectionsFile(), nil).Records()
	if len(records) != 1 || records[0].LogoDetected {
		t.Fatalf("expected one non-detection record, got %+v", records)
	}
	if len(notifier.detections) != 0 {
		t.Fatalf("unexpected detection notifications: %v", notifier.detections)
	}
}

func TestCheckStreamsSkipsFailingThumbnail(t *testing.T) {
	cfg := newTestConfig(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "alpha") {
			http.Error(w, "gone", http.StatusNotFound)
			return
		}
		w.Write(frameWithLogo(t, true))
	}))
	defer server.Close()

	lister := &fakeLister{streams: []twitch.Stream{
		liveStream("alpha", server.URL+"/alpha-{width}x{height}.jpg"),
		liveStream("bravo", server.URL+"/bravo-{width}x{height}.jpg"),
	}}
	st := store.Open(cfg.DetectionsFile(), nil)

	mon := newTestMonitor(t, cfg, lister, &fakeNotifier{}, st, time.Now())
	result, err := mon.CheckStreams(context.Background())
	if err != nil {
		t.Fatalf("CheckStreams: %v", err)
	}
	if result.LiveCount != 2 {
		t.Fatalf("expected both streams counted live, got %d", result.LiveCount)
	}
	// The failed stream surfaces as live but not checked.
	if result.Checked != 1 {
		t.Fatalf("expected 1 checked stream, got %d", result.Checked)
	}

	records := store.Open(cfg.DetectionsFile(), nil).Records()
	if len(records) != 1 || records[0].StreamerLogin != "bravo" {
		t.Fatalf("expected only bravo recorded, got %+v", records)
	}
}

func TestCheckStreamsRequiresStreamers(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Twitch.Streamers = nil

	st := store.Open(cfg.DetectionsFile(), nil)
	mon := newTestMonitor(t, cfg, &fakeLister{}, &fakeNotifier{}, st, time.Now())
	if _, err := mon.CheckStreams(context.Background()); err == nil {
		t.Fatal("expected error with no streamers configured")
	}
}

func TestCheckStreamsListingFailureAborts(t *testing.T) {
	cfg := newTestConfig(t)
	notifier := &fakeNotifier{}
	st := store.Open(cfg.DetectionsFile(), nil)

	mon := newTestMonitor(t, cfg, &fakeLister{err: errors.New("helix down")}, notifier, st, time.Now())
	if _, err := mon.CheckStreams(context.Background()); err == nil {
		t.Fatal("expected error when listing fails")
	}
	if len(notifier.errors) != 1 {
		t.Fatalf("expected error notification, got %v", notifier.errors)
	}
}

func TestPruneOldDataRemovesCaptures(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Monitor.RetentionDays = 30

	if err := os.MkdirAll(cfg.Paths.ScreenshotsDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	oldThumb := "alpha_20250101_000000_thumb.jpg"
	oldAnnotated := "alpha_20250101_000000_detected.jpg"
	for _, name := range []string{oldThumb, oldAnnotated} {
		if err := os.WriteFile(filepath.Join(cfg.Paths.ScreenshotsDir, name), []byte("jpg"), 0o644); err != nil {
			t.Fatalf("seed capture: %v", err)
		}
	}

	now := time.Now().UTC()
	st := store.Open(cfg.DetectionsFile(), nil)
	seed := func(login string, ts time.Time, thumb, annotated string) {
		err := st.Append(store.Record{
			Timestamp:     ts,
			Streamer:      login,
			StreamerLogin: login,
			Thumbnail:     thumb,
			Annotated:     annotated,
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	seed("alpha", now.AddDate(0, 0, -45), oldThumb, oldAnnotated)
	seed("bravo", now.AddDate(0, 0, -2), "bravo_recent_thumb.jpg", "")
	if err := st.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	mon := newTestMonitor(t, cfg, &fakeLister{}, &fakeNotifier{}, st, now)
	deleted, err := mon.PruneOldData(context.Background())
	if err != nil {
		t.Fatalf("PruneOldData: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 deleted captures, got %d", deleted)
	}

	for _, name := range []string{oldThumb, oldAnnotated} {
		if _, err := os.Stat(filepath.Join(cfg.Paths.ScreenshotsDir, name)); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("expected %s removed, stat err = %v", name, err)
		}
	}

	records := store.Open(cfg.DetectionsFile(), nil).Records()
	if len(records) != 1 || records[0].StreamerLogin != "bravo" {
		t.Fatalf("expected only recent record, got %+v", records)
	}

	// Second prune is a no-op.
	deleted, err = mon.PruneOldData(context.Background())
	if err != nil {
		t.Fatalf("second PruneOldData: %v", err)
	}
	if deleted != 0 {
		t.Fatalf("expected idempotent prune, deleted %d", deleted)
	}
}
