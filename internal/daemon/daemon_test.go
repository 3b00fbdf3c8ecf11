package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"streamwatch/internal/api"
	"streamwatch/internal/detect"
	"streamwatch/internal/monitor"
	"streamwatch/internal/report"
	"streamwatch/internal/store"
	"streamwatch/internal/testsupport"
	"streamwatch/internal/twitch"
)

type staticLister struct {
	streams []twitch.Stream
}

func (s staticLister) LiveStreams(ctx context.Context, logins []string) ([]twitch.Stream, error) {
	return s.streams, nil
}

func newTestDaemon(t *testing.T) *Daemon {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithReferenceLogo())

	detector, err := detect.New(cfg.Paths.LogoPath, cfg.Detection.Threshold)
	if err != nil {
		t.Fatalf("detect.New: %v", err)
	}
	st := store.Open(cfg.DetectionsFile(), nil)
	mon, err := monitor.New(cfg, detector, st, staticLister{}, nil, nil)
	if err != nil {
		t.Fatalf("monitor.New: %v", err)
	}
	reporter, err := report.New(cfg, nil)
	if err != nil {
		t.Fatalf("report.New: %v", err)
	}
	d, err := New(cfg, st, mon, reporter, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	return d
}

func waitForStatus(t *testing.T, base string) api.DaemonStatus {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(base + "/api/status")
		if err == nil {
			var status api.DaemonStatus
			decodeErr := json.NewDecoder(resp.Body).Decode(&status)
			resp.Body.Close()
			if decodeErr == nil && !status.LastCycleAt.IsZero() {
				return status
			}
		}
		if time.Now().After(deadline) {
			t.Fatal("daemon did not report a completed cycle in time")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestDaemonLifecycleAndAPI(t *testing.T) {
	d := newTestDaemon(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	base := "http://" + d.api.addr()
	status := waitForStatus(t, base)
	if !status.Running {
		t.Fatal("status did not report running")
	}
	if status.LastCycle.Checked != 1 {
		t.Fatalf("expected 1 checked streamer, got %+v", status.LastCycle)
	}
	if status.NextCheckAt.IsZero() {
		t.Fatal("expected next check time to be scheduled")
	}

	resp, err := http.Get(base + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(body)) != "ok" {
		t.Fatalf("healthz = %d %q", resp.StatusCode, body)
	}

	resp, err = http.Get(base + "/api/detections")
	if err != nil {
		t.Fatalf("detections: %v", err)
	}
	var detections api.DetectionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&detections); err != nil {
		t.Fatalf("decode detections: %v", err)
	}
	resp.Body.Close()

	resp, err = http.Get(base + "/")
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	page, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(page), "Streamwatch") {
		t.Fatal("dashboard page missing title")
	}
}

func TestDaemonSecondInstanceRejected(t *testing.T) {
	d := newTestDaemon(t)

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second Start on running daemon to fail")
	}

	second, err := New(d.cfg, d.store, d.monitor, d.reporter, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("expected second daemon instance to be rejected by the lock")
	}
}

func TestDaemonStopReleasesLock(t *testing.T) {
	d := newTestDaemon(t)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	d.Stop()

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("restart after Stop: %v", err)
	}
	d.Stop()
}

func TestDaemonServesScreenshots(t *testing.T) {
	d := newTestDaemon(t)

	name := "alpha_20260831_120000_thumb.jpg"
	if err := os.WriteFile(filepath.Join(d.cfg.Paths.ScreenshotsDir, name), []byte("jpegdata"), 0o644); err != nil {
		t.Fatalf("seed capture: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	resp, err := http.Get(fmt.Sprintf("http://%s/screenshots/%s", d.api.addr(), name))
	if err != nil {
		t.Fatalf("screenshot fetch: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "jpegdata" {
		t.Fatalf("screenshot fetch = %d %q", resp.StatusCode, body)
	}
}

func TestDaemonServesLogTail(t *testing.T) {
	d := newTestDaemon(t)

	logPath := d.cfg.LogFile()
	if err := os.WriteFile(logPath, []byte("line one\nline two\nline three\n"), 0o644); err != nil {
		t.Fatalf("seed log file: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	resp, err := http.Get(fmt.Sprintf("http://%s/api/logs?tail=1&limit=2", d.api.addr()))
	if err != nil {
		t.Fatalf("logs fetch: %v", err)
	}
	var payload api.LogTailResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode logs: %v", err)
	}
	resp.Body.Close()

	if len(payload.Lines) != 2 || payload.Lines[0] != "line two" || payload.Lines[1] != "line three" {
		t.Fatalf("unexpected log lines %v", payload.Lines)
	}
	if payload.Offset == 0 {
		t.Fatal("expected a non-zero resume offset")
	}
}

func TestNextPruneDelay(t *testing.T) {
	base := time.Date(2026, 8, 31, 1, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		now     time.Time
		pruneAt string
		want    time.Duration
	}{
		{"later today", base, "03:00", 2 * time.Hour},
		{"already passed", base.Add(3 * time.Hour), "03:00", 23 * time.Hour},
		{"exactly now rolls over", base.Add(2 * time.Hour), "03:00", 24 * time.Hour},
		{"malformed falls back", base, "nonsense", 2 * time.Hour},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := nextPruneDelay(tc.now, tc.pruneAt); got != tc.want {
				t.Fatalf("nextPruneDelay(%v, %q) = %v, want %v", tc.now, tc.pruneAt, got, tc.want)
			}
		})
	}
}
