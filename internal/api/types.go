package api

import (
	"time"

	"streamwatch/internal/monitor"
	"streamwatch/internal/store"
)

// CycleSummary is the wire form of a completed check cycle.
type CycleSummary struct {
	CycleID    string    `json:"cycle_id"`
	Timestamp  time.Time `json:"timestamp"`
	Checked    int       `json:"checked"`
	LiveCount  int       `json:"live_count"`
	NotLive    []string  `json:"not_live"`
	Detections int       `json:"detections"`
	DurationMS int64     `json:"duration_ms"`
}

// FromCycleResult converts a monitor result into its wire form.
func FromCycleResult(result monitor.CycleResult) CycleSummary {
	return CycleSummary{
		CycleID:    result.CycleID,
		Timestamp:  result.Timestamp,
		Checked:    result.Checked,
		LiveCount:  result.LiveCount,
		NotLive:    result.NotLive,
		Detections: result.Detections,
		DurationMS: result.Duration.Milliseconds(),
	}
}

// DaemonStatus is the /api/status payload.
type DaemonStatus struct {
	Running      bool         `json:"running"`
	PID          int          `json:"pid"`
	LockFilePath string       `json:"lock_file_path"`
	RecordCount  int          `json:"record_count"`
	LastCycle    CycleSummary `json:"last_cycle"`
	LastCycleAt  time.Time    `json:"last_cycle_at"`
	LastError    string       `json:"last_error,omitempty"`
	NextCheckAt  time.Time    `json:"next_check_at"`
}

// Detection is the wire form of one stored detection record. Capture names
// are exposed as paths under /screenshots/.
type Detection struct {
	Timestamp     time.Time `json:"timestamp"`
	Streamer      string    `json:"streamer"`
	StreamerLogin string    `json:"streamer_login"`
	Title         string    `json:"title"`
	Game          string    `json:"game"`
	Viewers       int       `json:"viewers"`
	LogoDetected  bool      `json:"logo_detected"`
	Confidence    float64   `json:"confidence"`
	ThumbnailURL  string    `json:"thumbnail_url,omitempty"`
	AnnotatedURL  string    `json:"annotated_url,omitempty"`
	StartedAt     time.Time `json:"started_at"`
}

// DetectionsResponse is the /api/detections payload.
type DetectionsResponse struct {
	Detections []Detection `json:"detections"`
}

// FromRecord converts a stored record into its wire form.
func FromRecord(record store.Record) Detection {
	detection := Detection{
		Timestamp:     record.Timestamp,
		Streamer:      record.Streamer,
		StreamerLogin: record.StreamerLogin,
		Title:         record.Title,
		Game:          record.Game,
		Viewers:       record.Viewers,
		LogoDetected:  record.LogoDetected,
		Confidence:    record.Confidence,
		StartedAt:     record.StartedAt,
	}
	if record.Thumbnail != "" {
		detection.ThumbnailURL = "/screenshots/" + record.Thumbnail
	}
	if record.Annotated != "" {
		detection.AnnotatedURL = "/screenshots/" + record.Annotated
	}
	return detection
}

// LogTailResponse is the /api/logs payload. Offset is the byte position a
// follower should pass back as since on the next request.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// FromRecords converts records newest first.
func FromRecords(records []store.Record) []Detection {
	out := make([]Detection, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		out = append(out, FromRecord(records[i]))
	}
	return out
}
