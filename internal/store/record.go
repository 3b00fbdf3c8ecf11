package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Record captures the outcome of a single stream check.
type Record struct {
	Timestamp     time.Time `json:"timestamp"`
	Streamer      string    `json:"streamer"`
	StreamerLogin string    `json:"streamer_login"`
	Title         string    `json:"title"`
	Game          string    `json:"game"`
	Viewers       int       `json:"viewers"`
	LogoDetected  bool      `json:"logo_detected"`
	Confidence    float64   `json:"confidence"`
	Thumbnail     string    `json:"thumbnail"`
	Annotated     string    `json:"annotated"`
	StartedAt     time.Time `json:"started_at"`
}

// recordKeys is the exact key set a stored record must carry. A record with
// extra or missing keys fails validation so schema drift is caught at load
// time instead of surfacing as silently zeroed fields.
var recordKeys = []string{
	"timestamp",
	"streamer",
	"streamer_login",
	"title",
	"game",
	"viewers",
	"logo_detected",
	"confidence",
	"thumbnail",
	"annotated",
	"started_at",
}

// Validate reports whether the record is complete enough to persist.
func (r Record) Validate() error {
	if strings.TrimSpace(r.StreamerLogin) == "" {
		return errors.New("record missing streamer login")
	}
	if r.Timestamp.IsZero() {
		return errors.New("record missing timestamp")
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("record confidence %.4f outside [0, 1]", r.Confidence)
	}
	return nil
}

// decodeRecords parses the on-disk document and validates each record's key
// set before unmarshaling it.
func decodeRecords(data []byte) ([]Record, error) {
	var rawRecords []json.RawMessage
	if err := json.Unmarshal(data, &rawRecords); err != nil {
		return nil, fmt.Errorf("parse records document: %w", err)
	}

	records := make([]Record, 0, len(rawRecords))
	for i, raw := range rawRecords {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("parse record %d: %w", i, err)
		}
		if len(fields) != len(recordKeys) {
			return nil, fmt.Errorf("record %d has %d fields, want %d", i, len(fields), len(recordKeys))
		}
		for _, key := range recordKeys {
			if _, ok := fields[key]; !ok {
				return nil, fmt.Errorf("record %d missing field %q", i, key)
			}
		}

		var record Record
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil, fmt.Errorf("parse record %d: %w", i, err)
		}
		if err := record.Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		records = append(records, record)
	}

	return records, nil
}
