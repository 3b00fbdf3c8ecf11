package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	"streamwatch/internal/fileutil"
	"streamwatch/internal/logging"
)

// Store provides thread-safe access to the detection history file.
type Store struct {
	path    string
	logger  *slog.Logger
	mu      sync.RWMutex
	records []Record
}

// Open loads the detection history at path. A missing or corrupt file yields
// an empty store; corruption is logged but never fails the open.
func Open(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.WithComponent(logger, "store")

	s := &Store{path: path, logger: logger}
	if err := s.load(); err != nil {
		logger.Warn("failed to load detection history, starting empty",
			logging.String("path", path),
			logging.Error(err))
		s.records = nil
	}
	return s
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Records returns a copy of all records in stored order (oldest first).
func (s *Store) Records() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Count returns the number of records currently held.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Append adds a record to the in-memory history. Call Save to persist;
// batching appends keeps a check cycle down to a single file rewrite.
func (s *Store) Append(record Record) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("append record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

// Save atomically rewrites the history file with the current records.
func (s *Store) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.save()
}

// Prune drops records timestamped at or before cutoff and persists the
// result. It returns the capture file paths referenced by the removed
// records so the caller can delete them. Pruning an already pruned store is
// a no-op.
func (s *Store) Prune(cutoff time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]Record, 0, len(s.records))
	var removed []string
	for _, record := range s.records {
		if !record.Timestamp.After(cutoff) {
			if record.Thumbnail != "" {
				removed = append(removed, record.Thumbnail)
			}
			if record.Annotated != "" {
				removed = append(removed, record.Annotated)
			}
			continue
		}
		kept = append(kept, record)
	}

	if len(kept) == len(s.records) {
		return nil, nil
	}

	droppedCount := len(s.records) - len(kept)
	s.records = kept
	if err := s.save(); err != nil {
		return nil, fmt.Errorf("persist pruned history: %w", err)
	}

	s.logger.Info("pruned detection history",
		logging.Int("removed_records", droppedCount),
		logging.Int("remaining_records", len(kept)),
		logging.Time("cutoff", cutoff))

	return removed, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read history file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	records, err := decodeRecords(data)
	if err != nil {
		return err
	}
	s.records = records

	s.logger.Debug("loaded detection history",
		logging.Int("record_count", len(records)),
		logging.String("path", s.path))
	return nil
}

// save assumes the caller holds at least a read lock.
func (s *Store) save() error {
	records := s.records
	if records == nil {
		records = []Record{}
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(records); err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	if err := fileutil.WriteFileAtomic(s.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write history file: %w", err)
	}
	return nil
}
