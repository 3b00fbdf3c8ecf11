package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"streamwatch/internal/config"
	"streamwatch/internal/logging"
	"streamwatch/internal/monitor"
	"streamwatch/internal/report"
	"streamwatch/internal/store"
)

// Daemon coordinates the scheduler and the embedded HTTP server, and enforces
// single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	monitor  *monitor.Monitor
	reporter *report.Generator

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	interval time.Duration

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu          sync.Mutex
	lastCycle   monitor.CycleResult
	lastCycleAt time.Time
	lastError   string
	nextCheckAt time.Time
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	LockFilePath string
	RecordCount  int
	LastCycle    monitor.CycleResult
	LastCycleAt  time.Time
	LastError    string
	NextCheckAt  time.Time
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, st *store.Store, mon *monitor.Monitor, reporter *report.Generator, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || st == nil || mon == nil || reporter == nil {
		return nil, errors.New("daemon requires config, store, monitor, and reporter")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	interval := time.Duration(cfg.Monitor.CheckIntervalHours) * time.Hour
	if interval <= 0 {
		interval = time.Hour
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "streamwatchd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.WithComponent(logger, "daemon"),
		store:    st,
		monitor:  mon,
		reporter: reporter,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
		interval: interval,
	}

	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start acquires the daemon lock, starts the HTTP server, and launches the
// scheduler loop.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another streamwatch daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if d.api != nil {
		if err := d.api.start(runCtx); err != nil {
			_ = d.lock.Unlock()
			cancel()
			d.cancel = nil
			return err
		}
	}

	d.running.Store(true)
	d.wg.Add(1)
	go d.schedulerLoop(runCtx)

	d.logger.Info("streamwatch daemon started",
		logging.String("lock", d.lockPath),
		logging.Duration("check_interval", d.interval))
	return nil
}

// Stop halts the scheduler and HTTP server and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	if d.api != nil {
		d.api.stop()
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("streamwatch daemon stopped")
}

// schedulerLoop runs a cycle immediately, then every interval, with a daily
// retention prune at the configured local time. An in-flight cycle always
// runs to completion; cancellation is only observed between cycles.
func (d *Daemon) schedulerLoop(ctx context.Context) {
	defer d.wg.Done()

	d.runCycle(ctx)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	pruneTimer := time.NewTimer(nextPruneDelay(time.Now(), d.cfg.Monitor.PruneAt))
	defer pruneTimer.Stop()

	for {
		d.setNextCheck(time.Now().Add(d.interval))
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.runCycle(ctx)
		case <-pruneTimer.C:
			d.runPrune(ctx)
			pruneTimer.Reset(nextPruneDelay(time.Now(), d.cfg.Monitor.PruneAt))
		}
	}
}

func (d *Daemon) runCycle(ctx context.Context) {
	result, err := d.monitor.CheckStreams(ctx)

	d.mu.Lock()
	d.lastCycleAt = time.Now().UTC()
	if err != nil {
		d.lastError = err.Error()
	} else {
		d.lastCycle = result
		d.lastError = ""
	}
	d.mu.Unlock()

	if err != nil {
		d.logger.Error("check cycle failed", logging.Error(err))
		return
	}
	if _, err := d.reporter.Generate(); err != nil {
		d.logger.Warn("dashboard generation failed", logging.Error(err))
	}
}

func (d *Daemon) runPrune(ctx context.Context) {
	deleted, err := d.monitor.PruneOldData(ctx)
	if err != nil {
		d.logger.Error("retention prune failed", logging.Error(err))
		return
	}
	if deleted > 0 {
		if _, err := d.reporter.Generate(); err != nil {
			d.logger.Warn("dashboard generation failed", logging.Error(err))
		}
	}
}

// nextPruneDelay returns the duration until the next daily occurrence of the
// "15:04" local time in pruneAt. A malformed value falls back to 03:00.
func nextPruneDelay(now time.Time, pruneAt string) time.Duration {
	at, err := time.Parse("15:04", pruneAt)
	if err != nil {
		at = time.Date(0, 1, 1, 3, 0, 0, 0, time.UTC)
	}
	next := time.Date(now.Year(), now.Month(), now.Day(), at.Hour(), at.Minute(), 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}

func (d *Daemon) setNextCheck(at time.Time) {
	d.mu.Lock()
	d.nextCheckAt = at.UTC()
	d.mu.Unlock()
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// LockFilePath returns the single-instance lock path.
func (d *Daemon) LockFilePath() string {
	return d.lockPath
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		LockFilePath: d.lockPath,
		RecordCount:  d.store.Count(),
		LastCycle:    d.lastCycle,
		LastCycleAt:  d.lastCycleAt,
		LastError:    d.lastError,
		NextCheckAt:  d.nextCheckAt,
	}
}
