// Package daemon coordinates the long-running streamwatch process.
//
// It wires configuration, the detection store, the monitor, and the report
// generator into a single lifecycle with flock-based locking to prevent
// multiple instances. The daemon runs a check cycle immediately on start and
// then on the configured interval, prunes expired history once per day, and
// serves the dashboard, captured screenshots, and a small JSON API over HTTP.
//
// Keep orchestration logic here: cycle mechanics live in the monitor while
// the daemon focuses on startup, shutdown, and scheduling.
package daemon
