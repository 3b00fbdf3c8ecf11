// Package api holds the JSON payload types served by the daemon's HTTP
// endpoints and the shared workflows the CLI and daemon both build on, so
// command handlers stay thin and the wire format lives in one place.
package api
