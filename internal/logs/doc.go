// Package logs reads the daemon log file for the CLI, either directly from
// disk or through the daemon HTTP API when one is running.
package logs
