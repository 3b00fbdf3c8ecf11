// Package notifications delivers monitor events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. Per-event toggles let operators subscribe to detections only, or
// add cycle summaries and error alerts.
//
// Extend this package if you need alternative transports; all monitor code
// depends only on the simple Service interface.
package notifications
