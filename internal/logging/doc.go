// Package logging builds the slog loggers used across streamwatch.
//
// It provides a console handler for interactive use (colorized when stdout is
// a terminal), a JSON handler for machine consumption, standardized attribute
// keys for cross-component correlation (component, cycle_id, streamer), and
// small attr helpers so call sites stay terse.
package logging
