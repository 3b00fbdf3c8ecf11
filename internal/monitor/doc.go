// Package monitor drives the periodic check cycle: list live streams, fetch
// a thumbnail for each, run logo detection, write the annotated capture, and
// append the outcome to the detection store. Failures on a single stream are
// logged and skipped so one broken thumbnail never aborts a cycle.
package monitor
