// Package store persists detection records as a single JSON document on
// disk. The file is rewritten atomically on every save, and a file that is
// missing or fails validation is treated as an empty history rather than an
// error so the monitor can always make forward progress.
package store
