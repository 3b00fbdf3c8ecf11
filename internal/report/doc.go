// Package report renders the detection history into a static HTML dashboard.
// Generation reads the store file directly so it can run from the CLI or the
// daemon without holding any lock; a stale read only means a stale page.
package report
