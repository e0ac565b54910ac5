package domain

import "time"

// VaultStatus reports the watcher's observable state.
type VaultStatus struct {
	// VaultPath is the watched vault root.
	VaultPath string

	// Watching indicates the watcher is running.
	Watching bool

	// LastSync is when the last successful full sync started.
	// Zero if no full sync has completed.
	LastSync time.Time

	// TotalChunks is the number of entries currently indexed,
	// including entries persisted without a vector.
	TotalChunks int
}

// SyncReport aggregates the outcome of one full sync.
// Per-document failures are collected here rather than aborting the
// sync; storage failures abort and surface through the error return.
type SyncReport struct {
	// RunID uniquely identifies this sync run.
	RunID string

	// Started is when the sync began. Source mutations after this
	// instant are not guaranteed to be captured until the next sync
	// or the corresponding change event.
	Started time.Time

	// Duration is the total wall time of the sync.
	Duration time.Duration

	// Documents is the number of documents successfully indexed.
	Documents int

	// Chunks is the number of chunks added to the index.
	Chunks int

	// Errors holds per-document failures that were skipped.
	Errors []error
}
