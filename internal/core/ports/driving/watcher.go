package driving

import (
	"context"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// VaultWatcher keeps the vector index consistent with the vault.
// Lifecycle: Stopped -> Initializing -> Running -> Stopped, with a
// Syncing sub-state entered from Running during a full sync.
type VaultWatcher interface {
	// Initialize validates the vault root and stores the index
	// reference. Fails with domain.ErrInvalidVault when the root is
	// missing, not a directory, or contains no parseable documents.
	Initialize(ctx context.Context) error

	// Start performs one full sync, then begins monitoring for change
	// events. Idempotent: starting a running watcher succeeds without
	// side effects. Fails with domain.ErrNotInitialized when
	// Initialize never completed.
	Start(ctx context.Context) error

	// Stop cancels monitoring and releases watcher resources.
	// In-flight work for the current document completes before the
	// watcher honours cancellation. Idempotent.
	Stop() error

	// FullSync clears the index and rebuilds it from the current
	// source tree. Only one full sync may be in flight; concurrent
	// requests fail with domain.ErrSyncInProgress.
	FullSync(ctx context.Context) (*domain.SyncReport, error)

	// Status reports the watcher's observable state.
	Status(ctx context.Context) (*domain.VaultStatus, error)
}
