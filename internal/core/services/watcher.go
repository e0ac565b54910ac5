package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driving"
	"github.com/custodia-labs/recall-cli/internal/logger"
)

// Ensure WatcherService implements the interface.
var _ driving.VaultWatcher = (*WatcherService)(nil)

// eventQueueSize bounds the change queue between the source watch and
// the consumer. A burst larger than this blocks the dispatcher until
// the consumer catches up; events are never dropped.
const eventQueueSize = 256

// queuedChange is one change event stamped with its per-document
// sequence number.
type queuedChange struct {
	change domain.RawDocumentChange
	seq    uint64
}

// WatcherService keeps the vector index consistent with the vault.
// It performs full syncs on demand and applies incremental change
// events from the source watch through a single consumer goroutine.
type WatcherService struct {
	vaultPath string
	source    driven.Source
	registry  driven.NormaliserRegistry
	pipeline  driven.PostProcessorPipeline
	index     driven.VectorIndex

	mu          sync.Mutex
	initialized bool
	running     bool
	syncing     bool
	cancel      context.CancelFunc
	done        chan struct{}
	lastSync    time.Time

	// applyMu serialises index mutations between the event consumer
	// and full syncs. Events arriving mid-sync queue up and apply once
	// the sync releases the lock.
	applyMu sync.Mutex

	// seqMu guards latest, the highest sequence number stamped per
	// document. Consumed events older than the latest stamp are stale
	// and discarded; the newer event for the same document supersedes
	// them.
	seqMu  sync.Mutex
	latest map[string]uint64
}

// NewWatcherService creates a watcher for one vault.
func NewWatcherService(
	vaultPath string,
	source driven.Source,
	registry driven.NormaliserRegistry,
	pipeline driven.PostProcessorPipeline,
	index driven.VectorIndex,
) *WatcherService {
	return &WatcherService{
		vaultPath: vaultPath,
		source:    source,
		registry:  registry,
		pipeline:  pipeline,
		index:     index,
		latest:    make(map[string]uint64),
	}
}

// Initialize validates the vault root. Fails with domain.ErrInvalidVault
// when the root is missing, not a directory, or holds no parseable
// documents.
func (s *WatcherService) Initialize(ctx context.Context) error {
	logger.Debug("Validating vault %s", s.vaultPath)
	if err := s.source.Validate(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()

	logger.Info("Vault initialised: %s", s.vaultPath)
	return nil
}

// Start performs one full sync, then begins monitoring for change
// events. Idempotent: starting a running watcher succeeds without side
// effects.
func (s *WatcherService) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	if !s.initialized {
		s.mu.Unlock()
		return domain.ErrNotInitialized
	}
	s.mu.Unlock()

	if _, err := s.FullSync(ctx); err != nil {
		return fmt.Errorf("initial sync: %w", err)
	}

	// The watch outlives the Start call; Stop cancels it.
	watchCtx, cancel := context.WithCancel(context.Background())
	changes, err := s.source.Watch(watchCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("watch vault: %w", err)
	}

	queue := make(chan queuedChange, eventQueueSize)
	done := make(chan struct{})

	go s.dispatch(watchCtx, changes, queue)
	go s.consume(queue, done)

	s.mu.Lock()
	s.running = true
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	logger.Info("Watching vault %s", s.vaultPath)
	return nil
}

// Stop cancels monitoring and waits for the consumer to drain.
// The event being applied when Stop is called completes first.
// Idempotent.
func (s *WatcherService) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	cancel, done := s.cancel, s.done
	s.running = false
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	cancel()
	<-done

	logger.Info("Stopped watching %s", s.vaultPath)
	return nil
}

// FullSync clears the index and rebuilds it from the current vault
// tree. Only one full sync may be in flight; concurrent requests fail
// with domain.ErrSyncInProgress. Per-document failures are collected in
// the report; storage failures abort.
func (s *WatcherService) FullSync(ctx context.Context) (*domain.SyncReport, error) {
	if err := s.beginSync(); err != nil {
		return nil, err
	}
	defer s.endSync()

	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	report := &domain.SyncReport{
		RunID:   uuid.New().String(),
		Started: time.Now(),
	}

	logger.Section("Full sync %s", report.RunID)

	if err := s.index.Clear(ctx); err != nil {
		return nil, fmt.Errorf("clear index: %w", err)
	}

	docs, errs := s.source.FetchAll(ctx)
	for doc := range docs {
		chunks, err := s.indexDocument(ctx, &doc)
		if err != nil {
			if isFatal(err) {
				return nil, fmt.Errorf("index %s: %w", doc.URI, err)
			}
			logger.Warn("Skipping %s: %v", doc.URI, err)
			report.Errors = append(report.Errors, fmt.Errorf("%s: %w", doc.URI, err))
			continue
		}
		if chunks > 0 {
			report.Documents++
			report.Chunks += chunks
		}
	}
	for err := range errs {
		if err != nil {
			return nil, fmt.Errorf("enumerate vault: %w", err)
		}
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	report.Duration = time.Since(report.Started)

	s.mu.Lock()
	s.lastSync = report.Started
	s.mu.Unlock()

	logger.Info("Full sync complete: %d documents, %d chunks, %d errors in %s",
		report.Documents, report.Chunks, len(report.Errors), report.Duration.Round(time.Millisecond))
	return report, nil
}

// Status reports the watcher's observable state.
func (s *WatcherService) Status(ctx context.Context) (*domain.VaultStatus, error) {
	count, err := s.index.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count index: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return &domain.VaultStatus{
		VaultPath:   s.vaultPath,
		Watching:    s.running,
		LastSync:    s.lastSync,
		TotalChunks: count,
	}, nil
}

// beginSync claims the single sync slot.
func (s *WatcherService) beginSync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.syncing {
		return domain.ErrSyncInProgress
	}
	s.syncing = true
	return nil
}

func (s *WatcherService) endSync() {
	s.mu.Lock()
	s.syncing = false
	s.mu.Unlock()
}

// dispatch stamps incoming events with per-document sequence numbers
// and forwards them to the bounded queue.
func (s *WatcherService) dispatch(ctx context.Context, changes <-chan domain.RawDocumentChange, queue chan<- queuedChange) {
	defer close(queue)

	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			qc := queuedChange{change: change, seq: s.stamp(change.Document.URI)}
			select {
			case queue <- qc:
			case <-ctx.Done():
				return
			}
		}
	}
}

// consume applies queued events in order, discarding events superseded
// by a newer event for the same document. Application uses a background
// context so the in-flight event finishes cleanly during Stop.
func (s *WatcherService) consume(queue <-chan queuedChange, done chan<- struct{}) {
	defer close(done)

	for qc := range queue {
		uri := qc.change.Document.URI
		if s.isStale(uri, qc.seq) {
			logger.Debug("Discarding stale %s event for %s", qc.change.Type, uri)
			continue
		}

		s.applyMu.Lock()
		err := s.apply(context.Background(), &qc.change)
		s.applyMu.Unlock()

		if err != nil {
			logger.Warn("Failed to apply %s for %s: %v", qc.change.Type, uri, err)
		}
	}
}

// stamp records and returns the next sequence number for a document.
func (s *WatcherService) stamp(uri string) uint64 {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	s.latest[uri]++
	return s.latest[uri]
}

// isStale reports whether a newer event for the same document has been
// stamped since.
func (s *WatcherService) isStale(uri string, seq uint64) bool {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	return seq < s.latest[uri]
}

// apply performs the index mutation for one change event. Caller holds
// applyMu.
func (s *WatcherService) apply(ctx context.Context, change *domain.RawDocumentChange) error {
	docID := change.Document.URI // document IDs are vault-relative paths

	switch change.Type {
	case domain.ChangeDeleted:
		removed, err := s.index.DeleteBySource(ctx, docID)
		if err != nil {
			return fmt.Errorf("delete chunks: %w", err)
		}
		logger.Debug("Removed %d chunks for %s", removed, docID)
		return nil

	case domain.ChangeCreated, domain.ChangeUpdated:
		oldCount, err := s.index.CountBySource(ctx, docID)
		if err != nil {
			return fmt.Errorf("count chunks: %w", err)
		}

		newCount, err := s.indexDocument(ctx, &change.Document)
		if err != nil {
			return err
		}

		// A shrinking document leaves stale trailing chunks behind;
		// an emptied document loses its whole family this way.
		for i := newCount; i < oldCount; i++ {
			if err := s.index.Delete(ctx, domain.ChunkID(docID, i)); err != nil {
				return fmt.Errorf("delete stale chunk: %w", err)
			}
		}

		logger.Debug("Re-indexed %s: %d chunks (%d before)", docID, newCount, oldCount)
		return nil
	}

	return nil
}

// indexDocument normalises, chunks and upserts one raw document.
// Returns the number of chunks written. An empty document writes none.
func (s *WatcherService) indexDocument(ctx context.Context, raw *domain.RawDocument) (int, error) {
	result, err := s.registry.Normalise(ctx, raw)
	if err != nil {
		return 0, fmt.Errorf("normalise: %w", err)
	}
	if result == nil {
		return 0, nil
	}

	chunks, err := s.pipeline.Process(ctx, &result.Document)
	if err != nil {
		return 0, fmt.Errorf("chunk: %w", err)
	}

	for _, chunk := range chunks {
		if err := s.index.Update(ctx, chunk.ID, chunk.Content, chunk.Metadata); err != nil {
			return 0, fmt.Errorf("index chunk %s: %w", chunk.ID, err)
		}
	}
	return len(chunks), nil
}

// isFatal reports whether an indexing error must abort a full sync
// rather than be recorded and skipped.
func isFatal(err error) bool {
	return errors.Is(err, domain.ErrStorage)
}
