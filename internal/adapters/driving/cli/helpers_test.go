package cli

import (
	"context"
	"time"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// stubQuery implements driving.QueryService for command tests.
type stubQuery struct {
	results  []domain.SearchResult
	err      error
	lastOpts domain.SearchOptions
}

func (s *stubQuery) Search(_ context.Context, _ string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	s.lastOpts = opts
	return s.results, s.err
}

func (s *stubQuery) Count(_ context.Context) (int, error) {
	return len(s.results), nil
}

// stubWatcher implements driving.VaultWatcher for command tests.
type stubWatcher struct {
	status  domain.VaultStatus
	report  domain.SyncReport
	initErr error
	syncErr error
	started bool
	stopped bool
}

func (s *stubWatcher) Initialize(_ context.Context) error { return s.initErr }

func (s *stubWatcher) Start(_ context.Context) error {
	s.started = true
	return nil
}

func (s *stubWatcher) Stop() error {
	s.stopped = true
	return nil
}

func (s *stubWatcher) FullSync(_ context.Context) (*domain.SyncReport, error) {
	if s.syncErr != nil {
		return nil, s.syncErr
	}
	report := s.report
	return &report, nil
}

func (s *stubWatcher) Status(_ context.Context) (*domain.VaultStatus, error) {
	status := s.status
	return &status, nil
}

// setupTestServices wires stub services and returns them with a
// cleanup restoring the package state.
func setupTestServices() (*stubQuery, *stubWatcher, func()) {
	query := &stubQuery{}
	watcher := &stubWatcher{
		status: domain.VaultStatus{
			VaultPath:   "/vault",
			Watching:    false,
			LastSync:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
			TotalChunks: 42,
		},
		report: domain.SyncReport{
			RunID:     "run-1",
			Started:   time.Now(),
			Duration:  120 * time.Millisecond,
			Documents: 3,
			Chunks:    7,
		},
	}
	SetServices(query, watcher)

	return query, watcher, func() {
		queryService = nil
		vaultWatcher = nil
	}
}
