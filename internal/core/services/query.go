package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driving"
	"github.com/custodia-labs/recall-cli/internal/logger"
)

// Ensure QueryService implements the interface.
var _ driving.QueryService = (*QueryService)(nil)

// QueryService serves similarity queries against the vector index.
type QueryService struct {
	index driven.VectorIndex
}

// NewQueryService creates a query service backed by the given index.
func NewQueryService(index driven.VectorIndex) *QueryService {
	return &QueryService{index: index}
}

// Search embeds the query text and returns ranked, thresholded matches.
// A zero limit falls back to domain.DefaultSearchLimit and a zero
// threshold to domain.DefaultSimilarityThreshold; out-of-range values
// fail with domain.ErrInvalidInput.
func (s *QueryService) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidInput)
	}

	limit := opts.Limit
	switch {
	case limit == 0:
		limit = domain.DefaultSearchLimit
	case limit < 0 || limit > domain.MaxSearchLimit:
		return nil, fmt.Errorf("%w: limit %d outside [1, %d]", domain.ErrInvalidInput, limit, domain.MaxSearchLimit)
	}

	threshold := opts.SimilarityThreshold
	if threshold == 0 {
		threshold = domain.DefaultSimilarityThreshold
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("%w: threshold %.2f outside [0, 1]", domain.ErrInvalidInput, threshold)
	}

	logger.Debug("Searching for %q (limit %d, threshold %.2f)", query, limit, threshold)

	results, err := s.index.Query(ctx, query, limit, threshold)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	return results, nil
}

// Count returns the number of indexed entries.
func (s *QueryService) Count(ctx context.Context) (int, error) {
	count, err := s.index.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count index: %w", err)
	}
	return count, nil
}
