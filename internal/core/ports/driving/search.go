package driving

import (
	"context"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// QueryService serves similarity queries against the vault index.
type QueryService interface {
	// Search embeds the query text and returns ranked, thresholded
	// matches.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)

	// Count returns the number of indexed entries.
	Count(ctx context.Context) (int, error)
}
