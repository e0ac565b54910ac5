package domain

// Search limits and defaults shared by the query surface.
const (
	// DefaultSearchLimit is used when a caller passes no limit.
	DefaultSearchLimit = 10

	// MaxSearchLimit caps the number of results per query.
	MaxSearchLimit = 100

	// DefaultSimilarityThreshold is the service-level minimum
	// similarity when the caller passes none.
	DefaultSimilarityThreshold = 0.7
)

// SearchOptions configures a similarity query.
type SearchOptions struct {
	// Limit is the maximum number of results (1..MaxSearchLimit).
	// Zero means DefaultSearchLimit.
	Limit int

	// SimilarityThreshold is the minimum acceptable similarity
	// (0.0..1.0, inclusive). Zero means DefaultSimilarityThreshold.
	SimilarityThreshold float64
}

// SearchResult represents a single similarity hit.
type SearchResult struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Content is the chunk text.
	Content string

	// Metadata is the chunk metadata (includes parent_source_id,
	// chunk_index, preview and parent document fields).
	Metadata map[string]any

	// Similarity is 1 minus the cosine distance, clamped to [0, 1].
	Similarity float64
}
