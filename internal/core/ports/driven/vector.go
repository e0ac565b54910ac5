package driven

import (
	"context"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// VectorIndex owns the persistent store of indexed chunks: content,
// metadata and embedding vector per entry, keyed by chunk ID.
//
// The index computes embeddings itself via its EmbeddingService. When
// the provider fails or is absent, entries are persisted with a null
// vector: retrievable by ID and counted, but excluded from similarity
// queries. Ingestion never blocks on embedding outages.
//
// Storage failures wrap domain.ErrStorage and must propagate; provider
// failures wrap domain.ErrProvider and are recovered internally.
type VectorIndex interface {
	// Add computes the embedding and stores a new entry. If id is
	// empty a random one is generated. Returns the stored ID.
	Add(ctx context.Context, id, content string, metadata map[string]any) (string, error)

	// Update recomputes the embedding and replaces the entry entirely,
	// preserving the ID. Updating a non-existent ID is an implicit add
	// (upsert), tolerating out-of-order watcher events.
	Update(ctx context.Context, id, content string, metadata map[string]any) error

	// Delete removes the entry if present. No-op, not an error, when
	// absent (tolerates duplicate delete events).
	Delete(ctx context.Context, id string) error

	// DeleteBySource removes every entry whose parent source ID
	// matches. Returns the number of entries removed.
	DeleteBySource(ctx context.Context, sourceID string) (int, error)

	// Get retrieves one entry by ID, including null-vector entries.
	Get(ctx context.Context, id string) (*IndexEntry, error)

	// Query embeds the text and returns entries with
	// similarity >= threshold, sorted descending, truncated to limit.
	// Entries with null vectors never match.
	Query(ctx context.Context, text string, limit int, threshold float64) ([]domain.SearchResult, error)

	// Count returns the number of stored entries, including
	// null-vector entries.
	Count(ctx context.Context) (int, error)

	// CountBySource returns the number of entries for one parent
	// source ID.
	CountBySource(ctx context.Context, sourceID string) (int, error)

	// Clear removes all entries. Used before a full resynchronisation
	// to avoid stale chunks from a changed chunking strategy.
	Clear(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// IndexEntry is the index's internal unit.
type IndexEntry struct {
	// ID is the chunk ID.
	ID string

	// Content is the chunk text.
	Content string

	// Metadata is the chunk metadata.
	Metadata map[string]any

	// Embedding is the stored vector, nil when the provider was
	// unavailable at write time.
	Embedding []float32
}
