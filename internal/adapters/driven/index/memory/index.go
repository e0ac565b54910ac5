// Package memory provides an in-memory VectorIndex using brute-force
// cosine similarity. Useful for tests and small vaults; nothing
// survives process restart.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/custodia-labs/recall-cli/internal/adapters/driven/index/similarity"
	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
	"github.com/custodia-labs/recall-cli/internal/logger"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index stores entries in a map guarded by a RWMutex.
type Index struct {
	mu       sync.RWMutex
	embedder driven.EmbeddingService
	entries  map[string]driven.IndexEntry
}

// New creates an empty in-memory index. The embedder is optional;
// when nil, entries are stored without vectors and similarity queries
// are disabled.
func New(embedder driven.EmbeddingService) *Index {
	return &Index{
		embedder: embedder,
		entries:  make(map[string]driven.IndexEntry),
	}
}

// Add computes the embedding and stores a new entry.
func (idx *Index) Add(ctx context.Context, id, content string, metadata map[string]any) (string, error) {
	if id == "" {
		id = uuid.New().String()
	}
	return id, idx.Update(ctx, id, content, metadata)
}

// Update replaces the entry entirely, preserving the ID. Updating a
// non-existent ID is an implicit add.
func (idx *Index) Update(ctx context.Context, id, content string, metadata map[string]any) error {
	embedding := idx.embed(ctx, id, content)

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries[id] = driven.IndexEntry{
		ID:        id,
		Content:   content,
		Metadata:  copyMetadata(metadata),
		Embedding: embedding,
	}
	return nil
}

// Delete removes the entry if present; no-op when absent.
func (idx *Index) Delete(_ context.Context, id string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.entries, id)
	return nil
}

// DeleteBySource removes every entry belonging to one parent source.
func (idx *Index) DeleteBySource(_ context.Context, sourceID string) (int, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	removed := 0
	for id, entry := range idx.entries {
		if entryParent(entry) == sourceID {
			delete(idx.entries, id)
			removed++
		}
	}
	return removed, nil
}

// Get retrieves one entry by ID, including null-vector entries.
func (idx *Index) Get(_ context.Context, id string) (*driven.IndexEntry, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	entry, ok := idx.entries[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	entry.Metadata = copyMetadata(entry.Metadata)
	return &entry, nil
}

// Query embeds the text and returns thresholded matches, descending by
// similarity. Null-vector entries never match.
func (idx *Index) Query(ctx context.Context, text string, limit int, threshold float64) ([]domain.SearchResult, error) {
	if idx.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	queryVec, err := idx.embedder.Embed(ctx, text)
	if err != nil {
		return nil, wrapProvider(err)
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	results := make([]domain.SearchResult, 0, limit)
	for _, entry := range idx.entries {
		if entry.Embedding == nil {
			continue
		}
		if len(entry.Embedding) != len(queryVec) {
			logger.Warn("Dimension mismatch for %s: %d != %d", entry.ID, len(entry.Embedding), len(queryVec))
			continue
		}

		score := similarity.Score(queryVec, entry.Embedding)
		if score < threshold {
			continue
		}
		results = append(results, domain.SearchResult{
			ChunkID:    entry.ID,
			Content:    entry.Content,
			Metadata:   copyMetadata(entry.Metadata),
			Similarity: score,
		})
	}

	similarity.Sort(results)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Count returns the number of stored entries, including null-vector
// entries.
func (idx *Index) Count(_ context.Context) (int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries), nil
}

// CountBySource returns the number of entries for one parent source.
func (idx *Index) CountBySource(_ context.Context, sourceID string) (int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	count := 0
	for _, entry := range idx.entries {
		if entryParent(entry) == sourceID {
			count++
		}
	}
	return count, nil
}

// Clear removes all entries.
func (idx *Index) Clear(_ context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries = make(map[string]driven.IndexEntry)
	return nil
}

// Close releases resources.
func (idx *Index) Close() error {
	return nil
}

// wrapProvider marks an embedding failure with the domain sentinel.
func wrapProvider(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrProvider, err)
}

// embed calls the provider, recovering failures with a null vector so
// ingestion never blocks on embedding outages.
func (idx *Index) embed(ctx context.Context, id, content string) []float32 {
	if idx.embedder == nil {
		return nil
	}
	embedding, err := idx.embedder.Embed(ctx, content)
	if err != nil {
		logger.Error("Storing %s without vector: %v", id, wrapProvider(err))
		return nil
	}
	return embedding
}

// entryParent resolves an entry's parent source ID from metadata,
// falling back to the chunk ID namespace.
func entryParent(entry driven.IndexEntry) string {
	if parent, ok := entry.Metadata["parent_source_id"].(string); ok {
		return parent
	}
	if i := strings.LastIndex(entry.ID, "#chunk_"); i >= 0 {
		return entry.ID[:i]
	}
	return ""
}

func copyMetadata(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
