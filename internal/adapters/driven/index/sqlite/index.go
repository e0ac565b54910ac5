// Package sqlite implements a persistent VectorIndex backed by a
// single SQLite database. Embeddings are stored as little-endian
// float32 blobs and similarity is computed in Go, which is plenty for
// personal vault sizes.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/recall-cli/internal/adapters/driven/index/sqlite/migrations"
	"github.com/custodia-labs/recall-cli/internal/adapters/driven/index/similarity"
	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
	"github.com/custodia-labs/recall-cli/internal/logger"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index persists chunks and their embeddings in SQLite.
type Index struct {
	db       *sql.DB
	path     string
	lock     *flock.Flock
	embedder driven.EmbeddingService
}

// NewIndex opens (or creates) the index database under dataDir and
// takes an exclusive lock on the directory so two processes never
// write the same index. If dataDir is empty, defaults to
// ~/.recall/data. The embedder is optional; when nil, entries are
// stored without vectors and similarity queries are disabled.
func NewIndex(dataDir string, embedder driven.EmbeddingService) (*Index, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".recall", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	lock := flock.New(filepath.Join(dataDir, "index.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking data directory: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: data directory %s is in use by another process", domain.ErrStorage, dataDir)
	}

	dbPath := filepath.Join(dataDir, "index.db")

	// WAL mode for better concurrency between the watcher and queries
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		lock.Unlock() //nolint:errcheck
		return nil, fmt.Errorf("opening database: %w", err)
	}

	idx := &Index{
		db:       db,
		path:     dbPath,
		lock:     lock,
		embedder: embedder,
	}

	if err := idx.migrate(migrations.FS); err != nil {
		db.Close()
		lock.Unlock() //nolint:errcheck
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return idx, nil
}

// Path returns the database file path.
func (idx *Index) Path() string {
	return idx.path
}

// Close closes the database and releases the directory lock.
func (idx *Index) Close() error {
	err := idx.db.Close()
	if unlockErr := idx.lock.Unlock(); err == nil {
		err = unlockErr
	}
	return err
}

// migrate runs all pending migrations.
func (idx *Index) migrate(fsys embed.FS) error {
	_, err := idx.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := idx.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := idx.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := idx.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// Add computes the embedding and stores a new entry.
func (idx *Index) Add(ctx context.Context, id, content string, metadata map[string]any) (string, error) {
	if id == "" {
		id = uuid.New().String()
	}
	return id, idx.Update(ctx, id, content, metadata)
}

// Update stores the entry, replacing any previous row with the same ID.
func (idx *Index) Update(ctx context.Context, id, content string, metadata map[string]any) error {
	embedding := idx.embed(ctx, id, content)

	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("%w: marshalling metadata: %v", domain.ErrStorage, err)
	}

	_, err = idx.db.ExecContext(ctx, `
		INSERT INTO chunks (id, parent_source_id, content, metadata, embedding)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			parent_source_id = excluded.parent_source_id,
			content = excluded.content,
			metadata = excluded.metadata,
			embedding = excluded.embedding
	`, id, parentSource(id, metadata), content, string(metadataJSON), float32SliceToBytes(embedding))

	if err != nil {
		return fmt.Errorf("%w: saving chunk: %v", domain.ErrStorage, err)
	}
	return nil
}

// Delete removes the entry if present; no-op when absent.
func (idx *Index) Delete(ctx context.Context, id string) error {
	_, err := idx.db.ExecContext(ctx, "DELETE FROM chunks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("%w: deleting chunk: %v", domain.ErrStorage, err)
	}
	return nil
}

// DeleteBySource removes every entry belonging to one parent source.
func (idx *Index) DeleteBySource(ctx context.Context, sourceID string) (int, error) {
	res, err := idx.db.ExecContext(ctx, "DELETE FROM chunks WHERE parent_source_id = ?", sourceID)
	if err != nil {
		return 0, fmt.Errorf("%w: deleting chunks: %v", domain.ErrStorage, err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: counting deleted chunks: %v", domain.ErrStorage, err)
	}
	return int(removed), nil
}

// Get retrieves one entry by ID, including null-vector entries.
func (idx *Index) Get(ctx context.Context, id string) (*driven.IndexEntry, error) {
	row := idx.db.QueryRowContext(ctx, `
		SELECT id, content, metadata, embedding FROM chunks WHERE id = ?
	`, id)

	entry, err := scanEntry(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: scanning chunk: %v", domain.ErrStorage, err)
	}
	return entry, nil
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

	rows, err := idx.db.QueryContext(ctx, `
		SELECT id, content, metadata, embedding FROM chunks WHERE embedding IS NOT NULL
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: querying chunks: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	results := make([]domain.SearchResult, 0, limit)
	for rows.Next() {
		entry, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning chunk: %v", domain.ErrStorage, err)
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
			Metadata:   entry.Metadata,
			Similarity: score,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating chunks: %v", domain.ErrStorage, err)
	}

	similarity.Sort(results)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Count returns the number of stored entries, including null-vector
// entries.
func (idx *Index) Count(ctx context.Context) (int, error) {
	var count int
	err := idx.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: counting chunks: %v", domain.ErrStorage, err)
	}
	return count, nil
}

// CountBySource returns the number of entries for one parent source.
func (idx *Index) CountBySource(ctx context.Context, sourceID string) (int, error) {
	var count int
	err := idx.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chunks WHERE parent_source_id = ?", sourceID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: counting chunks: %v", domain.ErrStorage, err)
	}
	return count, nil
}

// Clear removes all entries.
func (idx *Index) Clear(ctx context.Context) error {
	_, err := idx.db.ExecContext(ctx, "DELETE FROM chunks")
	if err != nil {
		return fmt.Errorf("%w: clearing chunks: %v", domain.ErrStorage, err)
	}
	return nil
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

// wrapProvider marks an embedding failure with the domain sentinel.
func wrapProvider(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrProvider, err)
}

// scanEntry scans one chunk row. scan is row.Scan or rows.Scan.
func scanEntry(scan func(...any) error) (*driven.IndexEntry, error) {
	var entry driven.IndexEntry
	var metadataJSON string
	var embeddingBlob []byte

	if err := scan(&entry.ID, &entry.Content, &metadataJSON, &embeddingBlob); err != nil {
		return nil, err
	}

	entry.Embedding = bytesToFloat32Slice(embeddingBlob)

	if metadataJSON != "" && metadataJSON != "null" {
		if err := json.Unmarshal([]byte(metadataJSON), &entry.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}

	return &entry, nil
}

// parentSource resolves an entry's parent source ID from metadata,
// falling back to the chunk ID namespace.
func parentSource(id string, metadata map[string]any) string {
	if parent, ok := metadata["parent_source_id"].(string); ok {
		return parent
	}
	if i := strings.LastIndex(id, "#chunk_"); i >= 0 {
		return id[:i]
	}
	return ""
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
// A nil slice maps to a NULL blob, preserving the null-vector marker.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
