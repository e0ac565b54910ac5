package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

type stubEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
	err      error
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return s.fallback, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := s.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int              { return len(s.fallback) }
func (s *stubEmbedder) ModelName() string            { return "stub" }
func (s *stubEmbedder) Ping(_ context.Context) error { return nil }
func (s *stubEmbedder) Close() error                 { return nil }

func newStubEmbedder() *stubEmbedder {
	return &stubEmbedder{
		vectors: map[string][]float32{
			"query":        {1, 0},
			"exact":        {1, 0},
			"at threshold": {0.6, 0.8},
			"below":        {0.5, 0.866},
		},
		fallback: []float32{0, 1},
	}
}

func setupIndex(t *testing.T) (*Index, *stubEmbedder) {
	t.Helper()
	embedder := newStubEmbedder()
	idx, err := NewIndex(t.TempDir(), embedder)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, idx.Close()) })
	return idx, embedder
}

func TestNewIndex(t *testing.T) {
	t.Run("creates database and lock in data dir", func(t *testing.T) {
		dir := t.TempDir()
		idx, err := NewIndex(dir, nil)
		require.NoError(t, err)
		defer idx.Close()

		assert.Equal(t, filepath.Join(dir, "index.db"), idx.Path())
		assert.FileExists(t, idx.Path())
	})

	t.Run("second open of same dir fails while locked", func(t *testing.T) {
		dir := t.TempDir()
		idx, err := NewIndex(dir, nil)
		require.NoError(t, err)
		defer idx.Close()

		_, err = NewIndex(dir, nil)
		assert.ErrorIs(t, err, domain.ErrStorage)
	})

	t.Run("reopens after close", func(t *testing.T) {
		dir := t.TempDir()
		idx, err := NewIndex(dir, nil)
		require.NoError(t, err)
		require.NoError(t, idx.Close())

		idx, err = NewIndex(dir, nil)
		require.NoError(t, err)
		assert.NoError(t, idx.Close())
	})
}

func TestIndex_Persistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	idx, err := NewIndex(dir, newStubEmbedder())
	require.NoError(t, err)

	_, err = idx.Add(ctx, "note.md#chunk_0", "exact", map[string]any{"title": "Note"})
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	idx, err = NewIndex(dir, newStubEmbedder())
	require.NoError(t, err)
	defer idx.Close()

	entry, err := idx.Get(ctx, "note.md#chunk_0")
	require.NoError(t, err)
	assert.Equal(t, "exact", entry.Content)
	assert.Equal(t, []float32{1, 0}, entry.Embedding)
	assert.Equal(t, "Note", entry.Metadata["title"])
}

func TestIndex_Upsert(t *testing.T) {
	ctx := context.Background()
	idx, _ := setupIndex(t)

	_, err := idx.Add(ctx, "note.md#chunk_0", "exact", nil)
	require.NoError(t, err)
	require.NoError(t, idx.Update(ctx, "note.md#chunk_0", "below", nil))

	entry, err := idx.Get(ctx, "note.md#chunk_0")
	require.NoError(t, err)
	assert.Equal(t, "below", entry.Content)

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestIndex_ProviderOutage(t *testing.T) {
	ctx := context.Background()
	idx, embedder := setupIndex(t)

	embedder.err = errors.New("provider down")
	_, err := idx.Add(ctx, "note.md#chunk_0", "exact", nil)
	require.NoError(t, err, "provider outage must not fail ingestion")

	entry, err := idx.Get(ctx, "note.md#chunk_0")
	require.NoError(t, err)
	assert.Nil(t, entry.Embedding)

	// the null-vector row counts but never matches a query
	embedder.err = nil
	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	results, err := idx.Query(ctx, "query", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, results)

	// re-indexing after recovery restores the vector
	require.NoError(t, idx.Update(ctx, "note.md#chunk_0", "exact", nil))
	results, err = idx.Query(ctx, "query", 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "note.md#chunk_0", results[0].ChunkID)
}

func TestIndex_BySource(t *testing.T) {
	ctx := context.Background()
	idx, _ := setupIndex(t)

	for _, e := range []struct{ id, parent string }{
		{"a.md#chunk_0", "a.md"},
		{"a.md#chunk_1", "a.md"},
		{"b.md#chunk_0", "b.md"},
	} {
		_, err := idx.Add(ctx, e.id, "content", map[string]any{"parent_source_id": e.parent})
		require.NoError(t, err)
	}

	count, err := idx.CountBySource(ctx, "a.md")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	removed, err := idx.DeleteBySource(ctx, "a.md")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	total, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestIndex_Query(t *testing.T) {
	ctx := context.Background()

	t.Run("threshold inclusive and descending order", func(t *testing.T) {
		idx, _ := setupIndex(t)
		for _, content := range []string{"exact", "at threshold", "below"} {
			_, err := idx.Add(ctx, content, content, nil)
			require.NoError(t, err)
		}

		results, err := idx.Query(ctx, "query", 10, 0.6)
		require.NoError(t, err)

		require.Len(t, results, 2)
		assert.Equal(t, "exact", results[0].ChunkID)
		assert.Equal(t, "at threshold", results[1].ChunkID)
		assert.InDelta(t, 0.6, results[1].Similarity, 1e-6)
	})

	t.Run("limit truncates after sorting", func(t *testing.T) {
		idx, _ := setupIndex(t)
		for _, content := range []string{"exact", "at threshold"} {
			_, err := idx.Add(ctx, content, content, nil)
			require.NoError(t, err)
		}

		results, err := idx.Query(ctx, "query", 1, 0)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "exact", results[0].ChunkID)
	})

	t.Run("nil embedder yields ErrEmbeddingUnavailable", func(t *testing.T) {
		idx, err := NewIndex(t.TempDir(), nil)
		require.NoError(t, err)
		defer idx.Close()

		_, err = idx.Query(ctx, "query", 10, 0)
		assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	})

	t.Run("query embedding failure yields ErrProvider", func(t *testing.T) {
		idx, embedder := setupIndex(t)
		embedder.err = errors.New("provider down")

		_, err := idx.Query(ctx, "query", 10, 0)
		assert.ErrorIs(t, err, domain.ErrProvider)
	})
}

func TestIndex_Clear(t *testing.T) {
	ctx := context.Background()
	idx, _ := setupIndex(t)

	_, err := idx.Add(ctx, "a.md#chunk_0", "exact", nil)
	require.NoError(t, err)
	require.NoError(t, idx.Clear(ctx))

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	err = idx.Delete(ctx, "a.md#chunk_0")
	assert.NoError(t, err)
}
