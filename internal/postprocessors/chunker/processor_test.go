package chunker

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// prose builds n/50 fifty-character sentences ending in periods.
func prose(n int) string {
	sentence := strings.Repeat("word ", 9) + "stop." // 50 chars
	return strings.Repeat(sentence, n/len(sentence))
}

func TestSplit(t *testing.T) {
	t.Run("empty input yields zero chunks", func(t *testing.T) {
		assert.Empty(t, Split("", 1000, 200))
		assert.Empty(t, Split("   \n\t  ", 1000, 200))
	})

	t.Run("short input yields single trimmed chunk", func(t *testing.T) {
		chunks := Split("  hello world  ", 1000, 200)

		require.Len(t, chunks, 1)
		assert.Equal(t, "hello world", chunks[0])
	})

	t.Run("input exactly chunk size yields single chunk", func(t *testing.T) {
		text := strings.Repeat("a", 100)
		chunks := Split(text, 100, 20)

		require.Len(t, chunks, 1)
		assert.Equal(t, text, chunks[0])
	})

	t.Run("2500 characters of prose yields exactly 3 chunks", func(t *testing.T) {
		text := prose(2500)
		require.Len(t, text, 2500)

		chunks := Split(text, 1000, 200)

		assert.Len(t, chunks, 3)
	})

	t.Run("prefers sentence boundaries", func(t *testing.T) {
		text := prose(2500)

		for _, chunk := range Split(text, 1000, 200) {
			assert.True(t, strings.HasSuffix(chunk, "."),
				"chunk should end at a sentence terminator: %q", chunk[len(chunk)-20:])
		}
	})

	t.Run("falls back to whitespace when no sentence terminator", func(t *testing.T) {
		text := strings.Repeat("word ", 100) // 500 chars, no terminators

		chunks := Split(text, 200, 50)

		require.NotEmpty(t, chunks)
		for _, chunk := range chunks {
			assert.Equal(t, chunk, strings.TrimSpace(chunk))
			assert.LessOrEqual(t, len(chunk), 200)
		}
	})

	t.Run("hard cut when no boundary exists", func(t *testing.T) {
		text := strings.Repeat("x", 350)

		chunks := Split(text, 100, 0)

		require.Len(t, chunks, 4)
		assert.Equal(t, strings.Repeat("x", 100), chunks[0])
		assert.Equal(t, strings.Repeat("x", 50), chunks[3])
	})

	t.Run("deterministic across invocations", func(t *testing.T) {
		text := prose(5000)

		first := Split(text, 1000, 200)
		second := Split(text, 1000, 200)

		assert.Equal(t, first, second)
	})

	t.Run("terminates for any overlap below chunk size", func(t *testing.T) {
		text := strings.Repeat("z", 10_000)

		chunks := Split(text, 100, 99)

		// advance is at least chunkSize-overlap per step
		assert.LessOrEqual(t, len(chunks), 10_000)
		assert.NotEmpty(t, chunks)
	})

	t.Run("overlap at or above chunk size is clamped", func(t *testing.T) {
		text := strings.Repeat("q", 500)

		chunks := Split(text, 100, 100)

		assert.NotEmpty(t, chunks)
	})

	t.Run("covers the whole trimmed input", func(t *testing.T) {
		text := prose(3000)

		chunks := Split(text, 1000, 200)

		rebuilt := strings.Join(chunks, " ")
		for _, word := range []string{"word", "stop."} {
			assert.Contains(t, rebuilt, word)
		}
		var total int
		for _, c := range chunks {
			total += len(c)
		}
		// trimming may drop boundary whitespace, never content
		assert.GreaterOrEqual(t, total, len(strings.ReplaceAll(text, " ", "")))
	})
}

func TestProcessor_Process(t *testing.T) {
	doc := &domain.Document{
		ID:      "notes/a.md",
		Title:   "A Note",
		Content: prose(2500),
		Tags:    []string{"go", "index"},
	}

	t.Run("assigns deterministic chunk ids", func(t *testing.T) {
		p := New()

		chunks, err := p.Process(context.Background(), doc, nil)

		require.NoError(t, err)
		require.Len(t, chunks, 3)
		assert.Equal(t, "notes/a.md#chunk_0", chunks[0].ID)
		assert.Equal(t, "notes/a.md#chunk_1", chunks[1].ID)
		assert.Equal(t, "notes/a.md#chunk_2", chunks[2].ID)
	})

	t.Run("carries parent metadata and chunk fields", func(t *testing.T) {
		p := New()

		chunks, err := p.Process(context.Background(), doc, nil)

		require.NoError(t, err)
		first := chunks[0]
		assert.Equal(t, "notes/a.md", first.Metadata["parent_source_id"])
		assert.Equal(t, 0, first.Metadata["chunk_index"])
		assert.Equal(t, "A Note", first.Metadata["title"])
		assert.Equal(t, "go,index", first.Metadata["tags"])
		assert.Equal(t, domain.Preview(first.Content), first.Metadata["preview"])
	})

	t.Run("empty content produces no chunks", func(t *testing.T) {
		p := New()

		chunks, err := p.Process(context.Background(), &domain.Document{ID: "e.md"}, nil)

		require.NoError(t, err)
		assert.Empty(t, chunks)
	})

	t.Run("re-processing identical content yields identical chunks", func(t *testing.T) {
		p := New(WithChunkSize(500), WithOverlap(100))

		first, err := p.Process(context.Background(), doc, nil)
		require.NoError(t, err)
		second, err := p.Process(context.Background(), doc, nil)
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})
}

func TestNew(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		p := New()
		assert.Equal(t, DefaultChunkSize, p.chunkSize)
		assert.Equal(t, DefaultChunkOverlap, p.overlap)
	})

	t.Run("clamps overlap to below chunk size", func(t *testing.T) {
		p := New(WithChunkSize(100), WithOverlap(150))
		assert.Equal(t, 25, p.overlap)
	})
}
