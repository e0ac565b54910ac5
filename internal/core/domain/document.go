package domain

import (
	"fmt"
	"time"
)

// Document represents a parsed vault document.
// It is the canonical representation after normalisation.
type Document struct {
	// ID is the stable identifier for the document.
	// For filesystem sources this is the vault-relative path, so the
	// same file always produces the same ID across re-parses.
	ID string

	// SourceID links to the source that produced this document.
	SourceID string

	// URI is the original location (file path, URL, etc).
	URI string

	// Title is the human-readable title.
	Title string

	// Content is the full plain-text content after normalisation.
	// This is the complete document text before chunking.
	Content string

	// Tags is the deduplicated union of frontmatter tags and inline
	// #tag markers. Case is preserved.
	Tags []string

	// Wikilinks lists [[target]] references in document order.
	// Not deduplicated; repetition count may be meaningful.
	Wikilinks []string

	// Headings lists heading texts in document order.
	Headings []string

	// Metadata contains arbitrary key-value pairs.
	Metadata map[string]any

	// ModifiedAt is the source's last-modified timestamp.
	ModifiedAt time.Time
}

// Chunk represents a searchable unit within a document.
// Documents are split into chunks for granular search results.
type Chunk struct {
	// ID is the deterministic identifier for the chunk, derived from
	// the parent document ID and ordinal position via ChunkID.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Content is the text content of this chunk.
	Content string

	// Position is the ordinal position within the document.
	Position int

	// Embedding is the vector representation for semantic search.
	// Nil when the embedding provider was unavailable; such chunks are
	// retrievable by ID but excluded from similarity queries.
	Embedding []float32

	// Metadata contains chunk-specific key-value pairs.
	Metadata map[string]any
}

// PreviewLength is the number of leading characters kept in the
// chunk preview metadata field.
const PreviewLength = 100

// ChunkID derives the deterministic chunk identifier for a document
// and ordinal position. Re-parsing unchanged content yields the same
// IDs, which makes re-indexing an unchanged file a no-op diff.
func ChunkID(documentID string, position int) string {
	return fmt.Sprintf("%s#chunk_%d", documentID, position)
}

// Preview returns the leading PreviewLength characters of content,
// with an ellipsis when truncated.
func Preview(content string) string {
	runes := []rune(content)
	if len(runes) <= PreviewLength {
		return content
	}
	return string(runes[:PreviewLength]) + "..."
}
