package domain

import "time"

// RawDocument represents opaque bytes fetched by a source.
// It is the source's output before normalisation.
type RawDocument struct {
	// SourceID links to the source that produced this document.
	SourceID string

	// URI is the stable document identifier within the source.
	// For filesystem sources this is the vault-relative path.
	URI string

	// MIMEType is the content type (e.g., "text/markdown").
	MIMEType string

	// Content is the raw bytes.
	Content []byte

	// ModifiedAt is the source's last-modified timestamp.
	ModifiedAt time.Time

	// Metadata contains source-specific key-value pairs.
	Metadata map[string]any
}

// ChangeType represents the type of document change.
type ChangeType int

const (
	// ChangeCreated indicates a new document.
	ChangeCreated ChangeType = iota

	// ChangeUpdated indicates a modified document.
	ChangeUpdated

	// ChangeDeleted indicates a removed document.
	ChangeDeleted
)

// String returns a human-readable change type for logging.
func (c ChangeType) String() string {
	switch c {
	case ChangeCreated:
		return "created"
	case ChangeUpdated:
		return "updated"
	case ChangeDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// RawDocumentChange represents a change event from a source.
// Used for watch operations and incremental re-indexing.
type RawDocumentChange struct {
	// Type is the kind of change.
	Type ChangeType

	// Document is the affected document. For deletions only the URI
	// is populated.
	Document RawDocument
}
