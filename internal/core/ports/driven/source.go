package driven

import (
	"context"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// Source fetches documents from a document tree. Each source type
// (filesystem vault, remote pages, ...) implements this capability
// interface; the chunker and the vector index never depend on which
// variant produced a document.
type Source interface {
	// Type returns the source type identifier.
	Type() string

	// SourceID returns the configured source ID.
	SourceID() string

	// Capabilities returns what this source supports.
	Capabilities() SourceCapabilities

	// Validate checks the source is properly configured and ready to
	// sync. For a filesystem vault this checks the root exists, is a
	// directory and contains at least one parseable document.
	Validate(ctx context.Context) error

	// FetchAll enumerates every document in the source.
	// Returns channels for documents and errors; both close when the
	// enumeration finishes or the context is cancelled.
	FetchAll(ctx context.Context) (<-chan domain.RawDocument, <-chan error)

	// Fetch reads a single document by its stable URI.
	Fetch(ctx context.Context, uri string) (*domain.RawDocument, error)

	// Watch listens for real-time changes.
	// Only available if SupportsWatch is true. The returned channel
	// closes when the context is cancelled.
	Watch(ctx context.Context) (<-chan domain.RawDocumentChange, error)

	// Close releases resources.
	Close() error
}

// SourceCapabilities describes what a source supports.
type SourceCapabilities struct {
	// SupportsWatch indicates the source can push real-time events.
	SupportsWatch bool

	// SupportsHierarchy indicates the source has nested structure.
	SupportsHierarchy bool

	// SupportsValidation indicates Validate() performs a real check
	// (e.g., path inspection) rather than always succeeding.
	SupportsValidation bool
}
