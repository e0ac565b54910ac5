package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidVault indicates the vault root is missing, not a
	// directory, or contains no parseable documents.
	ErrInvalidVault = errors.New("invalid vault")

	// ErrNotInitialized indicates the watcher was started before
	// Initialize completed successfully.
	ErrNotInitialized = errors.New("watcher not initialized")

	// ErrSyncInProgress indicates a full sync is already running.
	// Concurrent full-sync requests are rejected, not queued.
	ErrSyncInProgress = errors.New("sync in progress")

	// ErrUnsupportedType indicates an unknown source or normaliser type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrEmbeddingUnavailable indicates no embedding service is
	// configured. Similarity queries are disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrProvider indicates an embedding provider call failed.
	// Recovered locally during ingestion: the entry is persisted with a
	// null vector so no document content is lost.
	ErrProvider = errors.New("embedding provider failure")

	// ErrStorage indicates index persistence failed. Fatal: masking it
	// would silently desynchronise the index from the source tree.
	ErrStorage = errors.New("index storage failure")
)
