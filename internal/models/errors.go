package models

import "errors"

var (
	// ErrDocumentParse is returned for a malformed PDF upload.
	ErrDocumentParse = errors.New("document parse error")
	// ErrConfiguration is returned for invalid chunking or store settings.
	ErrConfiguration = errors.New("configuration error")
	// ErrEmbeddingFailure marks a single failed embedding call. It is recovered
	// with a zero vector and never leaves the embedding package.
	ErrEmbeddingFailure = errors.New("embedding failure")
	// ErrBatchSizeMismatch rejects a vector store batch whose embedding count
	// differs from its text count.
	ErrBatchSizeMismatch = errors.New("batch size mismatch")
	// ErrUnknownBackend is returned when the session selects an unregistered backend.
	ErrUnknownBackend = errors.New("unknown backend")
	// ErrBackendCall wraps a failed completion call.
	ErrBackendCall = errors.New("backend call failed")
	// ErrBackendTimeout is returned when an upstream call exceeds its deadline.
	// Callers may retry.
	ErrBackendTimeout = errors.New("backend timeout")
)
