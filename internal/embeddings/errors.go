// ABOUTME: Error taxonomy shared by providers, the worker, and the coordinator.
// ABOUTME: Sentinels are wrapped with %w and matched with errors.Is.
package embeddings

import "errors"

var (
	// ErrProviderInit is returned when the embedding provider failed to become ready.
	ErrProviderInit = errors.New("embedding provider failed to initialize")
	// ErrEmptyInput is returned when non-empty text is required but none was given.
	ErrEmptyInput = errors.New("text cannot be empty")
	// ErrDimensionMismatch is returned when two vectors have different lengths.
	ErrDimensionMismatch = errors.New("vector dimensions do not match")
	// ErrEmbeddingFailure is returned when the provider fails during embedding.
	ErrEmbeddingFailure = errors.New("embedding failed")
	// ErrNotReady is returned when an operation runs before its preconditions hold.
	ErrNotReady = errors.New("not ready")
)
