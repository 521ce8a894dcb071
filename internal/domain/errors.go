package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRequest signals malformed or out-of-range request parameters.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrIndexUnavailable signals a vector index failure (unreachable, missing collection).
	ErrIndexUnavailable = errors.New("vector index unavailable")
	// ErrConditionsMalformed signals an unparseable associated-conditions value.
	ErrConditionsMalformed = errors.New("malformed conditions list")
)
