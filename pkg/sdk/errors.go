package cosmerec

import "github.com/kailas-cloud/cosmerec/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound               = domain.ErrNotFound
	ErrInvalidRequest         = domain.ErrInvalidRequest
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrIndexUnavailable       = domain.ErrIndexUnavailable
	ErrConditionsMalformed    = domain.ErrConditionsMalformed
)
