package scaledex

import "github.com/kailas-cloud/scaledex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound               = domain.ErrNotFound
	ErrInvalidQuery           = domain.ErrInvalidQuery
	ErrInvalidScale           = domain.ErrInvalidScale
	ErrRateLimitExceeded      = domain.ErrRateLimitExceeded
	ErrEmbeddingUnavailable   = domain.ErrEmbeddingUnavailable
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrCandidateProvider      = domain.ErrCandidateProvider
)

// RateLimitError carries the retry delay of an exhausted anonymous quota.
// Use errors.As() to extract it.
type RateLimitError = domain.RateLimitError
