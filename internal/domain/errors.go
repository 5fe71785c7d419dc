package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidQuery signals empty or over-length query text or malformed filters.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidScale signals a scale record that fails validation on import.
	ErrInvalidScale = errors.New("invalid scale")
	// ErrRateLimitExceeded signals an exhausted anonymous quota.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrEmbeddingUnavailable signals that no query embedding could be obtained in time.
	// Never surfaced to callers: the search degrades to non-vector scoring.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrCandidateProvider signals a failure to fetch the candidate snapshot.
	ErrCandidateProvider = errors.New("candidate provider error")
)

// RateLimitError wraps ErrRateLimitExceeded with the remaining wait time.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: retry after %s", ErrRateLimitExceeded.Error(), e.RetryAfter.Round(time.Second))
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimitExceeded }

// RetryAfterSeconds rounds the wait time up to whole seconds, never below 1.
func (e *RateLimitError) RetryAfterSeconds() int {
	secs := int((e.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

// NewRateLimited creates a rate limit error.
func NewRateLimited(retryAfter time.Duration) error {
	return &RateLimitError{RetryAfter: retryAfter}
}

// InvalidQuery wraps ErrInvalidQuery with a client-safe reason.
func InvalidQuery(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidQuery, fmt.Sprintf(format, args...))
}
