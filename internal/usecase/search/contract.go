package search

import (
	"context"

	"github.com/kailas-cloud/scaledex/internal/domain/access"
	"github.com/kailas-cloud/scaledex/internal/domain/scale"
	"github.com/kailas-cloud/scaledex/internal/domain/search/filter"
	"github.com/kailas-cloud/scaledex/internal/domain/usage"
)

// CandidateProvider returns the public scales matching the pure facet predicates.
// The result is treated as a read-only snapshot.
type CandidateProvider interface {
	Fetch(ctx context.Context, facets filter.Facets) ([]scale.Scale, error)
}

// Gate admits or denies a caller before any candidate is fetched.
type Gate interface {
	Admit(ctx context.Context, id access.Identity, requested int) (access.Decision, error)
}

// Vectorizer produces a query embedding. Failures degrade the search.
type Vectorizer interface {
	Vectorize(ctx context.Context, text string) ([]float32, error)
}

// Recorder accepts usage events without blocking the caller.
type Recorder interface {
	Dispatch(e usage.Event)
}

// Submitter runs a task on a bounded worker pool.
type Submitter interface {
	Submit(task func()) error
}
