package usage

import (
	"context"

	domusage "github.com/kailas-cloud/scaledex/internal/domain/usage"
)

// Sink persists usage events. Called off the request path.
type Sink interface {
	Record(ctx context.Context, e domusage.Event) error
}

// CounterReader reads aggregated counters for a bucket.
type CounterReader interface {
	Counters(ctx context.Context, bucket string) (domusage.Counters, error)
}
