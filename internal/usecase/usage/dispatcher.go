package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	domusage "github.com/kailas-cloud/scaledex/internal/domain/usage"
	"github.com/kailas-cloud/scaledex/internal/metrics"
)

// Dispatcher defaults.
const (
	DefaultWorkers = 4
	DefaultGrace   = 2 * time.Second
)

// Dispatcher hands usage events to a Sink on a non-blocking worker pool.
// A full pool drops the event; the search never waits on it.
type Dispatcher struct {
	sink   Sink
	pool   *ants.Pool
	grace  time.Duration
	logger *zap.Logger
}

// NewDispatcher creates a dispatcher with workers goroutines.
// grace bounds each Record call and the drain on Close.
func NewDispatcher(sink Sink, workers int, grace time.Duration, logger *zap.Logger) (*Dispatcher, error) {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if grace <= 0 {
		grace = DefaultGrace
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := ants.NewPool(workers, ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("usage pool: %w", err)
	}
	return &Dispatcher{sink: sink, pool: pool, grace: grace, logger: logger}, nil
}

// Dispatch queues e and returns immediately.
func (d *Dispatcher) Dispatch(e domusage.Event) {
	err := d.pool.Submit(func() { d.record(e) })
	if err != nil {
		metrics.UsageDispatchTotal.WithLabelValues("rejected").Inc()
		d.logger.Warn("Usage event dropped",
			zap.String("event_id", e.ID()),
			zap.Error(err),
		)
	}
}

func (d *Dispatcher) record(e domusage.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.grace)
	defer cancel()

	err := d.sink.Record(ctx, e)
	switch {
	case err == nil:
		metrics.UsageDispatchTotal.WithLabelValues("recorded").Inc()
	case errors.Is(err, context.DeadlineExceeded):
		metrics.UsageDispatchTotal.WithLabelValues("timeout").Inc()
		d.logger.Warn("Usage record timed out", zap.String("event_id", e.ID()), zap.Duration("grace", d.grace))
	default:
		metrics.UsageDispatchTotal.WithLabelValues("failed").Inc()
		d.logger.Warn("Usage record failed", zap.String("event_id", e.ID()), zap.Error(err))
	}
}

// Close waits up to the grace period for queued events, then releases the pool.
func (d *Dispatcher) Close() error {
	if err := d.pool.ReleaseTimeout(d.grace); err != nil {
		return fmt.Errorf("release usage pool: %w", err)
	}
	return nil
}
