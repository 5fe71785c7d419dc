package scaledex

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "scaledex"
	metricsSubsystem = "sdk"
)

// sdkMetrics holds prometheus metrics registered for the SDK.
// Operations: ping, import, get, delete, count, search, expand, usage, health.
type sdkMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	searches   *prometheus.CounterVec
	results    prometheus.Histogram
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	m := &sdkMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "operations_total",
			Help:      "Total SDK operations by type and status.",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "operation_duration_seconds",
			Help:      "SDK operation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "searches_total",
			Help:      "Successful SDK searches by effective mode and degradation.",
		}, []string{"mode", "degraded"}),
		results: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "search_results",
			Help:      "Results returned per SDK search page.",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100},
		}),
	}
	if err := registerOrReuse(reg, &m.operations); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.searches); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.results); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers a collector or reuses an existing one.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("scaledex: metric already registered with incompatible type: %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return fmt.Errorf("scaledex: register metric: %w", err)
	}
	return nil
}

// observer provides logging and metrics for SDK operations.
type observer struct {
	logger  *slog.Logger
	metrics *sdkMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	var m *sdkMetrics
	if reg != nil {
		var err error
		m, err = newSDKMetrics(reg)
		if err != nil {
			return nil, err
		}
	}
	return &observer{logger: logger, metrics: m}, nil
}

func (o *observer) observe(
	op string, start time.Time, err error,
) {
	if o == nil {
		return
	}
	dur := time.Since(start)

	if o.metrics != nil {
		o.metrics.operations.WithLabelValues(op, status(err)).Inc()
		o.metrics.duration.WithLabelValues(op).Observe(
			dur.Seconds(),
		)
	}

	if o.logger != nil {
		switch {
		case errors.Is(err, ErrRateLimitExceeded), errors.Is(err, ErrInvalidQuery):
			o.logger.Debug("operation rejected",
				"op", op,
				"error", err,
			)
		case err != nil:
			o.logger.Warn("operation failed",
				"op", op,
				"duration", dur,
				"error", err,
			)
		default:
			o.logger.Debug("operation completed",
				"op", op,
				"duration", dur,
			)
		}
	}
}

// observeSearch records the shape of a successful search page.
func (o *observer) observeSearch(p *SearchPage) {
	if o == nil || o.metrics == nil {
		return
	}
	o.metrics.searches.WithLabelValues(string(p.Mode), strconv.FormatBool(p.Degraded)).Inc()
	o.metrics.results.Observe(float64(len(p.Results)))
	if p.Degraded && o.logger != nil {
		o.logger.Debug("search degraded", "mode", p.Mode, "total", p.Total)
	}
}

// status maps an operation error to its metric label.
func status(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrRateLimitExceeded):
		return "throttled"
	case errors.Is(err, ErrInvalidQuery), errors.Is(err, ErrInvalidScale):
		return "invalid"
	default:
		return "error"
	}
}
