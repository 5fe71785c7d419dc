package health

import (
	"context"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates search still answers, without some strategy or data.
	Degraded Status = "degraded"
	// Unhealthy indicates search cannot answer.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckEmpty indicates a reachable catalog with no scales.
	CheckEmpty CheckResult = "empty"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// DefaultCheckTimeout bounds each component check.
const DefaultCheckTimeout = 2 * time.Second

// Report aggregates health check results.
type Report struct {
	Status  Status
	Checks  map[string]CheckResult
	Catalog int
}

// Service coordinates health checks.
type Service struct {
	db        DBPinger
	embedding EmbeddingChecker
	catalog   CatalogCounter
	timeout   time.Duration
}

// New creates a Service. embedding and catalog can be nil.
func New(db DBPinger, embedding EmbeddingChecker, catalog CatalogCounter) *Service {
	return &Service{db: db, embedding: embedding, catalog: catalog, timeout: DefaultCheckTimeout}
}

// Check runs health checks against all components.
// A database failure is unhealthy; embedding failure or an empty catalog is degraded.
func (s *Service) Check(ctx context.Context) Report {
	r := Report{Status: Healthy, Checks: make(map[string]CheckResult)}

	if err := s.run(ctx, s.db.Ping); err != nil {
		r.Checks["database"] = CheckError
		r.Status = Unhealthy
		return r
	}
	r.Checks["database"] = CheckOK

	if s.catalog != nil {
		cctx, cancel := context.WithTimeout(ctx, s.timeout)
		n, err := s.catalog.Count(cctx)
		cancel()
		switch {
		case err != nil:
			r.Checks["catalog"] = CheckError
			r.Status = Degraded
		case n == 0:
			r.Checks["catalog"] = CheckEmpty
			r.Status = Degraded
		default:
			r.Checks["catalog"] = CheckOK
			r.Catalog = n
		}
	}

	if s.embedding != nil {
		if err := s.run(ctx, s.embedding.HealthCheck); err != nil {
			r.Checks["embedding"] = CheckError
			r.Status = Degraded
		} else {
			r.Checks["embedding"] = CheckOK
		}
	}
	return r
}

func (s *Service) run(ctx context.Context, check func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return check(ctx)
}
