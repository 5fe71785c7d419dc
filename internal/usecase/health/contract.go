package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// CatalogCounter reports how many scales the provider can serve.
type CatalogCounter interface {
	Count(ctx context.Context) (int, error)
}
