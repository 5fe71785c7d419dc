package embedding

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/scaledex/internal/domain"
)

// InstrumentedEmbedder logs query embedding calls.
// Transport metrics (requests, duration, tokens) are recorded in transport/openai.
// Query text is never logged, only its length.
type InstrumentedEmbedder struct {
	inner    domain.Embedder
	provider string
	model    string
	slow     time.Duration
	logger   *zap.Logger
}

// NewInstrumentedEmbedder wraps an embedder. Calls slower than slow are logged at Warn;
// slow <= 0 disables the check.
func NewInstrumentedEmbedder(
	inner domain.Embedder, provider, model string, slow time.Duration, logger *zap.Logger,
) *InstrumentedEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentedEmbedder{
		inner:    inner,
		provider: provider,
		model:    model,
		slow:     slow,
		logger:   logger.With(zap.String("provider", provider), zap.String("model", model)),
	}
}

// Embed delegates to the inner embedder and logs the outcome.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()
	result, err := p.inner.Embed(ctx, text)
	duration := time.Since(start)

	fields := []zap.Field{
		zap.Duration("duration", duration),
		zap.Int("query_runes", utf8.RuneCountInString(text)),
	}
	if err != nil {
		p.logger.Warn("Query embedding failed", append(fields, zap.Error(err))...)
		return domain.EmbeddingResult{}, fmt.Errorf("embed query: %w", err)
	}

	fields = append(fields,
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("total_tokens", result.TotalTokens),
	)
	if p.slow > 0 && duration > p.slow {
		p.logger.Warn("Slow query embedding", append(fields, zap.Duration("threshold", p.slow))...)
	} else {
		p.logger.Debug("Query embedding completed", fields...)
	}
	return result, nil
}

// HealthCheck delegates to the inner embedder when it supports health checks.
func (p *InstrumentedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := p.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}
