package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/scaledex/internal/domain"
	"github.com/kailas-cloud/scaledex/internal/domain/access"
	"github.com/kailas-cloud/scaledex/internal/domain/scale"
	"github.com/kailas-cloud/scaledex/internal/domain/search/request"
	"github.com/kailas-cloud/scaledex/internal/domain/search/result"
	"github.com/kailas-cloud/scaledex/internal/domain/usage"
	"github.com/kailas-cloud/scaledex/internal/metrics"
)

// DefaultEmbeddingTimeout bounds the best-effort query embedding.
const DefaultEmbeddingTimeout = 800 * time.Millisecond

// ServiceDeps are the collaborators of a Service. Vectorizer and Recorder are optional.
type ServiceDeps struct {
	Engine           *Engine
	Provider         CandidateProvider
	Gate             Gate
	Vectorizer       Vectorizer
	Recorder         Recorder
	EmbeddingTimeout time.Duration
	Logger           *zap.Logger
}

// Service runs a search: gate, fetch and embed, rank, then record usage.
type Service struct {
	engine       *Engine
	provider     CandidateProvider
	gate         Gate
	vectorizer   Vectorizer
	recorder     Recorder
	embedTimeout time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

// NewService creates a search service.
func NewService(d ServiceDeps) *Service {
	timeout := d.EmbeddingTimeout
	if timeout <= 0 {
		timeout = DefaultEmbeddingTimeout
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		engine:       d.Engine,
		provider:     d.Provider,
		gate:         d.Gate,
		vectorizer:   d.Vectorizer,
		recorder:     d.Recorder,
		embedTimeout: timeout,
		logger:       logger,
		now:          time.Now,
	}
}

// Expand exposes query normalization and expansion.
func (s *Service) Expand(raw, locale string) (request.Expanded, error) {
	return s.engine.Expand(raw, locale)
}

// Search validates, admits, fetches, ranks and records one request.
func (s *Service) Search(ctx context.Context, id access.Identity, req request.Request) (result.Page, error) {
	start := s.now()
	requested := req.Mode()

	page, err := s.search(ctx, id, req)

	metrics.SearchRequestsTotal.WithLabelValues(string(requested), outcome(err)).Inc()
	metrics.SearchDuration.WithLabelValues(string(requested)).Observe(time.Since(start).Seconds())
	if err != nil {
		return result.Page{}, err
	}
	if page.Degraded {
		metrics.SearchDegradedTotal.WithLabelValues(string(requested)).Inc()
	}
	metrics.SearchCandidates.Observe(float64(page.Stats.Candidates))

	s.record(id, &req, &page)
	return page, nil
}

func (s *Service) search(ctx context.Context, id access.Identity, req request.Request) (result.Page, error) {
	// Invalid queries are rejected before they count against the quota.
	var exp request.Expanded
	if req.HasText() {
		var err error
		exp, err = s.engine.Expand(req.Query(), req.Locale())
		if err != nil {
			return result.Page{}, err
		}
	}

	decision, err := s.gate.Admit(ctx, id, req.Limit())
	if err != nil {
		return result.Page{}, fmt.Errorf("admit: %w", err)
	}
	req = req.WithLimit(decision.Limit)

	candidates, embedding, embedFailed, err := s.gather(ctx, &req, exp)
	if err != nil {
		return result.Page{}, err
	}
	if embedding != nil {
		req = req.WithEmbedding(embedding)
	}

	page, err := s.engine.RankExpanded(ctx, &req, exp, candidates)
	if err != nil {
		return result.Page{}, fmt.Errorf("rank: %w", err)
	}
	if embedFailed && req.Mode().WantsVector() {
		page.Degraded = true
	}
	return page, nil
}

// gather fetches candidates and, when needed, the query embedding concurrently.
// The embedding never fails the search; embedFailed reports that it was wanted but missing.
func (s *Service) gather(
	ctx context.Context, req *request.Request, exp request.Expanded,
) (candidates []scale.Scale, embedding []float32, embedFailed bool, err error) {
	wantEmbedding := s.vectorizer != nil && req.Mode().WantsVector() &&
		len(req.Embedding()) == 0 && !exp.IsEmpty()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var fetchErr error
		candidates, fetchErr = s.provider.Fetch(gctx, req.Facets())
		if fetchErr != nil {
			return fmt.Errorf("%w: %w", domain.ErrCandidateProvider, fetchErr)
		}
		return nil
	})
	if wantEmbedding {
		g.Go(func() error {
			embedding, embedFailed = s.vectorize(gctx, exp.Normalized())
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return nil, nil, false, err
	}
	return candidates, embedding, embedFailed, nil
}

func (s *Service) vectorize(ctx context.Context, text string) ([]float32, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.embedTimeout)
	defer cancel()

	vec, err := s.vectorizer.Vectorize(ctx, text)
	if err != nil {
		reason := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "timeout"
		}
		metrics.EmbeddingFallbackTotal.WithLabelValues(reason).Inc()
		s.logger.Warn("Query embedding unavailable, continuing without vector scoring",
			zap.String("reason", reason),
			zap.Error(err),
		)
		return nil, true
	}
	if len(vec) == 0 {
		return nil, true
	}
	return vec, false
}

func (s *Service) record(id access.Identity, req *request.Request, page *result.Page) {
	if s.recorder == nil {
		return
	}
	ids := make([]string, 0, len(page.Results))
	for i := range page.Results {
		ids = append(ids, page.Results[i].Scale().ID())
	}
	s.recorder.Dispatch(usage.NewEvent(usage.EventFields{
		ID:            uuid.NewString(),
		Identity:      id.Key(),
		Authenticated: id.IsAuthenticated(),
		Query:         req.Query(),
		Mode:          page.Mode,
		ResultIDs:     ids,
		Total:         page.Pagination.Total,
		Degraded:      page.Degraded,
		OccurredAt:    s.now(),
	}))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvalidQuery):
		return "invalid"
	case errors.Is(err, domain.ErrRateLimitExceeded):
		return "throttled"
	default:
		return "error"
	}
}
