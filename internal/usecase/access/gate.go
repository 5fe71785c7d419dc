package access

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/scaledex/internal/domain"
	domaccess "github.com/kailas-cloud/scaledex/internal/domain/access"
	"github.com/kailas-cloud/scaledex/internal/metrics"
)

// Gate enforces the anonymous quota. Authenticated callers bypass it.
type Gate struct {
	store  Store
	policy domaccess.Policy
	logger *zap.Logger
	now    func() time.Time
}

// NewGate creates a gate. Zero policy fields fall back to the defaults.
func NewGate(store Store, policy domaccess.Policy, logger *zap.Logger) *Gate {
	def := domaccess.DefaultPolicy()
	if policy.Quota <= 0 {
		policy.Quota = def.Quota
	}
	if policy.Window <= 0 {
		policy.Window = def.Window
	}
	if policy.AnonymousLimit <= 0 {
		policy.AnonymousLimit = def.AnonymousLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{store: store, policy: policy, logger: logger, now: time.Now}
}

// Policy returns the effective policy.
func (g *Gate) Policy() domaccess.Policy { return g.policy }

// Admit counts one request and decides. A denial returns *domain.RateLimitError.
// A store failure admits the caller at the anonymous ceiling.
func (g *Gate) Admit(ctx context.Context, id domaccess.Identity, requested int) (domaccess.Decision, error) {
	if id.IsAuthenticated() {
		metrics.AccessDecisionsTotal.WithLabelValues(string(domaccess.PhaseBypass)).Inc()
		return domaccess.Decision{Phase: domaccess.PhaseBypass, Limit: requested}, nil
	}

	now := g.now()
	state, err := g.store.Increment(ctx, id.Key(), g.policy.Window, now)
	if err != nil {
		g.logger.Error("Access store unavailable, admitting at anonymous limit",
			zap.String("identity", id.Key()),
			zap.Error(err),
		)
		metrics.AccessDecisionsTotal.WithLabelValues("store_error").Inc()
		return domaccess.Decision{
			Phase: domaccess.PhaseTracked,
			Limit: min(requested, g.policy.AnonymousLimit),
		}, nil
	}

	d := g.policy.Decide(state, requested, now)
	metrics.AccessDecisionsTotal.WithLabelValues(string(d.Phase)).Inc()
	if !d.Admitted() {
		g.logger.Info("Anonymous quota exhausted",
			zap.String("identity", id.Key()),
			zap.Int64("count", state.Count()),
			zap.Duration("retry_after", d.RetryAfter),
		)
		return d, domain.NewRateLimited(d.RetryAfter)
	}
	return d, nil
}

// Status reports the current window for id without counting a request.
func (g *Gate) Status(ctx context.Context, id domaccess.Identity) (domaccess.State, bool, error) {
	if id.IsAuthenticated() {
		return domaccess.State{}, false, nil
	}
	return g.store.Get(ctx, id.Key(), g.now())
}
