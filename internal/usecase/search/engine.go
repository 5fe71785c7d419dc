package search

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kailas-cloud/scaledex/internal/domain/scale"
	"github.com/kailas-cloud/scaledex/internal/domain/search/mode"
	"github.com/kailas-cloud/scaledex/internal/domain/search/request"
	"github.com/kailas-cloud/scaledex/internal/domain/search/result"
	"github.com/kailas-cloud/scaledex/internal/domain/thesaurus"
	"github.com/kailas-cloud/scaledex/internal/metrics"
)

// DefaultChunkSize is the number of candidates scored per pool task.
const DefaultChunkSize = 64

// Config tunes ranking.
type Config struct {
	Weights           map[mode.Mode]request.Weights
	Boosts            Boosts
	MaxExpansionTerms int
	ChunkSize         int
}

// DefaultConfig returns the standard weights and boosts.
func DefaultConfig() Config {
	return Config{
		Weights:           DefaultWeights(),
		Boosts:            DefaultBoosts(),
		MaxExpansionTerms: DefaultMaxExpansionTerms,
		ChunkSize:         DefaultChunkSize,
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithPool scores candidate chunks on a bounded worker pool.
func WithPool(p Submitter) Option {
	return func(e *Engine) { e.pool = p }
}

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithStrategy replaces the implementation registered for s.Kind().
func WithStrategy(s Strategy) Option {
	return func(e *Engine) { e.strategies[s.Kind()] = s }
}

// Engine ranks a candidate snapshot. It performs no I/O and never calls the embedder.
type Engine struct {
	normalizer *Normalizer
	weights    map[mode.Mode]request.Weights
	boosts     Boosts
	chunk      int
	strategies map[Kind]Strategy
	pool       Submitter
	logger     *zap.Logger
}

// NewEngine creates a ranking engine over an immutable thesaurus.
func NewEngine(th *thesaurus.Thesaurus, cfg Config, opts ...Option) *Engine {
	weights := DefaultWeights()
	for m, w := range cfg.Weights {
		weights[m] = w.Clamp()
	}
	chunk := cfg.ChunkSize
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	boosts := cfg.Boosts
	if boosts == (Boosts{}) {
		boosts = DefaultBoosts()
	}
	e := &Engine{
		normalizer: NewNormalizer(th, cfg.MaxExpansionTerms),
		weights:    weights,
		boosts:     boosts,
		chunk:      chunk,
		strategies: map[Kind]Strategy{
			KindKeyword:  Keyword{},
			KindSemantic: Semantic{},
			KindVector:   Vector{},
		},
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Expand normalizes and expands a query without ranking.
func (e *Engine) Expand(raw, locale string) (request.Expanded, error) {
	return e.normalizer.Expand(raw, locale)
}

// plan is the strategy selection for one search.
type plan struct {
	mode         mode.Mode
	kinds        []Kind
	vectorActive bool
	degraded     bool
}

// planFor maps a mode to strategies. Vector mode without an embedding
// degrades to hybrid scoring.
func planFor(m mode.Mode, hasText, hasEmbedding bool) plan {
	switch m {
	case mode.Keyword:
		return plan{mode: m, kinds: []Kind{KindKeyword}}
	case mode.Semantic:
		return plan{mode: m, kinds: []Kind{KindSemantic}}
	case mode.Hybrid:
		p := plan{mode: m, kinds: []Kind{KindKeyword, KindSemantic}}
		if hasEmbedding {
			p.kinds = append(p.kinds, KindVector)
			p.vectorActive = true
		}
		return p
	case mode.Vector:
		if !hasEmbedding {
			return plan{mode: mode.Hybrid, kinds: []Kind{KindKeyword, KindSemantic}, degraded: true}
		}
		return plan{mode: m, kinds: []Kind{KindKeyword, KindSemantic, KindVector}, vectorActive: true}
	default:
		if hasText {
			return plan{mode: mode.Advanced, kinds: []Kind{KindKeyword, KindSemantic}}
		}
		return plan{mode: mode.Advanced}
	}
}

// Rank expands the query, then scores, fuses, filters and paginates candidates.
// Identical inputs always yield identical output.
func (e *Engine) Rank(ctx context.Context, req *request.Request, candidates []scale.Scale) (result.Page, error) {
	var exp request.Expanded
	if req.HasText() {
		var err error
		exp, err = e.normalizer.Expand(req.Query(), req.Locale())
		if err != nil {
			return result.Page{}, err
		}
	}
	return e.RankExpanded(ctx, req, exp, candidates)
}

// RankExpanded is Rank with a precomputed expansion (empty for facet-only searches).
func (e *Engine) RankExpanded(
	ctx context.Context, req *request.Request, exp request.Expanded, candidates []scale.Scale,
) (result.Page, error) {
	start := time.Now()
	ctx, span := metrics.Tracer().Start(ctx, "search.Rank",
		trace.WithAttributes(
			attribute.String("search.mode", string(req.Mode())),
			attribute.Int("search.candidates", len(candidates)),
		))
	defer span.End()

	p := planFor(req.Mode(), !exp.IsEmpty(), len(req.Embedding()) > 0)
	weights := e.weights[p.mode]
	if req.Weights() != nil {
		weights = *req.Weights()
	}

	facets := req.Facets()
	pool := make([]*scale.Scale, 0, len(candidates))
	for i := range candidates {
		if facets.Matches(&candidates[i]) {
			pool = append(pool, &candidates[i])
		}
	}

	q := NewQuery(exp, req.Locale(), req.Embedding())
	strategies := make([]Strategy, 0, len(p.kinds))
	for _, k := range p.kinds {
		strategies = append(strategies, e.strategies[k])
	}

	partials, ok := e.scoreAll(q, strategies, pool)
	if err := ctx.Err(); err != nil {
		return result.Page{}, fmt.Errorf("rank: %w", err)
	}

	f := newFuser(weights, e.boosts, p.mode, p.vectorActive)
	items := make([]result.Scored, 0, len(partials))
	dropped := 0
	for i := range partials {
		if !ok[i] {
			dropped++
			continue
		}
		if len(strategies) > 0 && !partials[i].matched() {
			continue
		}
		scored := f.fuse(&partials[i])
		if minScore := req.MinScore(); minScore != nil && scored.Fused() < *minScore {
			continue
		}
		items = append(items, scored)
	}

	rank(items)
	reorder(items, req.Sort())

	page := result.Page{
		Mode:     p.mode,
		Degraded: p.degraded,
		Stats:    stats(items, len(pool), dropped, exp.ExpansionTerms()),
	}
	if req.IncludeFacets() {
		page.Facets = countFacets(items)
	}
	page.Results, page.Pagination = paginate(items, req.Page(), req.Limit())
	page.Stats.Took = time.Since(start)

	span.SetAttributes(
		attribute.Int("search.total", page.Pagination.Total),
		attribute.Int("search.dropped", dropped),
		attribute.Bool("search.degraded", p.degraded),
	)
	return page, nil
}

// scoreAll evaluates every strategy on every candidate, chunked across the pool.
// ok[i] is false when candidate i was dropped after a fault.
func (e *Engine) scoreAll(q *Query, strategies []Strategy, cands []*scale.Scale) ([]partial, []bool) {
	partials := make([]partial, len(cands))
	ok := make([]bool, len(cands))
	scoreRange := func(lo, hi int) {
		for i := lo; i < hi; i++ {
			partials[i], ok[i] = e.scoreOne(q, strategies, cands[i])
		}
	}

	if e.pool == nil || len(cands) <= e.chunk {
		scoreRange(0, len(cands))
		return partials, ok
	}

	var wg sync.WaitGroup
	for lo := 0; lo < len(cands); lo += e.chunk {
		hi := min(lo+e.chunk, len(cands))
		wg.Add(1)
		err := e.pool.Submit(func() {
			defer wg.Done()
			scoreRange(lo, hi)
		})
		if err != nil {
			wg.Done()
			scoreRange(lo, hi)
		}
	}
	wg.Wait()
	return partials, ok
}

func (e *Engine) scoreOne(q *Query, strategies []Strategy, s *scale.Scale) (p partial, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("Dropping candidate after scoring panic",
				zap.String("scale_id", s.ID()),
				zap.Any("panic", r),
			)
			metrics.SearchDroppedCandidatesTotal.Inc()
			ok = false
		}
	}()

	p.scale = s
	for _, st := range strategies {
		sub := st.Score(q, s)
		if math.IsNaN(sub.Score) || math.IsInf(sub.Score, 0) {
			e.logger.Warn("Dropping candidate with non-finite score",
				zap.String("scale_id", s.ID()),
				zap.String("strategy", string(st.Kind())),
			)
			metrics.SearchDroppedCandidatesTotal.Inc()
			return p, false
		}
		switch st.Kind() {
		case KindKeyword:
			p.keyword = sub
		case KindSemantic:
			p.semantic = sub
		case KindVector:
			p.vector = sub
		}
	}
	return p, true
}

func stats(items []result.Scored, candidates, dropped int, terms []string) result.Statistics {
	st := result.Statistics{Candidates: candidates, Dropped: dropped, ExpansionTerms: terms}
	if len(items) == 0 {
		return st
	}
	var kw, sem, vec, fused float64
	vecN := 0
	for i := range items {
		kw += items[i].Keyword()
		sem += items[i].Semantic()
		fused += items[i].Fused()
		if v := items[i].Vector(); v.Present {
			vec += v.Value
			vecN++
		}
	}
	n := float64(len(items))
	st.AvgKeyword, st.AvgSemantic, st.AvgFused = kw/n, sem/n, fused/n
	if vecN > 0 {
		st.AvgVector = vec / float64(vecN)
	}
	return st
}
