package search

import (
	"math"
	"sort"
	"strings"

	"github.com/kailas-cloud/scaledex/internal/domain/scale"
	"github.com/kailas-cloud/scaledex/internal/domain/search/mode"
	"github.com/kailas-cloud/scaledex/internal/domain/search/request"
	"github.com/kailas-cloud/scaledex/internal/domain/search/result"
)

// Boosts are the deterministic additions applied after weighting.
type Boosts struct {
	// UsageFactor multiplies the usage count before capping.
	UsageFactor float64
	// UsageCapText caps the popularity boost in keyword, semantic and advanced modes.
	UsageCapText float64
	// UsageCapBlended caps the popularity boost in hybrid and vector modes.
	UsageCapBlended float64
	// StatusBoost is added for validated and published scales.
	StatusBoost float64
	// VectorScale multiplies the cosine similarity.
	VectorScale float64
}

// DefaultBoosts returns the standard boost scheme.
func DefaultBoosts() Boosts {
	return Boosts{
		UsageFactor:     0.1,
		UsageCapText:    10,
		UsageCapBlended: 20,
		StatusBoost:     5,
		VectorScale:     100,
	}
}

// UsageCap returns the popularity cap for m.
func (b Boosts) UsageCap(m mode.Mode) float64 {
	if m == mode.Hybrid || m == mode.Vector {
		return b.UsageCapBlended
	}
	return b.UsageCapText
}

// DefaultWeights returns the per-mode keyword/semantic weights.
func DefaultWeights() map[mode.Mode]request.Weights {
	return map[mode.Mode]request.Weights{
		mode.Keyword:  {Keyword: 1, Semantic: 0},
		mode.Semantic: {Keyword: 0, Semantic: 1},
		mode.Hybrid:   {Keyword: 0.5, Semantic: 0.5},
		mode.Vector:   {Keyword: 0.3, Semantic: 0.3},
		mode.Advanced: {Keyword: 0.5, Semantic: 0.5},
	}
}

// partial holds one candidate's subscores before fusion.
type partial struct {
	scale    *scale.Scale
	keyword  Subscore
	semantic Subscore
	vector   Subscore
}

func (p *partial) matched() bool {
	return p.keyword.Matched || p.semantic.Matched || p.vector.Matched
}

func (p *partial) reasons() []string {
	var out []string
	for _, s := range []Subscore{p.keyword, p.semantic, p.vector} {
		if s.Reason != "" {
			out = append(out, s.Reason)
		}
	}
	if p.scale.Status().IsTrusted() {
		out = append(out, "validated instrument")
	}
	return out
}

// fuser combines subscores into one score for a single search.
type fuser struct {
	weights      request.Weights
	boosts       Boosts
	usageCap     float64
	vectorActive bool
}

func newFuser(w request.Weights, b Boosts, m mode.Mode, vectorActive bool) fuser {
	return fuser{
		weights:      w.Clamp(),
		boosts:       b,
		usageCap:     b.UsageCap(m),
		vectorActive: vectorActive,
	}
}

func (f fuser) fuse(p *partial) result.Scored {
	score := p.keyword.Score*f.weights.Keyword + p.semantic.Score*f.weights.Semantic

	vec := result.Absent
	if p.vector.Present {
		vec = result.VectorScore{Value: p.vector.Score, Present: true}
	}
	if f.vectorActive && vec.Present {
		score += vec.Value * f.boosts.VectorScale
	}

	score += math.Min(float64(p.scale.UsageCount())*f.boosts.UsageFactor, f.usageCap)
	if p.scale.Status().IsTrusted() {
		score += f.boosts.StatusBoost
	}
	return result.New(p.scale, p.keyword.Score, p.semantic.Score, vec, score, p.reasons())
}

// rank sorts by fused desc, usage desc, display name asc, ID asc.
func rank(items []result.Scored) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := &items[i], &items[j]
		if a.Fused() != b.Fused() {
			return a.Fused() > b.Fused()
		}
		return tieBreak(a.Scale(), b.Scale())
	})
}

func tieBreak(a, b *scale.Scale) bool {
	if a.UsageCount() != b.UsageCount() {
		return a.UsageCount() > b.UsageCount()
	}
	an, bn := strings.ToLower(a.DisplayName()), strings.ToLower(b.DisplayName())
	if an != bn {
		return an < bn
	}
	return a.ID() < b.ID()
}

// reorder applies a non-relevance sort key with the same tie-breaks.
func reorder(items []result.Scored, key request.Sort) {
	switch key {
	case request.SortName:
		sort.SliceStable(items, func(i, j int) bool {
			a, b := items[i].Scale(), items[j].Scale()
			an, bn := strings.ToLower(a.DisplayName()), strings.ToLower(b.DisplayName())
			if an != bn {
				return an < bn
			}
			return a.ID() < b.ID()
		})
	case request.SortUsage:
		sort.SliceStable(items, func(i, j int) bool {
			return tieBreak(items[i].Scale(), items[j].Scale())
		})
	case request.SortRecent:
		sort.SliceStable(items, func(i, j int) bool {
			a, b := items[i].Scale(), items[j].Scale()
			if !a.UpdatedAt().Equal(b.UpdatedAt()) {
				return a.UpdatedAt().After(b.UpdatedAt())
			}
			return tieBreak(a, b)
		})
	}
}
