package filter

import (
	"fmt"
	"math"
	"strings"

	"github.com/kailas-cloud/scaledex/internal/domain/scale"
)

// MaxValuesPerFacet is the maximum number of members in a set facet.
const MaxValuesPerFacet = 32

// Range is an inclusive numeric interval. A nil bound is unconstrained.
type Range struct {
	min *float64
	max *float64
}

// NewRange validates and creates a Range. min > max is malformed.
func NewRange(minV, maxV *float64) (Range, error) {
	if minV != nil && math.IsNaN(*minV) || maxV != nil && math.IsNaN(*maxV) {
		return Range{}, fmt.Errorf("range bounds must be numbers")
	}
	if minV != nil && maxV != nil && *minV > *maxV {
		return Range{}, fmt.Errorf("range min %g is greater than max %g", *minV, *maxV)
	}
	return Range{min: minV, max: maxV}, nil
}

// Min returns the lower inclusive bound.
func (r Range) Min() *float64 { return r.min }

// Max returns the upper inclusive bound.
func (r Range) Max() *float64 { return r.max }

// IsZero reports whether neither bound is set.
func (r Range) IsZero() bool { return r.min == nil && r.max == nil }

// Contains reports whether v lies within the bounds.
func (r Range) Contains(v float64) bool {
	if r.min != nil && v < *r.min {
		return false
	}
	if r.max != nil && v > *r.max {
		return false
	}
	return true
}

// Spec is the raw facet input before validation.
type Spec struct {
	Categories []string
	Statuses   []string
	Languages  []string
	ItemCount  Range
	AdminTime  Range
	Domain     string
	Population string
}

// Facets is a validated conjunction of structured constraints.
// AND across facets, OR within a set facet.
type Facets struct {
	categories []string
	statuses   []scale.ValidationStatus
	languages  []string
	itemCount  Range
	adminTime  Range
	domain     string
	population string
}

// New validates and creates Facets. Set members are lowercased and deduplicated.
func New(s Spec) (Facets, error) {
	categories, err := normalizeSet("categories", s.Categories)
	if err != nil {
		return Facets{}, err
	}
	languages, err := normalizeSet("languages", s.Languages)
	if err != nil {
		return Facets{}, err
	}
	rawStatuses, err := normalizeSet("statuses", s.Statuses)
	if err != nil {
		return Facets{}, err
	}
	statuses := make([]scale.ValidationStatus, 0, len(rawStatuses))
	for _, v := range rawStatuses {
		st := scale.ValidationStatus(v)
		if !st.IsValid() {
			return Facets{}, fmt.Errorf("invalid validation status %q", v)
		}
		statuses = append(statuses, st)
	}

	return Facets{
		categories: categories,
		statuses:   statuses,
		languages:  languages,
		itemCount:  s.ItemCount,
		adminTime:  s.AdminTime,
		domain:     strings.ToLower(strings.TrimSpace(s.Domain)),
		population: strings.ToLower(strings.TrimSpace(s.Population)),
	}, nil
}

func normalizeSet(name string, in []string) ([]string, error) {
	if len(in) > MaxValuesPerFacet {
		return nil, fmt.Errorf("too many %s (max %d)", name, MaxValuesPerFacet)
	}
	var out []string
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}

// Categories returns the accepted categories.
func (f Facets) Categories() []string { return f.categories }

// Statuses returns the accepted validation statuses.
func (f Facets) Statuses() []scale.ValidationStatus { return f.statuses }

// Languages returns the accepted languages.
func (f Facets) Languages() []string { return f.languages }

// ItemCount returns the item-count range.
func (f Facets) ItemCount() Range { return f.itemCount }

// AdminTime returns the administration-time range in minutes.
func (f Facets) AdminTime() Range { return f.adminTime }

// Domain returns the domain-tag substring.
func (f Facets) Domain() string { return f.domain }

// Population returns the target-population substring.
func (f Facets) Population() string { return f.population }

// IsEmpty reports whether no facet is constrained.
func (f Facets) IsEmpty() bool {
	return len(f.categories) == 0 && len(f.statuses) == 0 && len(f.languages) == 0 &&
		f.itemCount.IsZero() && f.adminTime.IsZero() && f.domain == "" && f.population == ""
}

// Matches evaluates every facet against s.
func (f Facets) Matches(s *scale.Scale) bool {
	if len(f.categories) > 0 && !contains(f.categories, strings.ToLower(s.Category())) {
		return false
	}
	if len(f.statuses) > 0 && !containsStatus(f.statuses, s.Status()) {
		return false
	}
	if len(f.languages) > 0 && !anyLanguage(f.languages, s.Languages()) {
		return false
	}
	if !f.itemCount.Contains(float64(s.ItemCount())) {
		return false
	}
	if !f.adminTime.Contains(s.AdminMinutes()) {
		return false
	}
	if f.domain != "" && !anyContains(s.Domains(), f.domain) {
		return false
	}
	if f.population != "" && !strings.Contains(strings.ToLower(s.TargetPopulation()), f.population) {
		return false
	}
	return true
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func containsStatus(set []scale.ValidationStatus, v scale.ValidationStatus) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func anyLanguage(set, langs []string) bool {
	for _, l := range langs {
		if contains(set, strings.ToLower(l)) {
			return true
		}
	}
	return false
}

func anyContains(values []string, sub string) bool {
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), sub) {
			return true
		}
	}
	return false
}
