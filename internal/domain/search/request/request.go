package request

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/scaledex/internal/domain"
	"github.com/kailas-cloud/scaledex/internal/domain/search/filter"
	"github.com/kailas-cloud/scaledex/internal/domain/search/mode"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed query length in runes, after trimming.
	MaxQueryLength = 500
	DefaultLimit   = 20
	MaxLimit       = 100
	MaxEmbedding   = 8192
)

// Sort is the ordering applied to the ranked list.
type Sort string

// Sort key constants.
const (
	SortRelevance Sort = "relevance"
	SortName      Sort = "name"
	SortUsage     Sort = "usage"
	SortRecent    Sort = "recent"
)

// IsValid checks if the sort key is supported.
func (s Sort) IsValid() bool {
	return s == SortRelevance || s == SortName || s == SortUsage || s == SortRecent
}

// Weights is the caller-supplied keyword/semantic weight pair.
type Weights struct {
	Keyword  float64
	Semantic float64
}

// Clamp forces both weights into [0,1]. NaN becomes 0.
func (w Weights) Clamp() Weights {
	return Weights{Keyword: clamp01(w.Keyword), Semantic: clamp01(w.Semantic)}
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// Params is the raw request input.
type Params struct {
	Query         string
	Locale        string
	Facets        filter.Facets
	Mode          mode.Mode
	Weights       *Weights
	Page          int
	Limit         int
	Sort          Sort
	Embedding     []float32
	MinScore      *float64
	IncludeFacets bool
}

// Request is a validated search query.
type Request struct {
	query         string
	locale        string
	facets        filter.Facets
	searchMode    mode.Mode
	weights       *Weights
	page          int
	limit         int
	sort          Sort
	embedding     []float32
	minScore      *float64
	includeFacets bool
}

// New validates and normalizes search parameters.
// Defaults: mode=hybrid, page=1, limit=20, sort=relevance. Limit is capped at MaxLimit.
// Every rejection wraps domain.ErrInvalidQuery.
func New(p Params) (Request, error) {
	m := p.Mode
	if m == "" {
		m = mode.Hybrid
	}
	if !m.IsValid() {
		return Request{}, domain.InvalidQuery("invalid search mode: %q", m)
	}

	q := strings.TrimSpace(p.Query)
	if q == "" && m.RequiresText() {
		return Request{}, domain.InvalidQuery("query is required")
	}
	if utf8.RuneCountInString(q) > MaxQueryLength {
		return Request{}, domain.InvalidQuery("query too long (max %d chars)", MaxQueryLength)
	}

	page := p.Page
	if page < 1 {
		page = 1
	}
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	sort := p.Sort
	if sort == "" {
		sort = SortRelevance
	}
	if !sort.IsValid() {
		return Request{}, domain.InvalidQuery("invalid sort key: %q", sort)
	}

	if len(p.Embedding) > MaxEmbedding {
		return Request{}, domain.InvalidQuery("query embedding too large (max %d dimensions)", MaxEmbedding)
	}
	if err := checkFinite(p.Embedding); err != nil {
		return Request{}, domain.InvalidQuery("%v", err)
	}
	if p.MinScore != nil && math.IsNaN(*p.MinScore) {
		return Request{}, domain.InvalidQuery("min_score must be a number")
	}

	var weights *Weights
	if p.Weights != nil {
		w := p.Weights.Clamp()
		weights = &w
	}
	var embedding []float32
	if len(p.Embedding) > 0 {
		embedding = append([]float32(nil), p.Embedding...)
	}

	return Request{
		query:         q,
		locale:        p.Locale,
		facets:        p.Facets,
		searchMode:    m,
		weights:       weights,
		page:          page,
		limit:         limit,
		sort:          sort,
		embedding:     embedding,
		minScore:      p.MinScore,
		includeFacets: p.IncludeFacets,
	}, nil
}

func checkFinite(v []float32) error {
	for i, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("query embedding has non-finite value at %d", i)
		}
	}
	return nil
}

// Query returns the trimmed raw query text.
func (r *Request) Query() string { return r.query }

// HasText reports whether a query string was supplied.
func (r *Request) HasText() bool { return r.query != "" }

// Locale returns the locale hint.
func (r *Request) Locale() string { return r.locale }

// Facets returns the structured filter.
func (r *Request) Facets() filter.Facets { return r.facets }

// Mode returns the search strategy.
func (r *Request) Mode() mode.Mode { return r.searchMode }

// Weights returns the clamped caller weights (nil means mode defaults).
func (r *Request) Weights() *Weights { return r.weights }

// Page returns the 1-based page number.
func (r *Request) Page() int { return r.page }

// Limit returns the page size.
func (r *Request) Limit() int { return r.limit }

// Offset returns the index of the first result on the page, saturating at math.MaxInt.
func (r *Request) Offset() int {
	if r.limit > 0 && r.page-1 > math.MaxInt/r.limit {
		return math.MaxInt
	}
	return (r.page - 1) * r.limit
}

// Sort returns the sort key.
func (r *Request) Sort() Sort { return r.sort }

// Embedding returns the caller-supplied query embedding.
func (r *Request) Embedding() []float32 { return r.embedding }

// MinScore returns the post-fusion score threshold.
func (r *Request) MinScore() *float64 { return r.minScore }

// IncludeFacets reports whether facet counts were requested.
func (r *Request) IncludeFacets() bool { return r.includeFacets }

// WithLimit returns a copy with the page size replaced.
func (r Request) WithLimit(limit int) Request {
	if limit > 0 {
		r.limit = limit
	}
	return r
}

// WithEmbedding returns a copy carrying a query embedding.
func (r Request) WithEmbedding(v []float32) Request {
	r.embedding = v
	return r
}
