package scaledex

import (
	"time"

	domscale "github.com/kailas-cloud/scaledex/internal/domain/scale"
	"github.com/kailas-cloud/scaledex/internal/domain/search/result"
)

// ValidationStatus is the data-quality stage of a scale.
type ValidationStatus string

// Validation status constants.
const (
	StatusDraft     ValidationStatus = "draft"
	StatusValidated ValidationStatus = "validated"
	StatusPublished ValidationStatus = "published"
)

// SearchMode controls which strategies rank the candidates.
type SearchMode string

// Search mode constants.
const (
	ModeKeyword  SearchMode = "keyword"
	ModeSemantic SearchMode = "semantic"
	ModeHybrid   SearchMode = "hybrid"
	ModeVector   SearchMode = "vector"
	ModeAdvanced SearchMode = "advanced"
)

// SortKey orders the ranked list.
type SortKey string

// Sort key constants.
const (
	SortRelevance SortKey = "relevance"
	SortName      SortKey = "name"
	SortUsage     SortKey = "usage"
	SortRecent    SortKey = "recent"
)

// Scale is a clinical assessment instrument in the catalog.
type Scale struct {
	ID               string
	Name             string
	NameEn           string
	Acronym          string
	Description      string
	DescriptionEn    string
	Category         string
	ItemCount        int
	AdminMinutes     float64
	TargetPopulation string
	Languages        []string
	Domains          []string
	Status           ValidationStatus
	UsageCount       int64
	FavoriteCount    int64
	Embedding        []float32
	// Private scales are stored but never returned by Search.
	Private   bool
	UpdatedAt time.Time
}

// Caller identifies who runs a search. The zero value is an anonymous caller
// sharing one quota; set Key to the client IP to track callers separately.
type Caller struct {
	Key           string
	Authenticated bool
}

// Query is a search request. Only Text or facets are required, depending on Mode.
type Query struct {
	Caller        Caller
	Text          string
	Locale        string
	Mode          SearchMode
	Categories    []string
	Statuses      []ValidationStatus
	Languages     []string
	MinItems      *float64
	MaxItems      *float64
	MaxMinutes    *float64
	Domain        string
	Population    string
	Page          int
	Limit         int
	Sort          SortKey
	MinScore      *float64
	IncludeFacets bool
}

// SearchResult is a single ranked scale.
type SearchResult struct {
	Scale    Scale
	Score    float64
	Keyword  float64
	Semantic float64
	Vector   float64
	Reasons  []string
}

// SearchPage is one page of ranked results.
type SearchPage struct {
	Results        []SearchResult
	Page           int
	Limit          int
	Total          int
	HasMore        bool
	Mode           SearchMode
	Degraded       bool
	ExpansionTerms []string
	Took           time.Duration
	// Facets is set when Query.IncludeFacets is true.
	Facets *FacetCounts
}

// FacetCounts counts facet values over all filtered results.
type FacetCounts struct {
	Categories map[string]int
	Statuses   map[string]int
	Languages  map[string]int
}

// Expansion is the normalized query and the thesaurus terms added to it.
type Expansion struct {
	Normalized string
	Tokens     []string
	Terms      []string
}

func (s *Scale) toDomain() (domscale.Scale, error) {
	return domscale.New(domscale.Fields{
		ID:               s.ID,
		Name:             s.Name,
		NameEn:           s.NameEn,
		Acronym:          s.Acronym,
		Description:      s.Description,
		DescriptionEn:    s.DescriptionEn,
		Category:         s.Category,
		ItemCount:        s.ItemCount,
		AdminMinutes:     s.AdminMinutes,
		TargetPopulation: s.TargetPopulation,
		Languages:        s.Languages,
		Domains:          s.Domains,
		Status:           domscale.ValidationStatus(s.Status),
		UsageCount:       s.UsageCount,
		FavoriteCount:    s.FavoriteCount,
		Embedding:        s.Embedding,
		Public:           !s.Private,
		UpdatedAt:        s.UpdatedAt,
	})
}

func scaleFromDomain(s *domscale.Scale) Scale {
	f := s.Fields()
	return Scale{
		ID:               f.ID,
		Name:             f.Name,
		NameEn:           f.NameEn,
		Acronym:          f.Acronym,
		Description:      f.Description,
		DescriptionEn:    f.DescriptionEn,
		Category:         f.Category,
		ItemCount:        f.ItemCount,
		AdminMinutes:     f.AdminMinutes,
		TargetPopulation: f.TargetPopulation,
		Languages:        f.Languages,
		Domains:          f.Domains,
		Status:           ValidationStatus(f.Status),
		UsageCount:       f.UsageCount,
		FavoriteCount:    f.FavoriteCount,
		Embedding:        f.Embedding,
		Private:          !f.Public,
		UpdatedAt:        f.UpdatedAt,
	}
}

func pageFromDomain(p *result.Page) SearchPage {
	out := SearchPage{
		Results:        make([]SearchResult, 0, len(p.Results)),
		Page:           p.Pagination.Page,
		Limit:          p.Pagination.Limit,
		Total:          p.Pagination.Total,
		HasMore:        p.Pagination.HasMore,
		Mode:           SearchMode(p.Mode),
		Degraded:       p.Degraded,
		ExpansionTerms: p.Stats.ExpansionTerms,
		Took:           p.Stats.Took,
	}
	for i := range p.Results {
		r := &p.Results[i]
		out.Results = append(out.Results, SearchResult{
			Scale:    scaleFromDomain(r.Scale()),
			Score:    r.Fused(),
			Keyword:  r.Keyword(),
			Semantic: r.Semantic(),
			Vector:   r.Vector().Value,
			Reasons:  r.Reasons(),
		})
	}
	if p.Facets != nil {
		out.Facets = &FacetCounts{
			Categories: p.Facets.Categories,
			Statuses:   p.Facets.Statuses,
			Languages:  p.Facets.Languages,
		}
	}
	return out
}
