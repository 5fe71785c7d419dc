package chi

import (
	"fmt"

	"github.com/kailas-cloud/scaledex/internal/domain"
	"github.com/kailas-cloud/scaledex/internal/domain/search/filter"
	"github.com/kailas-cloud/scaledex/internal/domain/search/mode"
	"github.com/kailas-cloud/scaledex/internal/domain/search/request"
	"github.com/kailas-cloud/scaledex/internal/domain/search/result"
	domusage "github.com/kailas-cloud/scaledex/internal/domain/usage"
	healthuc "github.com/kailas-cloud/scaledex/internal/usecase/health"
)

// Error codes.
const (
	codeBadRequest         = "BadRequest"
	codeInvalidQuery       = "InvalidQuery"
	codeRateLimitExceeded  = "RateLimitExceeded"
	codeUnauthorized       = "Unauthorized"
	codeNotFound           = "NotFound"
	codeCatalogUnavailable = "CatalogUnavailable"
	codeInternalError      = "InternalError"
)

type errorResponse struct {
	Error             string `json:"error"`
	Message           string `json:"message"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
	RequiresAuth      bool   `json:"requires_auth,omitempty"`
}

type rangeDTO struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

type filtersDTO struct {
	Categories []string  `json:"categories,omitempty"`
	Statuses   []string  `json:"statuses,omitempty"`
	Languages  []string  `json:"languages,omitempty"`
	ItemCount  *rangeDTO `json:"item_count,omitempty"`
	AdminTime  *rangeDTO `json:"admin_time,omitempty"`
	Domain     string    `json:"domain,omitempty"`
	Population string    `json:"population,omitempty"`
}

type weightsDTO struct {
	Keyword  float64 `json:"keyword"`
	Semantic float64 `json:"semantic"`
}

type searchRequest struct {
	Query          string      `json:"query"`
	Locale         string      `json:"locale,omitempty"`
	Filters        *filtersDTO `json:"filters,omitempty"`
	Mode           string      `json:"mode,omitempty"`
	Weights        *weightsDTO `json:"weights,omitempty"`
	Page           int         `json:"page,omitempty"`
	Limit          int         `json:"limit,omitempty"`
	SortBy         string      `json:"sort_by,omitempty"`
	QueryEmbedding []float32   `json:"query_embedding,omitempty"`
	MinScore       *float64    `json:"min_score,omitempty"`
	IncludeFacets  bool        `json:"include_facets,omitempty"`
}

type scoresDTO struct {
	Keyword  float64  `json:"keyword"`
	Semantic float64  `json:"semantic"`
	Vector   *float64 `json:"vector,omitempty"`
	Fused    float64  `json:"fused"`
}

type resultItem struct {
	ID               string    `json:"id"`
	Name             string    `json:"name,omitempty"`
	NameEn           string    `json:"name_en,omitempty"`
	Acronym          string    `json:"acronym,omitempty"`
	Category         string    `json:"category,omitempty"`
	ValidationStatus string    `json:"validation_status"`
	UsageCount       int64     `json:"usage_count"`
	Scores           scoresDTO `json:"scores"`
	MatchReasons     []string  `json:"match_reasons"`
}

type paginationDTO struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasMore    bool `json:"has_more"`
}

type avgScoresDTO struct {
	Keyword  float64 `json:"keyword"`
	Semantic float64 `json:"semantic"`
	Vector   float64 `json:"vector"`
	Fused    float64 `json:"fused"`
}

type statisticsDTO struct {
	AvgScores      avgScoresDTO `json:"avg_scores"`
	Candidates     int          `json:"candidates"`
	Dropped        int          `json:"dropped"`
	ExpansionTerms []string     `json:"expansion_terms"`
	TookMs         int64        `json:"took_ms"`
}

type facetsDTO struct {
	Categories map[string]int `json:"categories"`
	Statuses   map[string]int `json:"statuses"`
	Languages  map[string]int `json:"languages"`
}

type searchResponse struct {
	Results    []resultItem  `json:"results"`
	Pagination paginationDTO `json:"pagination"`
	SearchMode string        `json:"search_mode"`
	Degraded   bool          `json:"degraded"`
	Statistics statisticsDTO `json:"statistics"`
	Facets     *facetsDTO    `json:"facets,omitempty"`
}

type expandResponse struct {
	Query          string   `json:"query"`
	Normalized     string   `json:"normalized"`
	Terms          []string `json:"terms"`
	ExpansionTerms []string `json:"expansion_terms"`
}

type usageResponse struct {
	Period    string           `json:"period"`
	Bucket    string           `json:"bucket"`
	Searches  int64            `json:"searches"`
	Anonymous int64            `json:"anonymous"`
	Degraded  int64            `json:"degraded"`
	ByMode    map[string]int64 `json:"by_mode"`
}

type healthResponse struct {
	Status      string            `json:"status"`
	Checks      map[string]string `json:"checks"`
	CatalogSize int               `json:"catalog_size"`
}

func (f *filtersDTO) toFacets() (filter.Facets, error) {
	if f == nil {
		return filter.Facets{}, nil
	}
	itemCount, err := f.ItemCount.toRange()
	if err != nil {
		return filter.Facets{}, domain.InvalidQuery("filters.item_count: %v", err)
	}
	adminTime, err := f.AdminTime.toRange()
	if err != nil {
		return filter.Facets{}, domain.InvalidQuery("filters.admin_time: %v", err)
	}
	facets, err := filter.New(filter.Spec{
		Categories: f.Categories,
		Statuses:   f.Statuses,
		Languages:  f.Languages,
		ItemCount:  itemCount,
		AdminTime:  adminTime,
		Domain:     f.Domain,
		Population: f.Population,
	})
	if err != nil {
		return filter.Facets{}, domain.InvalidQuery("filters: %v", err)
	}
	return facets, nil
}

func (r *rangeDTO) toRange() (filter.Range, error) {
	if r == nil {
		return filter.Range{}, nil
	}
	return filter.NewRange(r.Min, r.Max)
}

func (req *searchRequest) toDomain() (request.Request, error) {
	facets, err := req.Filters.toFacets()
	if err != nil {
		return request.Request{}, err
	}
	var weights *request.Weights
	if req.Weights != nil {
		weights = &request.Weights{Keyword: req.Weights.Keyword, Semantic: req.Weights.Semantic}
	}
	r, err := request.New(request.Params{
		Query:         req.Query,
		Locale:        req.Locale,
		Facets:        facets,
		Mode:          mode.Mode(req.Mode),
		Weights:       weights,
		Page:          req.Page,
		Limit:         req.Limit,
		Sort:          request.Sort(req.SortBy),
		Embedding:     req.QueryEmbedding,
		MinScore:      req.MinScore,
		IncludeFacets: req.IncludeFacets,
	})
	if err != nil {
		return request.Request{}, fmt.Errorf("search request: %w", err)
	}
	return r, nil
}

func resultToDTO(r *result.Scored) resultItem {
	s := r.Scale()
	scores := scoresDTO{Keyword: r.Keyword(), Semantic: r.Semantic(), Fused: r.Fused()}
	if v := r.Vector(); v.Present {
		value := v.Value
		scores.Vector = &value
	}
	reasons := r.Reasons()
	if reasons == nil {
		reasons = []string{}
	}
	return resultItem{
		ID:               s.ID(),
		Name:             s.Name(),
		NameEn:           s.NameEn(),
		Acronym:          s.Acronym(),
		Category:         s.Category(),
		ValidationStatus: string(s.Status()),
		UsageCount:       s.UsageCount(),
		Scores:           scores,
		MatchReasons:     reasons,
	}
}

func pageToDTO(p *result.Page) searchResponse {
	items := make([]resultItem, len(p.Results))
	for i := range p.Results {
		items[i] = resultToDTO(&p.Results[i])
	}
	terms := p.Stats.ExpansionTerms
	if terms == nil {
		terms = []string{}
	}
	resp := searchResponse{
		Results: items,
		Pagination: paginationDTO{
			Page:       p.Pagination.Page,
			Limit:      p.Pagination.Limit,
			Total:      p.Pagination.Total,
			TotalPages: p.Pagination.TotalPages,
			HasMore:    p.Pagination.HasMore,
		},
		SearchMode: string(p.Mode),
		Degraded:   p.Degraded,
		Statistics: statisticsDTO{
			AvgScores: avgScoresDTO{
				Keyword:  p.Stats.AvgKeyword,
				Semantic: p.Stats.AvgSemantic,
				Vector:   p.Stats.AvgVector,
				Fused:    p.Stats.AvgFused,
			},
			Candidates:     p.Stats.Candidates,
			Dropped:        p.Stats.Dropped,
			ExpansionTerms: terms,
			TookMs:         p.Stats.Took.Milliseconds(),
		},
	}
	if p.Facets != nil {
		resp.Facets = &facetsDTO{
			Categories: p.Facets.Categories,
			Statuses:   p.Facets.Statuses,
			Languages:  p.Facets.Languages,
		}
	}
	return resp
}

func expandedToDTO(raw string, e request.Expanded) expandResponse {
	extra := e.ExpansionTerms()
	if extra == nil {
		extra = []string{}
	}
	return expandResponse{
		Query:          raw,
		Normalized:     e.Normalized(),
		Terms:          e.Terms(),
		ExpansionTerms: extra,
	}
}

func reportToDTO(r *domusage.Report) usageResponse {
	c := r.Counters()
	byMode := make(map[string]int64, len(c.ByMode))
	for m, n := range c.ByMode {
		byMode[string(m)] = n
	}
	return usageResponse{
		Period:    string(r.Period()),
		Bucket:    r.Bucket(),
		Searches:  c.Searches,
		Anonymous: c.Anonymous,
		Degraded:  c.Degraded,
		ByMode:    byMode,
	}
}

func healthToDTO(r healthuc.Report) healthResponse {
	checks := make(map[string]string, len(r.Checks))
	for k, v := range r.Checks {
		checks[k] = string(v)
	}
	return healthResponse{Status: string(r.Status), Checks: checks, CatalogSize: r.Catalog}
}
