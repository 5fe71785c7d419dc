package result

import (
	"time"

	"github.com/kailas-cloud/scaledex/internal/domain/scale"
	"github.com/kailas-cloud/scaledex/internal/domain/search/mode"
)

// VectorScore is a cosine similarity that may be absent.
type VectorScore struct {
	Value   float64
	Present bool
}

// Absent is the vector score of a candidate that could not be compared.
var Absent = VectorScore{}

// Scored is one ranked candidate with its per-strategy subscores.
type Scored struct {
	scale    *scale.Scale
	keyword  float64
	semantic float64
	vector   VectorScore
	fused    float64
	reasons  []string
}

// New creates a scored candidate. The scale is referenced, not copied.
func New(s *scale.Scale, keyword, semantic float64, vector VectorScore, fused float64, reasons []string) Scored {
	return Scored{
		scale: s, keyword: keyword, semantic: semantic,
		vector: vector, fused: fused, reasons: reasons,
	}
}

// Scale returns the candidate record.
func (r *Scored) Scale() *scale.Scale { return r.scale }

// Keyword returns the keyword subscore.
func (r *Scored) Keyword() float64 { return r.keyword }

// Semantic returns the semantic subscore.
func (r *Scored) Semantic() float64 { return r.semantic }

// Vector returns the vector subscore.
func (r *Scored) Vector() VectorScore { return r.vector }

// Fused returns the final ranking score.
func (r *Scored) Fused() float64 { return r.fused }

// Reasons returns the ordered match reasons.
func (r *Scored) Reasons() []string { return r.reasons }

// Pagination describes the returned slice of the ranked list.
type Pagination struct {
	Page       int
	Limit      int
	Total      int
	TotalPages int
	HasMore    bool
}

// Statistics summarizes a search run.
type Statistics struct {
	AvgKeyword     float64
	AvgSemantic    float64
	AvgVector      float64
	AvgFused       float64
	Candidates     int
	Dropped        int
	ExpansionTerms []string
	Took           time.Duration
}

// FacetCounts counts facet values over the filtered, pre-pagination result set.
type FacetCounts struct {
	Categories map[string]int
	Statuses   map[string]int
	Languages  map[string]int
}

// Page is the outcome of one search.
type Page struct {
	Results    []Scored
	Pagination Pagination
	Mode       mode.Mode
	Degraded   bool
	Stats      Statistics
	Facets     *FacetCounts
}
