package search

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/kailas-cloud/scaledex/internal/domain/scale"
	"github.com/kailas-cloud/scaledex/internal/domain/search/request"
)

// Kind names a scoring strategy.
type Kind string

// Strategy kinds.
const (
	KindKeyword  Kind = "keyword"
	KindSemantic Kind = "semantic"
	KindVector   Kind = "vector"
)

// Keyword score table.
const (
	scoreAcronymExact = 100
	scoreNameExact    = 95
	scoreNameContains = 80
	scoreDescContains = 60
	scoreTagContains  = 40
)

// scoreFallback is the keyword score of a candidate admitted by another strategy.
const scoreFallback = 40

// Semantic per-term increments.
const (
	semAcronymExact  = 50
	semNameContains  = 30
	semNameEnContain = 25
	semBlobContains  = 15
)

// Query is the per-search context shared read-only by all strategies.
type Query struct {
	Normalized string
	Terms      []string
	Embedding  []float32
	lang       language.Tag
	queryNorm  float64
}

// NewQuery builds the scoring context from an expansion, the locale hint it was
// normalized with and an optional embedding.
func NewQuery(exp request.Expanded, locale string, embedding []float32) *Query {
	return &Query{
		Normalized: exp.Normalized(),
		Terms:      exp.Terms(),
		Embedding:  embedding,
		lang:       localeTag(locale),
		queryNorm:  magnitude(embedding),
	}
}

// Subscore is one strategy's verdict on one candidate.
type Subscore struct {
	Score   float64
	Matched bool
	// Present is false when the strategy could not compare (vector only).
	Present bool
	Reason  string
}

// Strategy scores a candidate. Implementations are pure and safe for concurrent use.
type Strategy interface {
	Kind() Kind
	Score(q *Query, s *scale.Scale) Subscore
}

// fold canonicalizes record text with the casing rules the query was lowered with.
// A Caser is stateful, so each call builds its own.
func (q *Query) fold(s string) string {
	if s == "" {
		return ""
	}
	return cases.Lower(q.lang).String(norm.NFKC.String(s))
}

// Keyword matches the normalized query against literal fields. First rule wins.
// Without any rule the score is the fallback, unmatched: the candidate stays only
// if another active strategy matched it.
type Keyword struct{}

// Kind implements Strategy.
func (Keyword) Kind() Kind { return KindKeyword }

// Score implements Strategy.
func (Keyword) Score(q *Query, s *scale.Scale) Subscore {
	query := q.Normalized
	if query == "" {
		return Subscore{}
	}
	name, nameEn := q.fold(s.Name()), q.fold(s.NameEn())
	switch {
	case s.Acronym() != "" && q.fold(s.Acronym()) == query:
		return hit(scoreAcronymExact, "acronym exact match")
	case query == name || query == nameEn:
		return hit(scoreNameExact, "name exact match")
	case contains(name, query) || contains(nameEn, query):
		return hit(scoreNameContains, "name contains query")
	case contains(q.fold(s.Description()), query) || contains(q.fold(s.DescriptionEn()), query):
		return hit(scoreDescContains, "description contains query")
	case contains(q.fold(s.TargetPopulation()), query) || q.anyContains(s.Domains(), query):
		return hit(scoreTagContains, "population or domain matches query")
	}
	return Subscore{Score: scoreFallback, Present: true}
}

func hit(score float64, reason string) Subscore {
	return Subscore{Score: score, Matched: true, Present: true, Reason: reason}
}

func contains(field, sub string) bool {
	return field != "" && strings.Contains(field, sub)
}

func (q *Query) anyContains(values []string, sub string) bool {
	for _, v := range values {
		if contains(q.fold(v), sub) {
			return true
		}
	}
	return false
}

// Semantic accumulates thesaurus-expanded term hits. Unbounded and additive.
type Semantic struct{}

// Kind implements Strategy.
func (Semantic) Kind() Kind { return KindSemantic }

// Score implements Strategy.
func (Semantic) Score(q *Query, s *scale.Scale) Subscore {
	if len(q.Terms) == 0 {
		return Subscore{}
	}
	acronym := q.fold(s.Acronym())
	name, nameEn := q.fold(s.Name()), q.fold(s.NameEn())
	blob := q.fold(strings.Join(append([]string{
		s.Description(), s.DescriptionEn(), s.TargetPopulation(),
	}, s.Domains()...), " "))

	var total float64
	var hits []string
	for _, t := range q.Terms {
		var add float64
		if acronym != "" && acronym == t {
			add += semAcronymExact
		}
		if contains(name, t) {
			add += semNameContains
		}
		if contains(nameEn, t) {
			add += semNameEnContain
		}
		if contains(blob, t) {
			add += semBlobContains
		}
		if add > 0 {
			total += add
			hits = append(hits, t)
		}
	}
	if total == 0 {
		return Subscore{Present: true}
	}
	return Subscore{
		Score:   total,
		Matched: true,
		Present: true,
		Reason:  "related terms: " + strings.Join(hits, ", "),
	}
}

// Vector is cosine similarity between the query embedding and the stored one.
type Vector struct{}

// Kind implements Strategy.
func (Vector) Kind() Kind { return KindVector }

// Score implements Strategy. Missing or mismatched vectors are absent, never an error.
func (Vector) Score(q *Query, s *scale.Scale) Subscore {
	doc := s.Embedding()
	if len(q.Embedding) == 0 || len(doc) == 0 || len(doc) != len(q.Embedding) {
		return Subscore{}
	}
	sim := cosine(q.Embedding, doc, q.queryNorm)
	sub := Subscore{Score: sim, Present: true, Matched: sim > 0}
	if sub.Matched {
		sub.Reason = fmt.Sprintf("embedding similarity %.2f", sim)
	}
	return sub
}

func magnitude(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// cosine returns dot(a,b)/(|a||b|) clamped to [-1,1]; zero magnitude gives 0.
func cosine(a, b []float32, normA float64) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	normB := magnitude(b)
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (normA * normB)
	switch {
	case math.IsNaN(sim):
		return 0
	case sim > 1:
		return 1
	case sim < -1:
		return -1
	}
	return sim
}
