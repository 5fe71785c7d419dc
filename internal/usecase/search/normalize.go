package search

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/kailas-cloud/scaledex/internal/domain"
	"github.com/kailas-cloud/scaledex/internal/domain/search/request"
	"github.com/kailas-cloud/scaledex/internal/domain/thesaurus"
)

// DefaultMaxExpansionTerms bounds the terms added beyond the normalized query.
const DefaultMaxExpansionTerms = 5

// Normalizer canonicalizes query text and expands it through a thesaurus.
type Normalizer struct {
	th       *thesaurus.Thesaurus
	maxTerms int
}

// NewNormalizer creates a Normalizer. maxTerms <= 0 uses the default.
func NewNormalizer(th *thesaurus.Thesaurus, maxTerms int) *Normalizer {
	if th == nil {
		th = thesaurus.Default()
	}
	if maxTerms <= 0 {
		maxTerms = DefaultMaxExpansionTerms
	}
	return &Normalizer{th: th, maxTerms: maxTerms}
}

// Normalize applies NFKC, trims, collapses whitespace and lowercases with the locale's rules.
// Scripts without case (CJK) pass through unchanged.
func Normalize(raw, locale string) string {
	s := norm.NFKC.String(raw)
	s = strings.Join(strings.Fields(s), " ")
	return cases.Lower(localeTag(locale)).String(s)
}

// localeTag parses a locale hint; unknown or empty hints fall back to root casing.
func localeTag(locale string) language.Tag {
	tag, err := language.Parse(locale)
	if err != nil {
		return language.Und
	}
	return tag
}

// Expand normalizes raw and collects thesaurus terms. First matched entries win.
func (n *Normalizer) Expand(raw, locale string) (request.Expanded, error) {
	q := Normalize(raw, locale)
	if q == "" {
		return request.Expanded{}, domain.InvalidQuery("query is required")
	}
	if utf8.RuneCountInString(q) > request.MaxQueryLength {
		return request.Expanded{}, domain.InvalidQuery("query too long (max %d chars)", request.MaxQueryLength)
	}

	seen := map[string]struct{}{q: {}}
	extra := make([]string, 0, n.maxTerms)

collect:
	for _, e := range n.th.Match(q) {
		for _, v := range e.Values {
			if len(extra) == n.maxTerms {
				break collect
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			extra = append(extra, v)
		}
	}
	return request.NewExpanded(q, extra), nil
}
