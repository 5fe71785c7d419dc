package search

import (
	"strings"

	"github.com/kailas-cloud/scaledex/internal/domain/search/result"
)

// paginate slices items; an out-of-range page is empty, not an error.
func paginate(items []result.Scored, page, limit int) ([]result.Scored, result.Pagination) {
	total := len(items)
	p := result.Pagination{Page: page, Limit: limit, Total: total}
	if limit <= 0 {
		return nil, p
	}
	p.TotalPages = (total + limit - 1) / limit
	// Compare pages before multiplying: (page-1)*limit overflows for huge pages.
	if page < 1 || page > p.TotalPages {
		return []result.Scored{}, p
	}
	offset := (page - 1) * limit
	p.HasMore = page < p.TotalPages
	end := min(offset+limit, total)
	return items[offset:end], p
}

// countFacets tallies category, status and language over the filtered set.
func countFacets(items []result.Scored) *result.FacetCounts {
	fc := &result.FacetCounts{
		Categories: make(map[string]int),
		Statuses:   make(map[string]int),
		Languages:  make(map[string]int),
	}
	for i := range items {
		s := items[i].Scale()
		if c := strings.ToLower(s.Category()); c != "" {
			fc.Categories[c]++
		}
		fc.Statuses[string(s.Status())]++
		for _, l := range s.Languages() {
			fc.Languages[strings.ToLower(l)]++
		}
	}
	return fc
}
