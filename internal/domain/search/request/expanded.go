package request

import "strings"

// Expanded is a normalized query with its thesaurus expansion.
// Terms always starts with Normalized and holds no case-insensitive duplicates.
type Expanded struct {
	normalized string
	tokens     []string
	terms      []string
}

// NewExpanded builds an Expanded from the normalized query and its extra terms.
func NewExpanded(normalized string, extra []string) Expanded {
	terms := make([]string, 0, len(extra)+1)
	seen := make(map[string]struct{}, len(extra)+1)
	add := func(t string) {
		k := strings.ToLower(t)
		if k == "" {
			return
		}
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		terms = append(terms, t)
	}
	add(normalized)
	for _, t := range extra {
		add(t)
	}
	return Expanded{
		normalized: normalized,
		tokens:     strings.Fields(normalized),
		terms:      terms,
	}
}

// Normalized returns the canonical query string.
func (e Expanded) Normalized() string { return e.normalized }

// Tokens returns the whitespace-separated tokens of the normalized query.
func (e Expanded) Tokens() []string { return e.tokens }

// Terms returns the normalized query followed by expansion terms.
func (e Expanded) Terms() []string {
	out := make([]string, len(e.terms))
	copy(out, e.terms)
	return out
}

// ExpansionTerms returns the terms added beyond the normalized query.
func (e Expanded) ExpansionTerms() []string {
	if len(e.terms) <= 1 {
		return nil
	}
	out := make([]string, len(e.terms)-1)
	copy(out, e.terms[1:])
	return out
}

// IsEmpty reports whether there is no query text.
func (e Expanded) IsEmpty() bool { return e.normalized == "" }
