package thesaurus

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Entry maps a clinical term to its synonyms, translations and abbreviations.
type Entry struct {
	Key    string   `yaml:"key"`
	Values []string `yaml:"values"`
}

// Thesaurus is an immutable bilingual lookup table.
// Forward entries keep declaration order; reverse entries are generated
// from values and follow all forward entries.
type Thesaurus struct {
	forward []Entry
	reverse []Entry
}

// New validates entries and builds the reverse index.
// Keys and values are NFKC-normalized and lowercased.
func New(entries []Entry) (*Thesaurus, error) {
	t := &Thesaurus{}
	forwardIdx := make(map[string]int, len(entries))
	for i, e := range entries {
		key := canonical(e.Key)
		if key == "" {
			return nil, fmt.Errorf("thesaurus entry %d: key is required", i)
		}
		values := dedup(key, e.Values)
		if len(values) == 0 {
			return nil, fmt.Errorf("thesaurus entry %q: at least one value is required", e.Key)
		}
		if j, ok := forwardIdx[key]; ok {
			t.forward[j].Values = dedup(key, append(t.forward[j].Values, values...))
			continue
		}
		forwardIdx[key] = len(t.forward)
		t.forward = append(t.forward, Entry{Key: key, Values: values})
	}

	reverseIdx := make(map[string]int)
	for _, e := range t.forward {
		for _, v := range e.Values {
			if _, isForward := forwardIdx[v]; isForward {
				continue
			}
			group := make([]string, 0, len(e.Values))
			group = append(group, e.Key)
			group = append(group, e.Values...)
			if j, ok := reverseIdx[v]; ok {
				t.reverse[j].Values = dedup(v, append(t.reverse[j].Values, group...))
				continue
			}
			reverseIdx[v] = len(t.reverse)
			t.reverse = append(t.reverse, Entry{Key: v, Values: dedup(v, group)})
		}
	}
	return t, nil
}

// MustNew is New for static tables; it panics on invalid input.
func MustNew(entries []Entry) *Thesaurus {
	t, err := New(entries)
	if err != nil {
		panic(err)
	}
	return t
}

// Len returns the number of forward entries.
func (t *Thesaurus) Len() int { return len(t.forward) }

// Entries returns a copy of the forward entries.
func (t *Thesaurus) Entries() []Entry { return cloneEntries(t.forward) }

// Match returns the entries whose key is a substring of the normalized query,
// forward first, each in declaration order. Every token is part of the query,
// so the whole string covers per-token lookups too.
func (t *Thesaurus) Match(query string) []Entry {
	if query == "" {
		return nil
	}
	var out []Entry
	for _, group := range [][]Entry{t.forward, t.reverse} {
		for _, e := range group {
			if strings.Contains(query, e.Key) {
				out = append(out, e)
			}
		}
	}
	return out
}

func canonical(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(norm.NFKC.String(s)), " "))
}

// dedup canonicalizes values, dropping blanks, duplicates and the key itself.
func dedup(key string, values []string) []string {
	seen := map[string]struct{}{key: {}}
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = canonical(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func cloneEntries(in []Entry) []Entry {
	out := make([]Entry, len(in))
	for i, e := range in {
		out[i] = Entry{Key: e.Key, Values: append([]string(nil), e.Values...)}
	}
	return out
}
