package mode

// Mode is the search strategy.
type Mode string

// Search mode constants.
const (
	Keyword  Mode = "keyword"
	Semantic Mode = "semantic"
	// Hybrid combines keyword and semantic scoring, plus vector when an embedding is present.
	Hybrid Mode = "hybrid"
	// Vector weights keyword, semantic and cosine similarity together.
	Vector Mode = "vector"
	// Advanced is the facet-only path; text scoring runs only when a query is given.
	Advanced Mode = "advanced"
)

// All lists the supported modes in declaration order.
var All = []Mode{Keyword, Semantic, Hybrid, Vector, Advanced}

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	switch m {
	case Keyword, Semantic, Hybrid, Vector, Advanced:
		return true
	}
	return false
}

// RequiresText reports whether a query string must be supplied.
func (m Mode) RequiresText() bool {
	return m != Advanced
}

// WantsVector reports whether the mode uses the vector strategy when an embedding exists.
func (m Mode) WantsVector() bool {
	return m == Hybrid || m == Vector
}
