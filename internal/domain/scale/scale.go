package scale

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// ValidationStatus is the lifecycle stage of a scale's data quality.
type ValidationStatus string

// Validation status constants.
const (
	StatusDraft     ValidationStatus = "draft"
	StatusValidated ValidationStatus = "validated"
	StatusPublished ValidationStatus = "published"
)

// IsValid checks if the status is one of the supported values.
func (s ValidationStatus) IsValid() bool {
	return s == StatusDraft || s == StatusValidated || s == StatusPublished
}

// IsTrusted reports whether the status earns the validation boost.
func (s ValidationStatus) IsTrusted() bool {
	return s == StatusValidated || s == StatusPublished
}

// Fields is the flat input used to build a Scale.
type Fields struct {
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
	Public           bool
	UpdatedAt        time.Time
}

// Scale is a clinical assessment instrument considered for a search (immutable value object).
type Scale struct {
	f Fields
}

// New validates and creates a Scale.
// ID: ^[a-zA-Z0-9_.-]+$, 1-128 chars. At least one of name/English name is required.
func New(f Fields) (Scale, error) {
	if f.ID == "" {
		return Scale{}, fmt.Errorf("scale ID is required")
	}
	if len(f.ID) > 128 {
		return Scale{}, fmt.Errorf("scale ID too long (max 128)")
	}
	if !idRegex.MatchString(f.ID) {
		return Scale{}, fmt.Errorf("scale ID %q must be alphanumeric with '_', '.', '-'", f.ID)
	}
	if f.Name == "" && f.NameEn == "" {
		return Scale{}, fmt.Errorf("scale %q needs a name", f.ID)
	}
	if f.Status == "" {
		f.Status = StatusDraft
	}
	if !f.Status.IsValid() {
		return Scale{}, fmt.Errorf("scale %q: invalid validation status %q", f.ID, f.Status)
	}
	if f.ItemCount < 0 || f.AdminMinutes < 0 {
		return Scale{}, fmt.Errorf("scale %q: numeric facets must be non-negative", f.ID)
	}
	if f.UsageCount < 0 || f.FavoriteCount < 0 {
		return Scale{}, fmt.Errorf("scale %q: popularity counters must be non-negative", f.ID)
	}

	f.Languages = cloneStrings(f.Languages)
	f.Domains = cloneStrings(f.Domains)
	if f.Embedding != nil {
		f.Embedding = append([]float32(nil), f.Embedding...)
	}
	return Scale{f: f}, nil
}

// Reconstruct creates a Scale without validation (storage hydration).
func Reconstruct(f Fields) Scale {
	return Scale{f: f}
}

// ID returns the scale identifier.
func (s *Scale) ID() string { return s.f.ID }

// Name returns the native-language name.
func (s *Scale) Name() string { return s.f.Name }

// NameEn returns the English name.
func (s *Scale) NameEn() string { return s.f.NameEn }

// DisplayName returns the name used for sorting and presentation.
func (s *Scale) DisplayName() string {
	if s.f.Name != "" {
		return s.f.Name
	}
	return s.f.NameEn
}

// Acronym returns the short form, e.g. "PHQ-9".
func (s *Scale) Acronym() string { return s.f.Acronym }

// Description returns the native-language description.
func (s *Scale) Description() string { return s.f.Description }

// DescriptionEn returns the English description.
func (s *Scale) DescriptionEn() string { return s.f.DescriptionEn }

// Category returns the scale category.
func (s *Scale) Category() string { return s.f.Category }

// ItemCount returns the number of items.
func (s *Scale) ItemCount() int { return s.f.ItemCount }

// AdminMinutes returns the administration time in minutes.
func (s *Scale) AdminMinutes() float64 { return s.f.AdminMinutes }

// TargetPopulation returns the intended population.
func (s *Scale) TargetPopulation() string { return s.f.TargetPopulation }

// Languages returns the available languages.
func (s *Scale) Languages() []string { return s.f.Languages }

// Domains returns the domain tags.
func (s *Scale) Domains() []string { return s.f.Domains }

// Status returns the validation status.
func (s *Scale) Status() ValidationStatus { return s.f.Status }

// UsageCount returns how often the scale was used.
func (s *Scale) UsageCount() int64 { return s.f.UsageCount }

// FavoriteCount returns how often the scale was favorited.
func (s *Scale) FavoriteCount() int64 { return s.f.FavoriteCount }

// Embedding returns the stored embedding (nil if never computed).
func (s *Scale) Embedding() []float32 { return s.f.Embedding }

// IsPublic reports whether the scale is visible to searches.
func (s *Scale) IsPublic() bool { return s.f.Public }

// UpdatedAt returns the last modification time.
func (s *Scale) UpdatedAt() time.Time { return s.f.UpdatedAt }

// Fields returns a copy of the flat representation (used by storage adapters).
func (s *Scale) Fields() Fields { return s.f }

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// EmbeddingText is the text a catalog embedding is computed from.
func (s *Scale) EmbeddingText() string {
	parts := make([]string, 0, 5)
	for _, p := range []string{s.f.NameEn, s.f.Name, s.f.Acronym, s.f.DescriptionEn, s.f.Description} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n")
}

// WithEmbedding returns a copy of the scale carrying v.
func (s Scale) WithEmbedding(v []float32) Scale {
	f := s.f
	f.Embedding = append([]float32(nil), v...)
	return Scale{f: f}
}
