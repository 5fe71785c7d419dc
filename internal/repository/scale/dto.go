package scale

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/kailas-cloud/scaledex/internal/domain"
	domscale "github.com/kailas-cloud/scaledex/internal/domain/scale"
)

// Doc is the stored and file-catalog JSON shape of a scale.
type Doc struct {
	ID               string    `json:"id"`
	Name             string    `json:"name,omitempty"`
	NameEn           string    `json:"name_en,omitempty"`
	Acronym          string    `json:"acronym,omitempty"`
	Description      string    `json:"description,omitempty"`
	DescriptionEn    string    `json:"description_en,omitempty"`
	Category         string    `json:"category,omitempty"`
	ItemCount        int       `json:"item_count,omitempty"`
	AdminMinutes     float64   `json:"admin_minutes,omitempty"`
	TargetPopulation string    `json:"target_population,omitempty"`
	Languages        []string  `json:"languages,omitempty"`
	Domains          []string  `json:"domains,omitempty"`
	Status           string    `json:"validation_status,omitempty"`
	UsageCount       int64     `json:"usage_count,omitempty"`
	FavoriteCount    int64     `json:"favorite_count,omitempty"`
	Embedding        []float32 `json:"embedding,omitempty"`
	// Public defaults to true when absent.
	Public    *bool     `json:"public,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// ToDoc converts a scale to its JSON document.
func ToDoc(s *domscale.Scale) Doc {
	f := s.Fields()
	public := f.Public
	return Doc{
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
		Status:           string(f.Status),
		UsageCount:       f.UsageCount,
		FavoriteCount:    f.FavoriteCount,
		Embedding:        f.Embedding,
		Public:           &public,
		UpdatedAt:        f.UpdatedAt,
	}
}

// Scale validates the document and builds a domain scale.
func (d *Doc) Scale() (domscale.Scale, error) {
	public := true
	if d.Public != nil {
		public = *d.Public
	}
	s, err := domscale.New(domscale.Fields{
		ID:               d.ID,
		Name:             d.Name,
		NameEn:           d.NameEn,
		Acronym:          d.Acronym,
		Description:      d.Description,
		DescriptionEn:    d.DescriptionEn,
		Category:         d.Category,
		ItemCount:        d.ItemCount,
		AdminMinutes:     d.AdminMinutes,
		TargetPopulation: d.TargetPopulation,
		Languages:        d.Languages,
		Domains:          d.Domains,
		Status:           domscale.ValidationStatus(d.Status),
		UsageCount:       d.UsageCount,
		FavoriteCount:    d.FavoriteCount,
		Embedding:        d.Embedding,
		Public:           public,
		UpdatedAt:        d.UpdatedAt,
	})
	if err != nil {
		return domscale.Scale{}, fmt.Errorf("%w: %w", domain.ErrInvalidScale, err)
	}
	return s, nil
}

// DecodeCatalog reads a JSON array of scale documents.
// Every invalid record is reported; valid ones are still returned.
func DecodeCatalog(r io.Reader) ([]domscale.Scale, error) {
	var docs []Doc
	if err := json.NewDecoder(r).Decode(&docs); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	out := make([]domscale.Scale, 0, len(docs))
	var errs []error
	seen := make(map[string]int, len(docs))
	for i := range docs {
		s, err := docs[i].Scale()
		if err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		if j, dup := seen[s.ID()]; dup {
			errs = append(errs, fmt.Errorf("record %d: %w: duplicate id %q (first at %d)", i, domain.ErrInvalidScale, s.ID(), j))
			continue
		}
		seen[s.ID()] = i
		out = append(out, s)
	}
	return out, errors.Join(errs...)
}

// parseJSONGetResult unwraps the one-element array returned for path "$".
func parseJSONGetResult(raw []byte) (Doc, error) {
	var docs []Doc
	if err := json.Unmarshal(raw, &docs); err != nil {
		return Doc{}, fmt.Errorf("unmarshal scale doc: %w", err)
	}
	if len(docs) == 0 {
		return Doc{}, fmt.Errorf("empty JSON.GET result")
	}
	return docs[0], nil
}
