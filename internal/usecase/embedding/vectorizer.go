package embedding

import (
	"context"
	"fmt"
	"math"

	"github.com/kailas-cloud/scaledex/internal/domain"
)

// Vectorizer adapts an Embedder to the query-vector contract of the search service.
// An empty or non-finite vector is reported as ErrEmbeddingUnavailable.
type Vectorizer struct {
	embedder   domain.Embedder
	dimensions int
}

// NewVectorizer creates a Vectorizer. dimensions > 0 rejects vectors of any other length.
func NewVectorizer(embedder domain.Embedder, dimensions int) *Vectorizer {
	return &Vectorizer{embedder: embedder, dimensions: dimensions}
}

// Vectorize embeds the normalized query text.
func (v *Vectorizer) Vectorize(ctx context.Context, text string) ([]float32, error) {
	res, err := v.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("vectorize: %w", err)
	}
	if len(res.Embedding) == 0 {
		return nil, fmt.Errorf("vectorize: empty vector: %w", domain.ErrEmbeddingUnavailable)
	}
	if v.dimensions > 0 && len(res.Embedding) != v.dimensions {
		return nil, fmt.Errorf("vectorize: got %d dimensions, want %d: %w",
			len(res.Embedding), v.dimensions, domain.ErrEmbeddingUnavailable)
	}
	for _, x := range res.Embedding {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return nil, fmt.Errorf("vectorize: non-finite component: %w", domain.ErrEmbeddingUnavailable)
		}
	}
	return res.Embedding, nil
}
