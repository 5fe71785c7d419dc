package scaledex

import "context"

// Embedder converts query text to a vector.
// Optional: without one, vector and hybrid searches run on text scoring alone.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token counts.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}
