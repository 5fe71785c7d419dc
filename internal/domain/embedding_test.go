package domain

import (
	"context"
	"errors"
	"testing"
)

type stubEmbedder struct {
	result    EmbeddingResult
	err       error
	got       string
	healthErr error
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	s.got = text
	return s.result, s.err
}

func (s *stubEmbedder) HealthCheck(_ context.Context) error { return s.healthErr }

type plainEmbedder struct{}

func (plainEmbedder) Embed(_ context.Context, _ string) (EmbeddingResult, error) {
	return EmbeddingResult{}, nil
}

func TestInstructionEmbedder_PrependsInstruction(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}}}
	emb := NewInstructionEmbedder(inner, "query: ")

	result, err := emb.Embed(context.Background(), "depression screening")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.got != "query: depression screening" {
		t.Errorf("expected prepended text, got %q", inner.got)
	}
	if len(result.Embedding) != 3 {
		t.Errorf("expected 3-element vector, got %d", len(result.Embedding))
	}
}

func TestInstructionEmbedder_ErrorPropagation(t *testing.T) {
	innerErr := errors.New("provider down")
	emb := NewInstructionEmbedder(&stubEmbedder{err: innerErr}, "query: ")

	_, err := emb.Embed(context.Background(), "phq-9")
	if !errors.Is(err, innerErr) {
		t.Errorf("expected wrapped inner error, got %v", err)
	}
}

func TestInstructionEmbedder_HealthCheck(t *testing.T) {
	down := errors.New("unreachable")
	if err := NewInstructionEmbedder(&stubEmbedder{healthErr: down}, "").HealthCheck(context.Background()); !errors.Is(err, down) {
		t.Errorf("expected inner health error, got %v", err)
	}
	if err := NewInstructionEmbedder(plainEmbedder{}, "").HealthCheck(context.Background()); err != nil {
		t.Errorf("expected nil for embedder without health check, got %v", err)
	}
}

func TestRateLimitError(t *testing.T) {
	err := NewRateLimited(1500 * 1e6) // 1.5s
	if !errors.Is(err, ErrRateLimitExceeded) {
		t.Fatalf("expected ErrRateLimitExceeded, got %v", err)
	}
	var rle *RateLimitError
	if !errors.As(err, &rle) {
		t.Fatal("expected *RateLimitError")
	}
	if rle.RetryAfterSeconds() != 2 {
		t.Errorf("expected 2s rounded up, got %d", rle.RetryAfterSeconds())
	}

	zero := &RateLimitError{}
	if zero.RetryAfterSeconds() != 1 {
		t.Errorf("expected minimum of 1s, got %d", zero.RetryAfterSeconds())
	}
}

func TestInvalidQuery_WrapsSentinel(t *testing.T) {
	err := InvalidQuery("query too long (max %d chars)", 500)
	if !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
	if err.Error() != "invalid query: query too long (max 500 chars)" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
