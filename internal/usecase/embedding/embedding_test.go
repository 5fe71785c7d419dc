package embedding

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/scaledex/internal/domain"
)

type mockEmbedder struct {
	result  domain.EmbeddingResult
	err     error
	healthy error
	text    string
	delay   time.Duration
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.text = text
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	return m.result, m.err
}

func (m *mockEmbedder) HealthCheck(context.Context) error { return m.healthy }

func TestInstrumentedEmbedder_Success(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}, TotalTokens: 4}}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", 0, zap.NewNop())

	result, err := p.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 {
		t.Fatalf("expected 3 dimensions, got %d", len(result.Embedding))
	}
}

func TestInstrumentedEmbedder_Error(t *testing.T) {
	inner := &mockEmbedder{err: domain.ErrEmbeddingProviderError}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", 0, nil)

	_, err := p.Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected wrapped ErrEmbeddingProviderError, got %v", err)
	}
}

func TestInstrumentedEmbedder_SlowWarning(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	inner := &mockEmbedder{
		result: domain.EmbeddingResult{Embedding: []float32{1}},
		delay:  20 * time.Millisecond,
	}
	p := NewInstrumentedEmbedder(inner, "test", "m", 5*time.Millisecond, zap.New(core))

	if _, err := p.Embed(context.Background(), "депрессия"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entries := logs.FilterMessage("Slow query embedding").All()
	if len(entries) != 1 {
		t.Fatalf("expected one slow warning, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["query_runes"] != int64(9) {
		t.Errorf("query_runes = %v, want 9", fields["query_runes"])
	}
	if _, ok := fields["text"]; ok {
		t.Error("query text must not be logged")
	}
}

func TestInstrumentedEmbedder_FastIsDebug(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}
	p := NewInstrumentedEmbedder(inner, "test", "m", time.Second, zap.New(core))

	if _, err := p.Embed(context.Background(), "phq"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logs.FilterMessage("Slow query embedding").Len() != 0 {
		t.Error("fast call must not warn")
	}
	if logs.FilterMessage("Query embedding completed").Len() != 1 {
		t.Error("expected debug completion entry")
	}
}

func TestInstrumentedEmbedder_HealthCheck(t *testing.T) {
	inner := &mockEmbedder{healthy: errors.New("down")}
	p := NewInstrumentedEmbedder(inner, "test", "m", 0, nil)
	if err := p.HealthCheck(context.Background()); err == nil {
		t.Error("expected health error from inner")
	}
}

func TestVectorizer(t *testing.T) {
	tests := []struct {
		name    string
		inner   *mockEmbedder
		dims    int
		wantErr error
	}{
		{"ok", &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1, 0, 0}}}, 3, nil},
		{"any dims", &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1, 0}}}, 0, nil},
		{"provider error", &mockEmbedder{err: domain.ErrEmbeddingProviderError}, 3, domain.ErrEmbeddingProviderError},
		{"empty", &mockEmbedder{}, 3, domain.ErrEmbeddingUnavailable},
		{"wrong dims", &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1, 0}}}, 3, domain.ErrEmbeddingUnavailable},
		{"nan", &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{float32(math.NaN())}}}, 0, domain.ErrEmbeddingUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewVectorizer(tt.inner, tt.dims)
			vec, err := v.Vectorize(context.Background(), "depression")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil || len(vec) == 0 {
				t.Fatalf("vec=%v err=%v", vec, err)
			}
			if tt.inner.text != "depression" {
				t.Errorf("embedder got %q", tt.inner.text)
			}
		})
	}
}
