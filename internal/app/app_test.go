package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kailas-cloud/scaledex/internal/config"
	"github.com/kailas-cloud/scaledex/internal/domain"
	"github.com/kailas-cloud/scaledex/internal/domain/search/mode"
	embeddinguc "github.com/kailas-cloud/scaledex/internal/usecase/embedding"
)

func TestOpenStore_BadgerInMemory(t *testing.T) {
	store, err := OpenStore(context.Background(), config.DatabaseConfig{
		Driver:           config.DriverBadger,
		Badger:           config.BadgerConfig{InMemory: true},
		ReadinessTimeout: 1,
	}, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	assert.NoError(t, store.Ping(context.Background()))
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	_, err := OpenStore(context.Background(), config.DatabaseConfig{Driver: "valkey"}, zap.NewNop())
	assert.Error(t, err)
}

func TestEngineConfig(t *testing.T) {
	cfg := EngineConfig(config.SearchConfig{
		MaxExpansionTerms: 3,
		Weights:           map[string]config.WeightsConfig{"hybrid": {Keyword: 0.8, Semantic: 0.2}},
		Boosts:            &config.BoostsConfig{UsageFactor: 0.2, UsageCapText: 5, UsageCapBlended: 10, StatusBoost: 1, VectorScale: 50},
	})

	assert.Equal(t, 3, cfg.MaxExpansionTerms)
	assert.Equal(t, 0.8, cfg.Weights[mode.Hybrid].Keyword)
	assert.Equal(t, 1.0, cfg.Weights[mode.Keyword].Keyword, "unlisted modes keep defaults")
	assert.Equal(t, 50.0, cfg.Boosts.VectorScale)
}

func TestEngineConfig_DefaultBoosts(t *testing.T) {
	cfg := EngineConfig(config.SearchConfig{})
	assert.Equal(t, 100.0, cfg.Boosts.VectorScale)
}

func TestNewEngine_BadThesaurusPath(t *testing.T) {
	_, err := NewEngine(config.SearchConfig{ThesaurusPath: "/nonexistent/thesaurus.yaml"}, zap.NewNop())
	assert.Error(t, err)
}

func TestNewQueryEmbedder_Chain(t *testing.T) {
	base := config.EmbeddingConfig{APIKey: "k", Model: "m"}

	plain := NewQueryEmbedder(base, nil, zap.NewNop())
	assert.IsType(t, &embeddinguc.InstrumentedEmbedder{}, plain)

	withInstruction := base
	withInstruction.QueryInstruction = "query: "
	assert.IsType(t, &domain.InstructionEmbedder{}, NewQueryEmbedder(withInstruction, nil, zap.NewNop()))
}
