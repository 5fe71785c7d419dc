// Package app assembles components from configuration for the scaledex binaries.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/scaledex/internal/config"
	"github.com/kailas-cloud/scaledex/internal/db"
	dbBadger "github.com/kailas-cloud/scaledex/internal/db/badger"
	dbRedis "github.com/kailas-cloud/scaledex/internal/db/redis"
	"github.com/kailas-cloud/scaledex/internal/domain"
	"github.com/kailas-cloud/scaledex/internal/domain/search/mode"
	"github.com/kailas-cloud/scaledex/internal/domain/search/request"
	"github.com/kailas-cloud/scaledex/internal/domain/thesaurus"
	"github.com/kailas-cloud/scaledex/internal/repository/embcache"
	openaiEmb "github.com/kailas-cloud/scaledex/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/scaledex/internal/usecase/embedding"
	searchuc "github.com/kailas-cloud/scaledex/internal/usecase/search"
)

// Provider is the metrics label of the embedding provider.
const Provider = "openai"

// OpenStore connects the configured database and waits until it answers.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (db.Store, error) {
	var (
		store db.Store
		err   error
	)
	switch cfg.Driver {
	case config.DriverRedis:
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
	case config.DriverBadger:
		store, err = dbBadger.NewStore(dbBadger.Config{
			Path:     cfg.Badger.Path,
			InMemory: cfg.Badger.InMemory,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s store: %w", cfg.Driver, err)
	}

	if err := store.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	return store, nil
}

// EngineConfig converts the search section into ranking settings.
func EngineConfig(cfg config.SearchConfig) searchuc.Config {
	out := searchuc.DefaultConfig()
	out.MaxExpansionTerms = cfg.MaxExpansionTerms
	out.ChunkSize = cfg.ChunkSize
	for name, w := range cfg.Weights {
		out.Weights[mode.Mode(name)] = request.Weights{Keyword: w.Keyword, Semantic: w.Semantic}
	}
	if b := cfg.Boosts; b != nil {
		out.Boosts = searchuc.Boosts{
			UsageFactor:     b.UsageFactor,
			UsageCapText:    b.UsageCapText,
			UsageCapBlended: b.UsageCapBlended,
			StatusBoost:     b.StatusBoost,
			VectorScale:     b.VectorScale,
		}
	}
	return out
}

// NewEngine loads the thesaurus and builds a ranking engine.
func NewEngine(cfg config.SearchConfig, logger *zap.Logger, opts ...searchuc.Option) (*searchuc.Engine, error) {
	th, err := thesaurus.LoadFile(cfg.ThesaurusPath)
	if err != nil {
		return nil, fmt.Errorf("thesaurus: %w", err)
	}
	opts = append([]searchuc.Option{searchuc.WithLogger(logger)}, opts...)
	return searchuc.NewEngine(th, EngineConfig(cfg), opts...), nil
}

// NewProviderEmbedder creates the raw OpenAI-compatible client.
func NewProviderEmbedder(cfg config.EmbeddingConfig, logger *zap.Logger) *openaiEmb.Embedder {
	return openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   Provider,
		Logger:     logger,
	})
}

// NewQueryEmbedder assembles the decorator chain:
// OpenAI -> Cached -> Instrumented -> Instruction. store may be nil (no cache).
func NewQueryEmbedder(cfg config.EmbeddingConfig, store db.KVStore, logger *zap.Logger) domain.Embedder {
	var embedder domain.Embedder = NewProviderEmbedder(cfg, logger)

	if cfg.Cache.Enabled && store != nil {
		ttl := time.Duration(cfg.Cache.TTLHours) * time.Hour
		embedder = embcache.New(embedder, store, embcache.Config{
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			TTL:        ttl,
		}, logger)
	}

	// Searches give up at cfg.Timeout(); warn well before that.
	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, Provider, cfg.Model, cfg.Timeout()/2, logger)

	// Instruction prefix is outermost so the cache key includes it.
	if cfg.QueryInstruction != "" {
		return domain.NewInstructionEmbedder(embedder, cfg.QueryInstruction)
	}
	return embedder
}
