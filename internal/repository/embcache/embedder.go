package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/scaledex/internal/db"
	"github.com/kailas-cloud/scaledex/internal/domain"
	"github.com/kailas-cloud/scaledex/internal/metrics"
)

var cacheKeyPrefix = domain.KeyPrefix + "emb_cache:"

// DefaultTTL keeps query embeddings for a week.
const DefaultTTL = 7 * 24 * time.Hour

// store is the consumer interface for the embedding cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Config scopes cached vectors. Model and Dimensions are part of the contract:
// a model change never serves old vectors and a vector of the wrong size is a miss.
type Config struct {
	Model      string
	Dimensions int // 0 accepts any size
	TTL        time.Duration
}

// CachedEmbedder caches query embeddings in a key-value store.
// Queries that differ only in case or spacing share one entry.
// Concurrent misses for the same query share one upstream call.
type CachedEmbedder struct {
	inner  domain.Embedder
	store  store
	cfg    Config
	group  singleflight.Group
	logger *zap.Logger
}

// New creates a caching decorator.
func New(inner domain.Embedder, s store, cfg Config, logger *zap.Logger) *CachedEmbedder {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedEmbedder{
		inner:  inner,
		store:  s,
		cfg:    cfg,
		logger: logger,
	}
}

// Embed returns a cached embedding or calls the inner embedder.
// A hit reports TotalTokens = 0.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.cacheKey(text)

	if vec, ok := c.lookup(ctx, key); ok {
		metrics.EmbeddingCacheTotal.WithLabelValues("hit").Inc()
		return domain.EmbeddingResult{Embedding: vec}, nil
	}
	metrics.EmbeddingCacheTotal.WithLabelValues("miss").Inc()

	v, err, _ := c.group.Do(key, func() (any, error) {
		result, err := c.inner.Embed(ctx, text)
		if err != nil {
			return domain.EmbeddingResult{}, err
		}
		c.save(ctx, key, result.Embedding)
		return result, nil
	})
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed query: %w", err)
	}
	return v.(domain.EmbeddingResult), nil
}

// HealthCheck delegates to the inner embedder when it supports health checks.
func (c *CachedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}

// cacheKey hashes the model with the case-folded, whitespace-collapsed query.
func (c *CachedEmbedder) cacheKey(text string) string {
	canon := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	h := sha256.Sum256([]byte(c.cfg.Model + "\x00" + canon))
	return cacheKeyPrefix + hex.EncodeToString(h[:])
}

func (c *CachedEmbedder) lookup(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.Get(ctx, key)
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		return nil, false
	case err != nil:
		c.logger.Warn("Embedding cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	case len(data) == 0:
		return nil, false
	}

	vec, err := bytesToVector(data)
	if err != nil {
		c.logger.Warn("Corrupt cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if c.cfg.Dimensions > 0 && len(vec) != c.cfg.Dimensions {
		c.logger.Debug("Cached embedding size mismatch",
			zap.String("key", key),
			zap.Int("got", len(vec)),
			zap.Int("want", c.cfg.Dimensions),
		)
		return nil, false
	}
	return vec, true
}

func (c *CachedEmbedder) save(ctx context.Context, key string, vec []float32) {
	if len(vec) == 0 {
		return
	}
	if err := c.store.SetWithTTL(ctx, key, vectorToCacheBytes(vec), c.cfg.TTL); err != nil {
		c.logger.Warn("Embedding cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func vectorToCacheBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding cache data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
