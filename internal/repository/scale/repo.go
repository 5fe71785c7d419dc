package scale

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/scaledex/internal/db"
	"github.com/kailas-cloud/scaledex/internal/domain"
	domscale "github.com/kailas-cloud/scaledex/internal/domain/scale"
	"github.com/kailas-cloud/scaledex/internal/domain/search/filter"
)

var keyPrefix = domain.KeyPrefix + "scale:"

const (
	// DefaultSnapshotTTL is how long a loaded catalog is served before the next scan.
	DefaultSnapshotTTL = 30 * time.Second
	batchSize          = 100
)

// store is the consumer interface for scale documents (ISP).
type store interface {
	JSONSetMulti(ctx context.Context, items []db.JSONSetItem) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	JSONMGet(ctx context.Context, keys []string, path string) ([][]byte, error)
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo stores scales as JSON documents and serves them as the search candidate snapshot.
type Repo struct {
	store  store
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time

	mu       sync.RWMutex
	snapshot []domscale.Scale
	loadedAt time.Time
}

// Option configures a Repo.
type Option func(*Repo)

// WithSnapshotTTL sets the snapshot lifetime. Zero reloads on every Fetch.
func WithSnapshotTTL(d time.Duration) Option {
	return func(r *Repo) { r.ttl = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Repo) { r.logger = l }
}

// New creates a scale repository.
func New(s store, opts ...Option) *Repo {
	r := &Repo{store: s, ttl: DefaultSnapshotTTL, logger: zap.NewNop(), now: time.Now}
	for _, o := range opts {
		o(r)
	}
	return r
}

func scaleKey(id string) string { return keyPrefix + id }

// Fetch returns the public scales matching facets.
func (r *Repo) Fetch(ctx context.Context, facets filter.Facets) ([]domscale.Scale, error) {
	all, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domscale.Scale, 0, len(all))
	for i := range all {
		if facets.Matches(&all[i]) {
			out = append(out, all[i])
		}
	}
	return out, nil
}

// Count returns the number of public scales.
func (r *Repo) Count(ctx context.Context) (int, error) {
	all, err := r.load(ctx)
	if err != nil {
		return 0, err
	}
	return len(all), nil
}

// Get returns a scale by ID, public or not.
func (r *Repo) Get(ctx context.Context, id string) (domscale.Scale, error) {
	key := scaleKey(id)
	raw, err := r.store.JSONGet(ctx, key, "$")
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domscale.Scale{}, domain.ErrNotFound
		}
		return domscale.Scale{}, fmt.Errorf("json.get %s: %w", key, err)
	}
	doc, err := parseJSONGetResult(raw)
	if err != nil {
		return domscale.Scale{}, err
	}
	return doc.Scale()
}

// Import upserts scales in batches and invalidates the snapshot.
func (r *Repo) Import(ctx context.Context, scales []domscale.Scale) (int, error) {
	written := 0
	for start := 0; start < len(scales); start += batchSize {
		end := min(start+batchSize, len(scales))
		items := make([]db.JSONSetItem, 0, end-start)
		for i := start; i < end; i++ {
			data, err := json.Marshal(ToDoc(&scales[i]))
			if err != nil {
				return written, fmt.Errorf("marshal scale %s: %w", scales[i].ID(), err)
			}
			items = append(items, db.JSONSetItem{Key: scaleKey(scales[i].ID()), Path: "$", Data: data})
		}
		if err := r.store.JSONSetMulti(ctx, items); err != nil {
			r.Invalidate()
			return written, fmt.Errorf("json.set batch at %d: %w", start, err)
		}
		written += len(items)
	}
	r.Invalidate()
	return written, nil
}

// Delete removes a scale.
func (r *Repo) Delete(ctx context.Context, id string) error {
	key := scaleKey(id)
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	r.Invalidate()
	return nil
}

// Invalidate drops the cached snapshot.
func (r *Repo) Invalidate() {
	r.mu.Lock()
	r.snapshot = nil
	r.loadedAt = time.Time{}
	r.mu.Unlock()
}

// load returns the public catalog, reusing the snapshot while fresh.
func (r *Repo) load(ctx context.Context) ([]domscale.Scale, error) {
	r.mu.RLock()
	if r.snapshot != nil && r.now().Sub(r.loadedAt) < r.ttl {
		snap := r.snapshot
		r.mu.RUnlock()
		return snap, nil
	}
	r.mu.RUnlock()

	all, err := r.scanAll(ctx)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.snapshot = all
	r.loadedAt = r.now()
	r.mu.Unlock()
	return all, nil
}

func (r *Repo) scanAll(ctx context.Context) ([]domscale.Scale, error) {
	keys, err := r.store.Scan(ctx, keyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan scales: %w", err)
	}

	out := make([]domscale.Scale, 0, len(keys))
	for start := 0; start < len(keys); start += batchSize {
		batch := keys[start:min(start+batchSize, len(keys))]
		docs, err := r.store.JSONMGet(ctx, batch, "$")
		if err != nil {
			return nil, fmt.Errorf("json.mget scales: %w", err)
		}
		for i, raw := range docs {
			if raw == nil {
				continue // deleted between SCAN and MGET
			}
			doc, err := parseJSONGetResult(raw)
			if err == nil {
				var s domscale.Scale
				s, err = doc.Scale()
				if err == nil {
					if s.IsPublic() {
						out = append(out, s)
					}
					continue
				}
			}
			r.logger.Warn("Skipping unreadable scale",
				zap.String("key", strings.TrimPrefix(batch[i], keyPrefix)),
				zap.Error(err),
			)
		}
	}
	return out, nil
}
