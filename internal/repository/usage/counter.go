package usage

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/scaledex/internal/domain"
	"github.com/kailas-cloud/scaledex/internal/domain/search/mode"
	domusage "github.com/kailas-cloud/scaledex/internal/domain/usage"
)

var keyPrefix = domain.KeyPrefix + "usage:"

// Hash fields.
const (
	fieldSearches  = "searches"
	fieldAnonymous = "anonymous"
	fieldDegraded  = "degraded"
	modePrefix     = "mode:"
)

// DefaultDailyTTL keeps day buckets for 90 days.
const DefaultDailyTTL = 90 * 24 * time.Hour

// store is the consumer interface for usage counters (ISP).
type store interface {
	HIncrByFields(ctx context.Context, key string, fields []string, val int64) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Counter aggregates usage events into per-day and total hashes.
type Counter struct {
	store    store
	dailyTTL time.Duration
}

// New creates a usage counter. dailyTTL <= 0 uses DefaultDailyTTL.
func New(s store, dailyTTL time.Duration) *Counter {
	if dailyTTL <= 0 {
		dailyTTL = DefaultDailyTTL
	}
	return &Counter{store: s, dailyTTL: dailyTTL}
}

func bucketKey(bucket string) string { return keyPrefix + bucket }

// Record implements the usage sink.
func (c *Counter) Record(ctx context.Context, e domusage.Event) error {
	fields := []string{fieldSearches, modePrefix + string(e.Mode())}
	if !e.Authenticated() {
		fields = append(fields, fieldAnonymous)
	}
	if e.Degraded() {
		fields = append(fields, fieldDegraded)
	}

	day := bucketKey(domusage.PeriodDay.Bucket(e.OccurredAt()))
	total := bucketKey(domusage.PeriodTotal.Bucket(e.OccurredAt()))
	// Each bucket takes all of its fields at once so readers never see a partial event.
	for _, key := range []string{day, total} {
		if err := c.store.HIncrByFields(ctx, key, fields, 1); err != nil {
			return fmt.Errorf("usage HINCRBY %s: %w", key, err)
		}
	}
	if err := c.store.Expire(ctx, day, c.dailyTTL, true); err != nil {
		return fmt.Errorf("usage EXPIRE %s: %w", day, err)
	}
	return nil
}

// Counters reads the aggregated counts of a bucket.
func (c *Counter) Counters(ctx context.Context, bucket string) (domusage.Counters, error) {
	key := bucketKey(bucket)
	h, err := c.store.HGetAll(ctx, key)
	if err != nil {
		return domusage.Counters{}, fmt.Errorf("usage HGETALL %s: %w", key, err)
	}

	out := domusage.Counters{ByMode: make(map[mode.Mode]int64)}
	for f, raw := range h {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return domusage.Counters{}, fmt.Errorf("usage %s field %s parse: %w", key, f, err)
		}
		switch {
		case f == fieldSearches:
			out.Searches = n
		case f == fieldAnonymous:
			out.Anonymous = n
		case f == fieldDegraded:
			out.Degraded = n
		case strings.HasPrefix(f, modePrefix):
			out.ByMode[mode.Mode(strings.TrimPrefix(f, modePrefix))] = n
		}
	}
	return out, nil
}
