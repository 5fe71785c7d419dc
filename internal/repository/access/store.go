package access

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/scaledex/internal/db"
	"github.com/kailas-cloud/scaledex/internal/domain"
	domaccess "github.com/kailas-cloud/scaledex/internal/domain/access"
)

var keyPrefix = domain.KeyPrefix + "access:"

// store is the consumer interface for access counters (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	PTTL(ctx context.Context, key string) (time.Duration, error)
	IncrWithTTL(ctx context.Context, key string, val int64, ttl time.Duration) (int64, time.Duration, error)
}

// Store keeps anonymous quota windows in the shared database (INCRBY + EXPIRE NX + PTTL),
// so every instance sees the same count. The key TTL is the window.
type Store struct {
	store store
}

// New creates a KV-backed access store.
func New(s store) *Store {
	return &Store{store: s}
}

func counterKey(identity string) string { return keyPrefix + identity }

// Increment counts one request for identity.
func (s *Store) Increment(ctx context.Context, identity string, window time.Duration, now time.Time) (domaccess.State, error) {
	key := counterKey(identity)
	n, left, err := s.store.IncrWithTTL(ctx, key, 1, window)
	if err != nil {
		return domaccess.State{}, fmt.Errorf("access INCRBY %s: %w", key, err)
	}
	if left < 0 {
		// a key without expiry would never reset; treat it as a fresh window
		left = window
	}
	return domaccess.NewState(n, now.Add(left)), nil
}

// Get returns the live window for identity.
func (s *Store) Get(ctx context.Context, identity string, now time.Time) (domaccess.State, bool, error) {
	key := counterKey(identity)
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domaccess.State{}, false, nil
		}
		return domaccess.State{}, false, fmt.Errorf("access GET %s: %w", key, err)
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return domaccess.State{}, false, fmt.Errorf("access GET %s parse: %w", key, err)
	}
	left, err := s.store.PTTL(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domaccess.State{}, false, nil
		}
		return domaccess.State{}, false, fmt.Errorf("access PTTL %s: %w", key, err)
	}
	if left < 0 {
		left = 0
	}
	return domaccess.NewState(n, now.Add(left)), true, nil
}
