package access

import (
	"context"
	"time"

	domaccess "github.com/kailas-cloud/scaledex/internal/domain/access"
)

// Store counts requests per identity key inside a TTL window.
// Implementations must make Increment atomic per key.
type Store interface {
	// Increment adds one to key. A missing or expired key starts a new window ending at now+window.
	Increment(ctx context.Context, key string, window time.Duration, now time.Time) (domaccess.State, error)
	// Get returns the live state for key; ok is false when absent or expired.
	Get(ctx context.Context, key string, now time.Time) (state domaccess.State, ok bool, err error)
}
