package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	JSONStore
	KVStore
	HashStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// JSONSetItem holds a single key+path+data triple for pipelined JSON.SET.
type JSONSetItem struct {
	Key  string
	Path string
	Data []byte
}

// JSONStore provides JSON document operations. Only the root path "$" is portable.
// JSONGet and JSONMGet with "$" return a one-element JSON array, as RedisJSON does.
type JSONStore interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONSetMulti(ctx context.Context, items []JSONSetItem) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	// JSONMGet returns one entry per key; missing keys yield nil.
	JSONMGet(ctx context.Context, keys []string, path string) ([][]byte, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
	// PTTL returns the remaining lifetime. A key without expiry returns a negative duration.
	PTTL(ctx context.Context, key string) (time.Duration, error)
	// IncrWithTTL increments key by val, sets ttl only if the key has no expiry yet,
	// and returns the new value with the remaining lifetime, in one round-trip.
	IncrWithTTL(ctx context.Context, key string, val int64, ttl time.Duration) (int64, time.Duration, error)
}

// HashStore provides hash counter operations.
type HashStore interface {
	// HIncrByFields increments every field of one hash by val in a single atomic step.
	HIncrByFields(ctx context.Context, key string, fields []string, val int64) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}
