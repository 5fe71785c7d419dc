package redis

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/scaledex/internal/db"
)

// Get retrieves a value by key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	cmd := s.b().Get().Key(key).Build()
	data, err := s.do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	return data, nil
}

// Set stores a value at the given key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	cmd := s.b().Set().Key(key).Value(string(value)).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	return nil
}

// SetWithTTL stores a value with an expiration.
func (s *Store) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	cmd := s.b().Set().Key(key).Value(string(value)).Ex(ttl).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	return nil
}

// IncrBy atomically increments a key by the given amount and returns the new value.
func (s *Store) IncrBy(ctx context.Context, key string, val int64) (int64, error) {
	cmd := s.b().Incrby().Key(key).Increment(val).Build()
	n, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpIncrBy, Err: err}
	}
	return n, nil
}

// Expire sets TTL on a key. When nx=true, sets TTL only if the key has no expiry yet (EXPIRE NX).
func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error {
	if err := s.do(ctx, s.expireCmd(key, ttl, nx)).Error(); err != nil {
		return &db.Error{Op: db.OpExpire, Err: err}
	}
	return nil
}

// PTTL returns the remaining lifetime of key.
func (s *Store) PTTL(ctx context.Context, key string) (time.Duration, error) {
	cmd := s.b().Pttl().Key(key).Build()
	ms, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpPTTL, Err: err}
	}
	return pttlDuration(ms)
}

// IncrWithTTL pipelines INCRBY, EXPIRE NX and PTTL.
func (s *Store) IncrWithTTL(ctx context.Context, key string, val int64, ttl time.Duration) (int64, time.Duration, error) {
	results := s.client.DoMulti(ctx,
		s.b().Incrby().Key(key).Increment(val).Build(),
		s.expireCmd(key, ttl, true),
		s.b().Pttl().Key(key).Build(),
	)
	n, err := results[0].AsInt64()
	if err != nil {
		return 0, 0, &db.Error{Op: db.OpIncrBy, Err: err}
	}
	if err := results[1].Error(); err != nil {
		return 0, 0, &db.Error{Op: db.OpExpire, Err: err}
	}
	ms, err := results[2].AsInt64()
	if err != nil {
		return 0, 0, &db.Error{Op: db.OpPTTL, Err: err}
	}
	left, err := pttlDuration(ms)
	if err != nil {
		return 0, 0, err
	}
	return n, left, nil
}

func (s *Store) expireCmd(key string, ttl time.Duration, nx bool) rueidis.Completed {
	secs := int64(math.Ceil(ttl.Seconds()))
	if secs < 1 {
		secs = 1
	}
	if nx {
		return s.b().Expire().Key(key).Seconds(secs).Nx().Build()
	}
	return s.b().Expire().Key(key).Seconds(secs).Build()
}

// pttlDuration maps the PTTL reply: -2 missing key, -1 no expiry.
func pttlDuration(ms int64) (time.Duration, error) {
	switch {
	case ms == -2:
		return 0, db.ErrKeyNotFound
	case ms < 0:
		return -1, nil
	default:
		return time.Duration(ms) * time.Millisecond, nil
	}
}

// HIncrByFields wraps one HINCRBY per field in MULTI/EXEC.
func (s *Store) HIncrByFields(ctx context.Context, key string, fields []string, val int64) error {
	if len(fields) == 0 {
		return nil
	}
	cmds := make([]rueidis.Completed, 0, len(fields)+2)
	cmds = append(cmds, s.b().Multi().Build())
	for _, f := range fields {
		cmds = append(cmds, s.b().Hincrby().Key(key).Field(f).Increment(val).Build())
	}
	cmds = append(cmds, s.b().Exec().Build())

	results := s.client.DoMulti(ctx, cmds...)
	for _, r := range results {
		if err := r.Error(); err != nil {
			return &db.Error{Op: db.OpHIncrBy, Err: fmt.Errorf("%s: %w", key, err)}
		}
	}
	// EXEC reports per-command failures inside its array reply.
	replies, err := results[len(results)-1].ToArray()
	if err != nil {
		return &db.Error{Op: db.OpHIncrBy, Err: fmt.Errorf("%s exec: %w", key, err)}
	}
	for i := range replies {
		if err := replies[i].Error(); err != nil {
			return &db.Error{Op: db.OpHIncrBy, Err: fmt.Errorf("%s.%s: %w", key, fields[i], err)}
		}
	}
	return nil
}

// HGetAll returns all fields of a hash. A missing key yields an empty map.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	cmd := s.b().Hgetall().Key(key).Build()
	m, err := s.do(ctx, cmd).AsStrMap()
	if err != nil {
		return nil, &db.Error{Op: db.OpHGetAll, Err: err}
	}
	return m, nil
}
