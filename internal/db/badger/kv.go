package badger

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/kailas-cloud/scaledex/internal/db"
)

// Get retrieves a value by key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var val []byte
	err := s.view(ctx, func(txn *badger.Txn) error {
		v, _, err := read(txn, key)
		val = v
		return err
	})
	if err != nil {
		return nil, wrap(db.OpGet, err)
	}
	return val, nil
}

// Set stores a value without expiry.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return wrap(db.OpSet, s.update(ctx, func(txn *badger.Txn) error {
		return write(txn, key, value, 0)
	}))
}

// SetWithTTL stores a value with an expiration.
func (s *Store) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return wrap(db.OpSet, s.update(ctx, func(txn *badger.Txn) error {
		return write(txn, key, value, expiryAt(ttl))
	}))
}

// IncrBy atomically increments an integer value, keeping its expiry.
func (s *Store) IncrBy(ctx context.Context, key string, val int64) (int64, error) {
	var n int64
	err := s.update(ctx, func(txn *badger.Txn) error {
		var err error
		n, _, err = incr(txn, key, val, 0)
		return err
	})
	if err != nil {
		return 0, wrap(db.OpIncrBy, err)
	}
	return n, nil
}

// Expire sets TTL on a key. When nx=true, an existing expiry is kept. A missing key is a no-op.
func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error {
	err := s.update(ctx, func(txn *badger.Txn) error {
		val, exp, err := read(txn, key)
		if err != nil {
			return err
		}
		if nx && exp != 0 {
			return nil
		}
		return write(txn, key, val, expiryAt(ttl))
	})
	if errors.Is(err, db.ErrKeyNotFound) {
		return nil
	}
	return wrap(db.OpExpire, err)
}

// PTTL returns the remaining lifetime of key.
func (s *Store) PTTL(ctx context.Context, key string) (time.Duration, error) {
	var exp uint64
	err := s.view(ctx, func(txn *badger.Txn) error {
		_, e, err := read(txn, key)
		exp = e
		return err
	})
	if err != nil {
		return 0, wrap(db.OpPTTL, err)
	}
	return remaining(exp), nil
}

// IncrWithTTL increments key and sets ttl when it has no expiry, in one transaction.
func (s *Store) IncrWithTTL(ctx context.Context, key string, val int64, ttl time.Duration) (int64, time.Duration, error) {
	var (
		n   int64
		exp uint64
	)
	err := s.update(ctx, func(txn *badger.Txn) error {
		var err error
		n, exp, err = incr(txn, key, val, expiryAt(ttl))
		return err
	})
	if err != nil {
		return 0, 0, wrap(db.OpIncrBy, err)
	}
	return n, remaining(exp), nil
}

// incr adds val to the integer at key. defaultExp applies only when the key has no expiry.
func incr(txn *badger.Txn, key string, val int64, defaultExp uint64) (int64, uint64, error) {
	cur, exp, err := read(txn, key)
	var n int64
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
	case err != nil:
		return 0, 0, err
	default:
		n, err = strconv.ParseInt(string(cur), 10, 64)
		if err != nil {
			return 0, 0, db.ErrValueNotNumber
		}
	}
	if exp == 0 {
		exp = defaultExp
	}
	n += val
	if err := write(txn, key, []byte(strconv.FormatInt(n, 10)), exp); err != nil {
		return 0, 0, err
	}
	return n, exp, nil
}

// expiryAt converts a TTL to badger's unix-seconds expiry, rounding up.
func expiryAt(ttl time.Duration) uint64 {
	secs := int64(math.Ceil(ttl.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return uint64(time.Now().Unix() + secs)
}

func remaining(exp uint64) time.Duration {
	if exp == 0 {
		return -1
	}
	left := time.Until(time.Unix(int64(exp), 0))
	if left < 0 {
		return 0
	}
	return left
}
