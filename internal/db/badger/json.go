package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/kailas-cloud/scaledex/internal/db"
)

// rootPath reports whether p addresses the whole document. Only root paths are supported.
func rootPath(p string) bool { return p == "$" || p == "." || p == "" }

// JSONSet stores a JSON document. Only the root path is supported.
func (s *Store) JSONSet(ctx context.Context, key, p string, data []byte) error {
	if !rootPath(p) {
		return &db.Error{Op: db.OpJSONSet, Err: fmt.Errorf("path %q: %w", p, db.ErrUnsupportedOp)}
	}
	if !json.Valid(data) {
		return &db.Error{Op: db.OpJSONSet, Err: fmt.Errorf("key %s: invalid JSON", key)}
	}
	return wrap(db.OpJSONSet, s.update(ctx, func(txn *badger.Txn) error {
		return write(txn, key, data, 0)
	}))
}

// JSONSetMulti stores multiple documents in one transaction.
func (s *Store) JSONSetMulti(ctx context.Context, items []db.JSONSetItem) error {
	if len(items) == 0 {
		return nil
	}
	for _, it := range items {
		if !rootPath(it.Path) {
			return &db.Error{Op: db.OpJSONSet, Err: fmt.Errorf("key %s path %q: %w", it.Key, it.Path, db.ErrUnsupportedOp)}
		}
		if !json.Valid(it.Data) {
			return &db.Error{Op: db.OpJSONSet, Err: fmt.Errorf("key %s: invalid JSON", it.Key)}
		}
	}
	return wrap(db.OpJSONSet, s.update(ctx, func(txn *badger.Txn) error {
		for _, it := range items {
			if err := write(txn, it.Key, it.Data, 0); err != nil {
				return fmt.Errorf("key %s: %w", it.Key, err)
			}
		}
		return nil
	}))
}

// JSONGet returns the document. With "$" it is wrapped in a one-element array.
func (s *Store) JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error) {
	p := ""
	if len(paths) > 0 {
		p = paths[0]
	}
	if len(paths) > 1 || !rootPath(p) {
		return nil, &db.Error{Op: db.OpJSONGet, Err: db.ErrUnsupportedOp}
	}
	raw, err := s.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpJSONGet, Err: err}
	}
	return shape(raw, p), nil
}

// JSONMGet returns the documents at keys; missing keys yield nil.
func (s *Store) JSONMGet(ctx context.Context, keys []string, p string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	if !rootPath(p) {
		return nil, &db.Error{Op: db.OpJSONMGet, Err: db.ErrUnsupportedOp}
	}
	out := make([][]byte, len(keys))
	err := s.view(ctx, func(txn *badger.Txn) error {
		for i, k := range keys {
			raw, _, err := read(txn, k)
			if errors.Is(err, db.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("key %s: %w", k, err)
			}
			out[i] = shape(raw, p)
		}
		return nil
	})
	if err != nil {
		return nil, &db.Error{Op: db.OpJSONMGet, Err: err}
	}
	return out, nil
}

func shape(raw []byte, p string) []byte {
	if p != "$" {
		return raw
	}
	out := make([]byte, 0, len(raw)+2)
	out = append(out, '[')
	out = append(out, raw...)
	return append(out, ']')
}

// Del deletes a key.
func (s *Store) Del(ctx context.Context, key string) error {
	return wrap(db.OpDel, s.update(ctx, func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	}))
}

// Exists checks if a key exists.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	var ok bool
	err := s.view(ctx, func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err //nolint:wrapcheck // wrapped below
		}
		ok = true
		return nil
	})
	if err != nil {
		return false, &db.Error{Op: db.OpExists, Err: err}
	}
	return ok, nil
}

// Scan returns keys matching a glob pattern ('*', '?', '[...]').
func (s *Store) Scan(ctx context.Context, pattern string) ([]string, error) {
	prefix := pattern
	if i := strings.IndexAny(pattern, "*?["); i >= 0 {
		prefix = pattern[:i]
	}

	var keys []string
	err := s.view(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			k := string(it.Item().Key())
			ok, err := path.Match(pattern, k)
			if err != nil {
				return fmt.Errorf("pattern %q: %w", pattern, err)
			}
			if ok {
				keys = append(keys, k)
			}
		}
		return nil
	})
	if err != nil {
		return nil, &db.Error{Op: db.OpScan, Err: err}
	}
	return keys, nil
}

// HIncrByFields increments all fields inside one transaction.
func (s *Store) HIncrByFields(ctx context.Context, key string, fields []string, val int64) error {
	if len(fields) == 0 {
		return nil
	}
	err := s.update(ctx, func(txn *badger.Txn) error {
		h, exp, err := readHash(txn, key)
		if err != nil {
			return err
		}
		for _, f := range fields {
			var n int64
			if cur, ok := h[f]; ok {
				n, err = strconv.ParseInt(cur, 10, 64)
				if err != nil {
					return db.ErrValueNotNumber
				}
			}
			h[f] = strconv.FormatInt(n+val, 10)
		}
		data, err := json.Marshal(h)
		if err != nil {
			return fmt.Errorf("marshal hash: %w", err)
		}
		return write(txn, key, data, exp)
	})
	if err != nil {
		return wrap(db.OpHIncrBy, err)
	}
	return nil
}

// HGetAll returns all fields of a hash. A missing key yields an empty map.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	var h map[string]string
	err := s.view(ctx, func(txn *badger.Txn) error {
		var err error
		h, _, err = readHash(txn, key)
		return err
	})
	if err != nil {
		return nil, &db.Error{Op: db.OpHGetAll, Err: err}
	}
	return h, nil
}

func readHash(txn *badger.Txn, key string) (map[string]string, uint64, error) {
	raw, exp, err := read(txn, key)
	if errors.Is(err, db.ErrKeyNotFound) {
		return map[string]string{}, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	h := map[string]string{}
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, 0, fmt.Errorf("key %s is not a hash: %w", key, err)
	}
	return h, exp, nil
}
