package scale

import (
	"context"
	"path"
	"sort"
	"sync"

	"github.com/kailas-cloud/scaledex/internal/db"
)

// mockStore keeps documents in a map and mimics the RedisJSON "$" result shape.
type mockStore struct {
	mu        sync.Mutex
	docs      map[string][]byte
	scanCalls int
	setErr    error
	scanErr   error
}

func newMockStore() *mockStore {
	return &mockStore{docs: make(map[string][]byte)}
}

func (m *mockStore) JSONSetMulti(_ context.Context, items []db.JSONSetItem) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range items {
		m.docs[it.Key] = append([]byte(nil), it.Data...)
	}
	return nil
}

func (m *mockStore) JSONGet(_ context.Context, key string, _ ...string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return wrapRoot(d), nil
}

func (m *mockStore) JSONMGet(_ context.Context, keys []string, _ string) ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(keys))
	for i, k := range keys {
		if d, ok := m.docs[k]; ok {
			out[i] = wrapRoot(d)
		}
	}
	return out, nil
}

func (m *mockStore) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, key)
	return nil
}

func (m *mockStore) Scan(_ context.Context, pattern string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scanCalls++
	if m.scanErr != nil {
		return nil, m.scanErr
	}
	var keys []string
	for k := range m.docs {
		if ok, _ := path.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func wrapRoot(d []byte) []byte {
	return append(append([]byte("["), d...), ']')
}
