package access

import (
	"context"
	"sync"
	"time"

	domaccess "github.com/kailas-cloud/scaledex/internal/domain/access"
)

// DefaultEvictInterval is how often MemoryStore drops expired windows.
const DefaultEvictInterval = time.Minute

type window struct {
	count   int64
	resetAt time.Time
}

// MemoryStore is a single-process Store. Expired keys are evicted by a janitor goroutine.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]window

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewMemoryStore starts a store with a janitor running every interval.
// A non-positive interval uses DefaultEvictInterval.
func NewMemoryStore(interval time.Duration) *MemoryStore {
	if interval <= 0 {
		interval = DefaultEvictInterval
	}
	s := &MemoryStore{
		windows: make(map[string]window),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.janitor(interval)
	return s
}

// Increment implements Store.
func (s *MemoryStore) Increment(_ context.Context, key string, win time.Duration, now time.Time) (domaccess.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = window{resetAt: now.Add(win)}
	}
	w.count++
	s.windows[key] = w
	return domaccess.NewState(w.count, w.resetAt), nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string, now time.Time) (domaccess.State, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok || !now.Before(w.resetAt) {
		return domaccess.State{}, false, nil
	}
	return domaccess.NewState(w.count, w.resetAt), true, nil
}

// Len returns the number of tracked keys, expired ones included until evicted.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

// Evict removes windows that ended before now and returns how many were dropped.
func (s *MemoryStore) Evict(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for k, w := range s.windows {
		if !now.Before(w.resetAt) {
			delete(s.windows, k)
			n++
		}
	}
	return n
}

// Close stops the janitor. Safe to call more than once.
func (s *MemoryStore) Close() {
	s.once.Do(func() {
		close(s.stop)
		<-s.done
	})
}

func (s *MemoryStore) janitor(interval time.Duration) {
	defer close(s.done)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-s.stop:
			return
		case now := <-t.C:
			s.Evict(now)
		}
	}
}
