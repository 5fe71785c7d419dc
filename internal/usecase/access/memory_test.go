package access

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStore_Window(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	defer s.Close()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	st, _ := s.Increment(ctx, "k", time.Minute, now)
	if st.Count() != 1 || !st.ResetAt().Equal(now.Add(time.Minute)) {
		t.Errorf("first = %d reset %v", st.Count(), st.ResetAt())
	}
	st, _ = s.Increment(ctx, "k", time.Minute, now.Add(30*time.Second))
	if st.Count() != 2 || !st.ResetAt().Equal(now.Add(time.Minute)) {
		t.Errorf("second must keep the window: %d reset %v", st.Count(), st.ResetAt())
	}

	if _, ok, _ := s.Get(ctx, "k", now.Add(time.Minute)); ok {
		t.Error("Get at reset time must report expired")
	}
	st, _ = s.Increment(ctx, "k", time.Minute, now.Add(time.Minute))
	if st.Count() != 1 {
		t.Errorf("after expiry count = %d, want 1", st.Count())
	}
}

func TestMemoryStore_Evict(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	defer s.Close()
	ctx := context.Background()
	now := time.Now()

	_, _ = s.Increment(ctx, "short", time.Second, now)
	_, _ = s.Increment(ctx, "long", time.Hour, now)

	if n := s.Evict(now.Add(2 * time.Second)); n != 1 {
		t.Errorf("Evict() = %d, want 1", n)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestMemoryStore_JanitorRuns(t *testing.T) {
	s := NewMemoryStore(10 * time.Millisecond)
	defer s.Close()
	_, _ = s.Increment(context.Background(), "k", time.Millisecond, time.Now())

	deadline := time.Now().Add(time.Second)
	for s.Len() > 0 {
		if time.Now().After(deadline) {
			t.Fatal("janitor did not evict the expired key")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestMemoryStore_CloseIdempotent(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	s.Close()
	s.Close()
}
