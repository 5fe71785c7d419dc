package access

import (
	"testing"
	"time"
)

func TestIdentity(t *testing.T) {
	if Anonymous("10.0.0.1").IsAuthenticated() {
		t.Error("anonymous identity must not be authenticated")
	}
	u := Authenticated("user-42")
	if !u.IsAuthenticated() || u.Key() != "user-42" {
		t.Errorf("unexpected identity %+v", u)
	}
}

func TestState_Expired(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := NewState(2, now.Add(time.Minute))
	if s.Expired(now) {
		t.Error("state must be live before reset")
	}
	if !s.Expired(now.Add(time.Minute)) {
		t.Error("state must expire at reset")
	}
}

func TestPolicy_Decide(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	reset := now.Add(6 * time.Hour)
	p := DefaultPolicy()

	tests := []struct {
		name      string
		count     int64
		requested int
		phase     Phase
		limit     int
		remaining int64
	}{
		{"first request keeps limit", 1, 20, PhaseFresh, 20, 2},
		{"second request clamped", 2, 20, PhaseTracked, 5, 1},
		{"third request clamped", 3, 50, PhaseTracked, 5, 0},
		{"small request untouched", 2, 3, PhaseTracked, 3, 1},
		{"fourth denied", 4, 20, PhaseExhausted, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := p.Decide(NewState(tt.count, reset), tt.requested, now)
			if d.Phase != tt.phase {
				t.Fatalf("Phase = %q, want %q", d.Phase, tt.phase)
			}
			if d.Limit != tt.limit {
				t.Errorf("Limit = %d, want %d", d.Limit, tt.limit)
			}
			if d.Remaining != tt.remaining {
				t.Errorf("Remaining = %d, want %d", d.Remaining, tt.remaining)
			}
		})
	}
}

func TestPolicy_DecideRetryAfter(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	p := DefaultPolicy()

	d := p.Decide(NewState(4, now.Add(90*time.Minute)), 20, now)
	if d.Admitted() {
		t.Fatal("expected denial")
	}
	if d.RetryAfter != 90*time.Minute {
		t.Errorf("RetryAfter = %v, want 90m", d.RetryAfter)
	}

	// reset already passed but store has not rolled the window yet
	d = p.Decide(NewState(4, now.Add(-time.Second)), 20, now)
	if d.RetryAfter <= 0 {
		t.Errorf("RetryAfter must stay positive, got %v", d.RetryAfter)
	}
}
