package access

import "time"

// Default anonymous policy.
const (
	DefaultQuota          = 3
	DefaultWindow         = 24 * time.Hour
	DefaultAnonymousLimit = 5
)

// Identity is the resolved caller of a request.
type Identity struct {
	key           string
	authenticated bool
}

// Anonymous creates an identity keyed by client address.
func Anonymous(key string) Identity { return Identity{key: key} }

// Authenticated creates an identity for a resolved user.
func Authenticated(userID string) Identity { return Identity{key: userID, authenticated: true} }

// Key returns the user id or client address.
func (i Identity) Key() string { return i.key }

// IsAuthenticated reports whether the caller bypasses the anonymous quota.
func (i Identity) IsAuthenticated() bool { return i.authenticated }

// State is the per-identity counter inside the current window.
type State struct {
	count   int64
	resetAt time.Time
}

// NewState creates a State snapshot.
func NewState(count int64, resetAt time.Time) State {
	return State{count: count, resetAt: resetAt}
}

// Count returns the number of requests counted in the window, this one included.
func (s State) Count() int64 { return s.count }

// ResetAt returns when the window ends.
func (s State) ResetAt() time.Time { return s.resetAt }

// Expired reports whether the window is over at now.
func (s State) Expired(now time.Time) bool { return !now.Before(s.resetAt) }

// Policy controls anonymous admission.
type Policy struct {
	Quota          int64
	Window         time.Duration
	AnonymousLimit int
}

// DefaultPolicy returns the 3-per-24h policy with a result ceiling of 5.
func DefaultPolicy() Policy {
	return Policy{Quota: DefaultQuota, Window: DefaultWindow, AnonymousLimit: DefaultAnonymousLimit}
}

// Phase is the gate state of an identity after a request is counted.
type Phase string

// Gate phases.
const (
	// PhaseBypass is an authenticated caller; no state is kept.
	PhaseBypass Phase = "bypass"
	// PhaseFresh is the first request of a new or reset window.
	PhaseFresh Phase = "fresh"
	// PhaseTracked is a later request still within quota.
	PhaseTracked Phase = "tracked"
	// PhaseExhausted is a request over quota.
	PhaseExhausted Phase = "exhausted"
)

// Decision is the outcome of admitting one request.
type Decision struct {
	Phase      Phase
	Limit      int
	Remaining  int64
	RetryAfter time.Duration
}

// Admitted reports whether the request may proceed.
func (d Decision) Admitted() bool { return d.Phase != PhaseExhausted }

// Decide maps a counted state to a decision. requested is the caller's page size.
// The first request of a window keeps the requested limit; later in-quota requests
// are clamped to the anonymous ceiling.
func (p Policy) Decide(s State, requested int, now time.Time) Decision {
	remaining := p.Quota - s.Count()
	if remaining < 0 {
		remaining = 0
	}
	switch {
	case s.Count() > p.Quota:
		retry := s.ResetAt().Sub(now)
		if retry <= 0 {
			retry = time.Second
		}
		return Decision{Phase: PhaseExhausted, RetryAfter: retry}
	case s.Count() <= 1:
		return Decision{Phase: PhaseFresh, Limit: requested, Remaining: remaining}
	default:
		limit := requested
		if p.AnonymousLimit > 0 && limit > p.AnonymousLimit {
			limit = p.AnonymousLimit
		}
		return Decision{Phase: PhaseTracked, Limit: limit, Remaining: remaining}
	}
}
