package usage

import (
	"time"

	"github.com/kailas-cloud/scaledex/internal/domain/search/mode"
)

// Period is the aggregation granularity of usage counters.
type Period string

// Aggregation period constants.
const (
	PeriodDay   Period = "day"
	PeriodTotal Period = "total"
)

// IsValid reports whether p is a known period.
func (p Period) IsValid() bool { return p == PeriodDay || p == PeriodTotal }

// Bucket returns the counter bucket for t ("2026-10-14" for day, "total" otherwise).
func (p Period) Bucket(t time.Time) string {
	if p == PeriodDay {
		return t.UTC().Format("2006-01-02")
	}
	return string(PeriodTotal)
}

// Event records one completed search. Recorded asynchronously, never on the request path.
type Event struct {
	id            string
	identity      string
	authenticated bool
	query         string
	searchMode    mode.Mode
	resultIDs     []string
	total         int
	degraded      bool
	occurredAt    time.Time
}

// EventFields is the flat input used to build an Event.
type EventFields struct {
	ID            string
	Identity      string
	Authenticated bool
	Query         string
	Mode          mode.Mode
	ResultIDs     []string
	Total         int
	Degraded      bool
	OccurredAt    time.Time
}

// NewEvent creates a usage event.
func NewEvent(f EventFields) Event {
	return Event{
		id:            f.ID,
		identity:      f.Identity,
		authenticated: f.Authenticated,
		query:         f.Query,
		searchMode:    f.Mode,
		resultIDs:     f.ResultIDs,
		total:         f.Total,
		degraded:      f.Degraded,
		occurredAt:    f.OccurredAt,
	}
}

// ID returns the event identifier.
func (e *Event) ID() string { return e.id }

// Identity returns the caller identity (user id or client IP).
func (e *Event) Identity() string { return e.identity }

// Authenticated reports whether the caller was authenticated.
func (e *Event) Authenticated() bool { return e.authenticated }

// Query returns the raw query text.
func (e *Event) Query() string { return e.query }

// Mode returns the effective search mode.
func (e *Event) Mode() mode.Mode { return e.searchMode }

// ResultIDs returns the IDs on the returned page, in rank order.
func (e *Event) ResultIDs() []string { return e.resultIDs }

// Total returns the filtered result count before pagination.
func (e *Event) Total() int { return e.total }

// Degraded reports whether the search ran without the vector strategy it asked for.
func (e *Event) Degraded() bool { return e.degraded }

// OccurredAt returns when the search completed.
func (e *Event) OccurredAt() time.Time { return e.occurredAt }

// Counters are aggregated search counts for one bucket.
type Counters struct {
	Searches  int64
	Anonymous int64
	Degraded  int64
	ByMode    map[mode.Mode]int64
}

// Report is the usage summary for a period.
type Report struct {
	period   Period
	bucket   string
	counters Counters
}

// NewReport creates a Report.
func NewReport(period Period, bucket string, c Counters) Report {
	return Report{period: period, bucket: bucket, counters: c}
}

// Period returns the aggregation period.
func (r *Report) Period() Period { return r.period }

// Bucket returns the counter bucket the report covers.
func (r *Report) Bucket() string { return r.bucket }

// Counters returns the aggregated counts.
func (r *Report) Counters() Counters { return r.counters }
