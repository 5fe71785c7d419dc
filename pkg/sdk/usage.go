package scaledex

import (
	"context"
	"fmt"
	"time"

	domusage "github.com/kailas-cloud/scaledex/internal/domain/usage"
)

// UsagePeriod is the aggregation granularity for usage reports.
type UsagePeriod string

// UsagePeriod constants.
const (
	PeriodDay   UsagePeriod = "day"
	PeriodTotal UsagePeriod = "total"
)

// UsageReport contains search counters for one bucket.
// All counters are zero unless the client was built WithUsageCounters.
type UsageReport struct {
	Period    UsagePeriod
	Bucket    string // "2026-10-14" for day, "total" otherwise
	Searches  int64
	Anonymous int64
	Degraded  int64
	ByMode    map[SearchMode]int64
}

// Usage returns the search counters of the current bucket for period.
// Counters are written asynchronously, so a search may take a moment to show up.
func (c *Client) Usage(ctx context.Context, period UsagePeriod) (_ UsageReport, err error) {
	start := time.Now()
	defer func() { c.obs.observe("usage", start, err) }()

	p := domusage.Period(period)
	if !p.IsValid() {
		return UsageReport{}, fmt.Errorf("scaledex: unknown usage period %q", period)
	}
	report, err := c.usageSvc.GetReport(ctx, p)
	if err != nil {
		return UsageReport{}, err
	}

	counters := report.Counters()
	byMode := make(map[SearchMode]int64, len(counters.ByMode))
	for m, n := range counters.ByMode {
		byMode[SearchMode(m)] = n
	}
	return UsageReport{
		Period:    UsagePeriod(report.Period()),
		Bucket:    report.Bucket(),
		Searches:  counters.Searches,
		Anonymous: counters.Anonymous,
		Degraded:  counters.Degraded,
		ByMode:    byMode,
	}, nil
}
