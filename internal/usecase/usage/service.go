package usage

import (
	"context"
	"fmt"
	"time"

	domusage "github.com/kailas-cloud/scaledex/internal/domain/usage"
)

// Service handles usage reporting.
type Service struct {
	reader CounterReader
	now    func() time.Time
}

// New creates a Service. reader can be nil (usage tracking disabled).
func New(reader CounterReader) *Service {
	return &Service{reader: reader, now: time.Now}
}

// GetReport returns the counters for the current bucket of period.
func (s *Service) GetReport(ctx context.Context, period domusage.Period) (domusage.Report, error) {
	bucket := period.Bucket(s.now())
	if s.reader == nil {
		return domusage.NewReport(period, bucket, domusage.Counters{}), nil
	}
	c, err := s.reader.Counters(ctx, bucket)
	if err != nil {
		return domusage.Report{}, fmt.Errorf("usage counters %s: %w", bucket, err)
	}
	return domusage.NewReport(period, bucket, c), nil
}
