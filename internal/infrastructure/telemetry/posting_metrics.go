package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PostingMetrics counts invoice posting attempts and materialized lines.
// A nil *PostingMetrics records nothing.
type PostingMetrics struct {
	attempts          *Counter
	duration          *Histogram
	materializedLines *Counter
}

// NewPostingMetrics registers the posting instruments on meter
func NewPostingMetrics(meter metric.Meter) (*PostingMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	attempts, err := NewCounter(meter,
		"invoice_posting_attempts_total",
		"Invoice posting attempts by final status",
		"{attempts}",
	)
	if err != nil {
		return nil, err
	}

	duration, err := NewHistogram(meter, HistogramOpts{
		Name:        "invoice_posting_duration_seconds",
		Description: "Time from verification to audit log write",
		Unit:        "s",
		Boundaries:  LedgerDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	lines, err := NewCounter(meter,
		"invoice_materialized_lines_total",
		"Invoice line rows written to the company database",
		"{lines}",
	)
	if err != nil {
		return nil, err
	}

	return &PostingMetrics{
		attempts:          attempts,
		duration:          duration,
		materializedLines: lines,
	}, nil
}

// RecordAttempt records one finished attempt
func (m *PostingMetrics) RecordAttempt(ctx context.Context, companyID, operation, status string, batch bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		AttrCompanyID.String(companyID),
		AttrOperation.String(operation),
		AttrPostingStatus.String(status),
		AttrBatch.Bool(batch),
	}
	m.attempts.Inc(ctx, attrs...)
	m.duration.RecordDuration(ctx, elapsed, attrs...)
}

// RecordMaterializedLines adds n written line rows
func (m *PostingMetrics) RecordMaterializedLines(ctx context.Context, companyID string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.materializedLines.Add(ctx, int64(n), AttrCompanyID.String(companyID))
}
