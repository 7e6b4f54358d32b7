// Package metrics provides types.MetricsCollector implementations.
package metrics

import "github.com/coursekit/review/types"

// NopMetrics is a types.MetricsCollector that discards every record. Used as
// the default when no collector is injected.
type NopMetrics struct{}

var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNop creates a new no-op metrics collector.
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// RecordOpStart discards the record.
func (*NopMetrics) RecordOpStart(string) {}

// RecordOpResult discards the record.
func (*NopMetrics) RecordOpResult(string, string) {}

// RecordAssignmentAttempt discards the record.
func (*NopMetrics) RecordAssignmentAttempt(string) {}

// RecordExpireSweep discards the record.
func (*NopMetrics) RecordExpireSweep(int, int) {}
