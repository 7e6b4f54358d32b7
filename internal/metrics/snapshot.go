package metrics

import (
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/coursekit/review/types"
)

// SnapshotCollector is an in-process types.MetricsCollector that keeps
// per-branch monotonic counters readable at any time.
//
// It exists for tests and lightweight diagnostics where standing up a
// Prometheus registry is overkill. Counter names compose the operation and
// result labels with ":".
type SnapshotCollector struct {
	counters *xsync.Map[string, *xsync.Counter]
}

var _ types.MetricsCollector = (*SnapshotCollector)(nil)

// NewSnapshot creates a new snapshot collector.
func NewSnapshot() *SnapshotCollector {
	return &SnapshotCollector{counters: xsync.NewMap[string, *xsync.Counter]()}
}

func (s *SnapshotCollector) inc(name string, delta int64) {
	c, ok := s.counters.Load(name)
	if !ok {
		c, _ = s.counters.LoadOrStore(name, xsync.NewCounter())
	}
	c.Add(delta)
}

// RecordOpStart increments the "<op>" counter.
func (s *SnapshotCollector) RecordOpStart(op string) {
	s.inc(op, 1)
}

// RecordOpResult increments the "<op>:<result>" counter.
func (s *SnapshotCollector) RecordOpResult(op string, result string) {
	s.inc(op+":"+result, 1)
}

// RecordAssignmentAttempt increments the "attempt:<result>" counter.
func (s *SnapshotCollector) RecordAssignmentAttempt(result string) {
	s.inc("attempt:"+result, 1)
}

// RecordExpireSweep adds the sweep totals to the "sweep:expired" and
// "sweep:skipped" counters.
func (s *SnapshotCollector) RecordExpireSweep(expired, skipped int) {
	if expired > 0 {
		s.inc("sweep:expired", int64(expired))
	}
	if skipped > 0 {
		s.inc("sweep:skipped", int64(skipped))
	}
}

// Value returns the current value of a counter, 0 if it was never
// incremented.
func (s *SnapshotCollector) Value(name string) int64 {
	c, ok := s.counters.Load(name)
	if !ok {
		return 0
	}

	return c.Value()
}

// Snapshot returns a copy of all counters.
func (s *SnapshotCollector) Snapshot() map[string]int64 {
	out := make(map[string]int64)
	s.counters.Range(func(name string, c *xsync.Counter) bool {
		out[name] = c.Value()

		return true
	})

	return out
}
