package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/coursekit/review/types"
)

// PrometheusCollector implements types.MetricsCollector backed by Prometheus.
//
// One counter series exists per operation start, per (operation, result)
// terminal branch, per assignment attempt outcome, and per expiry sweep item
// disposition, matching the per-branch observability contract of the
// Manager.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	opStarts   *prometheus.CounterVec
	opResults  *prometheus.CounterVec
	attempts   *prometheus.CounterVec
	sweepSteps *prometheus.CounterVec
}

// Compile-time assertion that PrometheusCollector implements MetricsCollector.
var _ types.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheus creates a new Prometheus-backed metrics collector.
//
// Uses prometheus.DefaultRegisterer when reg is nil and the "review"
// namespace when namespace is empty.
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "review"
	}

	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.opStarts = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Name:      "operations_total",
			Help:      "Total operation invocations by operation.",
		}, []string{"op"})

		p.opResults = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Name:      "operation_results_total",
			Help:      "Total operation terminal branches by operation and result.",
		}, []string{"op", "result"})

		p.attempts = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Name:      "assignment_attempts_total",
			Help:      "Total per-candidate assignment attempts by outcome.",
		}, []string{"result"})

		p.sweepSteps = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Name:      "expire_sweep_steps_total",
			Help:      "Total steps visited by expiry sweeps by disposition (expired|skipped).",
		}, []string{"disposition"})

		p.reg.MustRegister(p.opStarts)
		p.reg.MustRegister(p.opResults)
		p.reg.MustRegister(p.attempts)
		p.reg.MustRegister(p.sweepSteps)
	})
}

// RecordOpStart increments the start counter for the operation.
func (p *PrometheusCollector) RecordOpStart(op string) {
	p.ensureRegistered()
	p.opStarts.WithLabelValues(op).Inc()
}

// RecordOpResult increments the terminal-branch counter for the operation.
func (p *PrometheusCollector) RecordOpResult(op string, result string) {
	p.ensureRegistered()
	p.opResults.WithLabelValues(op, result).Inc()
}

// RecordAssignmentAttempt increments the per-candidate attempt counter.
func (p *PrometheusCollector) RecordAssignmentAttempt(result string) {
	p.ensureRegistered()
	p.attempts.WithLabelValues(result).Inc()
}

// RecordExpireSweep adds one sweep's totals to the disposition counters.
func (p *PrometheusCollector) RecordExpireSweep(expired, skipped int) {
	p.ensureRegistered()
	p.sweepSteps.WithLabelValues("expired").Add(float64(expired))
	p.sweepSteps.WithLabelValues("skipped").Add(float64(skipped))
}
