package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements Collector backed by Prometheus.
// Metrics are registered lazily on first use.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	allocations        *prometheus.CounterVec
	allocationDuration prometheus.Histogram
	seated             prometheus.Counter
	unseated           prometheus.Counter
	mutations          *prometheus.CounterVec
	cacheLookups       *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

var _ Collector = (*PrometheusCollector)(nil)

// NewPrometheus creates a Prometheus-backed collector.
//
// Parameters:
//   - reg: Prometheus registerer (uses prometheus.DefaultRegisterer if nil)
//   - namespace: metrics namespace (defaults to "examseat" if empty)
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "examseat"
	}
	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.allocations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "allocator",
			Name:      "runs_total",
			Help:      "Allocation runs by outcome.",
		}, []string{"outcome"})

		p.allocationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "allocator",
			Name:      "run_duration_seconds",
			Help:      "Upload-to-persisted duration of allocation runs.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		})

		p.seated = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "allocator",
			Name:      "students_seated_total",
			Help:      "Students placed into a room.",
		})

		p.unseated = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "allocator",
			Name:      "students_unseated_total",
			Help:      "Students left over after every room was filled.",
		})

		p.mutations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "roster",
			Name:      "operations_total",
			Help:      "Roster operations by operation and outcome.",
		}, []string{"op", "outcome"})

		p.cacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "results",
			Name:      "cache_lookups_total",
			Help:      "Results cache lookups by result.",
		}, []string{"result"})

		p.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"})

		p.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"})

		p.reg.MustRegister(
			p.allocations,
			p.allocationDuration,
			p.seated,
			p.unseated,
			p.mutations,
			p.cacheLookups,
			p.httpRequests,
			p.httpDuration,
		)
	})
}

func (p *PrometheusCollector) RecordAllocation(outcome string, seated, unseated int, seconds float64) {
	p.ensureRegistered()
	p.allocations.WithLabelValues(outcome).Inc()
	if outcome != OutcomeSuccess {
		return
	}
	p.allocationDuration.Observe(seconds)
	p.seated.Add(float64(seated))
	p.unseated.Add(float64(unseated))
}

func (p *PrometheusCollector) RecordMutation(op, outcome string) {
	p.ensureRegistered()
	p.mutations.WithLabelValues(op, outcome).Inc()
}

func (p *PrometheusCollector) RecordCacheLookup(hit bool) {
	p.ensureRegistered()
	result := "miss"
	if hit {
		result = "hit"
	}
	p.cacheLookups.WithLabelValues(result).Inc()
}

func (p *PrometheusCollector) RecordHTTPRequest(method, route string, status int, seconds float64) {
	p.ensureRegistered()
	p.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.httpDuration.WithLabelValues(route).Observe(seconds)
}
