package observability

import (
	"expvar"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsRecorder counts view lifecycle events per published collection.
type MetricsRecorder interface {
	ViewIssued(collection string)
	Violation(collection, action string)
	Unsupported(collection, capability string)
}

// NoopMetrics discards all observations.
type NoopMetrics struct{}

func (NoopMetrics) ViewIssued(string)          {}
func (NoopMetrics) Violation(string, string)   {}
func (NoopMetrics) Unsupported(string, string) {}

// MultiRecorder forwards every observation to each recorder in order.
type MultiRecorder []MetricsRecorder

func (m MultiRecorder) ViewIssued(collection string) {
	for _, r := range m {
		r.ViewIssued(collection)
	}
}

func (m MultiRecorder) Violation(collection, action string) {
	for _, r := range m {
		r.Violation(collection, action)
	}
}

func (m MultiRecorder) Unsupported(collection, capability string) {
	for _, r := range m {
		r.Unsupported(collection, capability)
	}
}

// PrometheusRecorder exports counters through a prometheus.Registerer.
type PrometheusRecorder struct {
	issued      *prometheus.CounterVec
	violations  *prometheus.CounterVec
	unsupported *prometheus.CounterVec
}

// NewPrometheusRecorder registers the view counters under namespace on reg.
func NewPrometheusRecorder(reg prometheus.Registerer, namespace string) (*PrometheusRecorder, error) {
	r := &PrometheusRecorder{
		issued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readonly_views_issued_total",
			Help:      "Read-only views handed out per collection.",
		}, []string{"collection"}),
		violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readonly_violations_total",
			Help:      "Mutation attempts rejected by read-only views.",
		}, []string{"collection", "action"}),
		unsupported: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readonly_unsupported_capability_total",
			Help:      "Calls needing a capability the wrapped collection lacks.",
		}, []string{"collection", "capability"}),
	}
	for _, c := range []prometheus.Collector{r.issued, r.violations, r.unsupported} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register readonly metrics: %w", err)
		}
	}
	return r, nil
}

func (r *PrometheusRecorder) ViewIssued(collection string) {
	r.issued.WithLabelValues(collection).Inc()
}

func (r *PrometheusRecorder) Violation(collection, action string) {
	r.violations.WithLabelValues(collection, action).Inc()
}

func (r *PrometheusRecorder) Unsupported(collection, capability string) {
	r.unsupported.WithLabelValues(collection, capability).Inc()
}

var expvarSeq uint64

// ExpvarRecorder publishes the same counters via expvar for deployments that
// prefer process-local metrics.
type ExpvarRecorder struct {
	name   string
	mu     sync.Mutex
	counts map[string]map[string]int64
}

// ExpvarSnapshot is a copy of the recorded counters keyed by event then
// collection (with an optional "/detail" suffix).
type ExpvarSnapshot struct {
	Counts     map[string]map[string]int64 `json:"counts"`
	RecordedAt time.Time                   `json:"recorded_at"`
}

// NewExpvarRecorder publishes a recorder under name. When name is empty, a
// unique identifier is generated.
func NewExpvarRecorder(name string) *ExpvarRecorder {
	if name == "" {
		id := atomic.AddUint64(&expvarSeq, 1)
		name = fmt.Sprintf("readonly_view_metrics_%d", id)
	}
	rec := &ExpvarRecorder{name: name, counts: make(map[string]map[string]int64)}
	expvar.Publish(name, expvar.Func(func() any {
		return rec.Snapshot()
	}))
	return rec
}

// Name returns the expvar export name.
func (r *ExpvarRecorder) Name() string { return r.name }

func (r *ExpvarRecorder) inc(event, key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.counts[event]; !ok {
		r.counts[event] = make(map[string]int64)
	}
	r.counts[event][key]++
}

func (r *ExpvarRecorder) ViewIssued(collection string) { r.inc("issued", collection) }

func (r *ExpvarRecorder) Violation(collection, action string) {
	r.inc("violation", collection+"/"+action)
}

func (r *ExpvarRecorder) Unsupported(collection, capability string) {
	r.inc("unsupported", collection+"/"+capability)
}

// Snapshot returns a copy of the counters.
func (r *ExpvarRecorder) Snapshot() ExpvarSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]map[string]int64, len(r.counts))
	for event, byKey := range r.counts {
		cpy := make(map[string]int64, len(byKey))
		for k, n := range byKey {
			cpy[k] = n
		}
		counts[event] = cpy
	}
	return ExpvarSnapshot{Counts: counts, RecordedAt: time.Now().UTC()}
}
