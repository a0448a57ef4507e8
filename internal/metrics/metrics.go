package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "classification_dispatcher"

const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeOK       = "ok"
	OutcomeFailed   = "failed"
)

type Metrics struct {
	registry    *prometheus.Registry
	submissions *prometheus.CounterVec
	snapshots   *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// New registers the dispatcher collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		submissions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_submissions_total",
			Help:      "Job submissions by tier, outcome and error kind.",
		}, []string{"tier", "outcome", "kind"}),
		snapshots: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pod_snapshots_total",
			Help:      "Cluster snapshot queries by outcome.",
		}, []string{"outcome"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "code"}),
	}
}

func (m *Metrics) ObserveSubmission(tier, outcome, kind string) {
	m.submissions.WithLabelValues(tier, outcome, kind).Inc()
}

func (m *Metrics) ObserveSnapshot(outcome string) {
	m.snapshots.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRequest(route, code string, seconds float64) {
	m.duration.WithLabelValues(route, code).Observe(seconds)
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
