package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"medication-schedule/internal/domain/conflicts"
)

const namespace = "medication_schedule"

// Metrics agrupa los collectors del servicio sobre un registry propio
// (los tests crean uno por caso sin chocar con el global).
type Metrics struct {
	registry *prometheus.Registry

	checks         *prometheus.CounterVec
	conflicts      *prometheus.CounterVec
	oracleFailures prometheus.Counter
	detectLatency  prometheus.Histogram
	httpRequests   *prometheus.CounterVec
	httpLatency    *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conflicts",
			Name:      "checks_total",
			Help:      "Conflict checks by outcome (clear, conflicts).",
		}, []string{"outcome"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conflicts",
			Name:      "detected_total",
			Help:      "Detected conflicts by type and severity.",
		}, []string{"type", "severity"}),
		oracleFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "interactions",
			Name:      "oracle_failures_total",
			Help:      "Interaction lookups that degraded to a warning.",
		}),
		detectLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "conflicts",
			Name:      "detect_duration_seconds",
			Help:      "Conflict detection latency.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.checks, m.conflicts, m.oracleFailures, m.detectLatency,
		m.httpRequests, m.httpLatency,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// CheckCompleted implementa conflicts.Observer.
func (m *Metrics) CheckCompleted(elapsed time.Duration, rep conflicts.Report) {
	m.detectLatency.Observe(elapsed.Seconds())

	outcome := "clear"
	if len(rep.Conflicts) > 0 {
		outcome = "conflicts"
	}
	m.checks.WithLabelValues(outcome).Inc()

	for _, c := range rep.Conflicts {
		m.conflicts.WithLabelValues(string(c.Type), string(c.Severity)).Inc()
	}
	for _, w := range rep.Warnings {
		if w.Code == conflicts.WarningOracleUnavailable {
			m.oracleFailures.Inc()
		}
	}
}

func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(route, method).Observe(elapsed.Seconds())
}
