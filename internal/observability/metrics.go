package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"dbcheck/internal/probe"
)

// Metrics centralizes Prometheus instrumentation for checks, adapter attempts,
// monitored targets and the result log.
type Metrics struct {
	registry *prometheus.Registry

	checkResults   *prometheus.CounterVec
	checkLatency   *prometheus.HistogramVec
	attemptResults *prometheus.CounterVec
	attemptLatency *prometheus.HistogramVec
	targetUp       *prometheus.GaugeVec
	publishes      *prometheus.CounterVec
}

// NewMetrics builds a metrics container backed by the provided registry. If no
// registry is supplied, a new one is created.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{registry: reg}

	m.checkResults = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dbcheck_check_results_total",
		Help: "Connectivity checks grouped by check and result",
	}, []string{"check", "result"})
	m.checkLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dbcheck_check_seconds",
		Help:    "Wall time of a whole check including fallbacks",
		Buckets: prometheus.DefBuckets,
	}, []string{"check"})
	m.attemptResults = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dbcheck_adapter_attempts_total",
		Help: "Adapter attempts grouped by check, adapter and outcome category",
	}, []string{"check", "adapter", "category"})
	m.attemptLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dbcheck_adapter_attempt_seconds",
		Help:    "Adapter attempt latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"check", "adapter"})
	m.targetUp = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dbcheck_target_up",
		Help: "1 when the last background check of a target succeeded",
	}, []string{"target"})
	m.publishes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dbcheck_result_publishes_total",
		Help: "Result log writes grouped by status",
	}, []string{"status"})

	reg.MustRegister(m.checkResults, m.checkLatency, m.attemptResults, m.attemptLatency, m.targetUp, m.publishes)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) RecordAttempt(check, adapter string, category probe.Category, latency time.Duration) {
	m.attemptResults.WithLabelValues(check, adapter, string(category)).Inc()
	m.attemptLatency.WithLabelValues(check, adapter).Observe(latency.Seconds())
}

func (m *Metrics) RecordCheck(check string, ok bool, latency time.Duration) {
	m.checkResults.WithLabelValues(check, resultLabel(ok)).Inc()
	m.checkLatency.WithLabelValues(check).Observe(latency.Seconds())
}

func (m *Metrics) SetTargetUp(target string, up bool) {
	if up {
		m.targetUp.WithLabelValues(target).Set(1)
		return
	}
	m.targetUp.WithLabelValues(target).Set(0)
}

func (m *Metrics) RecordPublish(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.publishes.WithLabelValues(status).Inc()
}

func resultLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
