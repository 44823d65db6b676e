package monitor

import (
	"context"

	"dbcheck/internal/observability"
)

// PrometheusMetrics exports the last result of each target as a gauge.
type PrometheusMetrics struct {
	metrics *observability.Metrics
}

func NewPrometheusMetrics(m *observability.Metrics) *PrometheusMetrics {
	return &PrometheusMetrics{metrics: m}
}

func (m *PrometheusMetrics) RecordSample(_ context.Context, s Sample) error {
	if m == nil || m.metrics == nil {
		return nil
	}
	m.metrics.SetTargetUp(s.Target, s.Result.Success)
	return nil
}

// MultiMetrics fan-outs sample recording to multiple recorders.
type MultiMetrics struct {
	recorders []MetricsRecorder
}

func NewMultiMetrics(recorders ...MetricsRecorder) *MultiMetrics {
	return &MultiMetrics{recorders: recorders}
}

func (m *MultiMetrics) RecordSample(ctx context.Context, s Sample) error {
	var firstErr error
	for _, r := range m.recorders {
		if r == nil {
			continue
		}
		if err := r.RecordSample(ctx, s); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
