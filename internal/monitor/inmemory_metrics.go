package monitor

import (
	"context"
	"sort"
	"sync"
	"time"
)

type probeSample struct {
	t  time.Time
	ok bool
}

// InMemoryMetrics keeps recent samples per target for availability queries.
type InMemoryMetrics struct {
	mu                sync.Mutex
	samples           map[string][]probeSample
	emptyAvailability float64
	now               func() time.Time
}

func NewInMemoryMetrics() *InMemoryMetrics {
	return NewInMemoryMetricsWithDefault(0)
}

// NewInMemoryMetricsWithDefault reports emptyAvailability for targets with no
// samples inside the window.
func NewInMemoryMetricsWithDefault(emptyAvailability float64) *InMemoryMetrics {
	return &InMemoryMetrics{
		samples:           make(map[string][]probeSample),
		emptyAvailability: emptyAvailability,
		now:               time.Now,
	}
}

// SampleRetention is how far back availability can be asked for.
const SampleRetention = 24 * time.Hour

func (m *InMemoryMetrics) RecordSample(_ context.Context, s Sample) error {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := trimBefore(m.samples[s.Target], now.Add(-SampleRetention))
	m.samples[s.Target] = append(kept, probeSample{t: now, ok: s.Result.Success})
	return nil
}

// Availability reports the success ratio of samples newer than window. It
// never discards samples, so a short window does not affect a later long one.
func (m *InMemoryMetrics) Availability(_ context.Context, target string, window time.Duration) (float64, error) {
	cutoff := m.now().Add(-window)
	m.mu.Lock()
	defer m.mu.Unlock()

	s := trimBefore(m.samples[target], cutoff)
	if len(s) == 0 {
		return m.emptyAvailability, nil
	}
	okCount := 0
	for _, sample := range s {
		if sample.ok {
			okCount++
		}
	}
	return float64(okCount) / float64(len(s)), nil
}

// Targets lists targets with samples inside the retention, sorted.
func (m *InMemoryMetrics) Targets() []string {
	cutoff := m.now().Add(-SampleRetention)
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.samples))
	for target, s := range m.samples {
		if len(trimBefore(s, cutoff)) > 0 {
			out = append(out, target)
		}
	}
	sort.Strings(out)
	return out
}

// trimBefore returns the tail of s recorded after cutoff. Samples are in
// recording order.
func trimBefore(s []probeSample, cutoff time.Time) []probeSample {
	for i, sample := range s {
		if sample.t.After(cutoff) {
			return s[i:]
		}
	}
	return nil
}
