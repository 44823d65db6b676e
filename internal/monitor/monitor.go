// Package monitor re-runs connectivity checks in the background and keeps the
// samples needed to report availability per target.
package monitor

import (
	"context"
	"sync"
	"time"

	"dbcheck/internal/check"
	"dbcheck/internal/profile"
)

type Logger interface {
	Printf(string, ...any)
}

// Sample is the outcome of one background check.
type Sample struct {
	Target  string
	Check   string
	Result  check.Result
	Latency time.Duration
}

type MetricsRecorder interface {
	RecordSample(ctx context.Context, s Sample) error
}

type AvailabilityProvider interface {
	Availability(ctx context.Context, target string, window time.Duration) (float64, error)
	Targets() []string
}

type Checker interface {
	Check(ctx context.Context, p profile.Profile, policy check.Policy) (check.Result, error)
}

// Target is one profile checked under one policy.
type Target struct {
	Profile profile.Profile
	Policy  check.Policy
}

func (t Target) Key() string {
	return t.Policy.Name + "@" + t.Profile.String()
}

// TargetSource lists the targets to monitor. It is called again on every
// refresh so configuration changes add and remove loops.
type TargetSource func(ctx context.Context) ([]Target, error)

type Config struct {
	Interval time.Duration
	Refresh  time.Duration
}

type Scheduler struct {
	checker Checker
	m       MetricsRecorder
	log     Logger
	cfg     Config
	source  TargetSource
	mu      sync.Mutex
	loops   map[string]context.CancelFunc
}

func NewScheduler(checker Checker, mr MetricsRecorder, log Logger, cfg Config, source TargetSource) *Scheduler {
	return &Scheduler{checker: checker, m: mr, log: log, cfg: cfg, source: source, loops: make(map[string]context.CancelFunc)}
}

func (s *Scheduler) Run(ctx context.Context) {
	defer s.cancelAllLoops()

	for {
		targets, err := s.source(ctx)
		if err != nil {
			// existing loops keep running until the source recovers
			s.log.Printf("list monitor targets: %v", err)
		} else {
			active := make(map[string]struct{}, len(targets))
			for _, target := range targets {
				active[target.Key()] = struct{}{}
				s.ensureLoop(ctx, target)
			}
			s.stopMissingLoops(active)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.refresh()):
		}
	}
}

func (s *Scheduler) ensureLoop(ctx context.Context, target Target) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := target.Key()
	if _, ok := s.loops[key]; ok {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.loops[key] = cancel
	go s.checkLoop(loopCtx, target)
}

func (s *Scheduler) stopMissingLoops(active map[string]struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, cancel := range s.loops {
		if _, ok := active[key]; ok {
			continue
		}
		cancel()
		delete(s.loops, key)
	}
}

func (s *Scheduler) cancelAllLoops() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, cancel := range s.loops {
		cancel()
		delete(s.loops, key)
	}
}

func (s *Scheduler) checkLoop(ctx context.Context, target Target) {
	for {
		s.checkOnce(ctx, target)
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.interval()):
		}
	}
}

func (s *Scheduler) checkOnce(ctx context.Context, target Target) Sample {
	start := time.Now()
	res, err := s.checker.Check(ctx, target.Profile, target.Policy)
	if err != nil {
		s.log.Printf("monitor target=%s: %v", target.Key(), err)
	}
	sample := Sample{Target: target.Key(), Check: target.Policy.Name, Result: res, Latency: time.Since(start)}
	if s.m != nil {
		if err := s.m.RecordSample(ctx, sample); err != nil {
			s.log.Printf("record sample target=%s: %v", sample.Target, err)
		}
	}
	return sample
}

func (s *Scheduler) interval() time.Duration {
	if s.cfg.Interval <= 0 {
		return time.Minute
	}
	return s.cfg.Interval
}

func (s *Scheduler) refresh() time.Duration {
	if s.cfg.Refresh <= 0 {
		return 5 * time.Minute
	}
	return s.cfg.Refresh
}
