package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"dbcheck/internal/check"
	"dbcheck/internal/db"
	"dbcheck/internal/probe"
	"dbcheck/internal/profile"
)

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

type fakeChecker struct {
	mu    sync.Mutex
	calls int
	ok    bool
}

func (f *fakeChecker) Check(context.Context, profile.Profile, check.Policy) (check.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.ok {
		return check.Result{Success: true, Message: "MSSQL connection successful via tds"}, nil
	}
	err := &probe.Error{Category: probe.Operational, Adapter: "tds", Message: "connection refused"}
	return check.Result{Message: check.FailureMessage(err)}, err
}

type recordingMetrics struct {
	mu      sync.Mutex
	samples []Sample
	err     error
}

func (r *recordingMetrics) RecordSample(_ context.Context, s Sample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, s)
	return r.err
}

func target(name, host string) Target {
	return Target{
		Profile: profile.Profile{Host: host, Port: 1433, Database: "master", Username: "sa"},
		Policy:  check.Policy{Name: name},
	}
}

func TestTargetKey(t *testing.T) {
	if got := target("mssql-check", "db").Key(); got != "mssql-check@sa@db:1433/master" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestSchedulerStopMissingLoops(t *testing.T) {
	s := &Scheduler{loops: make(map[string]context.CancelFunc)}
	cancelled := map[string]bool{}
	for _, key := range []string{"a", "b", "c"} {
		s.loops[key] = func() { cancelled[key] = true }
	}

	s.stopMissingLoops(map[string]struct{}{"a": {}, "c": {}})

	if len(s.loops) != 2 {
		t.Fatalf("expected 2 loops left, got %d", len(s.loops))
	}
	if !cancelled["b"] || cancelled["a"] || cancelled["c"] {
		t.Fatalf("unexpected cancellations %v", cancelled)
	}
}

func TestCheckOnceRecordsSample(t *testing.T) {
	rec := &recordingMetrics{err: errors.New("db down")}
	s := NewScheduler(&fakeChecker{}, rec, nopLogger{}, Config{}, nil)

	sample := s.checkOnce(context.Background(), target("mssql-check", "db"))
	if sample.Result.Success {
		t.Fatalf("expected failed sample")
	}
	if len(rec.samples) != 1 || rec.samples[0].Target != "mssql-check@sa@db:1433/master" || rec.samples[0].Check != "mssql-check" {
		t.Fatalf("unexpected samples %+v", rec.samples)
	}
}

func TestSchedulerRunStartsLoopPerTarget(t *testing.T) {
	checker := &fakeChecker{ok: true}
	rec := &recordingMetrics{}
	source := func(context.Context) ([]Target, error) {
		return []Target{target("mssql-check", "a"), target("mssql-check", "b")}, nil
	}
	s := NewScheduler(checker, rec, nopLogger{}, Config{Interval: time.Hour, Refresh: time.Hour}, source)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		rec.mu.Lock()
		n := len(rec.samples)
		rec.mu.Unlock()
		if n >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected a sample per target, got %d", n)
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-done

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.loops) != 0 {
		t.Fatalf("expected loops cancelled on shutdown, got %d", len(s.loops))
	}
}

type fakeWriter struct{ messages []string }

func (f *fakeWriter) InsertConnectionTest(_ context.Context, msg string) (db.ConnectionTest, error) {
	f.messages = append(f.messages, msg)
	return db.ConnectionTest{}, nil
}

func TestConnectionLogWritesMessage(t *testing.T) {
	w := &fakeWriter{}
	l := NewConnectionLog(w)
	err := l.RecordSample(context.Background(), Sample{
		Target:  "mssql-check@sa@db:1433/master",
		Result:  check.Result{Success: true, Message: "MSSQL connection successful via tds"},
		Latency: 12 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("RecordSample: %v", err)
	}
	want := fmt.Sprintf("%s ok in 12ms: %s", "mssql-check@sa@db:1433/master", "MSSQL connection successful via tds")
	if len(w.messages) != 1 || w.messages[0] != want {
		t.Fatalf("unexpected messages %q", w.messages)
	}
}
