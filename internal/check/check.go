// Package check runs connectivity checks: it walks a policy's adapters in
// order, falls back on retryable failures and reduces the attempts to one
// Result.
package check

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dbcheck/internal/logging"
	"dbcheck/internal/probe"
	"dbcheck/internal/profile"
)

// MockMessage is the message of a check answered in mock mode.
const MockMessage = "mock mode"

// Result is what a caller sees of a check.
type Result struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Policy configures one kind of check.
type Policy struct {
	// Name identifies the check in logs, metrics and the result log.
	Name string
	// Label is the human name of the target system, e.g. "MSSQL".
	Label       string
	MockEnabled bool
	ProbeQuery  string
	// ShowDetail appends the probe's first column to the success message.
	ShowDetail bool
	Adapters   []probe.Adapter
}

// Recorder receives one call per adapter attempt and one per finished check.
type Recorder interface {
	RecordAttempt(check, adapter string, category probe.Category, latency time.Duration)
	RecordCheck(check string, ok bool, latency time.Duration)
}

// Publisher stores finished results for later inspection.
type Publisher interface {
	Publish(ctx context.Context, check, target string, res Result) error
}

type Orchestrator struct {
	log *logging.Logger
	rec Recorder
	pub Publisher
	now func() time.Time
}

type Option func(*Orchestrator)

func WithRecorder(rec Recorder) Option { return func(o *Orchestrator) { o.rec = rec } }

func WithPublisher(pub Publisher) Option { return func(o *Orchestrator) { o.pub = pub } }

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option { return func(o *Orchestrator) { o.now = now } }

func New(log *logging.Logger, opts ...Option) *Orchestrator {
	if log == nil {
		log = logging.Discard()
	}
	o := &Orchestrator{log: log, now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Check runs policy against p. On failure the returned error is a
// *probe.Error and the Result carries the same category and message.
func (o *Orchestrator) Check(ctx context.Context, p profile.Profile, policy Policy) (Result, error) {
	log := logging.FromContext(ctx, o.log).WithCheck(policy.Name)
	start := time.Now()

	res, err := o.run(ctx, log, p, policy)

	if o.rec != nil {
		o.rec.RecordCheck(policy.Name, res.Success, time.Since(start))
	}
	if o.pub != nil {
		if perr := o.pub.Publish(ctx, policy.Name, p.String(), res); perr != nil {
			log.Warn("publish result", "error", perr)
		}
	}
	if err != nil {
		log.Warn("check failed", "profile", p, "error", err)
	} else {
		log.Info("check succeeded", "profile", p, "mock", policy.MockEnabled)
	}
	return res, err
}

func (o *Orchestrator) run(ctx context.Context, log *logging.Logger, p profile.Profile, policy Policy) (Result, error) {
	if policy.MockEnabled {
		return o.success(MockMessage), nil
	}
	if len(policy.Adapters) == 0 {
		return o.failure(&probe.Error{Category: probe.Interface, Message: "no adapters configured"})
	}

	query := policy.ProbeQuery
	if query == "" {
		query = "SELECT 1"
	}

	var attempts []*probe.Error
	for _, a := range policy.Adapters {
		if err := ctx.Err(); err != nil {
			return o.failure(&probe.Error{
				Category: probe.Operational,
				Message:  fmt.Sprintf("check cancelled before %s: %v", a.Name(), err),
			})
		}

		out, latency := attempt(ctx, a, p, query)
		category := probe.Category("ok")
		if !out.Succeeded {
			if out.Failure == nil {
				out.Failure = &probe.Error{Category: probe.Unknown, Adapter: a.Name(), Message: "adapter reported failure without detail"}
			}
			if out.Failure.Adapter == "" {
				out.Failure.Adapter = a.Name()
			}
			category = out.Failure.Category
		}
		if o.rec != nil {
			o.rec.RecordAttempt(policy.Name, a.Name(), category, latency)
		}

		if out.Succeeded {
			log.Debug("adapter succeeded", "adapter", a.Name(), "latency", latency)
			return o.success(successMessage(policy, a.Name(), out.Detail)), nil
		}

		log.Info("adapter failed", "adapter", a.Name(), "category", out.Failure.Category, "error", out.Failure.Message, "latency", latency)
		if !out.Failure.Category.Retryable() {
			return o.failure(out.Failure)
		}
		attempts = append(attempts, out.Failure)
	}
	return o.failure(aggregate(attempts))
}

// attempt bounds a single probe by the profile timeout.
func attempt(ctx context.Context, a probe.Adapter, p profile.Profile, query string) (probe.Outcome, time.Duration) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	start := time.Now()
	out := a.Probe(ctx, p, query)
	return out, time.Since(start)
}

func successMessage(policy Policy, adapter, detail string) string {
	label := policy.Label
	if label == "" {
		label = "database"
	}
	msg := fmt.Sprintf("%s connection successful via %s", label, adapter)
	if policy.ShowDetail && detail != "" {
		msg += ": " + detail
	}
	return msg
}

// aggregate folds retryable failures into one error naming every adapter.
func aggregate(attempts []*probe.Error) *probe.Error {
	if len(attempts) == 1 {
		return attempts[0]
	}
	category := probe.ImportMissing
	parts := make([]string, 0, len(attempts))
	for _, e := range attempts {
		if e.Category == probe.Operational {
			category = probe.Operational
		}
		parts = append(parts, e.Error())
	}
	return &probe.Error{
		Category: category,
		Message:  "all adapters failed: " + strings.Join(parts, "; "),
	}
}

func (o *Orchestrator) success(msg string) Result {
	return Result{Success: true, Message: msg, Timestamp: o.now().UTC()}
}

func (o *Orchestrator) failure(e *probe.Error) (Result, error) {
	return Result{Success: false, Message: FailureMessage(e), Timestamp: o.now().UTC()}, e
}

// FailureMessage renders an error as "<category>: <message>".
func FailureMessage(err error) string {
	var pe *probe.Error
	if errors.As(err, &pe) {
		return string(pe.Category) + ": " + pe.Error()
	}
	return string(probe.Unknown) + ": " + err.Error()
}
