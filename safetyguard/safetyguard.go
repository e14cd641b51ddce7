// Package safetyguard gates progressive rollouts on observed health metrics.
//
// A guard holds a prioritized set of safety rules over rollout metrics
// (error rate, tail latency, sample size, bake time) and evaluates them
// through the rulefold engine in first-match mode: the highest-priority
// violated rule decides the verdict, and rules below it are never evaluated.
// No rule matching means the rollout is healthy and may proceed.
package safetyguard

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rulefold/rulefold"
)

// Action is the verdict of a safety check.
type Action string

const (
	// ActionProceed lets the rollout continue to the next stage.
	ActionProceed Action = "proceed"
	// ActionHalt pauses the rollout at its current stage.
	ActionHalt Action = "halt"
	// ActionRollback reverts the rollout entirely.
	ActionRollback Action = "rollback"
)

// Metrics is a snapshot of rollout health, collected by the caller.
type Metrics struct {
	// ErrorRate is the fraction of failed requests, in [0, 1].
	ErrorRate float64
	// P99Latency is the observed 99th percentile request latency.
	P99Latency time.Duration
	// SampleSize is the number of requests behind the snapshot.
	SampleSize int
	// StartedAt is when the current rollout stage began.
	StartedAt time.Time
}

// Config sets the guard's thresholds. Zero values fall back to the defaults.
type Config struct {
	// MaxErrorRate halts the rollout when exceeded. Default 0.05.
	MaxErrorRate float64
	// CriticalErrorRate rolls the rollout back when exceeded. Default 0.20.
	CriticalErrorRate float64
	// MaxP99Latency halts the rollout when exceeded. Default 2s.
	MaxP99Latency time.Duration
	// MinSampleSize halts the rollout until enough traffic has been
	// observed to trust the other metrics. Default 100.
	MinSampleSize int
	// BakeTime holds each stage for a minimum observation window.
	// Default 5m.
	BakeTime time.Duration
}

const (
	defaultMaxErrorRate      = 0.05
	defaultCriticalErrorRate = 0.20
	defaultMaxP99Latency     = 2 * time.Second
	defaultMinSampleSize     = 100
	defaultBakeTime          = 5 * time.Minute
)

func (c Config) withDefaults() Config {
	if c.MaxErrorRate <= 0 {
		c.MaxErrorRate = defaultMaxErrorRate
	}
	if c.CriticalErrorRate <= 0 {
		c.CriticalErrorRate = defaultCriticalErrorRate
	}
	if c.MaxP99Latency <= 0 {
		c.MaxP99Latency = defaultMaxP99Latency
	}
	if c.MinSampleSize <= 0 {
		c.MinSampleSize = defaultMinSampleSize
	}
	if c.BakeTime <= 0 {
		c.BakeTime = defaultBakeTime
	}
	return c
}

// Verdict is the outcome of one safety check: what to do, which rule fired,
// and a human-readable detail for operators.
type Verdict struct {
	Action Action
	Rule   string
	Detail string
}

// Decision is a recorded verdict, stamped for audit trails.
type Decision struct {
	ID      uuid.UUID
	At      time.Time
	Verdict Verdict
}

// fact is the evaluation input: a metrics snapshot plus the check time.
type fact struct {
	metrics Metrics
	cfg     Config
	now     time.Time
}

// Guard evaluates rollout metrics against its safety rules.
type Guard struct {
	cfg    Config
	rules  []rulefold.Rule[fact, Verdict]
	logger *slog.Logger
}

// New builds a guard with the given thresholds. A nil logger falls back to
// slog's default.
func New(cfg Config, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	return &Guard{cfg: cfg, rules: safetyRules(), logger: logger}
}

// safetyRules is the built-in rule set, most severe first. Priorities are
// explicit rather than relying on slice order so callers reading a verdict
// can reason about which rule outranks which.
func safetyRules() []rulefold.Rule[fact, Verdict] {
	return []rulefold.Rule[fact, Verdict]{
		{
			Priority: 100,
			Predicate: func(f fact) bool {
				return f.metrics.SampleSize >= f.cfg.MinSampleSize && f.metrics.ErrorRate > f.cfg.CriticalErrorRate
			},
			Result: Verdict{Action: ActionRollback, Rule: "critical-error-rate",
				Detail: "error rate is above the critical threshold"},
		},
		{
			Priority: 80,
			Predicate: func(f fact) bool {
				return f.metrics.SampleSize >= f.cfg.MinSampleSize && f.metrics.ErrorRate > f.cfg.MaxErrorRate
			},
			Result: Verdict{Action: ActionHalt, Rule: "error-rate",
				Detail: "error rate is above the halt threshold"},
		},
		{
			Priority: 70,
			Predicate: func(f fact) bool {
				return f.metrics.SampleSize >= f.cfg.MinSampleSize && f.metrics.P99Latency > f.cfg.MaxP99Latency
			},
			Result: Verdict{Action: ActionHalt, Rule: "p99-latency",
				Detail: "p99 latency is above the halt threshold"},
		},
		{
			Priority: 60,
			Predicate: func(f fact) bool {
				return f.metrics.SampleSize < f.cfg.MinSampleSize
			},
			Result: Verdict{Action: ActionHalt, Rule: "insufficient-data",
				Detail: "not enough samples to trust the health metrics"},
		},
		{
			Priority: 50,
			Predicate: func(f fact) bool {
				return f.now.Sub(f.metrics.StartedAt) < f.cfg.BakeTime
			},
			Result: Verdict{Action: ActionHalt, Rule: "bake-time",
				Detail: "stage has not baked for the minimum window"},
		},
	}
}

// Check evaluates a metrics snapshot at the given time and records a
// decision. A healthy snapshot (no rule fires) proceeds.
func (g *Guard) Check(metrics Metrics, now time.Time) Decision {
	f := fact{metrics: metrics, cfg: g.cfg, now: now}

	verdict := Verdict{Action: ActionProceed, Rule: "", Detail: "all safety rules passed"}
	res := rulefold.Evaluate(g.rules, f, rulefold.Config[fact, Verdict]{})
	switch {
	case res.OK:
		verdict = res.Value
	case res.Reason.Kind == rulefold.FailureNoMatch:
		// healthy
	default:
		// The rule set is built in this package, so any other failure is
		// a bug here. Fail closed: halt rather than proceed blind.
		verdict = Verdict{
			Action: ActionHalt,
			Rule:   "engine-failure",
			Detail: fmt.Sprintf("safety evaluation failed: %s: %s", res.Reason.Kind, res.Reason.Message),
		}
		g.logger.Error("safety rule evaluation failed",
			"kind", string(res.Reason.Kind), "index", res.Reason.Index, "message", res.Reason.Message)
	}

	decision := Decision{ID: uuid.New(), At: now, Verdict: verdict}
	g.logger.Info("rollout safety check",
		"decision_id", decision.ID.String(),
		"action", string(verdict.Action),
		"rule", verdict.Rule,
		"error_rate", metrics.ErrorRate,
		"p99_ms", metrics.P99Latency.Milliseconds(),
		"samples", metrics.SampleSize,
	)
	return decision
}
