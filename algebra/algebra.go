// Package algebra exposes the fold primitives underlying the rulefold
// evaluator for consumers defining custom evaluation semantics (weighted
// scoring, quorum counting) without reimplementing the fold loop.
//
// A custom operation implements [Operation] and runs through [Fold],
// [FoldSeq], or [FoldLazy]. The built-in evaluator strategies are ordinary
// operations executed through this same machinery.
//
// Precondition: this package does not validate rules. Run
// [rulefold.ValidateRules] (or come through the evaluator entry points)
// before folding; a nil predicate reaching a custom operation is the
// operation's problem to handle.
package algebra

import (
	"iter"

	"github.com/rulefold/rulefold"
)

// Operation is the custom-evaluation contract: Init produces the starting
// fold state, Step consumes one rule, Finalize converts the final state into
// the operation's result.
type Operation[S, T, F, R any] = rulefold.Operation[S, T, F, R]

// Step is the tagged outcome of a single fold step.
type Step[S any] = rulefold.Step[S]

// Progress is one observable point in a lazy fold.
type Progress[S any] = rulefold.Progress[S]

// Continue threads state into the next step.
func Continue[S any](state S) Step[S] { return rulefold.Continue(state) }

// Break stops the fold and finalizes with the given state.
func Break[S any](state S) Step[S] { return rulefold.Break(state) }

// Abort fails the fold with a structured reason.
func Abort[S any](reason rulefold.FailureReason) Step[S] { return rulefold.Abort[S](reason) }

// Fold runs an operation over a rule slice.
func Fold[S, T, F, R any](op Operation[S, T, F, R], rules []rulefold.Rule[F, R], fact F, cfg rulefold.Config[F, R]) rulefold.Result[T] {
	return rulefold.Operate(op, rules, fact, cfg)
}

// FoldSeq runs an operation over an arbitrary rule sequence.
func FoldSeq[S, T, F, R any](op Operation[S, T, F, R], rules iter.Seq[rulefold.Rule[F, R]], fact F, cfg rulefold.Config[F, R]) rulefold.Result[T] {
	return rulefold.OperateSeq(op, rules, fact, cfg)
}

// FoldLazy runs an operation incrementally, yielding the state after every
// step so the caller can observe or abandon the fold mid-flight.
func FoldLazy[S, T, F, R any](op Operation[S, T, F, R], rules iter.Seq[rulefold.Rule[F, R]], fact F, cfg rulefold.Config[F, R]) iter.Seq[Progress[S]] {
	return rulefold.OperateLazy(op, rules, fact, cfg)
}
