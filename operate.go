package rulefold

import (
	"fmt"
	"iter"
	"slices"
)

type stepKind uint8

const (
	stepContinue stepKind = iota
	stepBreak
	stepAbort
)

// Step is the tagged outcome of a single fold step. An operation returns
// Continue to thread new state into the next rule, Break to stop iterating
// and finalize with the given state, or Abort to fail the whole fold with a
// structured reason.
type Step[S any] struct {
	kind   stepKind
	state  S
	reason FailureReason
}

// Continue threads state into the next step.
func Continue[S any](state S) Step[S] {
	return Step[S]{kind: stepContinue, state: state}
}

// Break stops iteration and finalizes with the given state. Used by
// short-circuiting operations such as first-match.
func Break[S any](state S) Step[S] {
	return Step[S]{kind: stepBreak, state: state}
}

// Abort fails the fold with a structured reason. No further rules are
// processed and Finalize is not called.
func Abort[S any](reason FailureReason) Step[S] {
	return Step[S]{kind: stepAbort, reason: reason}
}

// Operation is a fold-style state machine over a rule sequence. Init produces
// the starting state, Step consumes one rule at a time, and Finalize converts
// the final state into the operation's result once iteration ends.
//
// S is the running fold state, T the finalized result, F the fact type, and R
// the rule result type. Operations must not mutate rules or the fact; all
// state flows through the Step return value.
type Operation[S, T, F, R any] interface {
	Init() S
	Step(state S, rule Rule[F, R], fact F, index int) Step[S]
	Finalize(state S) (T, error)
}

// Operate folds an operation over a rule slice. Rules are visited in order;
// Config.MaxCompositionSize bounds how many are processed. Panics raised by
// Step or Finalize are caught and reported as COMPOSITION_ERROR; they never
// escape to the caller.
//
// Operate does not validate, filter, or sort: it is the raw execution
// primitive the evaluator and custom consumers build on.
func Operate[S, T, F, R any](op Operation[S, T, F, R], rules []Rule[F, R], fact F, cfg Config[F, R]) Result[T] {
	return OperateSeq(op, slices.Values(rules), fact, cfg)
}

// OperateSeq folds an operation over an arbitrary rule sequence, including
// lazy or unbounded generators. The composition size cap is enforced on every
// element pulled, so an adversarial infinite sequence fails with
// COMPOSITION_ERROR instead of spinning.
func OperateSeq[S, T, F, R any](op Operation[S, T, F, R], rules iter.Seq[Rule[F, R]], fact F, cfg Config[F, R]) Result[T] {
	state, fail := safeInit(op)
	if fail != nil {
		return Fail[T](*fail)
	}

	index := 0
	for rule := range rules {
		if fail := checkCompositionSize(index, cfg.MaxCompositionSize); fail != nil {
			return Fail[T](*fail)
		}

		step, fail := safeStep(op, state, rule, fact, index)
		if fail != nil {
			return Fail[T](*fail)
		}

		if step.kind == stepAbort {
			return Fail[T](step.reason)
		}
		state = step.state
		if step.kind == stepBreak {
			break
		}
		index++
	}

	value, fail := safeFinalize(op, state)
	if fail != nil {
		return Fail[T](*fail)
	}
	return Ok(value)
}

// Progress is one observable point in a lazy fold: the rule index just
// processed and the state after it. Failure is non-nil exactly once, as the
// final element, when the fold aborted.
type Progress[S any] struct {
	Index   int
	State   S
	Failure *FailureReason
}

// OperateLazy runs the fold incrementally, yielding the state after every
// step. The caller observes intermediate states and may abandon the fold at
// any point by stopping iteration; no further rules are pulled once the
// consumer stops. Break, abort, and composition-cap semantics match
// OperateSeq. Finalization is left to the caller, who holds every
// intermediate state.
func OperateLazy[S, T, F, R any](op Operation[S, T, F, R], rules iter.Seq[Rule[F, R]], fact F, cfg Config[F, R]) iter.Seq[Progress[S]] {
	return func(yield func(Progress[S]) bool) {
		state, fail := safeInit(op)
		if fail != nil {
			yield(Progress[S]{Index: -1, Failure: fail})
			return
		}

		index := 0
		for rule := range rules {
			if fail := checkCompositionSize(index, cfg.MaxCompositionSize); fail != nil {
				yield(Progress[S]{Index: index, State: state, Failure: fail})
				return
			}

			step, fail := safeStep(op, state, rule, fact, index)
			if fail != nil {
				yield(Progress[S]{Index: index, State: state, Failure: fail})
				return
			}

			if step.kind == stepAbort {
				yield(Progress[S]{Index: index, State: state, Failure: &step.reason})
				return
			}
			state = step.state
			if !yield(Progress[S]{Index: index, State: state}) {
				return
			}
			if step.kind == stepBreak {
				return
			}
			index++
		}
	}
}

func checkCompositionSize(index, max int) *FailureReason {
	if max > 0 && index >= max {
		fail := failure(FailureComposition, index, fmt.Sprintf("composition size exceeds maximum of %d rules", max))
		return &fail
	}
	return nil
}

func safeInit[S, T, F, R any](op Operation[S, T, F, R]) (state S, fail *FailureReason) {
	defer recoverToComposition(&fail, -1, "init")
	return op.Init(), nil
}

func safeStep[S, T, F, R any](op Operation[S, T, F, R], state S, rule Rule[F, R], fact F, index int) (step Step[S], fail *FailureReason) {
	defer recoverToComposition(&fail, index, "step")
	return op.Step(state, rule, fact, index), nil
}

func safeFinalize[S, T, F, R any](op Operation[S, T, F, R], state S) (value T, fail *FailureReason) {
	defer recoverToComposition(&fail, -1, "finalize")
	value, err := op.Finalize(state)
	if err != nil {
		f := failure(FailureComposition, -1, fmt.Sprintf("finalize: %v", err))
		var zero T
		return zero, &f
	}
	return value, nil
}

func recoverToComposition(fail **FailureReason, index int, phase string) {
	if r := recover(); r != nil {
		f := failure(FailureComposition, index, fmt.Sprintf("operation %s panicked: %v", phase, panicMessage(r)))
		*fail = &f
	}
}

func panicMessage(r any) string {
	if err, ok := r.(error); ok {
		return err.Error()
	}
	return fmt.Sprintf("%v", r)
}
