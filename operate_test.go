package rulefold

import (
	"errors"
	"iter"
	"strings"
	"testing"
)

// countMatches counts how many rules match; state is the running count.
type countMatches struct {
	breakAt  int   // stop early once the count reaches this, 0 = never
	panicAt  int   // panic on this index, -1 = never
	failWith error // returned from Finalize
}

func (countMatches) Init() int { return 0 }

func (c countMatches) Step(state int, rule Rule[int, string], fact int, index int) Step[int] {
	if c.panicAt >= 0 && index == c.panicAt {
		panic("step exploded")
	}
	if rule.Predicate(fact) {
		state++
	}
	if c.breakAt > 0 && state >= c.breakAt {
		return Break(state)
	}
	return Continue(state)
}

func (c countMatches) Finalize(state int) (int, error) {
	if c.failWith != nil {
		return 0, c.failWith
	}
	return state, nil
}

func countingRules(n int) []Rule[int, string] {
	rules := make([]Rule[int, string], n)
	for i := range rules {
		rules[i] = Rule[int, string]{Predicate: truePredicate, Result: "r"}
	}
	return rules
}

func TestOperateCountsMatches(t *testing.T) {
	rules := []Rule[int, string]{
		{Predicate: truePredicate, Result: "a"},
		{Predicate: falsePredicate, Result: "b"},
		{Predicate: truePredicate, Result: "c"},
	}

	res := Operate(countMatches{panicAt: -1}, rules, 0, Config[int, string]{})
	if !res.OK || res.Value != 2 {
		t.Fatalf("Operate() = %+v, want OK with value 2", res)
	}
}

func TestOperateBreakStopsIteration(t *testing.T) {
	calls := 0
	counted := make([]Rule[int, string], 5)
	for i := range counted {
		counted[i] = Rule[int, string]{
			Predicate: func(int) bool { calls++; return true },
			Result:    "r",
		}
	}

	res := Operate(countMatches{breakAt: 2, panicAt: -1}, counted, 0, Config[int, string]{})
	if !res.OK || res.Value != 2 {
		t.Fatalf("Operate() = %+v, want OK with value 2", res)
	}
	if calls != 2 {
		t.Fatalf("predicates invoked %d times, want 2", calls)
	}
}

func TestOperateStepPanicBecomesCompositionError(t *testing.T) {
	res := Operate(countMatches{panicAt: 1}, countingRules(3), 0, Config[int, string]{})
	if res.OK {
		t.Fatal("Operate() succeeded, want COMPOSITION_ERROR")
	}
	if res.Reason.Kind != FailureComposition || res.Reason.Index != 1 {
		t.Fatalf("Operate() failed with %+v, want COMPOSITION_ERROR at index 1", res.Reason)
	}
	if !strings.Contains(res.Reason.Message, "step exploded") {
		t.Fatalf("Operate() message = %q, want the panic value", res.Reason.Message)
	}
}

func TestOperateFinalizeErrorBecomesCompositionError(t *testing.T) {
	res := Operate(countMatches{panicAt: -1, failWith: errors.New("bad state")}, countingRules(1), 0, Config[int, string]{})
	if res.OK || res.Reason.Kind != FailureComposition {
		t.Fatalf("Operate() = %+v, want COMPOSITION_ERROR", res)
	}
	if !strings.Contains(res.Reason.Message, "bad state") {
		t.Fatalf("Operate() message = %q, want the finalize error", res.Reason.Message)
	}
}

func TestOperateAbortShortCircuits(t *testing.T) {
	calls := 0
	rules := []Rule[int, string]{
		{Predicate: func(int) bool { calls++; return false }, Result: "a"},
		{Predicate: func(int) bool { calls++; panic(errors.New("boom")) }, Result: "b"},
		{Predicate: func(int) bool { calls++; return true }, Result: "c"},
	}

	res := Evaluate(rules, 0, Config[int, string]{SkipSort: true})
	if res.OK || res.Reason.Kind != FailureEvaluation {
		t.Fatalf("Evaluate() = %+v, want EVALUATION_ERROR", res)
	}
	if res.Reason.Index != 1 || res.Reason.Message != "boom" {
		t.Fatalf("Evaluate() failed with %+v, want index 1 message %q", res.Reason, "boom")
	}
	if calls != 2 {
		t.Fatalf("predicates invoked %d times after abort, want 2", calls)
	}
}

func TestOperateSeqEnforcesCompositionSizeIncrementally(t *testing.T) {
	yielded := 0
	endless := func(yield func(Rule[int, string]) bool) {
		for {
			yielded++
			if !yield(Rule[int, string]{Predicate: falsePredicate, Result: "r"}) {
				return
			}
		}
	}

	res := OperateSeq(countMatches{panicAt: -1}, endless, 0, Config[int, string]{MaxCompositionSize: 10})
	if res.OK || res.Reason.Kind != FailureComposition {
		t.Fatalf("OperateSeq() = %+v, want COMPOSITION_ERROR", res)
	}
	if yielded > 11 {
		t.Fatalf("generator yielded %d elements, cap of 10 should stop it at 11", yielded)
	}
}

func TestOperateLazyYieldsIntermediateStates(t *testing.T) {
	rules := []Rule[int, string]{
		{Predicate: truePredicate, Result: "a"},
		{Predicate: falsePredicate, Result: "b"},
		{Predicate: truePredicate, Result: "c"},
	}

	var states []int
	for p := range OperateLazy(countMatches{panicAt: -1}, iterOf(rules), 0, Config[int, string]{}) {
		if p.Failure != nil {
			t.Fatalf("unexpected failure at index %d: %+v", p.Index, p.Failure)
		}
		states = append(states, p.State)
	}

	want := []int{1, 1, 2}
	if len(states) != len(want) {
		t.Fatalf("OperateLazy() yielded %d states, want %d", len(states), len(want))
	}
	for i, s := range states {
		if s != want[i] {
			t.Fatalf("OperateLazy() state[%d] = %d, want %d", i, s, want[i])
		}
	}
}

func TestOperateLazyConsumerAbandonsFold(t *testing.T) {
	calls := 0
	rules := make([]Rule[int, string], 100)
	for i := range rules {
		rules[i] = Rule[int, string]{
			Predicate: func(int) bool { calls++; return true },
			Result:    "r",
		}
	}

	seen := 0
	for range OperateLazy(countMatches{panicAt: -1}, iterOf(rules), 0, Config[int, string]{}) {
		seen++
		if seen == 3 {
			break
		}
	}

	if calls != 3 {
		t.Fatalf("predicates invoked %d times after consumer stopped, want 3", calls)
	}
}

func TestOperateLazySurfacesAbort(t *testing.T) {
	res := collectLazy(OperateLazy(countMatches{panicAt: 1}, iterOf(countingRules(3)), 0, Config[int, string]{}))
	if res == nil {
		t.Fatal("OperateLazy() finished without the expected failure")
	}
	if res.Kind != FailureComposition {
		t.Fatalf("OperateLazy() failure kind = %s, want COMPOSITION_ERROR", res.Kind)
	}
}

func iterOf[F, R any](rules []Rule[F, R]) iter.Seq[Rule[F, R]] {
	return func(yield func(Rule[F, R]) bool) {
		for _, rule := range rules {
			if !yield(rule) {
				return
			}
		}
	}
}

func collectLazy[S any](seq iter.Seq[Progress[S]]) *FailureReason {
	for p := range seq {
		if p.Failure != nil {
			return p.Failure
		}
	}
	return nil
}
