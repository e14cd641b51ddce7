// Package rulefold is a generic, priority-ordered, short-circuiting rule
// evaluation engine.
//
// A rule pairs a predicate over a caller-defined fact type with a result
// value and an optional priority. The engine validates a rule set, filters
// it by a priority window, sorts it by descending priority, and folds an
// evaluation operation over it: first-match with a true short-circuit, or
// all-match collecting every matching result.
//
//	rules := []rulefold.Rule[Order, string]{
//		{Predicate: func(o Order) bool { return o.Total > 1000 }, Result: "manual-review", Priority: 10},
//		{Predicate: func(o Order) bool { return o.Express }, Result: "fast-lane", Priority: 5},
//		{Predicate: func(o Order) bool { return true }, Result: "standard"},
//	}
//
//	res := rulefold.Evaluate(rules, order, rulefold.Config[Order, string]{})
//	if res.OK {
//		route(res.Value)
//	}
//
// Every entry point returns a discriminated [Result] rather than an error:
// callers branch on the failure kind programmatically (treat NO_MATCH as
// "use a default", INVALID_RULE as a configuration bug). Predicates that
// panic never crash the caller; the panic is captured as an
// EVALUATION_ERROR failure carrying the offending rule's index.
//
// [EvaluateSeq] and [EvaluateAllSeq] accept any [iter.Seq] of rules,
// including lazy generators, and evaluate with one element of lookahead.
// [Config.MaxCompositionSize] bounds how many rules a call may process and
// is the only guard against unbounded sequences.
//
// Custom evaluation semantics (weighted scoring, multi-criteria
// aggregation) are built by implementing [Operation] and running it through
// [Operate], [OperateSeq], or [OperateLazy]; the algebra sub-package
// re-exports these under fold-oriented names.
//
// The engine is synchronous and keeps no state between calls: concurrent
// evaluations over disjoint inputs are safe without locking, provided
// predicates are themselves side-effect-free.
package rulefold
