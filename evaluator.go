package rulefold

import (
	"iter"
	"runtime/debug"
)

// Config carries per-call evaluation options. The zero value is a valid
// default: no size cap, open priority window, sorted evaluation, no stack
// traces in failures.
type Config[F, R any] struct {
	// MaxCompositionSize bounds how many rules a single call may process.
	// 0 means unbounded. Exceeding the cap fails the whole evaluation with
	// COMPOSITION_ERROR; for sequence inputs the cap is enforced on every
	// element pulled, which is the only backpressure against unbounded
	// generators.
	MaxCompositionSize int

	// MinPriority and MaxPriority define an inclusive priority window.
	// Rules outside the window are dropped before evaluation. A nil bound
	// is open.
	MinPriority *float64
	MaxPriority *float64

	// AllowEmpty turns the EMPTY_RULES failure for an empty rule set into
	// NO_MATCH, letting callers treat "no rules" and "no rule matched"
	// uniformly.
	AllowEmpty bool

	// SkipSort bypasses priority sorting. Opt in when rules are already
	// ordered or priority is unused; evaluation then follows input order.
	SkipSort bool

	// IncludeStack attaches a stack trace to EVALUATION_ERROR failures
	// produced by panicking predicates. Off by default: stacks are for
	// debugging, not production result payloads.
	IncludeStack bool

	// ValidatePredicate optionally rejects rules during validation with
	// stricter caller-defined checks, surfacing INVALID_PREDICATE.
	ValidatePredicate func(Rule[F, R]) error
}

// Evaluate returns the result of the first rule, in priority-then-input
// order, whose predicate matches the fact. Remaining rules are never
// evaluated once a match is found.
//
// The pipeline is: validate every rule, filter by the priority window, sort
// by descending priority (unless Config.SkipSort), then fold with the
// first-match operation. An empty input fails with EMPTY_RULES (NO_MATCH
// with Config.AllowEmpty); no rule matching fails with NO_MATCH.
func Evaluate[F, R any](rules []Rule[F, R], fact F, cfg Config[F, R]) Result[R] {
	prepared, fail := prepare(rules, cfg)
	if fail != nil {
		return Fail[R](*fail)
	}
	if len(rules) == 0 {
		return Fail[R](emptyFailure(cfg.AllowEmpty))
	}
	// A priority window may leave nothing to evaluate; that is a no-match,
	// not an empty-rules condition.
	if len(prepared) == 0 {
		return Fail[R](failure(FailureNoMatch, -1, "no rule matched"))
	}
	return finishFirstMatch(Operate(firstMatch[F, R]{includeStack: cfg.IncludeStack}, prepared, fact, cfg))
}

// EvaluateAll returns, in priority-then-input order, the results of every
// rule whose predicate matches the fact. All rules are evaluated; no rule
// matching yields an empty (still successful) result.
func EvaluateAll[F, R any](rules []Rule[F, R], fact F, cfg Config[F, R]) Result[[]R] {
	prepared, fail := prepare(rules, cfg)
	if fail != nil {
		return Fail[[]R](*fail)
	}
	if len(rules) == 0 {
		return Fail[[]R](emptyFailure(cfg.AllowEmpty))
	}
	if len(prepared) == 0 {
		return Ok([]R{})
	}
	return Operate(allMatch[F, R]{includeStack: cfg.IncludeStack}, prepared, fact, cfg)
}

// EvaluateSeq is Evaluate over an arbitrary rule sequence, including lazy or
// very large generators. Rules are validated and priority-filtered one at a
// time with a single element of lookahead, so memory stays constant.
//
// Ordering caveat: first-match over a stream cannot honor priority order
// without seeing every candidate. When a priority window is configured and
// sorting is not skipped, the sequence is therefore materialized and handed
// to Evaluate. Because an unbounded sequence cannot be materialized,
// that path requires Config.MaxCompositionSize and fails with
// COMPOSITION_ERROR when the cap is unset. Without a priority window (or
// with Config.SkipSort), evaluation streams in input order.
func EvaluateSeq[F, R any](rules iter.Seq[Rule[F, R]], fact F, cfg Config[F, R]) Result[R] {
	if needsSort(cfg) {
		collected, fail := materialize(rules, cfg)
		if fail != nil {
			return Fail[R](*fail)
		}
		return Evaluate(collected, fact, cfg)
	}
	empty := func(rawSeen bool) Result[R] {
		if rawSeen {
			return Fail[R](failure(FailureNoMatch, -1, "no rule matched"))
		}
		return Fail[R](emptyFailure(cfg.AllowEmpty))
	}
	return runSeq(firstMatchSeq[F, R], finishFirstMatch[R], empty, rules, fact, cfg)
}

// EvaluateAllSeq is EvaluateAll over an arbitrary rule sequence. All-match
// never sorts a stream: the priority window filters lazily and results
// follow input order, keeping the path single-pass regardless of bounds.
func EvaluateAllSeq[F, R any](rules iter.Seq[Rule[F, R]], fact F, cfg Config[F, R]) Result[[]R] {
	empty := func(rawSeen bool) Result[[]R] {
		if rawSeen {
			return Ok([]R{})
		}
		return Fail[[]R](emptyFailure(cfg.AllowEmpty))
	}
	return runSeq(allMatchSeq[F, R], passThrough[[]R], empty, rules, fact, cfg)
}

func firstMatchSeq[F, R any](cfg Config[F, R], rules iter.Seq[Rule[F, R]], fact F) Result[*R] {
	return OperateSeq(firstMatch[F, R]{includeStack: cfg.IncludeStack}, rules, fact, cfg)
}

func allMatchSeq[F, R any](cfg Config[F, R], rules iter.Seq[Rule[F, R]], fact F) Result[[]R] {
	return OperateSeq(allMatch[F, R]{includeStack: cfg.IncludeStack}, rules, fact, cfg)
}

func passThrough[T any](res Result[T]) Result[T] { return res }

// prepare validates, filters, and sorts an eager rule slice.
func prepare[F, R any](rules []Rule[F, R], cfg Config[F, R]) ([]Rule[F, R], *FailureReason) {
	if fail := ValidateRules(rules, cfg); fail != nil {
		return nil, fail
	}
	prepared := FilterByPriority(rules, cfg.MinPriority, cfg.MaxPriority)
	if !cfg.SkipSort {
		prepared = SortByPriority(prepared)
	}
	return prepared, nil
}

func emptyFailure(allowEmpty bool) FailureReason {
	if allowEmpty {
		return failure(FailureNoMatch, -1, "no rules to evaluate")
	}
	return failure(FailureEmptyRules, -1, "rule set is empty")
}

func needsSort[F, R any](cfg Config[F, R]) bool {
	return (cfg.MinPriority != nil || cfg.MaxPriority != nil) && !cfg.SkipSort
}

// materialize drains a sequence into a slice so it can be sorted. Refuses to
// drain without a composition cap: an unbounded generator would otherwise
// hang the call or exhaust memory.
func materialize[F, R any](rules iter.Seq[Rule[F, R]], cfg Config[F, R]) ([]Rule[F, R], *FailureReason) {
	if cfg.MaxCompositionSize <= 0 {
		fail := failure(FailureComposition, -1,
			"sorting a rule sequence requires MaxCompositionSize; set it, set SkipSort, or drop the priority window")
		return nil, &fail
	}
	collected := make([]Rule[F, R], 0, cfg.MaxCompositionSize)
	index := 0
	for rule := range rules {
		if fail := checkCompositionSize(index, cfg.MaxCompositionSize); fail != nil {
			return nil, fail
		}
		collected = append(collected, rule)
		index++
	}
	return collected, nil
}

// runSeq is the shared streaming pipeline: validate and filter lazily, peek
// one element to decide between the empty outcomes, then fold. The peek
// cannot see past the filter, so rawSeen tells empty whether the sequence
// produced anything at all before filtering.
func runSeq[F, R, U, T any](
	fold func(Config[F, R], iter.Seq[Rule[F, R]], F) Result[U],
	finish func(Result[U]) Result[T],
	empty func(rawSeen bool) Result[T],
	rules iter.Seq[Rule[F, R]],
	fact F,
	cfg Config[F, R],
) Result[T] {
	var rawSeen bool
	next, stop := iter.Pull(prepareSeq(rules, cfg, &rawSeen))
	defer stop()

	first, ok := next()
	if !ok {
		return empty(rawSeen)
	}
	if first.fail != nil {
		return Fail[T](*first.fail)
	}

	// The sequence re-prepends the peeked element, then resumes pulling. A
	// preparation failure mid-stream stops the fold and takes precedence
	// over whatever the operation would have finalized to.
	var pending *FailureReason
	resumed := func(yield func(Rule[F, R]) bool) {
		if !yield(first.rule) {
			return
		}
		for {
			item, ok := next()
			if !ok {
				return
			}
			if item.fail != nil {
				pending = item.fail
				return
			}
			if !yield(item.rule) {
				return
			}
		}
	}

	res := fold(cfg, resumed, fact)
	if pending != nil {
		return Fail[T](*pending)
	}
	return finish(res)
}

type seqItem[F, R any] struct {
	rule Rule[F, R]
	fail *FailureReason
}

// prepareSeq validates and priority-filters a rule sequence lazily. The
// composition cap counts raw elements here, before filtering, so a sequence
// whose elements are all filtered out still terminates.
func prepareSeq[F, R any](rules iter.Seq[Rule[F, R]], cfg Config[F, R], rawSeen *bool) iter.Seq[seqItem[F, R]] {
	return func(yield func(seqItem[F, R]) bool) {
		raw := 0
		for rule := range rules {
			*rawSeen = true
			if fail := checkCompositionSize(raw, cfg.MaxCompositionSize); fail != nil {
				yield(seqItem[F, R]{fail: fail})
				return
			}
			if fail := validateRule(rule, raw, cfg); fail != nil {
				yield(seqItem[F, R]{fail: fail})
				return
			}
			raw++

			if cfg.MinPriority != nil && rule.Priority < *cfg.MinPriority {
				continue
			}
			if cfg.MaxPriority != nil && rule.Priority > *cfg.MaxPriority {
				continue
			}
			if !yield(seqItem[F, R]{rule: rule}) {
				return
			}
		}
	}
}

// firstMatch is the built-in short-circuiting operation: state is a pointer
// to the matched result, nil until a match. Once set, the very next step
// breaks without touching the rule, so at most one rule matches and nothing
// after it is evaluated.
type firstMatch[F, R any] struct {
	includeStack bool
}

func (firstMatch[F, R]) Init() *R { return nil }

func (o firstMatch[F, R]) Step(state *R, rule Rule[F, R], fact F, index int) Step[*R] {
	if state != nil {
		return Break(state)
	}
	matched, fail := applyPredicate(rule, fact, index, o.includeStack)
	if fail != nil {
		return Abort[*R](*fail)
	}
	if matched {
		result := rule.Result
		return Break(&result)
	}
	return Continue[*R](nil)
}

func (firstMatch[F, R]) Finalize(state *R) (*R, error) { return state, nil }

// finishFirstMatch converts the fold's pointer state into the public result:
// nil means no rule matched.
func finishFirstMatch[R any](res Result[*R]) Result[R] {
	if !res.OK {
		return Fail[R](res.Reason)
	}
	if res.Value == nil {
		return Fail[R](failure(FailureNoMatch, -1, "no rule matched"))
	}
	return Ok(*res.Value)
}

// allMatch collects the result of every matching rule in visit order. No
// short-circuiting: the whole prepared sequence is evaluated.
type allMatch[F, R any] struct {
	includeStack bool
}

func (allMatch[F, R]) Init() []R { return nil }

func (o allMatch[F, R]) Step(state []R, rule Rule[F, R], fact F, index int) Step[[]R] {
	matched, fail := applyPredicate(rule, fact, index, o.includeStack)
	if fail != nil {
		return Abort[[]R](*fail)
	}
	if matched {
		return Continue(append(state, rule.Result))
	}
	return Continue(state)
}

func (allMatch[F, R]) Finalize(state []R) ([]R, error) {
	if state == nil {
		return []R{}, nil
	}
	return state, nil
}

// applyPredicate invokes a rule's predicate inside a panic boundary. A nil
// predicate (possible when validation was bypassed via the algebra layer)
// and a panicking predicate both become EVALUATION_ERROR at the rule's
// index; the stack is captured only on request.
func applyPredicate[F, R any](rule Rule[F, R], fact F, index int, includeStack bool) (matched bool, fail *FailureReason) {
	if rule.Predicate == nil {
		f := failure(FailureEvaluation, index, "predicate is nil")
		return false, &f
	}
	defer func() {
		if r := recover(); r != nil {
			f := failure(FailureEvaluation, index, panicMessage(r))
			if includeStack {
				f.Stack = string(debug.Stack())
			}
			matched = false
			fail = &f
		}
	}()
	return rule.Predicate(fact), nil
}
