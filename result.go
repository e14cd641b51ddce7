package rulefold

// FailureKind identifies why an evaluation did not produce a value.
type FailureKind string

const (
	// FailureEmptyRules reports an empty rule set without Config.AllowEmpty.
	FailureEmptyRules FailureKind = "EMPTY_RULES"
	// FailureNoMatch reports that every predicate returned false.
	FailureNoMatch FailureKind = "NO_MATCH"
	// FailureInvalidRule reports a structurally unusable rule (nil predicate).
	FailureInvalidRule FailureKind = "INVALID_RULE"
	// FailureInvalidPredicate reports a rule rejected by Config.ValidatePredicate.
	FailureInvalidPredicate FailureKind = "INVALID_PREDICATE"
	// FailureInvalidPriority reports a rule whose priority is NaN or infinite.
	FailureInvalidPriority FailureKind = "INVALID_PRIORITY"
	// FailureEvaluation reports a predicate that panicked or was nil at
	// evaluation time.
	FailureEvaluation FailureKind = "EVALUATION_ERROR"
	// FailureComposition reports a fold-level fault: the composition size cap
	// was exceeded, or a custom operation panicked or failed to finalize.
	FailureComposition FailureKind = "COMPOSITION_ERROR"
)

// FailureReason describes a single evaluation failure. Index locates the
// offending rule: within the input for validation failures, within the
// prepared (filtered, sorted) sequence for evaluation failures, or -1 when
// no single rule is at fault. Stack is populated only when
// Config.IncludeStack is set.
type FailureReason struct {
	Kind    FailureKind
	Index   int
	Message string
	Stack   string
}

// Result is the discriminated outcome of an evaluation. Callers must branch
// on OK before reading Value or Reason.
type Result[T any] struct {
	OK     bool
	Value  T
	Reason FailureReason
}

// Ok wraps a successful evaluation value.
func Ok[T any](value T) Result[T] {
	return Result[T]{OK: true, Value: value}
}

// Fail wraps a failure reason.
func Fail[T any](reason FailureReason) Result[T] {
	return Result[T]{Reason: reason}
}

func failure(kind FailureKind, index int, message string) FailureReason {
	return FailureReason{Kind: kind, Index: index, Message: message}
}
