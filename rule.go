package rulefold

import (
	"fmt"
	"math"
	"slices"
)

// Rule pairs a predicate over a fact of type F with the result of type R to
// surface when the predicate matches. Rules are pure data: the engine never
// mutates them, and the same rule value may be evaluated concurrently against
// different facts.
//
// Priority orders rules before evaluation: higher priorities run first, and
// rules with equal priority keep their original relative order. The zero
// value 0 is the default priority.
type Rule[F, R any] struct {
	Predicate func(F) bool
	Result    R
	Priority  float64
}

// ValidateRules structurally checks every rule and returns the first failure
// found, or nil. A rule is invalid when its predicate is nil
// (INVALID_RULE), its priority is NaN or infinite (INVALID_PRIORITY), or the
// optional Config.ValidatePredicate hook rejects it (INVALID_PREDICATE).
//
// Validation is all-or-nothing: a single invalid rule fails the whole set
// before any predicate runs, regardless of its position.
func ValidateRules[F, R any](rules []Rule[F, R], cfg Config[F, R]) *FailureReason {
	for i, rule := range rules {
		if fail := validateRule(rule, i, cfg); fail != nil {
			return fail
		}
	}
	return nil
}

func validateRule[F, R any](rule Rule[F, R], index int, cfg Config[F, R]) *FailureReason {
	if rule.Predicate == nil {
		fail := failure(FailureInvalidRule, index, "rule has a nil predicate")
		return &fail
	}
	if math.IsNaN(rule.Priority) || math.IsInf(rule.Priority, 0) {
		fail := failure(FailureInvalidPriority, index, fmt.Sprintf("priority %v is not finite", rule.Priority))
		return &fail
	}
	if cfg.ValidatePredicate != nil {
		if err := cfg.ValidatePredicate(rule); err != nil {
			fail := failure(FailureInvalidPredicate, index, err.Error())
			return &fail
		}
	}
	return nil
}

// FilterByPriority drops rules whose priority falls outside the inclusive
// [min, max] window. A nil bound is open. The input slice is never modified;
// when both bounds are nil the input is returned as-is.
func FilterByPriority[F, R any](rules []Rule[F, R], min, max *float64) []Rule[F, R] {
	if min == nil && max == nil {
		return rules
	}
	filtered := make([]Rule[F, R], 0, len(rules))
	for _, rule := range rules {
		if min != nil && rule.Priority < *min {
			continue
		}
		if max != nil && rule.Priority > *max {
			continue
		}
		filtered = append(filtered, rule)
	}
	return filtered
}

// SortByPriority returns a copy of rules stably sorted by descending
// priority. Ties keep their original relative order.
func SortByPriority[F, R any](rules []Rule[F, R]) []Rule[F, R] {
	sorted := slices.Clone(rules)
	slices.SortStableFunc(sorted, func(a, b Rule[F, R]) int {
		switch {
		case a.Priority > b.Priority:
			return -1
		case a.Priority < b.Priority:
			return 1
		default:
			return 0
		}
	})
	return sorted
}
