package workflow

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// RuleDoubleBooking is the engine-enforced always-critical rule. It is
// appended to every domain's ruleset so the safety invariant survives any
// profile misconfiguration or optimization pass.
const RuleDoubleBooking = "double_booking"

// Validate recomputes the full violation list for a plan from scratch.
// It is never incremental, so plan state and violation state cannot
// diverge. The result is sorted for deterministic comparison: running it
// twice against an unchanged plan yields identical lists.
func Validate(plan Plan, rules []Rule, reqs []Requirement, candidates map[uuid.UUID]Candidate) []Violation {
	violations := make([]Violation, 0)

	violations = append(violations, checkDoubleBooking(plan, candidates)...)
	for _, rule := range rules {
		if rule.ID == RuleDoubleBooking {
			continue
		}
		violations = append(violations, safeCheck(rule, plan, reqs, candidates)...)
	}

	sortViolations(violations)
	return violations
}

// FilterSeverity returns the violations matching the given severity.
func FilterSeverity(violations []Violation, sev Severity) []Violation {
	filtered := make([]Violation, 0, len(violations))
	for _, v := range violations {
		if v.Severity == sev {
			filtered = append(filtered, v)
		}
	}
	return filtered
}

// CountCritical returns the number of critical violations.
func CountCritical(violations []Violation) int {
	return len(FilterSeverity(violations, SeverityCritical))
}

// HasCritical reports whether any violation is critical.
func HasCritical(violations []Violation) bool {
	return CountCritical(violations) > 0
}

// checkDoubleBooking flags any resource carrying more concurrent
// assignments than its stated capacity. Unknown resources are treated as
// capacity 1.
func checkDoubleBooking(plan Plan, candidates map[uuid.UUID]Candidate) []Violation {
	violations := make([]Violation, 0)

	for resourceID, count := range plan.ResourceCounts() {
		capacity := 1
		if c, ok := candidates[resourceID]; ok && c.Capacity > 0 {
			capacity = c.Capacity
		}
		if count <= capacity {
			continue
		}

		reqIDs := make([]string, 0, count)
		for _, a := range plan.Assignments {
			if a.ResourceID == resourceID {
				reqIDs = append(reqIDs, a.RequirementID)
			}
		}
		slices.Sort(reqIDs)

		violations = append(violations, Violation{
			RuleID:         RuleDoubleBooking,
			Severity:       SeverityCritical,
			RequirementIDs: reqIDs,
			Message:        fmt.Sprintf("resource %s assigned %d times with capacity %d", resourceID, count, capacity),
		})
	}

	return violations
}

// safeCheck shields validation from a faulty rule. A panicking check is a
// local computation error: it surfaces as a critical violation naming the
// rule instead of aborting the run.
func safeCheck(rule Rule, plan Plan, reqs []Requirement, candidates map[uuid.UUID]Candidate) (violations []Violation) {
	defer func() {
		if r := recover(); r != nil {
			violations = []Violation{{
				RuleID:   rule.ID,
				Severity: SeverityCritical,
				Message:  fmt.Sprintf("rule check failed: %v", r),
			}}
		}
	}()

	return rule.Check(plan, reqs, candidates)
}

func sortViolations(violations []Violation) {
	slices.SortFunc(violations, func(a, b Violation) int {
		if c := strings.Compare(a.RuleID, b.RuleID); c != 0 {
			return c
		}
		if c := strings.Compare(string(a.Severity), string(b.Severity)); c != 0 {
			return c
		}
		return strings.Compare(a.Message, b.Message)
	})
}
