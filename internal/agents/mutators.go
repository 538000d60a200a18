package agents

import (
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/ashbyfield/ward/workflow"
)

// Mutator names shared across domain profiles.
const (
	MutatorFillGaps    = "fill_gaps"
	MutatorSwapFlagged = "swap_flagged"
	MutatorRebalance   = "rebalance"
)

// fillGapsMutator tries to assign any unmatched requirement to the best
// eligible candidate with remaining capacity.
func fillGapsMutator() workflow.Mutator {
	return workflow.Mutator{
		Name: MutatorFillGaps,
		Apply: func(plan workflow.Plan, _ []workflow.Violation, scored []workflow.ScoredCandidate) (workflow.Plan, bool) {
			next := plan
			changed := false

			gaps := slices.Clone(plan.Gaps)
			slices.Sort(gaps)
			for _, reqID := range gaps {
				alt, ok := bestAlternative(reqID, scored, next.ResourceCounts(), uuid.Nil)
				if !ok {
					continue
				}
				next = next.Replace(reqID, alt.Candidate.ID, alt.Score)
				changed = true
			}
			return next, changed
		},
	}
}

// swapFlaggedMutator reassigns requirements implicated in violations to
// their best alternative candidate, hoping the replacement clears the rule.
func swapFlaggedMutator() workflow.Mutator {
	return workflow.Mutator{
		Name: MutatorSwapFlagged,
		Apply: func(plan workflow.Plan, violations []workflow.Violation, scored []workflow.ScoredCandidate) (workflow.Plan, bool) {
			next := plan
			changed := false

			for _, reqID := range flaggedRequirements(violations) {
				current, ok := next.Assigned(reqID)
				if !ok {
					continue
				}
				alt, ok := bestAlternative(reqID, scored, next.ResourceCounts(), current.ResourceID)
				if !ok {
					continue
				}
				next = next.Replace(reqID, alt.Candidate.ID, alt.Score)
				changed = true
			}
			return next, changed
		},
	}
}

// rebalanceMutator moves one assignment off the most loaded resource above
// the threshold, when a less loaded eligible alternative exists.
func rebalanceMutator(maxLoad float64) workflow.Mutator {
	return workflow.Mutator{
		Name: MutatorRebalance,
		Apply: func(plan workflow.Plan, _ []workflow.Violation, scored []workflow.ScoredCandidate) (workflow.Plan, bool) {
			byPair := make(map[string]workflow.ScoredCandidate, len(scored))
			for _, s := range scored {
				byPair[s.RequirementID+"/"+s.Candidate.ID.String()] = s
			}

			// Pick the single worst offender so each pass makes one move.
			var target workflow.Assignment
			var worst float64
			for _, a := range sortedByRequirement(plan.Assignments) {
				s, ok := byPair[a.RequirementID+"/"+a.ResourceID.String()]
				if !ok || s.Candidate.Load <= maxLoad {
					continue
				}
				if s.Candidate.Load > worst {
					worst = s.Candidate.Load
					target = a
				}
			}
			if worst == 0 {
				return plan, false
			}

			counts := plan.ResourceCounts()
			var best workflow.ScoredCandidate
			found := false
			for _, s := range sortedScored(scored) {
				if s.RequirementID != target.RequirementID || s.Score <= 0 {
					continue
				}
				if s.Candidate.ID == target.ResourceID || s.Candidate.Load >= worst {
					continue
				}
				if counts[s.Candidate.ID] >= s.Candidate.Capacity {
					continue
				}
				best = s
				found = true
				break
			}
			if !found {
				return plan, false
			}

			return plan.Replace(target.RequirementID, best.Candidate.ID, best.Score), true
		},
	}
}

// bestAlternative picks the highest-scored eligible candidate for a
// requirement, respecting capacity already consumed by the plan and
// excluding one resource. Deterministic: ties break on candidate ID.
func bestAlternative(reqID string, scored []workflow.ScoredCandidate, counts map[uuid.UUID]int, exclude uuid.UUID) (workflow.ScoredCandidate, bool) {
	for _, s := range sortedScored(scored) {
		if s.RequirementID != reqID || s.Score <= 0 || s.Candidate.ID == exclude {
			continue
		}
		if counts[s.Candidate.ID] >= s.Candidate.Capacity {
			continue
		}
		return s, true
	}
	return workflow.ScoredCandidate{}, false
}

func flaggedRequirements(violations []workflow.Violation) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, v := range violations {
		for _, id := range v.RequirementIDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

func sortedScored(scored []workflow.ScoredCandidate) []workflow.ScoredCandidate {
	sorted := slices.Clone(scored)
	slices.SortFunc(sorted, func(a, b workflow.ScoredCandidate) int {
		if a.Score != b.Score {
			if a.Score > b.Score {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Candidate.ID.String(), b.Candidate.ID.String())
	})
	return sorted
}

func sortedByRequirement(assignments []workflow.Assignment) []workflow.Assignment {
	sorted := slices.Clone(assignments)
	slices.SortFunc(sorted, func(a, b workflow.Assignment) int {
		return strings.Compare(a.RequirementID, b.RequirementID)
	})
	return sorted
}
