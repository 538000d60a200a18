package workflow

import (
	"slices"
	"strings"

	"github.com/google/uuid"
)

// Assignment binds one requirement to one resource.
type Assignment struct {
	RequirementID string    `json:"requirement_id"`
	ResourceID    uuid.UUID `json:"resource_id"`
	Score         float64   `json:"score"`
}

// Plan is the current proposed set of requirement-to-resource assignments
// for one request. The optimizer mutates copies of it across iterations;
// the terminal version is either implemented or sent to human review.
type Plan struct {
	Assignments []Assignment `json:"assignments"`
	Gaps        []string     `json:"gaps,omitempty"`
	Quality     float64      `json:"quality"`
	Violations  []Violation  `json:"violations,omitempty"`
}

// Clone returns a deep copy of the plan.
func (p Plan) Clone() Plan {
	return Plan{
		Assignments: slices.Clone(p.Assignments),
		Gaps:        slices.Clone(p.Gaps),
		Quality:     p.Quality,
		Violations:  slices.Clone(p.Violations),
	}
}

// Equal reports whether two plans propose the same assignments and gaps.
// Quality and violations are derived state and excluded; the engine uses
// this check to short-circuit optimization passes that change nothing.
func (p Plan) Equal(other Plan) bool {
	if len(p.Assignments) != len(other.Assignments) || len(p.Gaps) != len(other.Gaps) {
		return false
	}

	a := sortedAssignments(p.Assignments)
	b := sortedAssignments(other.Assignments)
	for i := range a {
		if a[i].RequirementID != b[i].RequirementID || a[i].ResourceID != b[i].ResourceID {
			return false
		}
	}

	ga := slices.Clone(p.Gaps)
	gb := slices.Clone(other.Gaps)
	slices.Sort(ga)
	slices.Sort(gb)
	return slices.Equal(ga, gb)
}

// Assigned returns the assignment for a requirement, if any.
func (p Plan) Assigned(requirementID string) (Assignment, bool) {
	for _, a := range p.Assignments {
		if a.RequirementID == requirementID {
			return a, true
		}
	}
	return Assignment{}, false
}

// ResourceCounts returns how many assignments reference each resource.
// Validators use it to enforce the capacity invariant: no resource carries
// more concurrent assignments than its stated capacity.
func (p Plan) ResourceCounts() map[uuid.UUID]int {
	counts := make(map[uuid.UUID]int, len(p.Assignments))
	for _, a := range p.Assignments {
		counts[a.ResourceID]++
	}
	return counts
}

// Replace returns a copy of the plan with the assignment for requirementID
// swapped to the given resource, or appended if the requirement was a gap.
func (p Plan) Replace(requirementID string, resourceID uuid.UUID, score float64) Plan {
	next := p.Clone()
	for i, a := range next.Assignments {
		if a.RequirementID == requirementID {
			next.Assignments[i] = Assignment{RequirementID: requirementID, ResourceID: resourceID, Score: score}
			next.Quality = planQuality(next.Assignments, next.Gaps)
			return next
		}
	}

	next.Assignments = append(next.Assignments, Assignment{
		RequirementID: requirementID,
		ResourceID:    resourceID,
		Score:         score,
	})
	next.Gaps = slices.DeleteFunc(next.Gaps, func(id string) bool { return id == requirementID })
	next.Quality = planQuality(next.Assignments, next.Gaps)
	return next
}

// planQuality aggregates assignment scores into a [0,1] plan quality value.
// Each unmatched requirement contributes a zero as if it were an assignment,
// so coverage gaps drag quality down proportionally.
func planQuality(assignments []Assignment, gaps []string) float64 {
	total := len(assignments) + len(gaps)
	if total == 0 {
		return 0
	}

	var sum float64
	for _, a := range assignments {
		sum += a.Score
	}
	return sum / float64(total)
}

func sortedAssignments(assignments []Assignment) []Assignment {
	sorted := slices.Clone(assignments)
	slices.SortFunc(sorted, func(a, b Assignment) int {
		if c := strings.Compare(a.RequirementID, b.RequirementID); c != 0 {
			return c
		}
		return strings.Compare(a.ResourceID.String(), b.ResourceID.String())
	})
	return sorted
}
