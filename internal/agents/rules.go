package agents

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/ashbyfield/ward/workflow"
)

// Rule identifiers shared across domain profiles.
const (
	RuleCoverageGap       = "coverage_gap"
	RuleCapabilityMissing = "capability_missing"
	RuleOverload          = "overload"
	RuleLocationDrift     = "location_drift"
)

// coverageGapRule flags every unmatched critical requirement. The message
// names the capabilities no candidate could provide, so a reviewer sees
// exactly what the pool is missing.
func coverageGapRule(noun string) workflow.Rule {
	return workflow.Rule{
		ID:       RuleCoverageGap,
		Severity: workflow.SeverityCritical,
		Check: func(plan workflow.Plan, reqs []workflow.Requirement, _ map[uuid.UUID]workflow.Candidate) []workflow.Violation {
			var violations []workflow.Violation
			for _, req := range reqs {
				if !req.Critical || !slices.Contains(plan.Gaps, req.ID) {
					continue
				}

				msg := fmt.Sprintf("no %s available for %s", noun, req.ID)
				if len(req.Capabilities) > 0 {
					msg = fmt.Sprintf("no %s provides: %s", noun, strings.Join(req.Capabilities, ", "))
				}
				violations = append(violations, workflow.Violation{
					RuleID:         RuleCoverageGap,
					Severity:       workflow.SeverityCritical,
					RequirementIDs: []string{req.ID},
					Message:        msg,
				})
			}
			return violations
		},
	}
}

// capabilityRule flags assignments where the resource lacks a capability
// the requirement demands. Plan generation filters these out, but mutators
// and relaxed re-validation can reintroduce them.
func capabilityRule(id string, severity workflow.Severity) workflow.Rule {
	return workflow.Rule{
		ID:       id,
		Severity: severity,
		Check: func(plan workflow.Plan, reqs []workflow.Requirement, candidates map[uuid.UUID]workflow.Candidate) []workflow.Violation {
			var violations []workflow.Violation
			for _, req := range reqs {
				assignment, ok := plan.Assigned(req.ID)
				if !ok {
					continue
				}
				c, ok := candidates[assignment.ResourceID]
				if !ok {
					continue
				}

				var missing []string
				for _, cap := range req.Capabilities {
					if !c.HasCapability(cap) {
						missing = append(missing, cap)
					}
				}
				if len(missing) == 0 {
					continue
				}

				violations = append(violations, workflow.Violation{
					RuleID:         id,
					Severity:       severity,
					RequirementIDs: []string{req.ID},
					Message:        fmt.Sprintf("%s lacks: %s", c.Name, strings.Join(missing, ", ")),
				})
			}
			return violations
		},
	}
}

// loadRule flags assignments to resources whose current load exceeds the
// policy threshold.
func loadRule(id string, threshold float64, noun string) workflow.Rule {
	return workflow.Rule{
		ID:       id,
		Severity: workflow.SeverityWarning,
		Check: func(plan workflow.Plan, _ []workflow.Requirement, candidates map[uuid.UUID]workflow.Candidate) []workflow.Violation {
			var violations []workflow.Violation
			for _, a := range plan.Assignments {
				c, ok := candidates[a.ResourceID]
				if !ok || c.Load <= threshold {
					continue
				}
				violations = append(violations, workflow.Violation{
					RuleID:         id,
					Severity:       workflow.SeverityWarning,
					RequirementIDs: []string{a.RequirementID},
					Message:        fmt.Sprintf("%s %s is at %.0f%% load", noun, c.Name, c.Load*100),
				})
			}
			return violations
		},
	}
}

// locationDriftRule flags assignments placed outside the requirement's
// requested location. Advisory only.
func locationDriftRule() workflow.Rule {
	return workflow.Rule{
		ID:       RuleLocationDrift,
		Severity: workflow.SeverityInfo,
		Check: func(plan workflow.Plan, reqs []workflow.Requirement, candidates map[uuid.UUID]workflow.Candidate) []workflow.Violation {
			var violations []workflow.Violation
			for _, req := range reqs {
				if req.Location == "" {
					continue
				}
				assignment, ok := plan.Assigned(req.ID)
				if !ok {
					continue
				}
				c, ok := candidates[assignment.ResourceID]
				if !ok || c.Location == req.Location {
					continue
				}

				violations = append(violations, workflow.Violation{
					RuleID:         RuleLocationDrift,
					Severity:       workflow.SeverityInfo,
					RequirementIDs: []string{req.ID},
					Message:        fmt.Sprintf("%s placed in %s instead of %s", c.Name, c.Location, req.Location),
				})
			}
			return violations
		},
	}
}
