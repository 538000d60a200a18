package agents

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ashbyfield/ward/workflow"
)

// Staff rule identifiers.
const (
	RuleCertificationRequired = "certification_required"
	RuleStaffOverload         = "staff_overload"
	RuleRestInterval          = "rest_interval"
)

// staffProfile fills shift coverage. A request names a role, a shift, and
// how many people are needed; each head becomes its own requirement so
// the plan binds distinct people.
type staffProfile struct {
	policy Policy
}

// NewStaffProfile creates the staff scheduling agent profile.
func NewStaffProfile(policy Policy) workflow.Profile {
	return &staffProfile{policy: policy}
}

func (p *staffProfile) Domain() workflow.Domain {
	return workflow.DomainStaff
}

// AnalyzeRequirements expands the requested headcount into one requirement
// per person. Certifications listed on the request are hard capabilities.
func (p *staffProfile) AnalyzeRequirements(_ context.Context, req workflow.AllocationRequest) ([]workflow.Requirement, error) {
	role := req.Attributes["role"]
	if role == "" {
		role = "rn"
	}

	count := 1
	if raw := req.Attributes["count"]; raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid headcount %q: %w", raw, workflow.ErrAnalysisFailed)
		}
		count = n
	}

	caps := splitList(req.Attributes["certifications"])

	reqs := make([]workflow.Requirement, 0, count)
	for i := 1; i <= count; i++ {
		reqs = append(reqs, workflow.Requirement{
			ID:           fmt.Sprintf("%s-%d", role, i),
			Kind:         role,
			Quantity:     1,
			Capabilities: caps,
			Location:     req.Preferences["location"],
			Critical:     req.Urgency != workflow.UrgencyRoutine,
		})
	}
	return reqs, nil
}

// Score rates a clinician for a shift slot. Missing any required
// certification makes the candidate ineligible; among eligible candidates
// workload balance dominates so coverage spreads across the roster.
func (p *staffProfile) Score(req workflow.Requirement, c workflow.Candidate) workflow.ScoredCandidate {
	match := workflow.CapabilityMatch(req.Capabilities, c.Capabilities)
	breakdown := map[workflow.Criterion]float64{
		workflow.CriterionCapability: match,
		workflow.CriterionProximity:  workflow.ProximityScore(req.Location, c.Location),
		workflow.CriterionCompliance: kindMatch(req.Kind, c.Kind),
		workflow.CriterionWorkload:   workflow.WorkloadBalance(c.Load),
	}

	score := workflow.Compose(breakdown, p.policy.Weights)
	if match < 1 || req.Kind != c.Kind {
		score = 0
	}

	return workflow.ScoredCandidate{
		Candidate:     c,
		RequirementID: req.ID,
		Score:         score,
		Breakdown:     breakdown,
	}
}

func (p *staffProfile) Rules() []workflow.Rule {
	maxLoad := p.policy.Threshold("max_staff_load", 0.8)
	restLoad := p.policy.Threshold("rest_load", 0.9)

	rules := []workflow.Rule{
		coverageGapRule("qualified staff member"),
		capabilityRule(RuleCertificationRequired, workflow.SeverityCritical),
		loadRule(RuleStaffOverload, maxLoad, "staff member"),
		locationDriftRule(),
	}

	// A clinician already near saturation has not had a compliant rest
	// interval before this shift.
	rules = append(rules, workflow.Rule{
		ID:       RuleRestInterval,
		Severity: workflow.SeverityWarning,
		Check: func(plan workflow.Plan, _ []workflow.Requirement, candidates map[uuid.UUID]workflow.Candidate) []workflow.Violation {
			var violations []workflow.Violation
			for _, a := range plan.Assignments {
				c, ok := candidates[a.ResourceID]
				if !ok || c.Load < restLoad {
					continue
				}
				violations = append(violations, workflow.Violation{
					RuleID:         RuleRestInterval,
					Severity:       workflow.SeverityWarning,
					RequirementIDs: []string{a.RequirementID},
					Message:        fmt.Sprintf("%s has insufficient rest before this shift", c.Name),
				})
			}
			return violations
		},
	})

	return rules
}

func (p *staffProfile) Mutators() []workflow.Mutator {
	return []workflow.Mutator{
		fillGapsMutator(),
		swapFlaggedMutator(),
		rebalanceMutator(p.policy.Threshold("max_staff_load", 0.8)),
	}
}

// Coordination asks the supply agent to stage isolation equipment when the
// covered unit runs isolation precautions.
func (p *staffProfile) Coordination(req workflow.AllocationRequest, plan workflow.Plan) []workflow.CoordinationRequest {
	if len(plan.Assignments) == 0 || req.Attributes["isolation"] != "true" {
		return nil
	}

	return []workflow.CoordinationRequest{{
		ID:          uuid.New(),
		From:        workflow.DomainStaff,
		To:          workflow.DomainSupply,
		RequestID:   req.ID,
		Action:      "stage_ppe",
		Detail:      fmt.Sprintf("isolation coverage for %s, stage precaution supplies", req.Subject),
		SubmittedAt: time.Now().UTC(),
	}}
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}

	var items []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
