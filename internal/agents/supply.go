package agents

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ashbyfield/ward/workflow"
)

// Supply rule identifiers.
const (
	RuleColdChain      = "cold_chain"
	RuleStockDepletion = "stock_depletion"
	RuleOrderVolume    = "order_volume"
)

// supplyProfile sources supply orders from stock locations. A request
// names an item and a quantity; each unit becomes its own requirement so
// an order can be split across storerooms when one cannot cover it.
type supplyProfile struct {
	policy Policy
}

// NewSupplyProfile creates the supply fulfillment agent profile.
func NewSupplyProfile(policy Policy) workflow.Profile {
	return &supplyProfile{policy: policy}
}

func (p *supplyProfile) Domain() workflow.Domain {
	return workflow.DomainSupply
}

// AnalyzeRequirements expands the ordered quantity into per-unit lines.
// Cold-chain and controlled-substance handling become hard capabilities.
func (p *supplyProfile) AnalyzeRequirements(_ context.Context, req workflow.AllocationRequest) ([]workflow.Requirement, error) {
	item := req.Attributes["item"]
	if item == "" {
		return nil, fmt.Errorf("order names no item: %w", workflow.ErrAnalysisFailed)
	}

	quantity := 1
	if raw := req.Attributes["quantity"]; raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid quantity %q: %w", raw, workflow.ErrAnalysisFailed)
		}
		quantity = n
	}

	var caps []string
	if req.Attributes["cold_chain"] == "true" {
		caps = append(caps, "cold_chain")
	}
	if req.Attributes["controlled"] == "true" {
		caps = append(caps, "controlled")
	}

	reqs := make([]workflow.Requirement, 0, quantity)
	for i := 1; i <= quantity; i++ {
		reqs = append(reqs, workflow.Requirement{
			ID:           fmt.Sprintf("%s-%d", item, i),
			Kind:         item,
			Quantity:     1,
			Capabilities: caps,
			Location:     req.Preferences["location"],
			Critical:     req.Urgency == workflow.UrgencyEmergency,
		})
	}
	return reqs, nil
}

// Score rates a stock location for one order line. Handling capabilities
// are hard: a cold-chain item cannot ship from ambient storage. Among
// eligible stock, headroom dominates so orders drain evenly.
func (p *supplyProfile) Score(req workflow.Requirement, c workflow.Candidate) workflow.ScoredCandidate {
	match := workflow.CapabilityMatch(req.Capabilities, c.Capabilities)
	breakdown := map[workflow.Criterion]float64{
		workflow.CriterionCapability: match,
		workflow.CriterionProximity:  workflow.ProximityScore(req.Location, c.Location),
		workflow.CriterionCompliance: vendorScore(c),
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

func (p *supplyProfile) Rules() []workflow.Rule {
	maxStock := p.policy.Threshold("max_stock_load", 0.9)
	maxUnits := int(p.policy.Threshold("max_order_units", 50))

	rules := []workflow.Rule{
		coverageGapRule("stock location"),
		capabilityRule(RuleColdChain, workflow.SeverityCritical),
		loadRule(RuleStockDepletion, maxStock, "stock at"),
	}

	rules = append(rules, workflow.Rule{
		ID:       RuleOrderVolume,
		Severity: workflow.SeverityWarning,
		Check: func(plan workflow.Plan, reqs []workflow.Requirement, _ map[uuid.UUID]workflow.Candidate) []workflow.Violation {
			if len(reqs) <= maxUnits {
				return nil
			}
			return []workflow.Violation{{
				RuleID:   RuleOrderVolume,
				Severity: workflow.SeverityWarning,
				Message:  fmt.Sprintf("order of %d units exceeds the %d-unit review threshold", len(reqs), maxUnits),
			}}
		},
	})

	return rules
}

func (p *supplyProfile) Mutators() []workflow.Mutator {
	return []workflow.Mutator{
		fillGapsMutator(),
		swapFlaggedMutator(),
		rebalanceMutator(p.policy.Threshold("max_stock_load", 0.9)),
	}
}

// Coordination notifies the staff agent to schedule a delivery runner for
// bulk orders.
func (p *supplyProfile) Coordination(req workflow.AllocationRequest, plan workflow.Plan) []workflow.CoordinationRequest {
	bulkUnits := int(p.policy.Threshold("bulk_units", 10))
	if len(plan.Assignments) < bulkUnits {
		return nil
	}

	return []workflow.CoordinationRequest{{
		ID:          uuid.New(),
		From:        workflow.DomainSupply,
		To:          workflow.DomainStaff,
		RequestID:   req.ID,
		Action:      "schedule_delivery",
		Detail:      fmt.Sprintf("bulk order of %d units for %s needs a delivery runner", len(plan.Assignments), req.Subject),
		SubmittedAt: time.Now().UTC(),
	}}
}

// vendorScore prefers stock from approved vendors.
func vendorScore(c workflow.Candidate) float64 {
	if c.HasCapability("approved_vendor") {
		return 1
	}
	return 0.5
}
