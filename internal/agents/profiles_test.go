package agents

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/ashbyfield/ward/workflow"
)

func defaultPolicy() Policy {
	return Policy{}.normalize()
}

func candidate(n int, kind, location string, load float64, caps ...string) workflow.Candidate {
	return workflow.Candidate{
		ID:           uuid.MustParse(fmt.Sprintf("00000000-0000-0000-0000-%012d", n)),
		Name:         fmt.Sprintf("%s-%d", kind, n),
		Kind:         kind,
		Status:       workflow.StatusAvailable,
		Capabilities: caps,
		Location:     location,
		Capacity:     1,
		Load:         load,
		Version:      1,
	}
}

func TestBedAnalyzeRequirements(t *testing.T) {
	p := NewBedProfile(defaultPolicy())

	tests := []struct {
		name     string
		req      workflow.AllocationRequest
		caps     []string
		critical bool
	}{
		{
			name: "routine ward placement",
			req: workflow.AllocationRequest{
				Domain:  workflow.DomainBed,
				Urgency: workflow.UrgencyRoutine,
				Subject: "patient-1",
			},
			caps:     nil,
			critical: false,
		},
		{
			name: "icu with isolation",
			req: workflow.AllocationRequest{
				Domain:     workflow.DomainBed,
				Urgency:    workflow.UrgencyRoutine,
				Subject:    "patient-2",
				Attributes: map[string]string{"unit": "icu", "isolation": "true"},
			},
			caps:     []string{"isolation", "icu"},
			critical: true,
		},
		{
			name: "urgent telemetry",
			req: workflow.AllocationRequest{
				Domain:     workflow.DomainBed,
				Urgency:    workflow.UrgencyUrgent,
				Subject:    "patient-3",
				Attributes: map[string]string{"telemetry": "true"},
			},
			caps:     []string{"telemetry"},
			critical: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			reqs, err := p.AnalyzeRequirements(context.Background(), tc.req)
			if err != nil {
				t.Fatalf("AnalyzeRequirements: %v", err)
			}
			if len(reqs) != 1 {
				t.Fatalf("requirements = %d, want 1", len(reqs))
			}

			got := reqs[0]
			if got.Kind != "bed" || got.Critical != tc.critical {
				t.Errorf("requirement = %+v, want kind bed critical=%t", got, tc.critical)
			}
			if len(got.Capabilities) != len(tc.caps) {
				t.Errorf("capabilities = %v, want %v", got.Capabilities, tc.caps)
			}
		})
	}
}

func TestBedScoreHardFiltersCapabilities(t *testing.T) {
	p := NewBedProfile(defaultPolicy())
	req := workflow.Requirement{ID: "bed-1", Kind: "bed", Capabilities: []string{"isolation"}}

	openBay := candidate(1, "bed", "east", 0.1)
	isolation := candidate(2, "bed", "east", 0.3, "isolation")

	if got := p.Score(req, openBay); got.Score != 0 {
		t.Errorf("open bay score = %.2f, want 0 for isolation requirement", got.Score)
	}
	if got := p.Score(req, isolation); got.Score <= 0 {
		t.Errorf("isolation bed score = %.2f, want positive", got.Score)
	}
}

func TestBedScorePrefersIdleAndLocal(t *testing.T) {
	p := NewBedProfile(defaultPolicy())
	req := workflow.Requirement{ID: "bed-1", Kind: "bed", Location: "east"}

	local := p.Score(req, candidate(1, "bed", "east", 0.2))
	remote := p.Score(req, candidate(2, "bed", "west", 0.2))
	busy := p.Score(req, candidate(3, "bed", "east", 0.9))

	if local.Score <= remote.Score {
		t.Errorf("local %.2f <= remote %.2f, want preference for requested location", local.Score, remote.Score)
	}
	if local.Score <= busy.Score {
		t.Errorf("idle %.2f <= busy %.2f, want preference for headroom", local.Score, busy.Score)
	}
}

func TestBedCoordinationAsksStaff(t *testing.T) {
	p := NewBedProfile(defaultPolicy())
	req := workflow.AllocationRequest{ID: uuid.New(), Domain: workflow.DomainBed, Subject: "patient-1"}

	plan := workflow.Plan{}.Replace("bed-1", uuid.New(), 1)
	coords := p.Coordination(req, plan)
	if len(coords) != 1 || coords[0].To != workflow.DomainStaff || coords[0].Action != "confirm_coverage" {
		t.Fatalf("coordination = %+v, want confirm_coverage to staff", coords)
	}

	if coords := p.Coordination(req, workflow.Plan{Gaps: []string{"bed-1"}}); len(coords) != 0 {
		t.Errorf("coordination on empty plan = %+v, want none", coords)
	}
}

func TestStaffAnalyzeExpandsHeadcount(t *testing.T) {
	p := NewStaffProfile(defaultPolicy())
	req := workflow.AllocationRequest{
		Domain:     workflow.DomainStaff,
		Urgency:    workflow.UrgencyUrgent,
		Subject:    "icu-night",
		Attributes: map[string]string{"role": "rn", "count": "3", "certifications": "acls, pals"},
	}

	reqs, err := p.AnalyzeRequirements(context.Background(), req)
	if err != nil {
		t.Fatalf("AnalyzeRequirements: %v", err)
	}
	if len(reqs) != 3 {
		t.Fatalf("requirements = %d, want 3", len(reqs))
	}
	for i, r := range reqs {
		if r.ID != fmt.Sprintf("rn-%d", i+1) || r.Kind != "rn" || !r.Critical {
			t.Errorf("requirement %d = %+v, want critical rn line", i, r)
		}
		if len(r.Capabilities) != 2 || r.Capabilities[0] != "acls" || r.Capabilities[1] != "pals" {
			t.Errorf("capabilities = %v, want [acls pals]", r.Capabilities)
		}
	}
}

func TestStaffAnalyzeRejectsBadHeadcount(t *testing.T) {
	p := NewStaffProfile(defaultPolicy())
	req := workflow.AllocationRequest{
		Domain:     workflow.DomainStaff,
		Attributes: map[string]string{"count": "zero"},
	}

	if _, err := p.AnalyzeRequirements(context.Background(), req); !errors.Is(err, workflow.ErrAnalysisFailed) {
		t.Fatalf("error = %v, want %v", err, workflow.ErrAnalysisFailed)
	}
}

func TestStaffScoreHardFiltersRoleAndCertification(t *testing.T) {
	p := NewStaffProfile(defaultPolicy())
	req := workflow.Requirement{ID: "rn-1", Kind: "rn", Capabilities: []string{"acls"}}

	uncertified := candidate(1, "rn", "east", 0.1)
	wrongRole := candidate(2, "cna", "east", 0.1, "acls")
	eligible := candidate(3, "rn", "east", 0.1, "acls")

	if got := p.Score(req, uncertified); got.Score != 0 {
		t.Errorf("uncertified score = %.2f, want 0", got.Score)
	}
	if got := p.Score(req, wrongRole); got.Score != 0 {
		t.Errorf("wrong role score = %.2f, want 0", got.Score)
	}
	if got := p.Score(req, eligible); got.Score <= 0 {
		t.Errorf("eligible score = %.2f, want positive", got.Score)
	}
}

func TestStaffRestIntervalRule(t *testing.T) {
	p := NewStaffProfile(defaultPolicy())

	tired := candidate(1, "rn", "east", 0.95)
	rested := candidate(2, "rn", "east", 0.2)
	plan := workflow.Plan{}.Replace("rn-1", tired.ID, 0.5).Replace("rn-2", rested.ID, 0.9)

	byID := map[uuid.UUID]workflow.Candidate{tired.ID: tired, rested.ID: rested}
	violations := workflow.Validate(plan, p.Rules(), nil, byID)

	found := 0
	for _, v := range violations {
		if v.RuleID == RuleRestInterval {
			found++
			if len(v.RequirementIDs) != 1 || v.RequirementIDs[0] != "rn-1" {
				t.Errorf("rest violation = %+v, want flagging rn-1", v)
			}
		}
	}
	if found != 1 {
		t.Errorf("rest violations = %d, want 1", found)
	}
}

func TestSupplyAnalyzeRequiresItem(t *testing.T) {
	p := NewSupplyProfile(defaultPolicy())

	if _, err := p.AnalyzeRequirements(context.Background(), workflow.AllocationRequest{Domain: workflow.DomainSupply}); !errors.Is(err, workflow.ErrAnalysisFailed) {
		t.Fatalf("error = %v, want %v", err, workflow.ErrAnalysisFailed)
	}
}

func TestSupplyAnalyzeExpandsQuantity(t *testing.T) {
	p := NewSupplyProfile(defaultPolicy())
	req := workflow.AllocationRequest{
		Domain:     workflow.DomainSupply,
		Urgency:    workflow.UrgencyEmergency,
		Subject:    "pharmacy",
		Attributes: map[string]string{"item": "vaccine", "quantity": "2", "cold_chain": "true"},
	}

	reqs, err := p.AnalyzeRequirements(context.Background(), req)
	if err != nil {
		t.Fatalf("AnalyzeRequirements: %v", err)
	}
	if len(reqs) != 2 {
		t.Fatalf("requirements = %d, want 2", len(reqs))
	}
	for _, r := range reqs {
		if r.Kind != "vaccine" || !r.Critical {
			t.Errorf("requirement = %+v, want critical vaccine line", r)
		}
		if len(r.Capabilities) != 1 || r.Capabilities[0] != "cold_chain" {
			t.Errorf("capabilities = %v, want [cold_chain]", r.Capabilities)
		}
	}
}

func TestSupplyScoreHardFiltersColdChain(t *testing.T) {
	p := NewSupplyProfile(defaultPolicy())
	req := workflow.Requirement{ID: "vaccine-1", Kind: "vaccine", Capabilities: []string{"cold_chain"}}

	ambient := candidate(1, "vaccine", "central", 0.1)
	fridge := candidate(2, "vaccine", "central", 0.4, "cold_chain")

	if got := p.Score(req, ambient); got.Score != 0 {
		t.Errorf("ambient storage score = %.2f, want 0", got.Score)
	}
	if got := p.Score(req, fridge); got.Score <= 0 {
		t.Errorf("cold storage score = %.2f, want positive", got.Score)
	}
}

func TestSupplyCoordinationOnBulkOrders(t *testing.T) {
	p := NewSupplyProfile(defaultPolicy())
	req := workflow.AllocationRequest{ID: uuid.New(), Domain: workflow.DomainSupply, Subject: "pharmacy"}

	small := workflow.Plan{}
	for i := 1; i <= 3; i++ {
		small = small.Replace(fmt.Sprintf("glove-%d", i), uuid.New(), 1)
	}
	if coords := p.Coordination(req, small); len(coords) != 0 {
		t.Errorf("small order coordination = %+v, want none", coords)
	}

	bulk := workflow.Plan{}
	for i := 1; i <= 12; i++ {
		bulk = bulk.Replace(fmt.Sprintf("glove-%d", i), uuid.New(), 1)
	}
	coords := p.Coordination(req, bulk)
	if len(coords) != 1 || coords[0].To != workflow.DomainStaff || coords[0].Action != "schedule_delivery" {
		t.Fatalf("bulk order coordination = %+v, want schedule_delivery to staff", coords)
	}
}

func TestCoverageGapRuleNamesMissingCapabilities(t *testing.T) {
	rule := coverageGapRule("bed")
	reqs := []workflow.Requirement{
		{ID: "bed-1", Kind: "bed", Capabilities: []string{"isolation", "icu"}, Critical: true},
	}
	plan := workflow.Plan{Gaps: []string{"bed-1"}}

	violations := rule.Check(plan, reqs, nil)
	if len(violations) != 1 {
		t.Fatalf("violations = %d, want 1", len(violations))
	}

	v := violations[0]
	if v.Severity != workflow.SeverityCritical {
		t.Errorf("severity = %s, want critical", v.Severity)
	}
	if v.Message == "" || v.RequirementIDs[0] != "bed-1" {
		t.Errorf("violation = %+v, want message naming bed-1", v)
	}
}
