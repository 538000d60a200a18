package agents

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ashbyfield/ward/internal/resources"
	"github.com/ashbyfield/ward/pkg/lifecycle"
	"github.com/ashbyfield/ward/pkg/pagination"
	"github.com/ashbyfield/ward/workflow"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type approveReviewer struct{}

func (approveReviewer) RequestReview(context.Context, workflow.Plan, []workflow.Violation) (workflow.ReviewDecision, error) {
	return workflow.ReviewDecision{Approved: true, Reviewer: "charge-nurse"}, nil
}

func newTestService(t *testing.T, sys resources.System) *Service {
	t.Helper()

	cfg := workflow.Config{MaxIterations: 4, HighQuality: 0.85, LowQuality: 0.55, ReviewTimeout: "5s"}
	rt := workflow.Runtime{
		Resources: sys,
		Reviewer:  approveReviewer{},
		Logger:    testLogger(),
	}

	svc, err := NewService(cfg, rt, testLogger(),
		NewBedProfile(defaultPolicy()),
		NewStaffProfile(defaultPolicy()),
		NewSupplyProfile(defaultPolicy()),
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func seedBed(t *testing.T, sys resources.System, name string, caps ...string) *resources.Resource {
	t.Helper()

	r, err := sys.Create(context.Background(), resources.CreateCommand{
		Domain:       workflow.DomainBed,
		Name:         name,
		Kind:         "bed",
		Capabilities: caps,
		Location:     "east",
		Capacity:     1,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return r
}

func TestServiceExecutePlacesPatient(t *testing.T) {
	sys := resources.NewMemory(pagination.Config{DefaultPageSize: 20, MaxPageSize: 100})
	seedBed(t, sys, "icu-1", "icu", "isolation")
	svc := newTestService(t, sys)

	run, err := svc.Execute(context.Background(), workflow.AllocationRequest{
		ID:         uuid.New(),
		Domain:     workflow.DomainBed,
		Urgency:    workflow.UrgencyUrgent,
		Subject:    "patient-1",
		Attributes: map[string]string{"unit": "icu", "isolation": "true"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if run.Status != workflow.RunCompleted {
		t.Fatalf("status = %s, want %s (reason: %s)", run.Status, workflow.RunCompleted, run.FailureReason)
	}
	if len(run.Plan.Assignments) != 1 {
		t.Fatalf("assignments = %d, want 1", len(run.Plan.Assignments))
	}

	committed, err := sys.Find(context.Background(), run.Plan.Assignments[0].ResourceID)
	if err != nil {
		t.Fatal(err)
	}
	if committed.Status != workflow.StatusAssigned {
		t.Errorf("resource status = %s, want %s", committed.Status, workflow.StatusAssigned)
	}
}

func TestServiceExecuteUnknownDomain(t *testing.T) {
	sys := resources.NewMemory(pagination.Config{DefaultPageSize: 20, MaxPageSize: 100})
	svc, err := NewService(
		workflow.Config{MaxIterations: 4, HighQuality: 0.85, LowQuality: 0.55, ReviewTimeout: "5s"},
		workflow.Runtime{Resources: sys, Reviewer: approveReviewer{}, Logger: testLogger()},
		testLogger(),
		NewBedProfile(defaultPolicy()),
	)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Execute(context.Background(), workflow.AllocationRequest{
		ID:     uuid.New(),
		Domain: workflow.DomainSupply,
	}); err == nil {
		t.Fatal("Execute accepted a domain with no registered agent")
	}
}

func TestServiceSubmitRequiresStart(t *testing.T) {
	sys := resources.NewMemory(pagination.Config{DefaultPageSize: 20, MaxPageSize: 100})
	svc := newTestService(t, sys)

	err := svc.Submit(workflow.AllocationRequest{ID: uuid.New(), Domain: workflow.DomainBed})
	if err == nil {
		t.Fatal("Submit succeeded before Start")
	}
}

func TestServiceSubmitRunsAsynchronously(t *testing.T) {
	sys := resources.NewMemory(pagination.Config{DefaultPageSize: 20, MaxPageSize: 100})
	seedBed(t, sys, "ward-1")
	svc := newTestService(t, sys)

	var mu sync.Mutex
	var completed *workflow.Run
	done := make(chan struct{})
	svc.OnComplete = func(_ workflow.AllocationRequest, run *workflow.Run) {
		mu.Lock()
		completed = run
		mu.Unlock()
		close(done)
	}

	lc := lifecycle.New()
	svc.Start(lc, 2)
	defer lc.Shutdown(time.Second)

	err := svc.Submit(workflow.AllocationRequest{
		ID:      uuid.New(),
		Domain:  workflow.DomainBed,
		Urgency: workflow.UrgencyRoutine,
		Subject: "patient-2",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run never completed")
	}

	mu.Lock()
	defer mu.Unlock()
	if completed.Status != workflow.RunCompleted {
		t.Errorf("status = %s, want %s (reason: %s)", completed.Status, workflow.RunCompleted, completed.FailureReason)
	}
	if svc.Active() != 0 {
		t.Errorf("active = %d after completion, want 0", svc.Active())
	}
}

func TestServiceCancelUnknownRequest(t *testing.T) {
	sys := resources.NewMemory(pagination.Config{DefaultPageSize: 20, MaxPageSize: 100})
	svc := newTestService(t, sys)

	if svc.Cancel(uuid.New()) {
		t.Fatal("Cancel reported an active run for an unknown request")
	}
}
