package resources

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/ashbyfield/ward/pkg/pagination"
	"github.com/ashbyfield/ward/workflow"
)

func testPagination() pagination.Config {
	return pagination.Config{DefaultPageSize: 20, MaxPageSize: 100}
}

func seed(t *testing.T, sys System, cmd CreateCommand) *Resource {
	t.Helper()

	r, err := sys.Create(context.Background(), cmd)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return r
}

func TestMemoryCreateValidation(t *testing.T) {
	sys := NewMemory(testPagination())

	if _, err := sys.Create(context.Background(), CreateCommand{Domain: "pharmacy", Name: "x", Kind: "y"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("unknown domain error = %v, want %v", err, ErrInvalidInput)
	}
	if _, err := sys.Create(context.Background(), CreateCommand{Domain: workflow.DomainBed, Kind: "bed"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("missing name error = %v, want %v", err, ErrInvalidInput)
	}

	r := seed(t, sys, CreateCommand{Domain: workflow.DomainBed, Name: "icu-1", Kind: "bed"})
	if r.Capacity != 1 || r.Version != 1 || r.Status != workflow.StatusAvailable {
		t.Errorf("resource = %+v, want capacity 1, version 1, available", r)
	}
}

func TestMemoryFetchCandidatesFilters(t *testing.T) {
	sys := NewMemory(testPagination())
	seed(t, sys, CreateCommand{Domain: workflow.DomainBed, Name: "iso-1", Kind: "bed", Capabilities: []string{"isolation"}})
	seed(t, sys, CreateCommand{Domain: workflow.DomainBed, Name: "open-1", Kind: "bed"})
	seed(t, sys, CreateCommand{Domain: workflow.DomainStaff, Name: "rn-1", Kind: "rn", Capabilities: []string{"isolation"}})

	candidates, err := sys.FetchCandidates(context.Background(), workflow.DomainBed, workflow.CandidateFilter{
		Kind:         "bed",
		Capabilities: []string{"isolation"},
	})
	if err != nil {
		t.Fatalf("FetchCandidates: %v", err)
	}
	if len(candidates) != 1 || candidates[0].Name != "iso-1" {
		t.Fatalf("candidates = %+v, want only iso-1", candidates)
	}
}

func TestMemoryCommitConcurrentSingleWinner(t *testing.T) {
	sys := NewMemory(testPagination())
	r := seed(t, sys, CreateCommand{Domain: workflow.DomainBed, Name: "icu-1", Kind: "bed", Capacity: 1})

	expected := r.Candidate()

	const racers = 8
	var wg sync.WaitGroup
	results := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = sys.CommitAssignment(context.Background(), workflow.DomainBed, workflow.Assignment{
				RequirementID: "bed-1",
				ResourceID:    r.ID,
			}, expected)
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range results {
		if err == nil {
			won++
		} else if !errors.Is(err, workflow.ErrCommitConflict) {
			t.Errorf("commit error = %v, want %v", err, workflow.ErrCommitConflict)
		}
	}
	if won != 1 {
		t.Fatalf("winners = %d, want exactly 1", won)
	}

	committed, err := sys.Find(context.Background(), r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if committed.Assigned != 1 || committed.Status != workflow.StatusAssigned || committed.Version != r.Version+1 {
		t.Errorf("resource after commit = %+v, want assigned at version %d", committed, r.Version+1)
	}
}

func TestMemoryCommitStaleVersionConflicts(t *testing.T) {
	sys := NewMemory(testPagination())
	r := seed(t, sys, CreateCommand{Domain: workflow.DomainBed, Name: "icu-1", Kind: "bed", Capacity: 2})

	stale := r.Candidate()
	stale.Version = r.Version - 1

	err := sys.CommitAssignment(context.Background(), workflow.DomainBed, workflow.Assignment{
		RequirementID: "bed-1",
		ResourceID:    r.ID,
	}, stale)
	if !errors.Is(err, workflow.ErrCommitConflict) {
		t.Fatalf("stale commit error = %v, want %v", err, workflow.ErrCommitConflict)
	}
}

func TestMemoryReleaseRestoresAvailability(t *testing.T) {
	sys := NewMemory(testPagination())
	r := seed(t, sys, CreateCommand{Domain: workflow.DomainBed, Name: "icu-1", Kind: "bed", Capacity: 1})

	a := workflow.Assignment{RequirementID: "bed-1", ResourceID: r.ID}
	if err := sys.CommitAssignment(context.Background(), workflow.DomainBed, a, r.Candidate()); err != nil {
		t.Fatalf("CommitAssignment: %v", err)
	}
	if err := sys.Release(context.Background(), workflow.DomainBed, []workflow.Assignment{a}); err != nil {
		t.Fatalf("Release: %v", err)
	}

	released, err := sys.Find(context.Background(), r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if released.Assigned != 0 || released.Status != workflow.StatusAvailable {
		t.Errorf("resource after release = %+v, want available with no assignments", released)
	}

	// Releasing an assignment that was never committed is a no-op.
	if err := sys.Release(context.Background(), workflow.DomainBed, []workflow.Assignment{
		{RequirementID: "ghost", ResourceID: uuid.New()},
	}); err != nil {
		t.Fatalf("Release of unknown assignment: %v", err)
	}
}

func TestMemorySetStatus(t *testing.T) {
	sys := NewMemory(testPagination())
	r := seed(t, sys, CreateCommand{Domain: workflow.DomainBed, Name: "icu-1", Kind: "bed"})

	if _, err := sys.SetStatus(context.Background(), r.ID, StatusCommand{Status: "broken"}); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("invalid status error = %v, want %v", err, ErrInvalidStatus)
	}

	updated, err := sys.SetStatus(context.Background(), r.ID, StatusCommand{Status: workflow.StatusUnavailable})
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if updated.Status != workflow.StatusUnavailable || updated.Version != r.Version+1 {
		t.Errorf("updated = %+v, want unavailable at version %d", updated, r.Version+1)
	}

	// Unavailable resources never appear as candidates.
	candidates, err := sys.FetchCandidates(context.Background(), workflow.DomainBed, workflow.CandidateFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 0 {
		t.Errorf("candidates = %+v, want none", candidates)
	}
}

func TestMemoryListPagination(t *testing.T) {
	sys := NewMemory(testPagination())
	for _, name := range []string{"alpha", "bravo", "charlie"} {
		seed(t, sys, CreateCommand{Domain: workflow.DomainBed, Name: name, Kind: "bed"})
	}
	seed(t, sys, CreateCommand{Domain: workflow.DomainStaff, Name: "delta", Kind: "rn"})

	domain := "bed"
	result, err := sys.List(context.Background(), pagination.PageRequest{Page: 1, PageSize: 2}, Filters{Domain: &domain})
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if result.Total != 3 || result.TotalPages != 2 {
		t.Errorf("result = total %d pages %d, want 3 across 2", result.Total, result.TotalPages)
	}
	if len(result.Data) != 2 || result.Data[0].Name != "alpha" || result.Data[1].Name != "bravo" {
		t.Errorf("page 1 = %+v, want [alpha bravo]", result.Data)
	}
}
