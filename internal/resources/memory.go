package resources

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ashbyfield/ward/pkg/pagination"
	"github.com/ashbyfield/ward/workflow"
)

// memory is a mutex-guarded in-memory System used for tests and local
// development. It honors the same optimistic commit semantics as the
// Postgres repository: version mismatch at commit time is a conflict.
type memory struct {
	mu          sync.Mutex
	items       map[uuid.UUID]*Resource
	assignments map[string]uuid.UUID
	pagination  pagination.Config
	clock       func() time.Time
}

// NewMemory creates an empty in-memory resource repository.
func NewMemory(pagination pagination.Config) System {
	return &memory{
		items:       make(map[uuid.UUID]*Resource),
		assignments: make(map[string]uuid.UUID),
		pagination:  pagination,
		clock:       time.Now,
	}
}

func (m *memory) FetchCandidates(_ context.Context, domain workflow.Domain, filter workflow.CandidateFilter) ([]workflow.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	candidates := make([]workflow.Candidate, 0)
	for _, r := range m.items {
		if r.Domain != domain || r.Status != workflow.StatusAvailable {
			continue
		}
		if filter.Kind != "" && r.Kind != filter.Kind {
			continue
		}
		if !containsAll(r.Capabilities, filter.Capabilities) {
			continue
		}
		candidates = append(candidates, r.Candidate())
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ID.String() < candidates[j].ID.String()
	})
	return candidates, nil
}

func (m *memory) FetchUtilization(_ context.Context, domain workflow.Domain, pool string) (workflow.Utilization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	util := workflow.Utilization{Pool: pool}
	count := 0
	for _, r := range m.items {
		if r.Domain != domain || r.Location != pool {
			continue
		}
		util.Capacity += r.Capacity
		util.InUse += r.Assigned
		util.Load += r.Load
		count++
	}
	if count > 0 {
		util.Load /= float64(count)
	}
	return util, nil
}

func (m *memory) CommitAssignment(_ context.Context, domain workflow.Domain, a workflow.Assignment, expected workflow.Candidate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.items[a.ResourceID]
	if !ok || r.Domain != domain {
		return workflow.ErrCommitConflict
	}
	if r.Version != expected.Version || r.Status != workflow.StatusAvailable {
		return workflow.ErrCommitConflict
	}

	r.Assigned++
	r.Load = min(1, float64(r.Assigned)/float64(max(r.Capacity, 1)))
	if r.Assigned >= r.Capacity {
		r.Status = workflow.StatusAssigned
	}
	r.Version++
	r.UpdatedAt = m.clock()

	m.assignments[assignmentKey(domain, a)] = a.ResourceID
	return nil
}

func (m *memory) Release(_ context.Context, domain workflow.Domain, assignments []workflow.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range assignments {
		key := assignmentKey(domain, a)
		if _, ok := m.assignments[key]; !ok {
			continue
		}
		delete(m.assignments, key)

		r, ok := m.items[a.ResourceID]
		if !ok {
			continue
		}
		r.Assigned = max(r.Assigned-1, 0)
		r.Load = min(1, float64(r.Assigned)/float64(max(r.Capacity, 1)))
		if r.Status == workflow.StatusAssigned {
			r.Status = workflow.StatusAvailable
		}
		r.Version++
		r.UpdatedAt = m.clock()
	}
	return nil
}

func (m *memory) List(_ context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Resource], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	page.Normalize(m.pagination)

	matched := make([]Resource, 0, len(m.items))
	for _, r := range m.items {
		if filters.Domain != nil && string(r.Domain) != *filters.Domain {
			continue
		}
		if filters.Kind != nil && r.Kind != *filters.Kind {
			continue
		}
		if filters.Status != nil && r.Status != *filters.Status {
			continue
		}
		if filters.Location != nil && r.Location != *filters.Location {
			continue
		}
		matched = append(matched, *r)
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })

	total := len(matched)
	start := min(page.Offset(), total)
	end := min(start+page.PageSize, total)

	result := pagination.NewPageResult(matched[start:end], total, page.Page, page.PageSize)
	return &result, nil
}

func (m *memory) Find(_ context.Context, id uuid.UUID) (*Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}

	found := *r
	return &found, nil
}

func (m *memory) Create(_ context.Context, cmd CreateCommand) (*Resource, error) {
	if !cmd.Domain.Valid() {
		return nil, fmt.Errorf("%w: unknown domain %q", ErrInvalidInput, cmd.Domain)
	}
	if cmd.Name == "" || cmd.Kind == "" {
		return nil, fmt.Errorf("%w: name and kind are required", ErrInvalidInput)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	r := &Resource{
		ID:           uuid.New(),
		Domain:       cmd.Domain,
		Name:         cmd.Name,
		Kind:         cmd.Kind,
		Status:       workflow.StatusAvailable,
		Capabilities: slices.Clone(cmd.Capabilities),
		Location:     cmd.Location,
		Capacity:     max(cmd.Capacity, 1),
		Version:      1,
		UpdatedAt:    m.clock(),
	}
	m.items[r.ID] = r

	created := *r
	return &created, nil
}

func (m *memory) SetStatus(_ context.Context, id uuid.UUID, cmd StatusCommand) (*Resource, error) {
	if !slices.Contains(validStatuses, cmd.Status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, cmd.Status)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}

	r.Status = cmd.Status
	r.Version++
	r.UpdatedAt = m.clock()

	updated := *r
	return &updated, nil
}

func (m *memory) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func assignmentKey(domain workflow.Domain, a workflow.Assignment) string {
	return strings.Join([]string{string(domain), a.RequirementID, a.ResourceID.String()}, "|")
}

func containsAll(have, want []string) bool {
	for _, w := range want {
		if !slices.Contains(have, w) {
			return false
		}
	}
	return true
}
