// Package resources implements the resource repository for Ward: the
// store of record for beds, staff, and supply units. It serves candidate
// snapshots to workflow engines and owns the optimistic check-and-commit
// that guarantees at-most-one-writer-per-resource at implementation time.
package resources

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ashbyfield/ward/pkg/pagination"
	"github.com/ashbyfield/ward/workflow"
)

// Resource is the persisted form of an allocatable resource. The workflow
// engine only ever sees it as a workflow.Candidate snapshot.
type Resource struct {
	ID           uuid.UUID       `json:"id"`
	Domain       workflow.Domain `json:"domain"`
	Name         string          `json:"name"`
	Kind         string          `json:"kind"`
	Status       string          `json:"status"`
	Capabilities []string        `json:"capabilities,omitempty"`
	Location     string          `json:"location,omitempty"`
	Capacity     int             `json:"capacity"`
	Assigned     int             `json:"assigned"`
	Load         float64         `json:"load"`
	Version      int64           `json:"version"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Candidate converts the resource to a point-in-time workflow snapshot.
func (r *Resource) Candidate() workflow.Candidate {
	return workflow.Candidate{
		ID:           r.ID,
		Name:         r.Name,
		Kind:         r.Kind,
		Status:       r.Status,
		Capabilities: r.Capabilities,
		Location:     r.Location,
		Capacity:     r.Capacity,
		Load:         r.Load,
		Version:      r.Version,
	}
}

// CreateCommand carries the data needed to register a new resource.
type CreateCommand struct {
	Domain       workflow.Domain `json:"domain"`
	Name         string          `json:"name"`
	Kind         string          `json:"kind"`
	Capabilities []string        `json:"capabilities,omitempty"`
	Location     string          `json:"location,omitempty"`
	Capacity     int             `json:"capacity"`
}

// StatusCommand updates a resource's availability out-of-band, e.g. a bed
// taken down for cleaning. Bumps the version so in-flight runs holding a
// stale snapshot conflict at commit.
type StatusCommand struct {
	Status string `json:"status"`
}

// System is the full resource repository surface: the narrow
// workflow.Repository contract consumed by engines plus the management
// operations exposed over REST.
type System interface {
	workflow.Repository

	List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Resource], error)
	Find(ctx context.Context, id uuid.UUID) (*Resource, error)
	Create(ctx context.Context, cmd CreateCommand) (*Resource, error)
	SetStatus(ctx context.Context, id uuid.UUID, cmd StatusCommand) (*Resource, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
