// Package runs persists the audit trail of workflow executions. Every run
// is recorded at its terminal state with its final plan and execution log,
// so an allocation decision can always be reconstructed after the fact.
package runs

import (
	"context"

	"github.com/google/uuid"

	"github.com/ashbyfield/ward/pkg/pagination"
	"github.com/ashbyfield/ward/workflow"
)

// System is the read surface over recorded runs. Writes happen only
// through the workflow.Auditor contract.
type System interface {
	workflow.Auditor

	List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[workflow.Run], error)
	Find(ctx context.Context, id uuid.UUID) (*workflow.Run, error)
	FindByRequest(ctx context.Context, requestID uuid.UUID) ([]workflow.Run, error)
}
