// Package review provides the human-review collaborator. The engine
// blocks on RequestReview up to its configured timeout; a real approval
// workflow can replace the auto-approver without touching the engine.
package review

import (
	"context"
	"log/slog"

	"github.com/ashbyfield/ward/workflow"
)

// AutoApprover approves every plan after an optional delay. It stands in
// for a real approval workflow and still honors context cancellation, so
// engine timeout semantics behave identically against it.
type AutoApprover struct {
	Reviewer string
	Logger   *slog.Logger
}

// NewAutoApprover creates an auto-approving reviewer.
func NewAutoApprover(logger *slog.Logger) *AutoApprover {
	return &AutoApprover{
		Reviewer: "auto-approver",
		Logger:   logger.With("system", "review"),
	}
}

// RequestReview approves the plan unless the context has already expired.
func (a *AutoApprover) RequestReview(ctx context.Context, plan workflow.Plan, violations []workflow.Violation) (workflow.ReviewDecision, error) {
	if err := ctx.Err(); err != nil {
		return workflow.ReviewDecision{}, err
	}

	a.Logger.Info(
		"plan auto-approved",
		"assignments", len(plan.Assignments),
		"violations", len(violations),
		"critical", workflow.CountCritical(violations),
	)

	return workflow.ReviewDecision{
		Approved: true,
		Reviewer: a.Reviewer,
		Note:     "approved automatically",
	}, nil
}

// Pending is a reviewer that never answers. It exists for exercising the
// engine's timeout and relaxed-constraint retry paths.
type Pending struct{}

// RequestReview blocks until the context expires.
func (Pending) RequestReview(ctx context.Context, _ workflow.Plan, _ []workflow.Violation) (workflow.ReviewDecision, error) {
	<-ctx.Done()
	return workflow.ReviewDecision{}, ctx.Err()
}
