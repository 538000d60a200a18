// Package requests tracks allocation requests through their lifecycle:
// accepted over HTTP, dispatched to a domain agent, and resolved by the
// terminal state of the workflow run that consumed them.
package requests

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ashbyfield/ward/pkg/pagination"
	"github.com/ashbyfield/ward/workflow"
)

// Request lifecycle statuses.
const (
	StatusQueued    = "queued"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Request is a tracked allocation request.
type Request struct {
	ID            uuid.UUID         `json:"id"`
	Domain        workflow.Domain   `json:"domain"`
	Urgency       workflow.Urgency  `json:"urgency"`
	Subject       string            `json:"subject"`
	Attributes    map[string]string `json:"attributes,omitempty"`
	Preferences   map[string]string `json:"preferences,omitempty"`
	Status        string            `json:"status"`
	FailureReason string            `json:"failure_reason,omitempty"`
	SubmittedAt   time.Time         `json:"submitted_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// Active reports whether the request still has a run in flight.
func (r Request) Active() bool {
	return r.Status == StatusQueued
}

// Allocation converts the tracked request into the engine's input form.
func (r Request) Allocation() workflow.AllocationRequest {
	return workflow.AllocationRequest{
		ID:          r.ID,
		Domain:      r.Domain,
		Urgency:     r.Urgency,
		Subject:     r.Subject,
		Attributes:  r.Attributes,
		Preferences: r.Preferences,
		SubmittedAt: r.SubmittedAt,
	}
}

// SubmitCommand creates a new allocation request.
type SubmitCommand struct {
	Domain      workflow.Domain   `json:"domain"`
	Urgency     workflow.Urgency  `json:"urgency"`
	Subject     string            `json:"subject"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	Preferences map[string]string `json:"preferences,omitempty"`
}

// System is the operational surface for request tracking.
type System interface {
	List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Request], error)
	Find(ctx context.Context, id uuid.UUID) (*Request, error)
	Create(ctx context.Context, cmd SubmitCommand) (*Request, error)
	Resolve(ctx context.Context, id uuid.UUID, status, reason string) (*Request, error)
	ResolveQueued(ctx context.Context, id uuid.UUID, status, reason string) (*Request, error)
}

// Dispatcher hands accepted requests to the agent service.
type Dispatcher interface {
	Submit(req workflow.AllocationRequest) error
	Cancel(requestID uuid.UUID) bool
}
