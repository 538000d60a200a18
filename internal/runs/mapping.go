package runs

import (
	"database/sql"
	"encoding/json"
	"net/url"

	"github.com/ashbyfield/ward/pkg/query"
	"github.com/ashbyfield/ward/pkg/repository"
	"github.com/ashbyfield/ward/workflow"
)

var projection = query.NewProjectionMap("public", "workflow_runs", "wr").
	Project("id", "ID").
	Project("request_id", "RequestID").
	Project("domain", "Domain").
	Project("state", "State").
	Project("status", "Status").
	Project("iterations", "Iterations").
	Project("plan", "Plan").
	Project("log", "Log").
	Project("failure_reason", "FailureReason").
	Project("started_at", "StartedAt").
	Project("completed_at", "CompletedAt")

var defaultSort = query.SortField{Field: "StartedAt", Descending: true}

// Filters narrows run list queries.
type Filters struct {
	Domain    *string `json:"domain,omitempty"`
	Status    *string `json:"status,omitempty"`
	RequestID *string `json:"request_id,omitempty"`
}

// Apply adds the filter conditions to a query builder.
func (f Filters) Apply(qb *query.Builder) {
	if f.Domain != nil && *f.Domain != "" {
		qb.WhereEquals("Domain", *f.Domain)
	}
	if f.Status != nil && *f.Status != "" {
		qb.WhereEquals("Status", *f.Status)
	}
	if f.RequestID != nil && *f.RequestID != "" {
		qb.WhereEquals("RequestID", *f.RequestID)
	}
}

// FiltersFromQuery parses filter parameters from URL query values.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters
	if v := values.Get("domain"); v != "" {
		f.Domain = &v
	}
	if v := values.Get("status"); v != "" {
		f.Status = &v
	}
	if v := values.Get("request_id"); v != "" {
		f.RequestID = &v
	}
	return f
}

// scanRun maps a row to a workflow.Run. The plan and execution log are
// stored as jsonb documents.
func scanRun(s repository.Scanner) (workflow.Run, error) {
	var (
		r           workflow.Run
		plan        []byte
		log         []byte
		completedAt sql.NullTime
	)

	if err := s.Scan(
		&r.ID,
		&r.RequestID,
		&r.Domain,
		&r.State,
		&r.Status,
		&r.Iterations,
		&plan,
		&log,
		&r.FailureReason,
		&r.StartedAt,
		&completedAt,
	); err != nil {
		return r, err
	}

	if len(plan) > 0 {
		if err := json.Unmarshal(plan, &r.Plan); err != nil {
			return r, err
		}
	}
	if len(log) > 0 {
		if err := json.Unmarshal(log, &r.Log); err != nil {
			return r, err
		}
	}
	if completedAt.Valid {
		r.CompletedAt = completedAt.Time
	}
	return r, nil
}
