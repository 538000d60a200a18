package requests

import (
	"encoding/json"
	"net/url"

	"github.com/ashbyfield/ward/pkg/query"
	"github.com/ashbyfield/ward/pkg/repository"
)

var projection = query.NewProjectionMap("public", "allocation_requests", "ar").
	Project("id", "ID").
	Project("domain", "Domain").
	Project("urgency", "Urgency").
	Project("subject", "Subject").
	Project("attributes", "Attributes").
	Project("preferences", "Preferences").
	Project("status", "Status").
	Project("failure_reason", "FailureReason").
	Project("submitted_at", "SubmittedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{Field: "SubmittedAt", Descending: true}

// Filters narrows request list queries.
type Filters struct {
	Domain  *string `json:"domain,omitempty"`
	Urgency *string `json:"urgency,omitempty"`
	Status  *string `json:"status,omitempty"`
}

// Apply adds the filter conditions to a query builder.
func (f Filters) Apply(qb *query.Builder) {
	if f.Domain != nil && *f.Domain != "" {
		qb.WhereEquals("Domain", *f.Domain)
	}
	if f.Urgency != nil && *f.Urgency != "" {
		qb.WhereEquals("Urgency", *f.Urgency)
	}
	if f.Status != nil && *f.Status != "" {
		qb.WhereEquals("Status", *f.Status)
	}
}

// FiltersFromQuery parses filter parameters from URL query values.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters
	if v := values.Get("domain"); v != "" {
		f.Domain = &v
	}
	if v := values.Get("urgency"); v != "" {
		f.Urgency = &v
	}
	if v := values.Get("status"); v != "" {
		f.Status = &v
	}
	return f
}

// scanRequest maps a row to a Request. Attributes and preferences are
// stored as jsonb objects.
func scanRequest(s repository.Scanner) (Request, error) {
	var (
		r           Request
		attributes  []byte
		preferences []byte
	)

	if err := s.Scan(
		&r.ID,
		&r.Domain,
		&r.Urgency,
		&r.Subject,
		&attributes,
		&preferences,
		&r.Status,
		&r.FailureReason,
		&r.SubmittedAt,
		&r.UpdatedAt,
	); err != nil {
		return r, err
	}

	if len(attributes) > 0 {
		if err := json.Unmarshal(attributes, &r.Attributes); err != nil {
			return r, err
		}
	}
	if len(preferences) > 0 {
		if err := json.Unmarshal(preferences, &r.Preferences); err != nil {
			return r, err
		}
	}
	return r, nil
}

func encodeMap(m map[string]string) ([]byte, error) {
	if m == nil {
		m = map[string]string{}
	}
	return json.Marshal(m)
}
