package resources

import (
	"encoding/json"
	"net/url"

	"github.com/ashbyfield/ward/pkg/query"
	"github.com/ashbyfield/ward/pkg/repository"
)

var projection = query.NewProjectionMap("public", "resources", "r").
	Project("id", "ID").
	Project("domain", "Domain").
	Project("name", "Name").
	Project("kind", "Kind").
	Project("status", "Status").
	Project("capabilities", "Capabilities").
	Project("location", "Location").
	Project("capacity", "Capacity").
	Project("assigned", "Assigned").
	Project("load", "Load").
	Project("version", "Version").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{Field: "Name"}

// Filters narrows resource list queries.
type Filters struct {
	Domain   *string `json:"domain,omitempty"`
	Kind     *string `json:"kind,omitempty"`
	Status   *string `json:"status,omitempty"`
	Location *string `json:"location,omitempty"`
}

// Apply adds the filter conditions to a query builder.
func (f Filters) Apply(qb *query.Builder) {
	if f.Domain != nil && *f.Domain != "" {
		qb.WhereEquals("Domain", *f.Domain)
	}
	if f.Kind != nil && *f.Kind != "" {
		qb.WhereEquals("Kind", *f.Kind)
	}
	if f.Status != nil && *f.Status != "" {
		qb.WhereEquals("Status", *f.Status)
	}
	if f.Location != nil && *f.Location != "" {
		qb.WhereEquals("Location", *f.Location)
	}
}

// FiltersFromQuery parses filter parameters from URL query values.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters
	if v := values.Get("domain"); v != "" {
		f.Domain = &v
	}
	if v := values.Get("kind"); v != "" {
		f.Kind = &v
	}
	if v := values.Get("status"); v != "" {
		f.Status = &v
	}
	if v := values.Get("location"); v != "" {
		f.Location = &v
	}
	return f
}

// scanResource maps a row to a Resource. Capabilities are stored as a
// jsonb array and decoded here.
func scanResource(s repository.Scanner) (Resource, error) {
	var (
		r    Resource
		caps []byte
	)

	if err := s.Scan(
		&r.ID,
		&r.Domain,
		&r.Name,
		&r.Kind,
		&r.Status,
		&caps,
		&r.Location,
		&r.Capacity,
		&r.Assigned,
		&r.Load,
		&r.Version,
		&r.UpdatedAt,
	); err != nil {
		return r, err
	}

	if len(caps) > 0 {
		if err := json.Unmarshal(caps, &r.Capabilities); err != nil {
			return r, err
		}
	}
	return r, nil
}

func encodeCapabilities(caps []string) ([]byte, error) {
	if caps == nil {
		caps = []string{}
	}
	return json.Marshal(caps)
}
