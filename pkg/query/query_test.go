package query

import (
	"reflect"
	"testing"
)

func testProjection() *ProjectionMap {
	return NewProjectionMap("public", "resources", "r").
		Project("id", "ID").
		Project("domain", "Domain").
		Project("name", "Name").
		Project("capabilities", "Capabilities")
}

func TestBuildNoConditions(t *testing.T) {
	sql, args := NewBuilder(testProjection()).Build()

	want := "SELECT r.id, r.domain, r.name, r.capabilities FROM public.resources r"
	if sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}
	if len(args) != 0 {
		t.Errorf("args = %v, want none", args)
	}
}

func TestBuildParameterNumbering(t *testing.T) {
	domain := "bed"
	name := "icu"

	sql, args := NewBuilder(testProjection()).
		WhereEquals("Domain", &domain).
		WhereContains("Name", &name).
		WhereJSONContains("Capabilities", []byte(`["isolation"]`)).
		Build()

	want := "SELECT r.id, r.domain, r.name, r.capabilities FROM public.resources r" +
		" WHERE r.domain = $1 AND r.name ILIKE $2 AND r.capabilities @> $3"
	if sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}
	if len(args) != 3 {
		t.Fatalf("args = %d, want 3", len(args))
	}
	if args[1] != "%icu%" {
		t.Errorf("args[1] = %v, want ILIKE pattern", args[1])
	}
}

func TestBuildSkipsNilConditions(t *testing.T) {
	var domain *string

	sql, args := NewBuilder(testProjection()).
		WhereEquals("Domain", domain).
		WhereContains("Name", nil).
		WhereJSONContains("Capabilities", nil).
		Build()

	if len(args) != 0 {
		t.Errorf("args = %v, want none for nil filters", args)
	}
	want := "SELECT r.id, r.domain, r.name, r.capabilities FROM public.resources r"
	if sql != want {
		t.Errorf("sql = %q, want no WHERE clause", sql)
	}
}

func TestBuildPage(t *testing.T) {
	domain := "staff"

	sql, args := NewBuilder(testProjection(), SortField{Field: "Name"}).
		WhereEquals("Domain", &domain).
		BuildPage(3, 25)

	want := "SELECT r.id, r.domain, r.name, r.capabilities FROM public.resources r" +
		" WHERE r.domain = $1 ORDER BY r.name ASC LIMIT 25 OFFSET 50"
	if sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}
	if len(args) != 1 || args[0] != &domain {
		t.Errorf("args = %v, want [&domain]", args)
	}
}

func TestBuildCount(t *testing.T) {
	domain := "supply"

	sql, args := NewBuilder(testProjection(), SortField{Field: "Name"}).
		WhereEquals("Domain", &domain).
		BuildCount()

	want := "SELECT COUNT(*) FROM public.resources r WHERE r.domain = $1"
	if sql != want {
		t.Errorf("sql = %q, want %q (no ORDER BY)", sql, want)
	}
	if len(args) != 1 {
		t.Errorf("args = %d, want 1", len(args))
	}
}

func TestOrderByFieldsOverridesDefault(t *testing.T) {
	sql, _ := NewBuilder(testProjection(), SortField{Field: "Name"}).
		OrderByFields([]SortField{{Field: "Domain", Descending: true}}).
		Build()

	want := "SELECT r.id, r.domain, r.name, r.capabilities FROM public.resources r ORDER BY r.domain DESC"
	if sql != want {
		t.Errorf("sql = %q, want explicit sort", sql)
	}
}

func TestBuildSingle(t *testing.T) {
	sql, args := NewBuilder(testProjection()).BuildSingle("ID", "abc")

	want := "SELECT r.id, r.domain, r.name, r.capabilities FROM public.resources r WHERE r.id = $1"
	if sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}
	if len(args) != 1 || args[0] != "abc" {
		t.Errorf("args = %v, want [abc]", args)
	}
}

func TestParseSortFields(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []SortField
	}{
		{"empty", "", nil},
		{"single ascending", "name", []SortField{{Field: "name"}}},
		{
			"mixed directions",
			"name, -updatedAt",
			[]SortField{{Field: "name"}, {Field: "updatedAt", Descending: true}},
		},
		{"skips blanks", "name,,", []SortField{{Field: "name"}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseSortFields(tc.input)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("ParseSortFields(%q) = %+v, want %+v", tc.input, got, tc.want)
			}
		})
	}
}

func TestProjectionColumnFallback(t *testing.T) {
	p := testProjection()
	if got := p.Column("Name"); got != "r.name" {
		t.Errorf("Column(Name) = %q, want r.name", got)
	}
	if got := p.Column("unmapped"); got != "unmapped" {
		t.Errorf("Column(unmapped) = %q, want passthrough", got)
	}
}
