package pagination

import (
	"net/url"
	"testing"
)

func testConfig() Config {
	return Config{DefaultPageSize: 20, MaxPageSize: 100}
}

func TestPageRequestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		req      PageRequest
		wantPage int
		wantSize int
	}{
		{"zero values", PageRequest{}, 1, 20},
		{"negative page", PageRequest{Page: -3, PageSize: 10}, 1, 10},
		{"oversized page", PageRequest{Page: 2, PageSize: 500}, 2, 100},
		{"valid passthrough", PageRequest{Page: 4, PageSize: 50}, 4, 50},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.req.Normalize(testConfig())
			if tc.req.Page != tc.wantPage || tc.req.PageSize != tc.wantSize {
				t.Errorf("normalized = page %d size %d, want page %d size %d",
					tc.req.Page, tc.req.PageSize, tc.wantPage, tc.wantSize)
			}
		})
	}
}

func TestPageRequestOffset(t *testing.T) {
	req := PageRequest{Page: 3, PageSize: 25}
	if got := req.Offset(); got != 50 {
		t.Errorf("Offset = %d, want 50", got)
	}
}

func TestPageRequestFromQuery(t *testing.T) {
	values := url.Values{}
	values.Set("page", "2")
	values.Set("page_size", "10")
	values.Set("search", "icu")
	values.Set("sort", "name,-updatedAt")

	req := PageRequestFromQuery(values, testConfig())

	if req.Page != 2 || req.PageSize != 10 {
		t.Errorf("request = page %d size %d, want page 2 size 10", req.Page, req.PageSize)
	}
	if req.Search == nil || *req.Search != "icu" {
		t.Errorf("search = %v, want icu", req.Search)
	}
	if len(req.Sort) != 2 || !req.Sort[1].Descending {
		t.Errorf("sort = %+v, want name asc then updatedAt desc", req.Sort)
	}
}

func TestNewPageResult(t *testing.T) {
	result := NewPageResult([]string{"a", "b"}, 5, 1, 2)

	if result.TotalPages != 3 {
		t.Errorf("TotalPages = %d, want 3", result.TotalPages)
	}

	empty := NewPageResult[string](nil, 0, 1, 20)
	if empty.Data == nil {
		t.Error("Data = nil, want empty slice for JSON encoding")
	}
	if empty.TotalPages != 1 {
		t.Errorf("TotalPages = %d, want 1 for empty result", empty.TotalPages)
	}
}

func TestSortFieldsUnmarshalJSON(t *testing.T) {
	var fromString SortFields
	if err := fromString.UnmarshalJSON([]byte(`"name,-updatedAt"`)); err != nil {
		t.Fatalf("UnmarshalJSON string: %v", err)
	}
	if len(fromString) != 2 || fromString[0].Field != "name" || !fromString[1].Descending {
		t.Errorf("from string = %+v, want parsed fields", fromString)
	}

	var fromArray SortFields
	if err := fromArray.UnmarshalJSON([]byte(`[{"Field":"name","Descending":true}]`)); err != nil {
		t.Fatalf("UnmarshalJSON array: %v", err)
	}
	if len(fromArray) != 1 || !fromArray[0].Descending {
		t.Errorf("from array = %+v, want one descending field", fromArray)
	}
}
