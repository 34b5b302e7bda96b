package pagination_test

import (
	"net/url"
	"testing"

	"github.com/sheetdrop/sheetdrop/pkg/pagination"
)

func testConfig() pagination.Config {
	return pagination.Config{DefaultPageSize: 20, MaxPageSize: 100}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name         string
		page         int
		pageSize     int
		wantPage     int
		wantPageSize int
	}{
		{"valid", 2, 50, 2, 50},
		{"zero page", 0, 50, 1, 50},
		{"negative page", -3, 50, 1, 50},
		{"zero size", 1, 0, 1, 20},
		{"oversize", 1, 500, 1, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := pagination.PageRequest{Page: tt.page, PageSize: tt.pageSize}
			req.Normalize(testConfig())

			if req.Page != tt.wantPage || req.PageSize != tt.wantPageSize {
				t.Errorf("normalized to %d/%d, want %d/%d",
					req.Page, req.PageSize, tt.wantPage, tt.wantPageSize)
			}
		})
	}
}

func TestOffset(t *testing.T) {
	req := pagination.PageRequest{Page: 3, PageSize: 25}
	if got := req.Offset(); got != 50 {
		t.Errorf("Offset() = %d, want 50", got)
	}
}

func TestPageRequestFromQuery(t *testing.T) {
	values := url.Values{}
	values.Set("page", "4")
	values.Set("page_size", "10")

	req := pagination.PageRequestFromQuery(values, testConfig())
	if req.Page != 4 || req.PageSize != 10 {
		t.Errorf("parsed %d/%d, want 4/10", req.Page, req.PageSize)
	}

	req = pagination.PageRequestFromQuery(url.Values{}, testConfig())
	if req.Page != 1 || req.PageSize != 20 {
		t.Errorf("defaults %d/%d, want 1/20", req.Page, req.PageSize)
	}
}

func TestNewPageResult(t *testing.T) {
	result := pagination.NewPageResult([]string{"a", "b"}, 41, 1, 20)

	if result.TotalPages != 3 {
		t.Errorf("TotalPages = %d, want 3", result.TotalPages)
	}

	empty := pagination.NewPageResult[string](nil, 0, 1, 20)
	if empty.Data == nil {
		t.Error("Data should be an empty slice, not nil")
	}
	if empty.TotalPages != 1 {
		t.Errorf("TotalPages = %d, want 1", empty.TotalPages)
	}
}
