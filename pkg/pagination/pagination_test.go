package pagination

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func contextFor(target string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestFromContext_Defaults(t *testing.T) {
	p := FromContext(contextFor("/"))

	if p.Page != 0 {
		t.Errorf("expected page 0, got %d", p.Page)
	}
	if p.Size != DefaultSize {
		t.Errorf("expected default size %d, got %d", DefaultSize, p.Size)
	}
	if p.SortDir != SortAsc {
		t.Errorf("expected ascending sort, got %s", p.SortDir)
	}
}

func TestFromContext_CustomValues(t *testing.T) {
	p := FromContext(contextFor("/?page=2&size=50&sortBy=date&sortDir=DESC"))

	if p.Page != 2 || p.Size != 50 {
		t.Errorf("expected page 2 size 50, got %+v", p)
	}
	if p.SortBy != "date" || p.SortDir != SortDesc {
		t.Errorf("expected date desc, got %s %s", p.SortBy, p.SortDir)
	}
	if p.Offset() != 100 {
		t.Errorf("expected offset 100, got %d", p.Offset())
	}
}

func TestFromContext_Clamps(t *testing.T) {
	p := FromContext(contextFor("/?page=-3&size=1000&sortDir=sideways"))

	if p.Page != 0 {
		t.Errorf("expected negative page clamped to 0, got %d", p.Page)
	}
	if p.Size != MaxSize {
		t.Errorf("expected size clamped to %d, got %d", MaxSize, p.Size)
	}
	if p.SortDir != SortAsc {
		t.Errorf("expected unknown direction to fall back to asc, got %s", p.SortDir)
	}
}

func TestParams_Bounds(t *testing.T) {
	tests := []struct {
		name       string
		page, size int
		total      int
		start, end int
	}{
		{"first page", 0, 10, 25, 0, 10},
		{"last partial page", 2, 10, 25, 20, 25},
		{"past the end", 5, 10, 25, 25, 25},
		{"empty", 0, 10, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := Params{Page: tt.page, Size: tt.size}.Bounds(tt.total)
			if start != tt.start || end != tt.end {
				t.Errorf("expected [%d,%d), got [%d,%d)", tt.start, tt.end, start, end)
			}
		})
	}
}

func TestNewResponse(t *testing.T) {
	resp := NewResponse([]string{"a", "b"}, 5, Params{Page: 1, Size: 2})

	if resp.Total != 5 || resp.Page != 1 || resp.Size != 2 {
		t.Errorf("unexpected response %+v", resp)
	}
	if !resp.HasMore {
		t.Error("expected more results after page 1 of 5 items")
	}

	last := NewResponse([]string{"e"}, 5, Params{Page: 2, Size: 2})
	if last.HasMore {
		t.Error("expected no more results on the last page")
	}
}

func TestResponse_JSONFormat(t *testing.T) {
	data, err := json.Marshal(NewResponse([]int{1}, 1, Params{Page: 0, Size: 20}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"data":[1],"total":1,"page":0,"size":20,"hasMore":false}`
	if string(data) != want {
		t.Errorf("expected %s, got %s", want, data)
	}
}
