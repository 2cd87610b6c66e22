package pagination

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	DefaultSize = 20
	MaxSize     = 100

	SortAsc  = "asc"
	SortDesc = "desc"
)

// Params holds the paging parameters of a list request. Page is zero-based.
type Params struct {
	Page    int
	Size    int
	SortBy  string
	SortDir string
}

// FromContext extracts page, size, sortBy and sortDir from the query string.
func FromContext(c echo.Context) Params {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 0 {
		page = 0
	}

	size, _ := strconv.Atoi(c.QueryParam("size"))
	if size <= 0 {
		size = DefaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}

	dir := strings.ToLower(c.QueryParam("sortDir"))
	if dir != SortDesc {
		dir = SortAsc
	}

	return Params{Page: page, Size: size, SortBy: c.QueryParam("sortBy"), SortDir: dir}
}

// Offset is the index of the first item of the page.
func (p Params) Offset() int {
	return p.Page * p.Size
}

// Bounds returns the [start, end) slice bounds of the page within total items.
func (p Params) Bounds(total int) (start, end int) {
	start = p.Offset()
	if start > total {
		start = total
	}
	end = start + p.Size
	if end > total {
		end = total
	}
	return start, end
}

// HasNext returns true if there are more results after the current page.
func (p Params) HasNext(total int) bool {
	return p.Offset()+p.Size < total
}

// Response wraps a paginated API response.
type Response struct {
	Data    interface{} `json:"data"`
	Total   int         `json:"total"`
	Page    int         `json:"page"`
	Size    int         `json:"size"`
	HasMore bool        `json:"hasMore"`
}

func NewResponse(data interface{}, total int, p Params) *Response {
	return &Response{
		Data:    data,
		Total:   total,
		Page:    p.Page,
		Size:    p.Size,
		HasMore: p.HasNext(total),
	}
}
