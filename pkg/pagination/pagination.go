// Package pagination extracts and clamps page parameters from catalog
// requests and shapes paginated responses.
package pagination

import (
	"net/http"
	"strconv"
)

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
	Offset   int `json:"-"`
}

// DefaultParams returns the catalog defaults.
func DefaultParams() Params {
	return Params{
		Page:     1,
		PageSize: 20,
		Offset:   0,
	}
}

// FromRequest extracts pagination parameters from an HTTP request. Values
// out of range fall back to defaults; page size is capped at 100.
func FromRequest(r *http.Request) Params {
	p := DefaultParams()

	if page := r.URL.Query().Get("page"); page != "" {
		if v, err := strconv.Atoi(page); err == nil && v > 0 {
			p.Page = v
		}
	}

	if pageSize := r.URL.Query().Get("pageSize"); pageSize != "" {
		if v, err := strconv.Atoi(pageSize); err == nil && v > 0 && v <= 100 {
			p.PageSize = v
		}
	}

	p.Offset = (p.Page - 1) * p.PageSize
	return p
}

// Slice returns the half-open index range covering this page of a
// collection of length total.
func (p Params) Slice(total int) (start, end int) {
	start = p.Offset
	if start > total {
		start = total
	}
	end = start + p.PageSize
	if end > total {
		end = total
	}
	return start, end
}

// Result wraps a paginated response.
type Result[T any] struct {
	Data       []T  `json:"data"`
	Total      int  `json:"total"`
	Page       int  `json:"page"`
	PageSize   int  `json:"pageSize"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// NewResult creates a paginated result.
func NewResult[T any](data []T, total int, params Params) Result[T] {
	totalPages := total / params.PageSize
	if total%params.PageSize > 0 {
		totalPages++
	}

	return Result[T]{
		Data:       data,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
		HasNext:    params.Page < totalPages,
		HasPrev:    params.Page > 1,
	}
}
