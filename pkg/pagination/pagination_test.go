package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PageSize)
	assert.Equal(t, 0, p.Offset)
}

func TestFromRequest_Defaults(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	p := FromRequest(req)

	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PageSize)
	assert.Equal(t, 0, p.Offset)
}

func TestFromRequest_CustomValues(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/products?page=3&pageSize=50", nil)
	p := FromRequest(req)

	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 50, p.PageSize)
	assert.Equal(t, 100, p.Offset) // (3-1) * 50
}

func TestFromRequest_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"negative page", "?page=-1"},
		{"zero page", "?page=0"},
		{"non-numeric page", "?page=abc"},
		{"zero page size", "?pageSize=0"},
		{"oversized page size", "?pageSize=200"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/products"+tt.query, nil)
			p := FromRequest(req)
			assert.Equal(t, 1, p.Page)
			assert.Equal(t, 20, p.PageSize)
		})
	}
}

func TestFromRequest_PageSizeExactly100(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/products?pageSize=100", nil)
	p := FromRequest(req)
	assert.Equal(t, 100, p.PageSize)
}

func TestSlice(t *testing.T) {
	tests := []struct {
		page, pageSize, total int
		start, end            int
	}{
		{1, 10, 25, 0, 10},
		{2, 10, 25, 10, 20},
		{3, 10, 25, 20, 25},
		{4, 10, 25, 25, 25}, // past the end
		{1, 10, 0, 0, 0},
	}
	for _, tt := range tests {
		p := Params{Page: tt.page, PageSize: tt.pageSize, Offset: (tt.page - 1) * tt.pageSize}
		start, end := p.Slice(tt.total)
		assert.Equal(t, tt.start, start, "page %d of %d", tt.page, tt.total)
		assert.Equal(t, tt.end, end, "page %d of %d", tt.page, tt.total)
	}
}

func TestNewResult_Basic(t *testing.T) {
	data := []string{"a", "b", "c"}
	params := Params{Page: 1, PageSize: 10, Offset: 0}
	result := NewResult(data, 3, params)

	assert.Equal(t, data, result.Data)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 1, result.Page)
	assert.Equal(t, 10, result.PageSize)
	assert.Equal(t, 1, result.TotalPages)
	assert.False(t, result.HasNext)
	assert.False(t, result.HasPrev)
}

func TestNewResult_MultiplePages(t *testing.T) {
	data := []string{"a", "b"}
	params := Params{Page: 2, PageSize: 2, Offset: 2}
	result := NewResult(data, 10, params)

	assert.Equal(t, 10, result.Total)
	assert.Equal(t, 5, result.TotalPages)
	assert.True(t, result.HasNext)
	assert.True(t, result.HasPrev)
}

func TestNewResult_LastPage(t *testing.T) {
	data := []string{"a"}
	params := Params{Page: 3, PageSize: 5, Offset: 10}
	result := NewResult(data, 11, params)

	assert.Equal(t, 3, result.TotalPages) // ceil(11/5)
	assert.False(t, result.HasNext)
	assert.True(t, result.HasPrev)
}

func TestNewResult_EmptyData(t *testing.T) {
	result := NewResult([]string{}, 0, DefaultParams())

	assert.Equal(t, 0, result.Total)
	assert.Equal(t, 0, result.TotalPages)
	assert.False(t, result.HasNext)
	assert.False(t, result.HasPrev)
}
