package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPagination_Clean(t *testing.T) {
	tests := []struct {
		name string
		in   Pagination
		want Pagination
	}{
		{name: "zero value", in: Pagination{}, want: Pagination{Page: 1, Limit: 20}},
		{name: "negative", in: Pagination{Page: -3, Limit: -1}, want: Pagination{Page: 1, Limit: 20}},
		{name: "within bounds", in: Pagination{Page: 4, Limit: 50}, want: Pagination{Page: 4, Limit: 50}},
		{name: "over max", in: Pagination{Page: 2, Limit: 500}, want: Pagination{Page: 2, Limit: 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.in
			p.Clean(20, 100)
			assert.Equal(t, tt.want, p)
		})
	}
}

func TestPagination_Skip(t *testing.T) {
	assert.Equal(t, 0, Pagination{Page: 1, Limit: 10}.Skip())
	assert.Equal(t, 20, Pagination{Page: 3, Limit: 10}.Skip())
	assert.Equal(t, 0, Pagination{Page: 0, Limit: 10}.Skip())
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total int64
		limit int
		want  int
	}{
		{total: 0, limit: 10, want: 0},
		{total: 1, limit: 10, want: 1},
		{total: 10, limit: 10, want: 1},
		{total: 11, limit: 10, want: 2},
		{total: 101, limit: 20, want: 6},
		{total: 5, limit: 0, want: 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TotalPages(tt.total, tt.limit), "total=%d limit=%d", tt.total, tt.limit)
	}

	info := NewPageInfo(45, Pagination{Page: 2, Limit: 20})
	assert.Equal(t, PageInfo{Total: 45, Page: 2, Limit: 20, TotalPages: 3}, info)
}

func TestCleanOrderings(t *testing.T) {
	allowed := map[string]bool{"name": true, "created_at": true}
	def := DBOrdering{Field: "created_at"}

	assert.Equal(t, []DBOrdering{def}, CleanOrderings(nil, allowed, def))
	assert.Equal(t, []DBOrdering{def}, CleanOrderings([]DBOrdering{{Field: "password"}}, allowed, def))
	assert.Equal(
		t,
		[]DBOrdering{{Field: "name", Ascending: true}},
		CleanOrderings([]DBOrdering{{Field: "lol"}, {Field: "name", Ascending: true}}, allowed, def),
	)
	assert.Equal(t, "name ASC", DBOrdering{Field: "name", Ascending: true}.String())
	assert.Equal(t, "created_at DESC", def.String())
}
