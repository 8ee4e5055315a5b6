package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name  string
		page  int
		limit int
		total int64
		pages int
	}{
		{"empty collection", 1, 10, 0, 0},
		{"exactly one page", 1, 10, 10, 1},
		{"partial last page", 1, 10, 23, 3},
		{"fewer records than limit", 5, 10, 3, 1},
		{"single record", 1, 1, 1, 1},
		{"one over the boundary", 1, 10, 11, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPagination(tt.page, tt.limit, tt.total)
			assert.Equal(t, tt.page, p.Page)
			assert.Equal(t, tt.limit, p.Limit)
			assert.Equal(t, tt.total, p.Total)
			assert.Equal(t, tt.pages, p.Pages)
		})
	}
}
