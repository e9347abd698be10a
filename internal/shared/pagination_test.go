package shared

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageRequestSkipTake(t *testing.T) {
	req := NewPageRequest(2, 10, 12)
	assert.Equal(t, 10, req.Skip())
	assert.Equal(t, 10, req.Take())

	req = NewPageRequest(0, 0, 12)
	assert.Equal(t, 1, req.Page)
	assert.Equal(t, 12, req.Limit)
	assert.Equal(t, 0, req.Skip())

	req = NewPageRequest(1, 1000, 12)
	assert.Equal(t, MaxPageSize, req.Limit)
}

func TestNewPaginationHasMore(t *testing.T) {
	second := NewPagination(NewPageRequest(2, 10, 0), 10, 25)
	assert.True(t, second.HasMore)
	assert.Equal(t, 3, second.TotalPages)

	third := NewPagination(NewPageRequest(3, 10, 0), 5, 25)
	assert.False(t, third.HasMore)

	empty := NewPagination(NewPageRequest(1, 10, 0), 0, 0)
	assert.False(t, empty.HasMore)
	assert.Equal(t, 0, empty.TotalPages)
}

func TestParseRole(t *testing.T) {
	role, ok := ParseRole(" Agent ")
	assert.True(t, ok)
	assert.Equal(t, RoleAgent, role)

	_, ok = ParseRole("superuser")
	assert.False(t, ok)
}

func TestNormalizeHelpers(t *testing.T) {
	assert.Equal(t, "jane@example.com", NormalizeEmail("  Jane@Example.COM "))
	assert.Equal(t, "sea view", NormalizeSearch("  Sea   VIEW "))
	assert.Equal(t, `%50\%\_off%`, ContainsPattern("50%_off"))
}

func TestPageRequestClampsHugePages(t *testing.T) {
	req := NewPageRequest(math.MaxInt64, 0, 12)
	assert.Equal(t, MaxPage, req.Page)
	assert.Positive(t, req.Skip())
	assert.LessOrEqual(t, req.Skip(), math.MaxInt32)

	req = NewPageRequest(math.MaxInt64, 1000, 12)
	assert.LessOrEqual(t, req.Skip(), math.MaxInt32)
}
