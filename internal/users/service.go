package users

import (
	"context"
	"net/url"
	"strconv"

	"github.com/propertyhub/propertyhub/internal/platform/httpx"
	"github.com/propertyhub/propertyhub/internal/shared"
)

// Reader is the read side of the user store.
type Reader interface {
	Get(ctx context.Context, id int64) (User, error)
	List(ctx context.Context, f ListFilters) ([]User, int, error)
}

// Service exposes user lookups for administrators.
type Service struct {
	reader Reader
}

// NewService builds Service instance.
func NewService(reader Reader) *Service {
	return &Service{reader: reader}
}

// List returns a filtered page of users.
func (s *Service) List(ctx context.Context, f ListFilters) ([]User, shared.Pagination, error) {
	items, total, err := s.reader.List(ctx, f)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	if items == nil {
		items = []User{}
	}
	return items, shared.NewPagination(f.Page, len(items), total), nil
}

// Get returns a single user.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.reader.Get(ctx, id)
}

// ParseListFilters reads role, status, search, page and limit from a query string.
func ParseListFilters(values url.Values) (ListFilters, error) {
	var f ListFilters
	if raw := values.Get("role"); raw != "" {
		role, ok := shared.ParseRole(raw)
		if !ok {
			return f, httpx.Validation("unknown role %q", raw)
		}
		f.Role = role
	}
	if raw := values.Get("status"); raw != "" {
		status, ok := ParseStatus(raw)
		if !ok {
			return f, httpx.Validation("unknown status %q", raw)
		}
		f.Status = status
	}
	f.Search = values.Get("search")
	page, _ := strconv.Atoi(values.Get("page"))
	limit, _ := strconv.Atoi(values.Get("limit"))
	f.Page = shared.NewPageRequest(page, limit, shared.DefaultPageSize)
	return f, nil
}
