package audit

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/propertyhub/propertyhub/internal/platform/httpx"
	"github.com/propertyhub/propertyhub/internal/shared"
)

const (
	dateLayout     = "2006-01-02"
	maxExportRows  = 10000
	maxExportRange = 366 * 24 * time.Hour
)

// Repository menyediakan akses baca audit log.
type Repository interface {
	List(ctx context.Context, f ListFilters) ([]Record, int, error)
}

// Service mengoordinasikan pengambilan data audit.
type Service struct {
	repo Repository
}

// NewService membuat service audit baru.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List mengambil audit log dengan paging, terbaru lebih dulu.
func (s *Service) List(ctx context.Context, f ListFilters) ([]Record, shared.Pagination, error) {
	if s.repo == nil {
		return nil, shared.Pagination{}, fmt.Errorf("audit: repository not configured")
	}
	if f.Page.Limit <= 0 {
		f.Page = shared.NewPageRequest(f.Page.Page, 0, shared.DefaultPageSize)
	}
	rows, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	if rows == nil {
		rows = []Record{}
	}
	return rows, shared.NewPagination(f.Page, len(rows), total), nil
}

// Export mengambil seluruh data yang cocok tanpa paging. Rentang tanggal wajib.
func (s *Service) Export(ctx context.Context, f ListFilters) ([]Record, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("audit: repository not configured")
	}
	if f.From.IsZero() || f.To.IsZero() {
		return nil, httpx.Validation("from and to are required for export")
	}
	if f.To.Sub(f.From) > maxExportRange {
		return nil, httpx.Validation("export range must not exceed one year")
	}
	f.Page = shared.PageRequest{}
	rows, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if total > maxExportRows {
		return nil, httpx.Validation("export matches %d rows; narrow the filters to at most %d", total, maxExportRows)
	}
	return rows, nil
}

// ParseListFilters membaca filter dari query string. from dan to berupa tanggal
// (YYYY-MM-DD) dan inklusif.
func ParseListFilters(values url.Values) (ListFilters, error) {
	f := ListFilters{
		Action:     Action(strings.TrimSpace(values.Get("action"))),
		EntityType: EntityType(strings.TrimSpace(values.Get("entityType"))),
		Search:     values.Get("search"),
	}
	var err error
	if f.ActorID, err = optionalID(values.Get("userId"), "userId"); err != nil {
		return ListFilters{}, err
	}
	if f.EntityID, err = optionalID(values.Get("entityId"), "entityId"); err != nil {
		return ListFilters{}, err
	}
	if raw := strings.TrimSpace(values.Get("from")); raw != "" {
		from, err := time.Parse(dateLayout, raw)
		if err != nil {
			return ListFilters{}, httpx.Validation("from must be a date (YYYY-MM-DD)")
		}
		f.From = from
	}
	if raw := strings.TrimSpace(values.Get("to")); raw != "" {
		to, err := time.Parse(dateLayout, raw)
		if err != nil {
			return ListFilters{}, httpx.Validation("to must be a date (YYYY-MM-DD)")
		}
		f.To = to.AddDate(0, 0, 1)
	}
	if !f.From.IsZero() && !f.To.IsZero() && !f.From.Before(f.To) {
		return ListFilters{}, httpx.Validation("from must not be after to")
	}
	page, _ := strconv.Atoi(values.Get("page"))
	limit, _ := strconv.Atoi(values.Get("limit"))
	f.Page = shared.NewPageRequest(page, limit, shared.DefaultPageSize)
	return f, nil
}

func optionalID(raw, field string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, httpx.Validation("%s must be a positive integer", field)
	}
	return id, nil
}
