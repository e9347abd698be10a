package properties

import (
	"fmt"
	"strings"
	"time"

	"github.com/propertyhub/propertyhub/internal/shared"
)

const selectProperty = `
	SELECT p.id, p.owner_id, p.title, p.description, p.property_type, p.listing_type, p.price,
	       p.address, p.city, p.province, COALESCE(p.postal_code, ''), p.bedrooms, p.bathrooms,
	       p.area_sqm, p.images, p.view_count, p.is_deleted,
	       p.status, p.approval_status, p.approved_at, p.approved_by, p.published_at,
	       COALESCE(p.rejection_reason, ''), COALESCE(p.revision_note, ''),
	       fp.start_date, fp.end_date, fp.amount, fp.created_by,
	       p.created_at, p.updated_at
	FROM properties p
	LEFT JOIN featured_properties fp ON fp.property_id = p.id`

// searchQuery is the compiled form of SearchFilters.
type searchQuery struct {
	where   string
	args    []any
	orderBy string
}

func (q searchQuery) count() string {
	return "SELECT COUNT(*) FROM properties p LEFT JOIN featured_properties fp ON fp.property_id = p.id " + q.where
}

func (q searchQuery) page(req shared.PageRequest) (string, []any) {
	argPos := len(q.args) + 1
	sql := fmt.Sprintf("%s %s ORDER BY %s LIMIT $%d OFFSET $%d", selectProperty, q.where, q.orderBy, argPos, argPos+1)
	args := append(append([]any{}, q.args...), req.Take(), req.Skip())
	return sql, args
}

func buildSearchQuery(f SearchFilters, now time.Time) searchQuery {
	conditions := []string{"p.is_deleted = FALSE"}
	var args []any
	argPos := 1
	add := func(format string, v any) {
		conditions = append(conditions, fmt.Sprintf(format, argPos))
		args = append(args, v)
		argPos++
	}

	switch f.Scope {
	case ScopePublic:
		conditions = append(conditions, "p.status = 'approved'", "p.approval_status = 'approved'")
	case ScopeOwner:
		add("p.owner_id = $%d", f.OwnerID)
		if f.Status != "" {
			add("p.status = $%d", string(f.Status))
		}
		if f.Approval != "" {
			add("p.approval_status = $%d", string(f.Approval))
		}
	case ScopeAdmin:
		if f.Status != "" {
			add("p.status = $%d", string(f.Status))
		}
		if f.Approval != "" {
			add("p.approval_status = $%d", string(f.Approval))
		}
		if f.OwnerID > 0 {
			add("p.owner_id = $%d", f.OwnerID)
		}
	}

	if f.PropertyType != "" {
		add("p.property_type = $%d", string(f.PropertyType))
	}
	if f.ListingType != "" {
		add("p.listing_type = $%d", string(f.ListingType))
	}
	if city := shared.NormalizeSearch(f.City); city != "" {
		add("p.city ILIKE $%d", shared.ContainsPattern(city))
	}
	if province := shared.NormalizeSearch(f.Province); province != "" {
		add("p.province ILIKE $%d", shared.ContainsPattern(province))
	}
	if f.MinPrice != nil {
		add("p.price >= $%d", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		add("p.price <= $%d", *f.MaxPrice)
	}
	if f.MinBedrooms != nil {
		add("p.bedrooms >= $%d", *f.MinBedrooms)
	}
	if term := shared.NormalizeSearch(f.Search); term != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(p.title ILIKE $%d OR p.description ILIKE $%d OR p.address ILIKE $%d OR p.city ILIKE $%d)",
			argPos, argPos, argPos, argPos,
		))
		args = append(args, shared.ContainsPattern(term))
		argPos++
	}
	if f.FeaturedOnly {
		conditions = append(conditions, fmt.Sprintf("fp.start_date <= $%d AND fp.end_date > $%d", argPos, argPos))
		args = append(args, now)
	}

	return searchQuery{
		where:   "WHERE " + strings.Join(conditions, " AND "),
		args:    args,
		orderBy: orderBy(f.SortBy),
	}
}

func orderBy(key SortKey) string {
	switch key {
	case SortPriceAsc:
		return "p.price ASC, p.id ASC"
	case SortPriceDesc:
		return "p.price DESC, p.id DESC"
	case SortMostViewed:
		return "p.view_count DESC, p.id DESC"
	default:
		return "p.created_at DESC, p.id DESC"
	}
}
