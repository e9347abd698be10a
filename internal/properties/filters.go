package properties

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/propertyhub/propertyhub/internal/platform/httpx"
	"github.com/propertyhub/propertyhub/internal/shared"
)

// DefaultSearchLimit is the page size for listing search.
const DefaultSearchLimit = 12

// SortKey orders search results.
type SortKey string

const (
	SortNewest     SortKey = "newest"
	SortPriceAsc   SortKey = "price_asc"
	SortPriceDesc  SortKey = "price_desc"
	SortMostViewed SortKey = "most_viewed"
)

// Scope decides which listings a search may see.
type Scope int

const (
	// ScopePublic sees only approved, non-deleted listings.
	ScopePublic Scope = iota
	// ScopeOwner sees the owner's non-deleted listings in any state.
	ScopeOwner
	// ScopeAdmin sees every non-deleted listing and may filter on both state axes.
	ScopeAdmin
)

// SearchFilters are the listing search parameters.
type SearchFilters struct {
	PropertyType PropertyType
	ListingType  ListingType
	City         string
	Province     string
	MinPrice     *float64
	MaxPrice     *float64
	MinBedrooms  *int
	Search       string
	SortBy       SortKey
	FeaturedOnly bool
	Status       Status
	Approval     Approval
	OwnerID      int64
	Scope        Scope
	Page         shared.PageRequest
}

// ParseSearchFilters reads search parameters from a query string. Status and
// approvalStatus are parsed but only honoured for ScopeAdmin.
func ParseSearchFilters(values url.Values) (SearchFilters, error) {
	var f SearchFilters
	if raw := values.Get("propertyType"); raw != "" {
		t, ok := parsePropertyType(raw)
		if !ok {
			return f, httpx.Validation("unknown propertyType %q", raw)
		}
		f.PropertyType = t
	}
	if raw := values.Get("listingType"); raw != "" {
		t, ok := parseListingType(raw)
		if !ok {
			return f, httpx.Validation("unknown listingType %q", raw)
		}
		f.ListingType = t
	}
	f.City = strings.TrimSpace(values.Get("city"))
	f.Province = strings.TrimSpace(values.Get("province"))
	f.Search = values.Get("search")

	var err error
	if f.MinPrice, err = optionalFloat(values.Get("minPrice"), "minPrice"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = optionalFloat(values.Get("maxPrice"), "maxPrice"); err != nil {
		return f, err
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return f, httpx.Validation("minPrice must not exceed maxPrice")
	}
	if raw := strings.TrimSpace(values.Get("minBedrooms")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return f, httpx.Validation("minBedrooms must be a non-negative integer")
		}
		f.MinBedrooms = &n
	}

	switch sort := SortKey(strings.TrimSpace(values.Get("sortBy"))); sort {
	case "", SortNewest:
		f.SortBy = SortNewest
	case SortPriceAsc, SortPriceDesc, SortMostViewed:
		f.SortBy = sort
	default:
		return f, httpx.Validation("unknown sortBy %q", sort)
	}

	f.FeaturedOnly, _ = strconv.ParseBool(values.Get("featured"))

	if raw := values.Get("status"); raw != "" {
		s := Status(raw)
		switch s {
		case StatusPendingApproval, StatusApproved, StatusRejected, StatusUnavailable:
			f.Status = s
		default:
			return f, httpx.Validation("unknown status %q", raw)
		}
	}
	if raw := values.Get("approvalStatus"); raw != "" {
		a := Approval(raw)
		switch a {
		case ApprovalSubmitted, ApprovalApproved, ApprovalRejected, ApprovalRevisionRequested:
			f.Approval = a
		default:
			return f, httpx.Validation("unknown approvalStatus %q", raw)
		}
	}

	page, _ := strconv.Atoi(values.Get("page"))
	if page > shared.MaxPage {
		return f, httpx.Validation("page must be at most %d", shared.MaxPage)
	}
	limit, _ := strconv.Atoi(values.Get("limit"))
	f.Page = shared.NewPageRequest(page, limit, DefaultSearchLimit)
	return f, nil
}

func optionalFloat(raw, field string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return nil, httpx.Validation("%s must be a non-negative number", field)
	}
	return &v, nil
}
