package shared

import "math"

// Page size defaults.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	// MaxPage keeps (page-1)*limit inside a Postgres int4 OFFSET.
	MaxPage = math.MaxInt32 / MaxPageSize
)

// PageRequest is a normalised page/limit pair.
type PageRequest struct {
	Page  int
	Limit int
}

// NewPageRequest clamps page and limit, falling back to defaultLimit when limit is unset.
func NewPageRequest(page, limit, defaultLimit int) PageRequest {
	if defaultLimit <= 0 {
		defaultLimit = DefaultPageSize
	}
	if page <= 0 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return PageRequest{Page: page, Limit: limit}
}

// Skip returns the number of rows to skip.
func (p PageRequest) Skip() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// Take returns the number of rows to fetch.
func (p PageRequest) Take() int {
	return p.Limit
}

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasMore    bool `json:"hasMore"`
}

// NewPagination computes pagination metadata for a page that returned `returned` rows.
func NewPagination(req PageRequest, returned, total int) Pagination {
	totalPages := 0
	if req.Limit > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(req.Limit)))
	}
	return Pagination{
		Page:       req.Page,
		Limit:      req.Limit,
		Total:      total,
		TotalPages: totalPages,
		HasMore:    req.Skip()+returned < total,
	}
}
