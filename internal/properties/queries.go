package properties

import (
	"context"
	"time"

	"github.com/propertyhub/propertyhub/internal/platform/db"
)

// Queries runs listing statements against a pool or a transaction.
type Queries struct {
	q   db.Querier
	now func() time.Time
}

// NewQueries binds queries to q.
func NewQueries(q db.Querier) *Queries {
	return &Queries{q: q, now: time.Now}
}

type scanner interface {
	Scan(dest ...any) error
}

func (q *Queries) scan(row scanner) (Property, error) {
	var (
		p      Property
		snap   StateSnapshot
		start  *time.Time
		end    *time.Time
		amount *float64
		featBy *int64
	)
	err := row.Scan(
		&p.ID, &p.OwnerID, &p.Title, &p.Description, &p.PropertyType, &p.ListingType, &p.Price,
		&p.Address, &p.City, &p.Province, &p.PostalCode, &p.Bedrooms, &p.Bathrooms,
		&p.AreaSqm, &p.Images, &p.ViewCount, &p.IsDeleted,
		&snap.Status, &snap.ApprovalStatus, &snap.ApprovedAt, &snap.ApprovedBy, &snap.PublishedAt,
		&snap.RejectionReason, &snap.RevisionNote,
		&start, &end, &amount, &featBy,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return Property{}, err
	}
	if p.State, err = RestoreState(snap); err != nil {
		return Property{}, err
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	if start != nil && end != nil {
		m := &FeaturedMarker{PropertyID: p.ID, StartDate: *start, EndDate: *end}
		if amount != nil {
			m.Amount = *amount
		}
		if featBy != nil {
			m.CreatedBy = *featBy
		}
		p.Featured = m
		p.IsFeatured = m.IsActive(q.now())
	}
	return p, nil
}

// Get loads a non-deleted listing.
func (q *Queries) Get(ctx context.Context, id int64) (Property, error) {
	p, err := q.scan(q.q.QueryRow(ctx, selectProperty+` WHERE p.id = $1 AND p.is_deleted = FALSE`, id))
	if db.IsNoRows(err) {
		return Property{}, ErrNotFound
	}
	return p, err
}

// Search runs a compiled search and returns one page plus the total.
func (q *Queries) Search(ctx context.Context, f SearchFilters) ([]Property, int, error) {
	sq := buildSearchQuery(f, q.now())

	var total int
	if err := q.q.QueryRow(ctx, sq.count(), sq.args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	sql, args := sq.page(f.Page)
	rows, err := q.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Property
	for rows.Next() {
		p, err := q.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

// Insert stores a new listing and returns its id.
func (q *Queries) Insert(ctx context.Context, p Property) (int64, error) {
	s := p.State.Snapshot()
	var id int64
	err := q.q.QueryRow(ctx, `
		INSERT INTO properties (
			owner_id, title, description, property_type, listing_type, price, address, city, province,
			postal_code, bedrooms, bathrooms, area_sqm, images, status, approval_status,
			view_count, is_deleted, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11, $12, $13, $14, $15, $16, 0, FALSE, NOW(), NOW())
		RETURNING id`,
		p.OwnerID, p.Title, p.Description, string(p.PropertyType), string(p.ListingType), p.Price, p.Address, p.City, p.Province,
		p.PostalCode, p.Bedrooms, p.Bathrooms, p.AreaSqm, p.Images, string(s.Status), string(s.ApprovalStatus),
	).Scan(&id)
	return id, err
}

// Update writes the listing details and state.
func (q *Queries) Update(ctx context.Context, p Property) error {
	s := p.State.Snapshot()
	tag, err := q.q.Exec(ctx, `
		UPDATE properties SET
			title = $2, description = $3, property_type = $4, listing_type = $5, price = $6,
			address = $7, city = $8, province = $9, postal_code = NULLIF($10, ''), bedrooms = $11,
			bathrooms = $12, area_sqm = $13, images = $14,
			status = $15, approval_status = $16, approved_at = $17, approved_by = $18, published_at = $19,
			rejection_reason = NULLIF($20, ''), revision_note = NULLIF($21, ''), updated_at = NOW()
		WHERE id = $1 AND is_deleted = FALSE`,
		p.ID, p.Title, p.Description, string(p.PropertyType), string(p.ListingType), p.Price,
		p.Address, p.City, p.Province, p.PostalCode, p.Bedrooms,
		p.Bathrooms, p.AreaSqm, p.Images,
		string(s.Status), string(s.ApprovalStatus), s.ApprovedAt, s.ApprovedBy, s.PublishedAt,
		s.RejectionReason, s.RevisionNote,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete flags a listing as deleted.
func (q *Queries) SoftDelete(ctx context.Context, id int64) error {
	tag, err := q.q.Exec(ctx, `UPDATE properties SET is_deleted = TRUE, updated_at = NOW() WHERE id = $1 AND is_deleted = FALSE`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementViews bumps the view counter.
func (q *Queries) IncrementViews(ctx context.Context, id int64) error {
	_, err := q.q.Exec(ctx, `UPDATE properties SET view_count = view_count + 1 WHERE id = $1`, id)
	return err
}

// UpsertFeatured creates or replaces the marker for a listing.
func (q *Queries) UpsertFeatured(ctx context.Context, m FeaturedMarker) error {
	_, err := q.q.Exec(ctx, `
		INSERT INTO featured_properties (property_id, start_date, end_date, amount, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (property_id) DO UPDATE SET
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			amount = EXCLUDED.amount,
			created_by = EXCLUDED.created_by`,
		m.PropertyID, m.StartDate, m.EndDate, m.Amount, m.CreatedBy)
	return err
}

// DeleteFeatured removes the marker and reports whether one existed.
func (q *Queries) DeleteFeatured(ctx context.Context, propertyID int64) (bool, error) {
	tag, err := q.q.Exec(ctx, `DELETE FROM featured_properties WHERE property_id = $1`, propertyID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ExpireFeatured removes markers whose end date has passed.
func (q *Queries) ExpireFeatured(ctx context.Context, now time.Time) (int64, error) {
	tag, err := q.q.Exec(ctx, `DELETE FROM featured_properties WHERE end_date <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
