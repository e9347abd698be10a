// Package favorites keeps the listings a principal has saved.
package favorites

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/propertyhub/propertyhub/internal/platform/db"
	"github.com/propertyhub/propertyhub/internal/platform/httpx"
	"github.com/propertyhub/propertyhub/internal/properties"
	"github.com/propertyhub/propertyhub/internal/rbac"
	"github.com/propertyhub/propertyhub/internal/shared"
)

var (
	// ErrAlreadySaved is returned when the listing is already a favorite.
	ErrAlreadySaved = fmt.Errorf("%w: property already in favorites", httpx.ErrConflict)
	// ErrNotSaved is returned when removing a listing that is not a favorite.
	ErrNotSaved = fmt.Errorf("%w: property not in favorites", httpx.ErrNotFound)
)

// Favorite is a saved listing.
type Favorite struct {
	PropertyID int64           `json:"propertyId"`
	SavedAt    time.Time       `json:"savedAt"`
	Property   properties.View `json:"property"`
}

// Store is the persistence port of Service.
type Store interface {
	Add(ctx context.Context, userID, propertyID int64) error
	Remove(ctx context.Context, userID, propertyID int64) (bool, error)
	List(ctx context.Context, userID int64, page shared.PageRequest) ([]Favorite, int, error)
}

// Listings looks up listings visible to a principal.
type Listings interface {
	Visible(ctx context.Context, viewer shared.Identity, id int64) (properties.Property, error)
}

// Service manages a principal's favorites.
type Service struct {
	store    Store
	listings Listings
	logger   *slog.Logger
}

// NewService builds Service instance.
func NewService(store Store, listings Listings, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, listings: listings, logger: logger}
}

// Add saves a listing the caller can see.
func (s *Service) Add(ctx context.Context, actor shared.Identity, propertyID int64) error {
	if err := rbac.Authenticated.Check(actor); err != nil {
		return err
	}
	if _, err := s.listings.Visible(ctx, actor, propertyID); err != nil {
		return err
	}
	return s.store.Add(ctx, actor.UserID, propertyID)
}

// Remove drops a saved listing.
func (s *Service) Remove(ctx context.Context, actor shared.Identity, propertyID int64) error {
	if err := rbac.Authenticated.Check(actor); err != nil {
		return err
	}
	removed, err := s.store.Remove(ctx, actor.UserID, propertyID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotSaved
	}
	return nil
}

// List returns the caller's saved listings, newest first.
func (s *Service) List(ctx context.Context, actor shared.Identity, page shared.PageRequest) ([]Favorite, shared.Pagination, error) {
	if err := rbac.Authenticated.Check(actor); err != nil {
		return nil, shared.Pagination{}, err
	}
	items, total, err := s.store.List(ctx, actor.UserID, page)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	if items == nil {
		items = []Favorite{}
	}
	return items, shared.NewPagination(page, len(items), total), nil
}

// PGStore stores favorites in PostgreSQL.
type PGStore struct {
	q db.Querier
}

// NewStore constructs a PGStore.
func NewStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{q: pool}
}

// Add inserts the pair, mapping the unique constraint to ErrAlreadySaved.
func (s *PGStore) Add(ctx context.Context, userID, propertyID int64) error {
	_, err := s.q.Exec(ctx, `INSERT INTO favorites (user_id, property_id, created_at) VALUES ($1, $2, NOW())`, userID, propertyID)
	if db.IsUniqueViolation(err) {
		return ErrAlreadySaved
	}
	return err
}

// Remove deletes the pair and reports whether it existed.
func (s *PGStore) Remove(ctx context.Context, userID, propertyID int64) (bool, error) {
	tag, err := s.q.Exec(ctx, `DELETE FROM favorites WHERE user_id = $1 AND property_id = $2`, userID, propertyID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// List returns saved listings that are still public.
func (s *PGStore) List(ctx context.Context, userID int64, page shared.PageRequest) ([]Favorite, int, error) {
	const visible = `
		FROM favorites f
		JOIN properties p ON p.id = f.property_id
		WHERE f.user_id = $1 AND p.is_deleted = FALSE AND p.status = 'approved' AND p.approval_status = 'approved'`

	var total int
	if err := s.q.QueryRow(ctx, `SELECT COUNT(*) `+visible, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.q.Query(ctx, `SELECT f.property_id, f.created_at `+visible+`
		ORDER BY f.created_at DESC, f.property_id DESC LIMIT $2 OFFSET $3`, userID, page.Take(), page.Skip())
	if err != nil {
		return nil, 0, err
	}
	type saved struct {
		id int64
		at time.Time
	}
	var ids []saved
	for rows.Next() {
		var v saved
		if err := rows.Scan(&v.id, &v.at); err != nil {
			rows.Close()
			return nil, 0, err
		}
		ids = append(ids, v)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	listings := properties.NewQueries(s.q)
	out := make([]Favorite, 0, len(ids))
	for _, v := range ids {
		p, err := listings.Get(ctx, v.id)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, Favorite{PropertyID: v.id, SavedAt: v.at, Property: p.View()})
	}
	return out, total, nil
}
