package properties

import (
	"context"
	"log/slog"
	"strings"

	"github.com/propertyhub/propertyhub/internal/audit"
	"github.com/propertyhub/propertyhub/internal/platform/httpx"
	"github.com/propertyhub/propertyhub/internal/rbac"
	"github.com/propertyhub/propertyhub/internal/shared"
)

// Service implements listing submission, owner edits and search.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// Create submits a new listing. It always starts pending approval. A non-empty
// idempotency key makes retries of the same submission fail with CONFLICT.
func (s *Service) Create(ctx context.Context, actor shared.Identity, in Input, idempotencyKey string) (Property, error) {
	if err := rbac.ManageListings.Check(actor); err != nil {
		return Property{}, err
	}
	if err := httpx.Validate(in); err != nil {
		return Property{}, err
	}
	p := in.toProperty(actor.UserID)

	var created Property
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if key := strings.TrimSpace(idempotencyKey); key != "" {
			if err := tx.ClaimIdempotencyKey(ctx, key); err != nil {
				return err
			}
		}
		id, err := tx.Insert(ctx, p)
		if err != nil {
			return err
		}
		created, err = tx.Get(ctx, id)
		return err
	})
	if err != nil {
		return Property{}, err
	}
	s.logger.Info("property submitted", slog.Int64("property_id", created.ID), slog.Int64("owner_id", actor.UserID))
	return created, nil
}

// Update applies an edit by the owner or an administrator. An owner edit of a
// rejected or revision-requested listing resubmits it for review. Administrator
// edits of someone else's listing are audited.
func (s *Service) Update(ctx context.Context, actor shared.Identity, id int64, patch Patch) (Property, error) {
	if err := rbac.ManageListings.Check(actor); err != nil {
		return Property{}, err
	}
	if err := httpx.Validate(patch); err != nil {
		return Property{}, err
	}

	var updated Property
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		isOwner := current.OwnerID == actor.UserID
		if !isOwner && !actor.IsAdmin() {
			return ErrNotOwner
		}

		next := current
		patch.apply(&next)
		if err := httpx.Validate(next.asInput()); err != nil {
			return err
		}
		if isOwner && next.State.AwaitingResubmission() {
			if err := next.State.Resubmit(); err != nil {
				return err
			}
		}
		if err := tx.Update(ctx, next); err != nil {
			return err
		}
		if !isOwner {
			if err := tx.RecordAudit(ctx, audit.Entry{
				ActorID:      actor.UserID,
				Action:       audit.ActionPropertyUpdate,
				EntityType:   audit.EntityProperty,
				EntityID:     id,
				TargetUserID: &current.OwnerID,
				OldValues:    current.View(),
				NewValues:    next.View(),
			}); err != nil {
				return err
			}
		}
		updated, err = tx.Get(ctx, id)
		return err
	})
	return updated, err
}

// Delete soft-deletes a listing owned by actor, or any listing for an administrator.
func (s *Service) Delete(ctx context.Context, actor shared.Identity, id int64) error {
	if err := rbac.ManageListings.Check(actor); err != nil {
		return err
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		isOwner := current.OwnerID == actor.UserID
		if !isOwner && !actor.IsAdmin() {
			return ErrNotOwner
		}
		if err := tx.SoftDelete(ctx, id); err != nil {
			return err
		}
		if isOwner {
			return nil
		}
		return tx.RecordAudit(ctx, audit.Entry{
			ActorID:      actor.UserID,
			Action:       audit.ActionPropertyDelete,
			EntityType:   audit.EntityProperty,
			EntityID:     id,
			TargetUserID: &current.OwnerID,
			OldValues:    current.View(),
		})
	})
}

// Search runs a public search.
func (s *Service) Search(ctx context.Context, f SearchFilters) ([]Property, shared.Pagination, error) {
	f.Scope = ScopePublic
	f.Status, f.Approval, f.OwnerID = "", "", 0
	return s.search(ctx, f)
}

// ListMine lists the caller's own listings in any state.
func (s *Service) ListMine(ctx context.Context, actor shared.Identity, f SearchFilters) ([]Property, shared.Pagination, error) {
	if err := rbac.ManageListings.Check(actor); err != nil {
		return nil, shared.Pagination{}, err
	}
	f.Scope = ScopeOwner
	f.OwnerID = actor.UserID
	return s.search(ctx, f)
}

// AdminSearch lists every listing with state filters.
func (s *Service) AdminSearch(ctx context.Context, actor shared.Identity, f SearchFilters) ([]Property, shared.Pagination, error) {
	if err := rbac.Administer.Check(actor); err != nil {
		return nil, shared.Pagination{}, err
	}
	f.Scope = ScopeAdmin
	return s.search(ctx, f)
}

func (s *Service) search(ctx context.Context, f SearchFilters) ([]Property, shared.Pagination, error) {
	if f.Page.Limit <= 0 {
		f.Page = shared.NewPageRequest(f.Page.Page, 0, DefaultSearchLimit)
	}
	if f.SortBy == "" {
		f.SortBy = SortNewest
	}
	items, total, err := s.repo.Search(ctx, f)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	if items == nil {
		items = []Property{}
	}
	return items, shared.NewPagination(f.Page, len(items), total), nil
}

// Visible returns a listing if viewer may see it. Anonymous and unrelated
// viewers only see public listings; owners and administrators see every state.
func (s *Service) Visible(ctx context.Context, viewer shared.Identity, id int64) (Property, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return Property{}, err
	}
	if viewer.UserID != 0 && (viewer.UserID == p.OwnerID || viewer.IsAdmin()) {
		return p, nil
	}
	if !p.State.IsPublic() {
		return Property{}, ErrNotFound
	}
	return p, nil
}

// Get returns a listing for viewer like Visible and counts the view when the
// viewer is neither the owner nor an administrator.
func (s *Service) Get(ctx context.Context, viewer shared.Identity, id int64) (Property, error) {
	p, err := s.Visible(ctx, viewer, id)
	if err != nil {
		return Property{}, err
	}
	if viewer.UserID != 0 && (viewer.UserID == p.OwnerID || viewer.IsAdmin()) {
		return p, nil
	}
	if err := s.repo.IncrementViews(ctx, id); err != nil {
		s.logger.Warn("increment view count failed", slog.Int64("property_id", id), slog.Any("error", err))
		return p, nil
	}
	p.ViewCount++
	return p, nil
}
