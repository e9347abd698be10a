package inquiries

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/propertyhub/propertyhub/internal/notifications"
	"github.com/propertyhub/propertyhub/internal/platform/httpx"
	"github.com/propertyhub/propertyhub/internal/properties"
	"github.com/propertyhub/propertyhub/internal/rbac"
	"github.com/propertyhub/propertyhub/internal/shared"
	"github.com/propertyhub/propertyhub/internal/users"
)

// Store is the persistence port of Service.
type Store interface {
	Insert(ctx context.Context, i Inquiry) (Inquiry, error)
	Get(ctx context.Context, id int64) (Inquiry, error)
	SetStatus(ctx context.Context, id int64, status Status) error
	ListReceived(ctx context.Context, recipientID int64, f ListFilters) ([]Inquiry, int, error)
}

// Listings resolves a listing the sender may see.
type Listings interface {
	Visible(ctx context.Context, viewer shared.Identity, id int64) (properties.Property, error)
}

// Accounts resolves the recipient's email.
type Accounts interface {
	Get(ctx context.Context, id int64) (users.User, error)
}

// Notifier stores the recipient's notification and enqueues its email.
type Notifier interface {
	Send(ctx context.Context, n notifications.Notification, email string) (notifications.Notification, error)
}

// Service handles inquiry submission and the recipient inbox.
type Service struct {
	store    Store
	listings Listings
	accounts Accounts
	notifier Notifier
	logger   *slog.Logger
}

// NewService builds Service instance. notifier may be nil.
func NewService(store Store, listings Listings, accounts Accounts, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, listings: listings, accounts: accounts, notifier: notifier, logger: logger}
}

// Create records an inquiry about a public listing and notifies its owner.
func (s *Service) Create(ctx context.Context, sender shared.Identity, propertyID int64, in CreateInput) (Inquiry, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = shared.NormalizeEmail(in.Email)
	in.Message = strings.TrimSpace(in.Message)
	if sender.UserID != 0 {
		if in.Email == "" {
			in.Email = sender.Email
		}
		if in.Name == "" {
			in.Name = in.Email
		}
	}
	if err := httpx.Validate(in); err != nil {
		return Inquiry{}, err
	}
	if in.Name == "" || in.Email == "" {
		return Inquiry{}, httpx.Validation("name and email are required")
	}

	listing, err := s.listings.Visible(ctx, shared.Identity{}, propertyID)
	if err != nil {
		return Inquiry{}, err
	}
	if sender.UserID != 0 && sender.UserID == listing.OwnerID {
		return Inquiry{}, ErrOwnListing
	}

	inq := Inquiry{
		PropertyID:  propertyID,
		RecipientID: listing.OwnerID,
		Name:        in.Name,
		Email:       in.Email,
		Phone:       strings.TrimSpace(in.Phone),
		Message:     in.Message,
		Status:      StatusNew,
	}
	if sender.UserID != 0 {
		id := sender.UserID
		inq.SenderID = &id
	}
	created, err := s.store.Insert(ctx, inq)
	if err != nil {
		return Inquiry{}, err
	}
	s.notifyOwner(ctx, listing, created)
	return created, nil
}

// notifyOwner is best effort; the inquiry is already stored.
func (s *Service) notifyOwner(ctx context.Context, listing properties.Property, inq Inquiry) {
	if s.notifier == nil {
		return
	}
	owner, err := s.accounts.Get(ctx, listing.OwnerID)
	if err != nil {
		s.logger.Warn("inquiry owner lookup failed", slog.Int64("inquiry_id", inq.ID), slog.Any("error", err))
		return
	}
	_, err = s.notifier.Send(ctx, notifications.Notification{
		UserID:     owner.ID,
		Kind:       notifications.KindInquiryReceived,
		Title:      "New inquiry",
		Message:    fmt.Sprintf("%s asked about %q: %s", inq.Name, listing.Title, inq.Message),
		EntityType: "inquiry",
		EntityID:   &inq.ID,
	}, owner.Email)
	if err != nil {
		s.logger.Warn("inquiry notification failed", slog.Int64("inquiry_id", inq.ID), slog.Any("error", err))
	}
}

// ListReceived returns the caller's received inquiries.
func (s *Service) ListReceived(ctx context.Context, actor shared.Identity, f ListFilters) ([]Inquiry, shared.Pagination, error) {
	if err := rbac.Authenticated.Check(actor); err != nil {
		return nil, shared.Pagination{}, err
	}
	if f.Page.Limit <= 0 {
		f.Page = shared.NewPageRequest(f.Page.Page, 0, shared.DefaultPageSize)
	}
	items, total, err := s.store.ListReceived(ctx, actor.UserID, f)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	if items == nil {
		items = []Inquiry{}
	}
	return items, shared.NewPagination(f.Page, len(items), total), nil
}

// UpdateStatus lets the recipient move an inquiry between statuses.
func (s *Service) UpdateStatus(ctx context.Context, actor shared.Identity, id int64, in StatusInput) (Inquiry, error) {
	if err := rbac.Authenticated.Check(actor); err != nil {
		return Inquiry{}, err
	}
	if err := httpx.Validate(in); err != nil {
		return Inquiry{}, err
	}
	inq, err := s.store.Get(ctx, id)
	if err != nil {
		return Inquiry{}, err
	}
	if inq.RecipientID != actor.UserID {
		return Inquiry{}, ErrNotRecipient
	}
	status := Status(in.Status)
	if err := s.store.SetStatus(ctx, id, status); err != nil {
		return Inquiry{}, err
	}
	inq.Status = status
	return inq, nil
}
