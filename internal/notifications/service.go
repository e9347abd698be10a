package notifications

import (
	"context"
	"log/slog"
	"time"

	"github.com/propertyhub/propertyhub/internal/rbac"
	"github.com/propertyhub/propertyhub/internal/shared"
)

// Store is the persistence port of Service.
type Store interface {
	Insert(ctx context.Context, n Notification) (Notification, error)
	List(ctx context.Context, userID int64, f ListFilters) ([]Notification, int, error)
	UnreadCount(ctx context.Context, userID int64) (int, error)
	MarkRead(ctx context.Context, userID, id int64, at time.Time) error
	MarkAllRead(ctx context.Context, userID int64, at time.Time) (int64, error)
}

// Service serves a principal's inbox and sends notifications outside an
// approval transaction.
type Service struct {
	store  Store
	mailer Mailer
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds Service instance. mailer may be nil.
func NewService(store Store, mailer Mailer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, mailer: mailer, logger: logger, now: time.Now}
}

// Inbox is a page of notifications plus the unread counter.
type Inbox struct {
	Items       []Notification
	Pagination  shared.Pagination
	UnreadCount int
}

// List returns the caller's notifications.
func (s *Service) List(ctx context.Context, actor shared.Identity, f ListFilters) (Inbox, error) {
	if err := rbac.Authenticated.Check(actor); err != nil {
		return Inbox{}, err
	}
	if f.Page.Limit <= 0 {
		f.Page = shared.NewPageRequest(f.Page.Page, 0, shared.DefaultPageSize)
	}
	items, total, err := s.store.List(ctx, actor.UserID, f)
	if err != nil {
		return Inbox{}, err
	}
	unread, err := s.store.UnreadCount(ctx, actor.UserID)
	if err != nil {
		return Inbox{}, err
	}
	if items == nil {
		items = []Notification{}
	}
	return Inbox{Items: items, Pagination: shared.NewPagination(f.Page, len(items), total), UnreadCount: unread}, nil
}

// MarkRead marks one of the caller's notifications as read.
func (s *Service) MarkRead(ctx context.Context, actor shared.Identity, id int64) error {
	if err := rbac.Authenticated.Check(actor); err != nil {
		return err
	}
	return s.store.MarkRead(ctx, actor.UserID, id, s.now().UTC())
}

// MarkAllRead marks all of the caller's notifications as read.
func (s *Service) MarkAllRead(ctx context.Context, actor shared.Identity) (int64, error) {
	if err := rbac.Authenticated.Check(actor); err != nil {
		return 0, err
	}
	return s.store.MarkAllRead(ctx, actor.UserID, s.now().UTC())
}

// Send stores n and enqueues its email to the given address. Mail failures
// are logged; the stored notification is still returned.
func (s *Service) Send(ctx context.Context, n Notification, email string) (Notification, error) {
	stored, err := s.store.Insert(ctx, n)
	if err != nil {
		return Notification{}, err
	}
	Dispatch(ctx, s.mailer, s.logger, stored, email)
	return stored, nil
}

// Dispatch enqueues the email for an already stored notification. It is best
// effort: failures are logged and swallowed.
func Dispatch(ctx context.Context, mailer Mailer, logger *slog.Logger, n Notification, email string) {
	if mailer == nil || email == "" {
		return
	}
	if err := mailer.EnqueueMail(ctx, MailFor(n, email)); err != nil {
		logger.Warn("enqueue notification mail failed",
			slog.Int64("notification_id", n.ID),
			slog.Int64("user_id", n.UserID),
			slog.Any("error", err))
	}
}
