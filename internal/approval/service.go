// Package approval implements the administrator workflow over accounts and
// listings. Every mutation commits together with one audit record per entity.
package approval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/propertyhub/propertyhub/internal/audit"
	"github.com/propertyhub/propertyhub/internal/notifications"
	"github.com/propertyhub/propertyhub/internal/platform/httpx"
	"github.com/propertyhub/propertyhub/internal/properties"
	"github.com/propertyhub/propertyhub/internal/rbac"
	"github.com/propertyhub/propertyhub/internal/shared"
	"github.com/propertyhub/propertyhub/internal/users"
)

// ErrNotPending is returned when deciding on an account that is not awaiting verification.
var ErrNotPending = fmt.Errorf("%w: user is not pending verification", httpx.ErrValidation)

// ErrNotApproved is returned when featuring a listing that has not been approved.
var ErrNotApproved = fmt.Errorf("%w: only approved listings can be featured", httpx.ErrValidation)

// Observer receives approval counters.
type Observer interface {
	ObserveApproval(entity, action string, count int)
}

// Invalidator drops derived data, such as cached dashboard counters, after a commit.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// Service applies administrator decisions.
type Service struct {
	store   Store
	mailer  notifications.Mailer
	metrics Observer
	caches  []Invalidator
	logger  *slog.Logger
	now     func() time.Time
}

// NewService builds Service instance. mailer and metrics may be nil.
func NewService(store Store, mailer notifications.Mailer, metrics Observer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, mailer: mailer, metrics: metrics, logger: logger, now: time.Now}
}

// outbox is a notification committed inside the transaction whose email is
// enqueued after commit.
type outbox struct {
	note  notifications.Notification
	email string
}

func (s *Service) flush(ctx context.Context, out *outbox) {
	if out == nil {
		return
	}
	notifications.Dispatch(ctx, s.mailer, s.logger, out.note, out.email)
}

// WithInvalidators registers caches to drop after every committed decision.
func (s *Service) WithInvalidators(caches ...Invalidator) *Service {
	s.caches = append(s.caches, caches...)
	return s
}

func (s *Service) committed(ctx context.Context, entity audit.EntityType, action string, count int) {
	if s.metrics != nil {
		s.metrics.ObserveApproval(string(entity), action, count)
	}
	for _, c := range s.caches {
		c.Invalidate(ctx)
	}
}

// ApproveUser approves or rejects an account awaiting verification. Approval
// activates the account and verifies its agent or landlord profile; rejection
// suspends it.
func (s *Service) ApproveUser(ctx context.Context, actor shared.Identity, id int64, in UserDecision) (users.User, error) {
	if err := rbac.Administer.Check(actor); err != nil {
		return users.User{}, err
	}
	if err := httpx.Validate(in); err != nil {
		return users.User{}, err
	}
	now := s.now().UTC()
	status, action := userDecisionOutcome(in.Action)

	var (
		updated users.User
		out     *outbox
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		current, err := tx.GetUser(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != users.StatusPendingVerification {
			return ErrNotPending
		}
		if err := tx.SetUserStatus(ctx, id, status); err != nil {
			return err
		}
		if in.Action == UserApprove {
			if err := tx.VerifyProfile(ctx, id, now); err != nil {
				return err
			}
		}
		if updated, err = tx.GetUser(ctx, id); err != nil {
			return err
		}
		if err := tx.RecordAudit(ctx, audit.Entry{
			ActorID:      actor.UserID,
			Action:       action,
			EntityType:   audit.EntityUser,
			EntityID:     id,
			TargetUserID: &id,
			OldValues:    current,
			NewValues:    updated,
		}); err != nil {
			return err
		}
		note, err := tx.Notify(ctx, userNotification(updated, in))
		if err != nil {
			return err
		}
		out = &outbox{note: note, email: updated.Email}
		return nil
	})
	if err != nil {
		return users.User{}, err
	}
	s.flush(ctx, out)
	s.committed(ctx, audit.EntityUser, in.Action, 1)
	s.logger.Info("user decision",
		slog.String("action", in.Action),
		slog.Int64("user_id", id),
		slog.Int64("admin_id", actor.UserID))
	return updated, nil
}

func userNotification(u users.User, in UserDecision) notifications.Notification {
	n := notifications.Notification{UserID: u.ID, EntityType: string(audit.EntityUser), EntityID: &u.ID}
	if in.Action == UserApprove {
		n.Kind = notifications.KindAccountApproved
		n.Title = "Your account has been approved"
		n.Message = "Your account is now active. You can start listing properties."
		return n
	}
	n.Kind = notifications.KindAccountRejected
	n.Title = "Your account application was not approved"
	n.Message = "Your account has been suspended."
	if reason := strings.TrimSpace(in.Reason); reason != "" {
		n.Message += " Reason: " + reason
	}
	return n
}

// BulkUsers applies one action to every id. An unknown id fails the whole batch.
func (s *Service) BulkUsers(ctx context.Context, actor shared.Identity, in BulkUserAction) ([]users.User, error) {
	if err := rbac.Administer.Check(actor); err != nil {
		return nil, err
	}
	if err := httpx.Validate(in); err != nil {
		return nil, err
	}
	var role shared.Role
	if in.Action == UserChangeRole {
		r, ok := shared.ParseRole(in.Role)
		if !ok {
			return nil, httpx.Validation("unknown role %q", in.Role)
		}
		role = r
	}
	if in.Action != UserVerifyEmail && in.Action != UserActivate {
		for _, id := range in.IDs {
			if id == actor.UserID {
				return nil, httpx.Validation("administrators cannot %s their own account", in.Action)
			}
		}
	}

	out := make([]users.User, 0, len(in.IDs))
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		for _, id := range in.IDs {
			current, err := tx.GetUser(ctx, id)
			if err != nil {
				return err
			}
			switch in.Action {
			case UserActivate:
				err = tx.SetUserStatus(ctx, id, users.StatusActive)
			case UserSuspend:
				err = tx.SetUserStatus(ctx, id, users.StatusSuspended)
			case UserDeactivate:
				err = tx.SetUserStatus(ctx, id, users.StatusInactive)
			case UserChangeRole:
				err = tx.SetUserRole(ctx, id, role)
			case UserVerifyEmail:
				err = tx.MarkEmailVerified(ctx, id)
			}
			if err != nil {
				return err
			}
			updated, err := tx.GetUser(ctx, id)
			if err != nil {
				return err
			}
			if err := tx.RecordAudit(ctx, audit.Entry{
				ActorID:      actor.UserID,
				Action:       bulkUserAudit(in.Action),
				EntityType:   audit.EntityUser,
				EntityID:     id,
				TargetUserID: &id,
				OldValues:    current,
				NewValues:    updated,
			}); err != nil {
				return err
			}
			out = append(out, updated)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.committed(ctx, audit.EntityUser, in.Action, len(out))
	s.logger.Info("bulk user action",
		slog.String("action", in.Action),
		slog.Int("count", len(out)),
		slog.Int64("admin_id", actor.UserID))
	return out, nil
}

// DecideProperty approves, rejects or requests a revision of one listing and
// notifies its owner. Reject and request-revision require a note.
func (s *Service) DecideProperty(ctx context.Context, actor shared.Identity, id int64, in PropertyDecision) (properties.Property, error) {
	if err := rbac.Administer.Check(actor); err != nil {
		return properties.Property{}, err
	}
	if err := httpx.Validate(in); err != nil {
		return properties.Property{}, err
	}
	note := strings.TrimSpace(in.Note)
	if in.Action != PropertyApprove && note == "" {
		return properties.Property{}, httpx.Validation("note is required")
	}
	now := s.now()

	var (
		updated properties.Property
		out     *outbox
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		current, err := tx.GetProperty(ctx, id)
		if err != nil {
			return err
		}
		next := current
		if err := applyPropertyAction(&next.State, in.Action, actor.UserID, note, now); err != nil {
			return err
		}
		if err := tx.UpdateProperty(ctx, next); err != nil {
			return err
		}
		if updated, err = tx.GetProperty(ctx, id); err != nil {
			return err
		}
		if err := tx.RecordAudit(ctx, audit.Entry{
			ActorID:      actor.UserID,
			Action:       propertyAudit(in.Action),
			EntityType:   audit.EntityProperty,
			EntityID:     id,
			TargetUserID: &current.OwnerID,
			OldValues:    current.View(),
			NewValues:    updated.View(),
		}); err != nil {
			return err
		}
		owner, err := tx.GetUser(ctx, current.OwnerID)
		if err != nil {
			return err
		}
		n, err := tx.Notify(ctx, propertyNotification(updated, in.Action, note))
		if err != nil {
			return err
		}
		out = &outbox{note: n, email: owner.Email}
		return nil
	})
	if err != nil {
		return properties.Property{}, err
	}
	s.flush(ctx, out)
	s.committed(ctx, audit.EntityProperty, in.Action, 1)
	s.logger.Info("property decision",
		slog.String("action", in.Action),
		slog.Int64("property_id", id),
		slog.Int64("admin_id", actor.UserID))
	return updated, nil
}

func applyPropertyAction(st *properties.State, action string, adminID int64, note string, now time.Time) error {
	switch action {
	case PropertyApprove:
		st.Approve(adminID, now)
	case PropertyReject:
		st.Reject(note)
	case PropertyRequestRevision:
		st.RequestRevision(note)
	case PropertyPublish:
		return st.Publish(now)
	case PropertyUnpublish:
		st.Unpublish()
	default:
		return httpx.Validation("unknown action %q", action)
	}
	return nil
}

func propertyNotification(p properties.Property, action, note string) notifications.Notification {
	n := notifications.Notification{UserID: p.OwnerID, EntityType: string(audit.EntityProperty), EntityID: &p.ID}
	switch action {
	case PropertyApprove:
		n.Kind = notifications.KindPropertyApproved
		n.Title = "Listing approved"
		n.Message = fmt.Sprintf("%q is now live.", p.Title)
	case PropertyReject:
		n.Kind = notifications.KindPropertyRejected
		n.Title = "Listing rejected"
		n.Message = fmt.Sprintf("%q was rejected. Reason: %s", p.Title, note)
	default:
		n.Kind = notifications.KindPropertyRevisionRequired
		n.Title = "Changes requested"
		n.Message = fmt.Sprintf("%q needs changes before it can be published: %s", p.Title, note)
	}
	return n
}

// BulkProperties applies one action to every listing. An unknown id or a
// disallowed transition fails the whole batch. No notifications are sent.
func (s *Service) BulkProperties(ctx context.Context, actor shared.Identity, in BulkPropertyAction) ([]properties.Property, error) {
	if err := rbac.Administer.Check(actor); err != nil {
		return nil, err
	}
	if err := httpx.Validate(in); err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(in.Reason)
	now := s.now()

	out := make([]properties.Property, 0, len(in.IDs))
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		for _, id := range in.IDs {
			current, err := tx.GetProperty(ctx, id)
			if err != nil {
				return err
			}
			next := current
			if err := applyPropertyAction(&next.State, in.Action, actor.UserID, reason, now); err != nil {
				return fmt.Errorf("property %d: %w", id, err)
			}
			if err := tx.UpdateProperty(ctx, next); err != nil {
				return err
			}
			updated, err := tx.GetProperty(ctx, id)
			if err != nil {
				return err
			}
			if err := tx.RecordAudit(ctx, audit.Entry{
				ActorID:      actor.UserID,
				Action:       propertyAudit(in.Action),
				EntityType:   audit.EntityProperty,
				EntityID:     id,
				TargetUserID: &current.OwnerID,
				OldValues:    current.View(),
				NewValues:    updated.View(),
			}); err != nil {
				return err
			}
			out = append(out, updated)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.committed(ctx, audit.EntityProperty, in.Action, len(out))
	s.logger.Info("bulk property action",
		slog.String("action", in.Action),
		slog.Int("count", len(out)),
		slog.Int64("admin_id", actor.UserID))
	return out, nil
}

// Feature attaches, replaces or removes the featured marker of a listing.
// Removing a marker that does not exist succeeds; both paths are audited.
func (s *Service) Feature(ctx context.Context, actor shared.Identity, id int64, in FeatureInput) (properties.Property, error) {
	if err := rbac.Administer.Check(actor); err != nil {
		return properties.Property{}, err
	}
	if err := httpx.Validate(in); err != nil {
		return properties.Property{}, err
	}
	featured := *in.Featured
	var marker properties.FeaturedMarker
	if featured {
		if in.StartDate == nil || in.EndDate == nil {
			return properties.Property{}, httpx.Validation("startDate and endDate are required")
		}
		if !in.EndDate.After(*in.StartDate) {
			return properties.Property{}, httpx.Validation("endDate must be after startDate")
		}
		marker = properties.FeaturedMarker{
			PropertyID: id,
			StartDate:  in.StartDate.UTC(),
			EndDate:    in.EndDate.UTC(),
			Amount:     in.Amount,
			CreatedBy:  actor.UserID,
		}
	}

	action := audit.ActionPropertyUnfeature
	if featured {
		action = audit.ActionPropertyFeature
	}

	var updated properties.Property
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		current, err := tx.GetProperty(ctx, id)
		if err != nil {
			return err
		}
		if featured {
			if current.State.Approval() != properties.ApprovalApproved {
				return ErrNotApproved
			}
			if err := tx.UpsertFeatured(ctx, marker); err != nil {
				return err
			}
		} else if _, err := tx.DeleteFeatured(ctx, id); err != nil {
			return err
		}
		if updated, err = tx.GetProperty(ctx, id); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, audit.Entry{
			ActorID:      actor.UserID,
			Action:       action,
			EntityType:   audit.EntityProperty,
			EntityID:     id,
			TargetUserID: &current.OwnerID,
			OldValues:    current.Featured,
			NewValues:    updated.Featured,
		})
	})
	if err != nil {
		return properties.Property{}, err
	}
	s.committed(ctx, audit.EntityProperty, string(action), 1)
	return updated, nil
}
