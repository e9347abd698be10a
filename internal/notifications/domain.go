// Package notifications stores in-app messages for principals and hands the
// matching email off to the job queue.
package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/propertyhub/propertyhub/internal/platform/httpx"
	"github.com/propertyhub/propertyhub/internal/shared"
)

// ErrNotFound is returned when the notification does not exist or belongs to someone else.
var ErrNotFound = fmt.Errorf("%w: notification not found", httpx.ErrNotFound)

// Kind categorises a notification.
type Kind string

const (
	KindAccountApproved          Kind = "account_approved"
	KindAccountRejected          Kind = "account_rejected"
	KindPropertyApproved         Kind = "property_approved"
	KindPropertyRejected         Kind = "property_rejected"
	KindPropertyRevisionRequired Kind = "property_revision_requested"
	KindInquiryReceived          Kind = "inquiry_received"
)

// Notification is a message addressed to one principal.
type Notification struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"userId"`
	Kind       Kind       `json:"kind"`
	Title      string     `json:"title"`
	Message    string     `json:"message"`
	EntityType string     `json:"entityType,omitempty"`
	EntityID   *int64     `json:"entityId,omitempty"`
	IsRead     bool       `json:"isRead"`
	ReadAt     *time.Time `json:"readAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// ListFilters narrows a principal's notifications.
type ListFilters struct {
	UnreadOnly bool
	Page       shared.PageRequest
}

// Mail is the email counterpart of a notification.
type Mail struct {
	NotificationID int64  `json:"notificationId"`
	To             string `json:"to"`
	Subject        string `json:"subject"`
	Body           string `json:"body"`
}

// MailFor renders the email for n.
func MailFor(n Notification, to string) Mail {
	return Mail{NotificationID: n.ID, To: to, Subject: n.Title, Body: n.Message}
}

// Mailer enqueues notification emails for asynchronous delivery.
type Mailer interface {
	EnqueueMail(ctx context.Context, m Mail) error
}
