// Package inquiries lets visitors contact the owner of a public listing.
package inquiries

import (
	"fmt"
	"strings"
	"time"

	"github.com/propertyhub/propertyhub/internal/platform/httpx"
	"github.com/propertyhub/propertyhub/internal/shared"
)

var (
	// ErrNotFound is returned for unknown inquiries.
	ErrNotFound = fmt.Errorf("%w: inquiry not found", httpx.ErrNotFound)
	// ErrNotRecipient is returned when someone other than the listing owner updates an inquiry.
	ErrNotRecipient = fmt.Errorf("%w: only the recipient can update this inquiry", httpx.ErrForbidden)
	// ErrOwnListing is returned when an owner inquires about their own listing.
	ErrOwnListing = fmt.Errorf("%w: cannot send an inquiry about your own listing", httpx.ErrValidation)
)

// Status tracks the recipient's handling of an inquiry.
type Status string

const (
	StatusNew     Status = "new"
	StatusRead    Status = "read"
	StatusReplied Status = "replied"
	StatusClosed  Status = "closed"
)

// ParseStatus normalises a raw status.
func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case StatusNew, StatusRead, StatusReplied, StatusClosed:
		return s, true
	}
	return "", false
}

// Inquiry is a message about a listing addressed to its owner.
type Inquiry struct {
	ID          int64     `json:"id"`
	PropertyID  int64     `json:"propertyId"`
	SenderID    *int64    `json:"senderId,omitempty"`
	RecipientID int64     `json:"recipientId"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone,omitempty"`
	Message     string    `json:"message"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CreateInput is the inquiry form. Name and email fall back to the signed-in
// account and are required for anonymous senders.
type CreateInput struct {
	Name    string `json:"name" validate:"max=120"`
	Email   string `json:"email" validate:"omitempty,email,max=255"`
	Phone   string `json:"phone" validate:"max=40"`
	Message string `json:"message" validate:"required,max=2000"`
}

// StatusInput changes an inquiry's status.
type StatusInput struct {
	Status string `json:"status" validate:"required,oneof=new read replied closed"`
}

// ListFilters narrows the recipient's inbox.
type ListFilters struct {
	Status     Status
	PropertyID int64
	Page       shared.PageRequest
}
