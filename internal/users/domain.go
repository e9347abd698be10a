package users

import (
	"fmt"
	"strings"
	"time"

	"github.com/propertyhub/propertyhub/internal/platform/httpx"
	"github.com/propertyhub/propertyhub/internal/shared"
)

// ErrNotFound is returned when no live user matches.
var ErrNotFound = fmt.Errorf("%w: user not found", httpx.ErrNotFound)

// Status is the account lifecycle state.
type Status string

const (
	StatusPendingVerification Status = "pending_verification"
	StatusActive              Status = "active"
	StatusSuspended           Status = "suspended"
	StatusInactive            Status = "inactive"
)

// ParseStatus normalises a raw status string.
func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case StatusPendingVerification, StatusActive, StatusSuspended, StatusInactive:
		return s, true
	}
	return "", false
}

// AgentProfile holds agent-specific data.
type AgentProfile struct {
	LicenseNumber string     `json:"licenseNumber"`
	AgencyName    string     `json:"agencyName,omitempty"`
	Verified      bool       `json:"verified"`
	VerifiedAt    *time.Time `json:"verifiedAt,omitempty"`
}

// LandlordProfile holds landlord-specific data.
type LandlordProfile struct {
	CompanyName string     `json:"companyName,omitempty"`
	Verified    bool       `json:"verified"`
	VerifiedAt  *time.Time `json:"verifiedAt,omitempty"`
}

// User is a principal account.
type User struct {
	ID              int64            `json:"id"`
	Email           string           `json:"email"`
	PasswordHash    string           `json:"-"`
	Name            string           `json:"name"`
	Phone           string           `json:"phone,omitempty"`
	Role            shared.Role      `json:"role"`
	Status          Status           `json:"status"`
	EmailVerified   bool             `json:"emailVerified"`
	IsDeleted       bool             `json:"-"`
	AgentProfile    *AgentProfile    `json:"agentProfile,omitempty"`
	LandlordProfile *LandlordProfile `json:"landlordProfile,omitempty"`
	LastLoginAt     *time.Time       `json:"lastLoginAt,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// Identity returns the request identity for the user.
func (u User) Identity() shared.Identity {
	return shared.Identity{UserID: u.ID, Email: u.Email, Role: u.Role}
}

// CanSignIn reports whether credentials for the account may be accepted.
func (u User) CanSignIn() bool {
	if u.IsDeleted {
		return false
	}
	return u.Status == StatusActive || u.Status == StatusPendingVerification
}

// NewUser carries the fields needed to insert an account.
type NewUser struct {
	Email         string
	PasswordHash  string
	Name          string
	Phone         string
	Role          shared.Role
	Status        Status
	LicenseNumber string
	AgencyName    string
	CompanyName   string
}

// ListFilters narrows the admin user listing.
type ListFilters struct {
	Role   shared.Role
	Status Status
	Search string
	Page   shared.PageRequest
}
