package approval

import (
	"time"

	"github.com/propertyhub/propertyhub/internal/audit"
	"github.com/propertyhub/propertyhub/internal/users"
)

// Single user decisions.
const (
	UserApprove = "approve"
	UserReject  = "reject"
)

// Bulk user actions.
const (
	UserActivate    = "activate"
	UserSuspend     = "suspend"
	UserDeactivate  = "deactivate"
	UserChangeRole  = "changeRole"
	UserVerifyEmail = "verifyEmail"
)

// Property decisions and bulk actions.
const (
	PropertyApprove         = "approve"
	PropertyReject          = "reject"
	PropertyRequestRevision = "requestRevision"
	PropertyPublish         = "publish"
	PropertyUnpublish       = "unpublish"
)

// UserDecision approves or rejects a pending account.
type UserDecision struct {
	Action string `json:"action" validate:"required,oneof=approve reject"`
	Reason string `json:"reason" validate:"max=1000"`
}

// BulkUserAction applies one action to many accounts.
type BulkUserAction struct {
	IDs    []int64 `json:"ids" validate:"required,min=1,max=100,unique,dive,gt=0"`
	Action string  `json:"action" validate:"required,oneof=activate suspend deactivate changeRole verifyEmail"`
	Role   string  `json:"role" validate:"required_if=Action changeRole"`
}

// PropertyDecision approves, rejects or requests changes to one listing.
type PropertyDecision struct {
	Action string `json:"action" validate:"required,oneof=approve reject requestRevision"`
	Note   string `json:"note" validate:"max=2000"`
}

// BulkPropertyAction applies one action to many listings.
type BulkPropertyAction struct {
	IDs    []int64 `json:"ids" validate:"required,min=1,max=100,unique,dive,gt=0"`
	Action string  `json:"action" validate:"required,oneof=approve reject requestRevision publish unpublish"`
	Reason string  `json:"reason" validate:"max=2000"`
}

// FeatureInput attaches or removes the featured marker of a listing.
type FeatureInput struct {
	Featured  *bool      `json:"featured" validate:"required"`
	StartDate *time.Time `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`
	Amount    float64    `json:"amount" validate:"gte=0"`
}

// userDecisionOutcome returns the status and audit action of a single decision.
func userDecisionOutcome(action string) (users.Status, audit.Action) {
	if action == UserApprove {
		return users.StatusActive, audit.ActionUserApprove
	}
	return users.StatusSuspended, audit.ActionUserReject
}

// bulkUserAudit maps a bulk user action to its audit action.
func bulkUserAudit(action string) audit.Action {
	switch action {
	case UserActivate:
		return audit.ActionUserActivate
	case UserSuspend:
		return audit.ActionUserSuspend
	case UserDeactivate:
		return audit.ActionUserDeactivate
	case UserChangeRole:
		return audit.ActionUserChangeRole
	default:
		return audit.ActionUserVerifyEmail
	}
}

// propertyAudit maps a property action to its audit action.
func propertyAudit(action string) audit.Action {
	switch action {
	case PropertyApprove:
		return audit.ActionPropertyApprove
	case PropertyReject:
		return audit.ActionPropertyReject
	case PropertyRequestRevision:
		return audit.ActionPropertyRevision
	case PropertyPublish:
		return audit.ActionPropertyPublish
	default:
		return audit.ActionPropertyUnpublish
	}
}
