package audit

import (
	"encoding/json"
	"time"

	"github.com/propertyhub/propertyhub/internal/shared"
)

// Action names an administrative mutation.
type Action string

const (
	ActionUserApprove       Action = "user.approve"
	ActionUserReject        Action = "user.reject"
	ActionUserActivate      Action = "user.activate"
	ActionUserSuspend       Action = "user.suspend"
	ActionUserDeactivate    Action = "user.deactivate"
	ActionUserChangeRole    Action = "user.change_role"
	ActionUserVerifyEmail   Action = "user.verify_email"
	ActionPropertyApprove   Action = "property.approve"
	ActionPropertyReject    Action = "property.reject"
	ActionPropertyRevision  Action = "property.request_revision"
	ActionPropertyPublish   Action = "property.publish"
	ActionPropertyUnpublish Action = "property.unpublish"
	ActionPropertyFeature   Action = "property.feature"
	ActionPropertyUnfeature Action = "property.unfeature"
	ActionPropertyUpdate    Action = "property.update"
	ActionPropertyDelete    Action = "property.delete"
)

// EntityType names the audited table.
type EntityType string

const (
	EntityUser     EntityType = "user"
	EntityProperty EntityType = "property"
)

// Entry is the input to Writer.Record.
type Entry struct {
	ActorID      int64
	Action       Action
	EntityType   EntityType
	EntityID     int64
	TargetUserID *int64
	OldValues    any
	NewValues    any
	Provenance   Provenance
}

// Record is a persisted audit row.
type Record struct {
	ID           int64           `json:"id"`
	EventID      string          `json:"eventId"`
	ActorID      int64           `json:"actorId"`
	ActorEmail   string          `json:"actorEmail"`
	Action       Action          `json:"action"`
	EntityType   EntityType      `json:"entityType"`
	EntityID     int64           `json:"entityId"`
	TargetUserID *int64          `json:"targetUserId,omitempty"`
	OldValues    json.RawMessage `json:"oldValues,omitempty"`
	NewValues    json.RawMessage `json:"newValues,omitempty"`
	IPAddress    string          `json:"ipAddress,omitempty"`
	UserAgent    string          `json:"userAgent,omitempty"`
	RequestID    string          `json:"requestId,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// ListFilters menampung filter untuk daftar audit log admin.
type ListFilters struct {
	Action     Action
	EntityType EntityType
	ActorID    int64
	EntityID   int64
	From       time.Time
	To         time.Time
	Search     string
	Page       shared.PageRequest
}
