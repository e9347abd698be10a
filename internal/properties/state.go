package properties

import (
	"fmt"
	"time"

	"github.com/propertyhub/propertyhub/internal/platform/httpx"
)

// Status is the visibility axis of a listing.
type Status string

const (
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusRejected        Status = "rejected"
	StatusUnavailable     Status = "unavailable"
)

// Approval is the moderation axis of a listing.
type Approval string

const (
	ApprovalSubmitted         Approval = "submitted"
	ApprovalApproved          Approval = "approved"
	ApprovalRejected          Approval = "rejected"
	ApprovalRevisionRequested Approval = "revision_requested"
)

// ErrInvalidTransition is returned when a transition is not allowed from the current state.
var ErrInvalidTransition = fmt.Errorf("%w: invalid listing state transition", httpx.ErrValidation)

// State holds both axes of a listing plus the moderation bookkeeping. Its
// fields change only through the transition methods, which keep the axes consistent.
type State struct {
	status          Status
	approval        Approval
	approvedAt      *time.Time
	approvedBy      *int64
	publishedAt     *time.Time
	rejectionReason string
	revisionNote    string
}

// StateSnapshot is the serialisable view of a State.
type StateSnapshot struct {
	Status          Status     `json:"status"`
	ApprovalStatus  Approval   `json:"approvalStatus"`
	ApprovedAt      *time.Time `json:"approvedAt,omitempty"`
	ApprovedBy      *int64     `json:"approvedBy,omitempty"`
	PublishedAt     *time.Time `json:"publishedAt,omitempty"`
	RejectionReason string     `json:"rejectionReason,omitempty"`
	RevisionNote    string     `json:"revisionNote,omitempty"`
}

// NewSubmittedState is the state of a freshly created listing.
func NewSubmittedState() State {
	return State{status: StatusPendingApproval, approval: ApprovalSubmitted}
}

// RestoreState rebuilds a State from stored columns, rejecting inconsistent pairs.
func RestoreState(snap StateSnapshot) (State, error) {
	if !consistent(snap.Status, snap.ApprovalStatus) {
		return State{}, fmt.Errorf("properties: inconsistent state %s/%s", snap.Status, snap.ApprovalStatus)
	}
	return State{
		status:          snap.Status,
		approval:        snap.ApprovalStatus,
		approvedAt:      snap.ApprovedAt,
		approvedBy:      snap.ApprovedBy,
		publishedAt:     snap.PublishedAt,
		rejectionReason: snap.RejectionReason,
		revisionNote:    snap.RevisionNote,
	}, nil
}

func consistent(s Status, a Approval) bool {
	switch s {
	case StatusPendingApproval:
		return a == ApprovalSubmitted || a == ApprovalRevisionRequested
	case StatusApproved:
		return a == ApprovalApproved || a == ApprovalRevisionRequested
	case StatusRejected:
		return a == ApprovalRejected || a == ApprovalRevisionRequested
	case StatusUnavailable:
		switch a {
		case ApprovalSubmitted, ApprovalApproved, ApprovalRejected, ApprovalRevisionRequested:
			return true
		}
	}
	return false
}

// Status returns the visibility axis.
func (s State) Status() Status { return s.status }

// Approval returns the moderation axis.
func (s State) Approval() Approval { return s.approval }

// PublishedAt returns when the listing was first published.
func (s State) PublishedAt() *time.Time { return s.publishedAt }

// IsPublic reports whether anonymous visitors may see the listing.
func (s State) IsPublic() bool {
	return s.status == StatusApproved && s.approval == ApprovalApproved
}

// AwaitingResubmission reports whether an owner edit should send the listing back to review.
func (s State) AwaitingResubmission() bool {
	return s.approval == ApprovalRejected || s.approval == ApprovalRevisionRequested
}

// Snapshot returns the serialisable view.
func (s State) Snapshot() StateSnapshot {
	return StateSnapshot{
		Status:          s.status,
		ApprovalStatus:  s.approval,
		ApprovedAt:      s.approvedAt,
		ApprovedBy:      s.approvedBy,
		PublishedAt:     s.publishedAt,
		RejectionReason: s.rejectionReason,
		RevisionNote:    s.revisionNote,
	}
}

// Approve publishes the listing from any state.
func (s *State) Approve(adminID int64, now time.Time) {
	at := now.UTC()
	s.status = StatusApproved
	s.approval = ApprovalApproved
	s.approvedAt = &at
	s.approvedBy = &adminID
	s.publishedAt = &at
	s.rejectionReason = ""
	s.revisionNote = ""
}

// Reject hides the listing with a reason.
func (s *State) Reject(reason string) {
	s.status = StatusRejected
	s.approval = ApprovalRejected
	s.rejectionReason = reason
}

// RequestRevision asks the owner for changes. Visibility is untouched, but the
// listing drops out of public search until it is approved again.
func (s *State) RequestRevision(note string) {
	s.approval = ApprovalRevisionRequested
	s.revisionNote = note
}

// Publish makes an approved listing visible again.
func (s *State) Publish(now time.Time) error {
	if s.approval != ApprovalApproved {
		return fmt.Errorf("%w: only approved listings can be published", ErrInvalidTransition)
	}
	s.status = StatusApproved
	if s.publishedAt == nil {
		at := now.UTC()
		s.publishedAt = &at
	}
	return nil
}

// Unpublish hides the listing without touching its approval.
func (s *State) Unpublish() {
	s.status = StatusUnavailable
}

// Resubmit sends a rejected or revision-requested listing back to review.
func (s *State) Resubmit() error {
	if !s.AwaitingResubmission() {
		return fmt.Errorf("%w: listing is not awaiting resubmission", ErrInvalidTransition)
	}
	s.status = StatusPendingApproval
	s.approval = ApprovalSubmitted
	return nil
}
