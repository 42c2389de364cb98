// Package proposal implements a lightweight approval workflow for named,
// shareable rebalancing proposals. A proposal freezes a staged diff and waits
// for sign-off from the guardian who did not initiate it.
package proposal

import (
	"errors"
	"fmt"
	"time"

	"github.com/coparent/rota/core/model"
)

// Status is the lifecycle state of a proposal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusWithdrawn Status = "withdrawn"
	StatusExpired   Status = "expired"
)

// DefaultTTL is how long a pending proposal stays reviewable.
const DefaultTTL = 7 * 24 * time.Hour

// Proposal is a frozen snapshot of a staged rebalancing offered for review.
type Proposal struct {
	ID        string           `json:"id"`
	CreatedBy model.GuardianID `json:"createdBy"`
	CreatedAt time.Time        `json:"createdAt"`
	ExpiresAt time.Time        `json:"expiresAt"`
	Status    Status           `json:"status"`

	Title          string          `json:"title"`
	Message        string          `json:"message,omitempty"`
	DisruptedDates []model.DateKey `json:"disruptedDates"`

	BaseCalendar     model.Calendar `json:"baseCalendar"`
	ProposedCalendar model.Calendar `json:"proposedCalendar"`
	AffectedFrom     model.DateKey  `json:"affectedFrom"`
	AffectedTo       model.DateKey  `json:"affectedTo"`

	TransitionDelta int     `json:"transitionDelta"`
	FairnessImpact  int     `json:"fairnessImpact"`
	Confidence      float64 `json:"confidence"`

	ReviewedAt      *time.Time       `json:"reviewedAt,omitempty"`
	ReviewedBy      model.GuardianID `json:"reviewedBy,omitempty"`
	RejectionReason string           `json:"rejectionReason,omitempty"`
}

// ErrNotFound reports an unknown proposal id.
var ErrNotFound = errors.New("proposal not found")

// ErrSelfReview reports a guardian reviewing their own proposal.
var ErrSelfReview = errors.New("a proposal cannot be reviewed by its creator")

// ErrNotCreator reports a withdrawal attempted by someone other than the
// creator.
var ErrNotCreator = errors.New("only the creator may withdraw a proposal")

// StateError reports a transition attempted on a non-pending proposal. The
// message names the current state so callers can explain the refusal.
type StateError struct {
	Current Status
}

func (e *StateError) Error() string {
	return fmt.Sprintf("proposal is %s, only pending proposals can change state", e.Current)
}
