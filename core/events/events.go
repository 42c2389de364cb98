// Package events defines the notifications emitted when the calendar or a
// proposal changes state. Payloads are plain values so subscribers can hold
// them past the publishing call.
package events

import (
	"time"

	"github.com/coparent/rota/core/model"
)

// RebalanceEvent is published after a rebalancing run completes.
type RebalanceEvent struct {
	At              time.Time
	DisruptedDates  []model.DateKey
	ChangedCount    int
	TransitionDelta int
	OptimizerUsed   bool
	Fallback        string
	Duration        time.Duration
}

// ProposalEvent is published on every proposal state change.
type ProposalEvent struct {
	At         time.Time
	ProposalID string
	Status     string
	Actor      model.GuardianID
}
