// Package optimize integrates the optional external proposal optimizer. The
// optimizer may suggest single-night flips that reduce handoffs on an already
// valid calendar; its output is never trusted blindly and is re-validated
// before use, falling back to the rebalancer's own result on any failure.
package optimize

import (
	"context"

	"github.com/coparent/rota/core/model"
)

// Change is one single-night flip proposed by the optimizer.
type Change struct {
	Date   model.DateKey    `json:"date"`
	From   model.GuardianID `json:"from"`
	To     model.GuardianID `json:"to"`
	Reason string           `json:"reason"`
}

// Request describes the calendar segment the optimizer may refine.
type Request struct {
	BaseCalendar       model.Calendar     `json:"baseCalendar"`
	DisruptedDates     []model.DateKey    `json:"disruptedDates"`
	DisruptingGuardian model.GuardianID   `json:"disruptingGuardian"`
	WindowStart        model.DateKey      `json:"windowStart"`
	WindowEnd          model.DateKey      `json:"windowEnd"`
	TransitionCount    int                `json:"currentTransitionCount"`
}

// Response carries the optimizer's proposed flips. An empty change list and
// an error are both valid "no improvement" outcomes.
type Response struct {
	Changes     []Change `json:"changes"`
	Explanation string   `json:"explanation"`
	Reasoning   string   `json:"reasoning"`
}

// Optimizer is the external collaborator boundary.
type Optimizer interface {
	Propose(ctx context.Context, req Request) (Response, error)
}
