package proposal

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/coparent/rota/core/logger"
	"github.com/coparent/rota/core/model"
	"github.com/coparent/rota/core/rebalance"
)

// Workflow drives the proposal state machine over an injected Store.
type Workflow struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
	log   logger.Logger
}

// NewWorkflow creates a Workflow. A non-positive ttl falls back to the
// 7-day default.
func NewWorkflow(store Store, ttl time.Duration, log logger.Logger) *Workflow {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Workflow{store: store, ttl: ttl, now: time.Now, log: log}
}

// Draft carries the caller-supplied fields for a new proposal.
type Draft struct {
	CreatedBy      model.GuardianID
	Title          string
	Message        string
	DisruptedDates []model.DateKey
	Base           model.Calendar
	Proposed       model.Calendar
	Confidence     float64
}

// Create freezes a staged rebalancing into a pending proposal.
func (w *Workflow) Create(d Draft, cfg rebalance.Config) (Proposal, error) {
	now := w.now()
	summary := rebalance.Summarize(d.Base, d.Proposed, cfg)

	p := Proposal{
		ID:               uuid.NewString(),
		CreatedBy:        d.CreatedBy,
		CreatedAt:        now,
		ExpiresAt:        now.Add(w.ttl),
		Status:           StatusPending,
		Title:            d.Title,
		Message:          d.Message,
		DisruptedDates:   d.DisruptedDates,
		BaseCalendar:     d.Base,
		ProposedCalendar: d.Proposed,
		TransitionDelta:  summary.TransitionDelta,
		FairnessImpact:   summary.GuardianADays - summary.GuardianBDays,
		Confidence:       d.Confidence,
	}
	if from, to, ok := affectedRange(d.Base, d.Proposed); ok {
		p.AffectedFrom, p.AffectedTo = from, to
	}
	if err := w.store.Put(p); err != nil {
		return Proposal{}, err
	}
	w.log.Infof("proposal %s created by %s (%d changed night(s))", p.ID, d.CreatedBy, summary.ChangedCount)
	return p, nil
}

func affectedRange(base, proposed model.Calendar) (model.DateKey, model.DateKey, bool) {
	var from, to model.DateKey
	for _, day := range proposed {
		prev, ok := base.At(day.Date)
		if !ok || prev.AssignedTo == day.AssignedTo {
			continue
		}
		if from == "" || day.Date < from {
			from = day.Date
		}
		if day.Date > to {
			to = day.Date
		}
	}
	return from, to, from != ""
}

// Get loads a proposal, lazily expiring it if its review window has passed.
// Any reader observes the expiry even before it is persisted.
func (w *Workflow) Get(id string) (Proposal, error) {
	p, err := w.store.Get(id)
	if err != nil {
		return Proposal{}, err
	}
	return w.expireIfDue(p), nil
}

// List returns all proposals, lazily expired, newest first.
func (w *Workflow) List() ([]Proposal, error) {
	ps, err := w.store.List()
	if err != nil {
		return nil, err
	}
	for i := range ps {
		ps[i] = w.expireIfDue(ps[i])
	}
	sort.Slice(ps, func(i, j int) bool { return ps[i].CreatedAt.After(ps[j].CreatedAt) })
	return ps, nil
}

func (w *Workflow) expireIfDue(p Proposal) Proposal {
	if p.Status == StatusPending && w.now().After(p.ExpiresAt) {
		p.Status = StatusExpired
		// Persisting the expiry is best-effort; readers already see it.
		if err := w.store.Put(p); err != nil {
			w.log.Warnf("could not persist expiry of proposal %s: %v", p.ID, err)
		}
	}
	return p
}

// Accept resolves a pending proposal in favor of the proposed calendar. The
// reviewer must not be the creator.
func (w *Workflow) Accept(id string, reviewer model.GuardianID) (Proposal, error) {
	return w.review(id, reviewer, StatusAccepted, "")
}

// Reject resolves a pending proposal against the change, with an optional
// free-text reason.
func (w *Workflow) Reject(id string, reviewer model.GuardianID, reason string) (Proposal, error) {
	return w.review(id, reviewer, StatusRejected, reason)
}

func (w *Workflow) review(id string, reviewer model.GuardianID, to Status, reason string) (Proposal, error) {
	p, err := w.Get(id)
	if err != nil {
		return Proposal{}, err
	}
	if p.Status != StatusPending {
		return Proposal{}, &StateError{Current: p.Status}
	}
	if reviewer == p.CreatedBy {
		return Proposal{}, ErrSelfReview
	}
	now := w.now()
	p.Status = to
	p.ReviewedAt = &now
	p.ReviewedBy = reviewer
	p.RejectionReason = reason
	if err := w.store.Put(p); err != nil {
		return Proposal{}, err
	}
	w.log.Infof("proposal %s %s by %s", p.ID, to, reviewer)
	return p, nil
}

// Withdraw lets the creator retract their own pending proposal.
func (w *Workflow) Withdraw(id string, caller model.GuardianID) (Proposal, error) {
	p, err := w.Get(id)
	if err != nil {
		return Proposal{}, err
	}
	if p.Status != StatusPending {
		return Proposal{}, &StateError{Current: p.Status}
	}
	if caller != p.CreatedBy {
		return Proposal{}, ErrNotCreator
	}
	now := w.now()
	p.Status = StatusWithdrawn
	p.ReviewedAt = &now
	p.ReviewedBy = caller
	if err := w.store.Put(p); err != nil {
		return Proposal{}, err
	}
	w.log.Infof("proposal %s withdrawn", p.ID)
	return p, nil
}
