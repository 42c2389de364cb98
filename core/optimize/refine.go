package optimize

import (
	"context"
	"fmt"
	"time"

	"github.com/coparent/rota/core/logger"
	"github.com/coparent/rota/core/model"
	"github.com/coparent/rota/core/rebalance"
)

// DefaultTimeout bounds a single optimizer call.
const DefaultTimeout = 10 * time.Second

// Refiner wraps an Optimizer with validation and fallback. A nil Optimizer
// disables refinement entirely.
type Refiner struct {
	opt     Optimizer
	cfg     rebalance.Config
	timeout time.Duration
	log     logger.Logger
}

// NewRefiner creates a Refiner with the given constraint configuration.
func NewRefiner(opt Optimizer, cfg rebalance.Config, timeout time.Duration, log logger.Logger) *Refiner {
	cfg.SetDefaults()
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Refiner{opt: opt, cfg: cfg, timeout: timeout, log: log}
}

// Refine asks the optimizer for transition-reducing flips on an already valid
// calendar and applies them only if the refined calendar passes the same
// validator used internally. On timeout, transport error, or validation
// failure the input calendar is returned untouched together with the reason,
// so callers always end up with a usable result.
func (r *Refiner) Refine(ctx context.Context, cal model.Calendar, disruptions model.DisruptionSet) (model.Calendar, string) {
	if r.opt == nil || len(cal) == 0 {
		return cal, ""
	}

	req := Request{
		BaseCalendar:    cal,
		DisruptedDates:  disruptions.Dates(),
		WindowStart:     cal[0].Date,
		WindowEnd:       cal[len(cal)-1].Date,
		TransitionCount: cal.Transitions(),
	}
	for _, g := range disruptions {
		req.DisruptingGuardian = g
		break
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	resp, err := r.opt.Propose(ctx, req)
	if err != nil {
		r.log.Warnf("optimizer unavailable, keeping rebalancer result: %v", err)
		return cal, fmt.Sprintf("optimizer unavailable: %v", err)
	}
	if len(resp.Changes) == 0 {
		return cal, resp.Explanation
	}

	refined, reason := r.apply(cal, resp.Changes)
	if reason != "" {
		r.log.Warnf("optimizer output rejected: %s", reason)
		return cal, "optimizer output rejected: " + reason
	}
	if refined.Transitions() >= cal.Transitions() {
		return cal, "optimizer output rejected: no transition improvement"
	}
	r.log.Infof("optimizer accepted: %d change(s), transitions %d -> %d",
		len(resp.Changes), cal.Transitions(), refined.Transitions())
	return refined, resp.Explanation
}

// apply replays the proposed flips on a copy and re-validates. The returned
// reason is empty when the refined calendar is valid.
func (r *Refiner) apply(cal model.Calendar, changes []Change) (model.Calendar, string) {
	out := cal.Clone()
	for _, ch := range changes {
		i, ok := out.Find(ch.Date)
		if !ok {
			return nil, fmt.Sprintf("unknown date %s", ch.Date)
		}
		if ch.To != r.cfg.GuardianA && ch.To != r.cfg.GuardianB {
			return nil, fmt.Sprintf("unknown guardian %q", ch.To)
		}
		if out[i].AssignedTo != ch.From {
			return nil, fmt.Sprintf("stale change for %s: night is with %s, not %s", ch.Date, out[i].AssignedTo, ch.From)
		}
		to := ch.To
		out = out.WithChange(ch.Date, model.DayPatch{AssignedTo: &to})
	}
	if reasons := rebalance.Check(out, r.cfg); len(reasons) > 0 {
		return nil, reasons[0]
	}
	return out, ""
}
