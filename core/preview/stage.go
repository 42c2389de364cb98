package preview

import (
	"context"

	"github.com/coparent/rota/core/logger"
	"github.com/coparent/rota/core/model"
	"github.com/coparent/rota/core/optimize"
	"github.com/coparent/rota/core/rebalance"
)

// Stage computes rebalancing responses for an overlay. The overlay itself is
// a plain value; Stage carries the rebalancer and the optional optimizer
// refiner so callers do not have to.
type Stage struct {
	reb     *rebalance.Rebalancer
	refiner *optimize.Refiner
	log     logger.Logger
}

// NewStage creates a Stage. The refiner may be nil to skip optimization.
func NewStage(reb *rebalance.Rebalancer, refiner *optimize.Refiner, log logger.Logger) *Stage {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Stage{reb: reb, refiner: refiner, log: log}
}

// RunRebalance repairs the overlay's base under its declared disruptions and
// stages every differing night in the proposed layer, leaving the base
// untouched for comparison. When an optimizer is configured its output is
// validated and applied on top; any optimizer failure silently falls back to
// the rebalancer result, with the reason in the returned explanation.
func (s *Stage) RunRebalance(ctx context.Context, o Overlay) (Overlay, string) {
	return s.RunRebalanceWithBlocks(ctx, o, nil)
}

// RunRebalanceWithBlocks additionally forwards advisory soft blocks to the
// fairness pass.
func (s *Stage) RunRebalanceWithBlocks(ctx context.Context, o Overlay, softBlocks model.DisruptionSet) (Overlay, string) {
	result := s.reb.RebalanceWithBlocks(o.Base, o.Disruptions, softBlocks)

	explanation := ""
	if s.refiner != nil {
		result, explanation = s.refiner.Refine(ctx, result, o.Disruptions)
	}

	proposed := make(map[model.DateKey]model.Day)
	for i, day := range result {
		if base := o.Base[i]; base.AssignedTo != day.AssignedTo ||
			base.IsDisrupted != day.IsDisrupted || base.DisruptedBy != day.DisruptedBy {
			proposed[day.Date] = day
		}
	}
	s.log.Debugf("staged %d proposed night(s)", len(proposed))
	return o.withProposed(proposed), explanation
}
