// Package schedule exposes baseline generation and rebalancing over HTTP.
package schedule

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/coparent/rota/core/events"
	"github.com/coparent/rota/core/model"
	"github.com/coparent/rota/core/preview"
	"github.com/coparent/rota/core/rebalance"
	coreschedule "github.com/coparent/rota/core/schedule"
)

type generateRequest struct {
	Start         model.DateKey    `json:"start"`
	FirstGuardian model.GuardianID `json:"firstGuardian"`
	TotalDays     int              `json:"totalDays"`
	BlockLength   int              `json:"blockLength"`
}

// NewGenerateHandler returns an HTTP handler producing a fresh alternating
// baseline via POST /api/schedule/generate.
func NewGenerateHandler(gen coreschedule.Generator) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if _, err := model.ParseDateKey(req.Start); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.FirstGuardian != gen.GuardianA && req.FirstGuardian != gen.GuardianB {
			http.Error(w, "unknown first guardian", http.StatusBadRequest)
			return
		}
		if req.BlockLength > 0 {
			gen.BlockLength = req.BlockLength
		}
		cal := gen.Generate(req.Start, req.FirstGuardian, req.TotalDays)
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]any{"calendar": cal}); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}

type disruptionInput struct {
	Date     model.DateKey    `json:"date"`
	Guardian model.GuardianID `json:"guardian"`
}

type rebalanceRequest struct {
	Calendar    model.Calendar                     `json:"calendar"`
	Disruptions []disruptionInput                  `json:"disruptions"`
	Manual      map[model.DateKey]model.GuardianID `json:"manual"`
	SoftBlocks  map[model.DateKey]model.GuardianID `json:"softBlocks"`
}

type rebalanceResponse struct {
	Calendar model.Calendar       `json:"calendar"`
	Changes  []model.ChangeRecord `json:"changes"`
	Summary  rebalance.Summary    `json:"summary"`
	Fallback string               `json:"fallback,omitempty"`
}

// NewRebalanceHandler returns an HTTP handler that repairs a calendar under
// declared disruptions via POST /api/schedule/rebalance. The input calendar is
// never persisted; callers inspect the staged result and commit separately.
func NewRebalanceHandler(stage *preview.Stage, cfg rebalance.Config, notify func(events.RebalanceEvent)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req rebalanceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := req.Calendar.Validate(cfg.GuardianA, cfg.GuardianB); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		o := preview.New(req.Calendar)
		for _, d := range req.Disruptions {
			o = o.MarkDisrupted(d.Date, d.Guardian)
		}
		for date, g := range req.Manual {
			o = o.ApplyManual(date, g)
		}

		softBlocks := model.DisruptionSet{}
		for date, g := range req.SoftBlocks {
			softBlocks[date] = g
		}

		started := time.Now()
		staged, fallback := stage.RunRebalanceWithBlocks(r.Context(), o, softBlocks)
		effective := staged.Effective()
		summary := rebalance.Summarize(req.Calendar, effective, cfg)

		if notify != nil {
			notify(events.RebalanceEvent{
				At:              started,
				DisruptedDates:  staged.Disruptions.Dates(),
				ChangedCount:    summary.ChangedCount,
				TransitionDelta: summary.TransitionDelta,
				OptimizerUsed:   fallback == "",
				Fallback:        fallback,
				Duration:        time.Since(started),
			})
		}

		w.Header().Set("Content-Type", "application/json")
		resp := rebalanceResponse{
			Calendar: effective,
			Changes:  staged.Diff(),
			Summary:  summary,
			Fallback: fallback,
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}
