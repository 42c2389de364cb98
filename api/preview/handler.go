// Package preview exposes stateless overlay evaluation: callers send an
// overlay value and get back its effective calendar and diff, without
// anything being persisted.
package preview

import (
	"encoding/json"
	"net/http"

	"github.com/coparent/rota/core/model"
	corepreview "github.com/coparent/rota/core/preview"
	"github.com/coparent/rota/core/rebalance"
)

type diffResponse struct {
	Effective model.Calendar       `json:"effective"`
	Changes   []model.ChangeRecord `json:"changes"`
	Dirty     bool                 `json:"dirty"`
	Valid     bool                 `json:"valid"`
	Reasons   []string             `json:"reasons,omitempty"`
}

// NewDiffHandler evaluates an overlay via POST /api/preview/diff. The
// response carries the flattened calendar, the derived change records, and
// the validator's verdict on the effective calendar.
func NewDiffHandler(cfg rebalance.Config) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var o corepreview.Overlay
		if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := o.Base.Validate(cfg.GuardianA, cfg.GuardianB); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		effective := o.Effective()
		reasons := rebalance.Check(effective, cfg)
		resp := diffResponse{
			Effective: effective,
			Changes:   o.Diff(),
			Dirty:     len(o.Disruptions) > 0 || len(o.Proposed) > 0 || len(o.Manual) > 0,
			Valid:     len(reasons) == 0,
			Reasons:   reasons,
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}
