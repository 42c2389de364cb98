package schedule

import (
	"encoding/json"
	"net/http"

	"github.com/coparent/rota/core/model"
	"github.com/coparent/rota/core/rebalance"
	"github.com/coparent/rota/core/storage"
)

type calendarPayload struct {
	Calendar model.Calendar `json:"calendar"`
}

// NewCalendarHandler serves the committed calendar: GET returns it, PUT
// validates and replaces it. The committed calendar is the source of truth a
// staged rebalancing eventually lands on.
func NewCalendarHandler(store storage.Store, cfg rebalance.Config) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			cal, err := store.LoadCalendar()
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			if cal == nil {
				cal = model.Calendar{}
			}
			w.Header().Set("Content-Type", "application/json")
			if err := json.NewEncoder(w).Encode(calendarPayload{Calendar: cal}); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
		case http.MethodPut, http.MethodPost:
			var req calendarPayload
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if err := req.Calendar.Validate(cfg.GuardianA, cfg.GuardianB); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if err := store.SaveCalendar(req.Calendar); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
}
