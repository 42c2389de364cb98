package schedule

import (
	"encoding/json"
	"net/http"

	"github.com/coparent/rota/core/storage"
)

// NewSettingsHandler serves the durable shared settings: GET returns them
// (404 before first save), PUT validates and stores them.
func NewSettingsHandler(store storage.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			s, err := store.LoadSettings()
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			if s == nil {
				http.Error(w, "settings not configured", http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			if err := json.NewEncoder(w).Encode(s); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
		case http.MethodPut, http.MethodPost:
			var s storage.Settings
			if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if s.GuardianA == "" || s.GuardianB == "" || s.GuardianA == s.GuardianB {
				http.Error(w, "two distinct guardians are required", http.StatusBadRequest)
				return
			}
			if err := store.SaveSettings(s); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
}
