// Package proposals exposes the schedule-change review workflow over HTTP.
// Every response carries a {success, error?, proposal?} envelope; workflow
// rule violations map to 4xx statuses instead of 500s.
package proposals

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coparent/rota/core/events"
	"github.com/coparent/rota/core/model"
	"github.com/coparent/rota/core/preview"
	"github.com/coparent/rota/core/proposal"
	"github.com/coparent/rota/core/rebalance"
)

// Handler serves the proposal endpoints.
type Handler struct {
	workflow *proposal.Workflow
	stage    *preview.Stage
	cfg      rebalance.Config
	notify   func(events.ProposalEvent)
}

// NewHandler creates the proposal handler. notify may be nil.
func NewHandler(w *proposal.Workflow, stage *preview.Stage, cfg rebalance.Config, notify func(events.ProposalEvent)) *Handler {
	return &Handler{workflow: w, stage: stage, cfg: cfg, notify: notify}
}

// Register mounts the endpoints on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/proposals", h.create)
	mux.HandleFunc("GET /api/proposals", h.list)
	mux.HandleFunc("GET /api/proposals/{id}", h.get)
	mux.HandleFunc("POST /api/proposals/{id}/accept", h.accept)
	mux.HandleFunc("POST /api/proposals/{id}/reject", h.reject)
	mux.HandleFunc("POST /api/proposals/{id}/withdraw", h.withdraw)
}

type envelope struct {
	Success   bool                `json:"success"`
	Error     string              `json:"error,omitempty"`
	Proposal  *proposal.Proposal  `json:"proposal,omitempty"`
	Proposals []proposal.Proposal `json:"proposals,omitempty"`
}

func writeEnvelope(w http.ResponseWriter, status int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var stateErr *proposal.StateError
	switch {
	case errors.Is(err, proposal.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, proposal.ErrSelfReview), errors.Is(err, proposal.ErrNotCreator):
		status = http.StatusForbidden
	case errors.As(err, &stateErr):
		status = http.StatusConflict
	}
	writeEnvelope(w, status, envelope{Success: false, Error: err.Error()})
}

type createRequest struct {
	CreatedBy   model.GuardianID                   `json:"createdBy"`
	Title       string                             `json:"title"`
	Message     string                             `json:"message"`
	Calendar    model.Calendar                     `json:"calendar"`
	Disruptions map[model.DateKey]model.GuardianID `json:"disruptions"`
	Confidence  float64                            `json:"confidence"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEnvelope(w, http.StatusBadRequest, envelope{Success: false, Error: err.Error()})
		return
	}
	if req.CreatedBy != h.cfg.GuardianA && req.CreatedBy != h.cfg.GuardianB {
		writeEnvelope(w, http.StatusBadRequest, envelope{Success: false, Error: "unknown creator"})
		return
	}
	if err := req.Calendar.Validate(h.cfg.GuardianA, h.cfg.GuardianB); err != nil {
		writeEnvelope(w, http.StatusBadRequest, envelope{Success: false, Error: err.Error()})
		return
	}

	o := preview.New(req.Calendar)
	for date, g := range req.Disruptions {
		o = o.MarkDisrupted(date, g)
	}
	staged, _ := h.stage.RunRebalance(r.Context(), o)

	p, err := h.workflow.Create(proposal.Draft{
		CreatedBy:      req.CreatedBy,
		Title:          req.Title,
		Message:        req.Message,
		DisruptedDates: staged.Disruptions.Dates(),
		Base:           req.Calendar,
		Proposed:       staged.Effective(),
		Confidence:     req.Confidence,
	}, h.cfg)
	if err != nil {
		writeError(w, err)
		return
	}
	h.publish(p, req.CreatedBy)
	writeEnvelope(w, http.StatusCreated, envelope{Success: true, Proposal: &p})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ps, err := h.workflow.List()
	if err != nil {
		writeError(w, err)
		return
	}
	if ps == nil {
		ps = []proposal.Proposal{}
	}
	writeEnvelope(w, http.StatusOK, envelope{Success: true, Proposals: ps})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.workflow.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeEnvelope(w, http.StatusOK, envelope{Success: true, Proposal: &p})
}

type reviewRequest struct {
	Reviewer model.GuardianID `json:"reviewer"`
	Reason   string           `json:"reason"`
}

func (h *Handler) accept(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEnvelope(w, http.StatusBadRequest, envelope{Success: false, Error: err.Error()})
		return
	}
	p, err := h.workflow.Accept(r.PathValue("id"), req.Reviewer)
	if err != nil {
		writeError(w, err)
		return
	}
	h.publish(p, req.Reviewer)
	writeEnvelope(w, http.StatusOK, envelope{Success: true, Proposal: &p})
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEnvelope(w, http.StatusBadRequest, envelope{Success: false, Error: err.Error()})
		return
	}
	p, err := h.workflow.Reject(r.PathValue("id"), req.Reviewer, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	h.publish(p, req.Reviewer)
	writeEnvelope(w, http.StatusOK, envelope{Success: true, Proposal: &p})
}

func (h *Handler) withdraw(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEnvelope(w, http.StatusBadRequest, envelope{Success: false, Error: err.Error()})
		return
	}
	p, err := h.workflow.Withdraw(r.PathValue("id"), req.Reviewer)
	if err != nil {
		writeError(w, err)
		return
	}
	h.publish(p, req.Reviewer)
	writeEnvelope(w, http.StatusOK, envelope{Success: true, Proposal: &p})
}

func (h *Handler) publish(p proposal.Proposal, actor model.GuardianID) {
	if h.notify == nil {
		return
	}
	h.notify(events.ProposalEvent{
		At:         time.Now(),
		ProposalID: p.ID,
		Status:     string(p.Status),
		Actor:      actor,
	})
}
