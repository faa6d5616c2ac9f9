package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"marketplace-engine/internal/apperr"
	"marketplace-engine/internal/lifecycle"
	"marketplace-engine/internal/telemetry"
)

type applyRequest struct {
	Message        string   `json:"message"`
	ProposedPrice  *float64 `json:"proposed_price"`
	EstimatedHours *float64 `json:"estimated_completion_hours"`
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	jobID := chi.URLParam(r, "id")

	var req applyRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, apperr.Validation("invalid json"))
			return
		}
	}

	app, err := s.lifecycle.Apply(r.Context(), lifecycle.ApplyParams{
		WorkerID:       user,
		JobID:          jobID,
		Message:        req.Message,
		ProposedPrice:  req.ProposedPrice,
		EstimatedHours: req.EstimatedHours,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	telemetry.Applications.Inc()
	writeJSON(w, http.StatusCreated, app)
}

func (s *Server) handleListJobApplications(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	jobID := chi.URLParam(r, "id")

	apps, err := s.lifecycle.ListJobApplications(r.Context(), user, jobID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"applications": apps})
}

func (s *Server) handleMyApplications(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	apps, err := s.lifecycle.ListWorkerApplications(r.Context(), user)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"applications": apps})
}

func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	jobID, err := s.lifecycle.Accept(r.Context(), user, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	telemetry.Accepts.Inc()
	s.invalidateJob(r.Context(), jobID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.lifecycle.Reject(r.Context(), user, id); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.lifecycle.Withdraw(r.Context(), user, id); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "withdrawn"})
}
