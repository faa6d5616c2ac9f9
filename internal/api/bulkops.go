package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"marketplace-engine/internal/apperr"
	"marketplace-engine/internal/cache"
	"marketplace-engine/internal/models"
)

type bulkSubmitRequest struct {
	OperationType models.BulkOperationType `json:"operation_type"`
	Jobs          []models.JobSpec         `json:"jobs"`
	JobIDs        []string                 `json:"job_ids"`
}

// handleBulkSubmit starts a batch create or cancel. There is no idempotency
// key: resubmitting the same payload starts a new operation and, for
// creates, new jobs.
func (s *Server) handleBulkSubmit(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req bulkSubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperr.Validation("invalid json"))
		return
	}
	if req.OperationType == "" {
		req.OperationType = models.BulkCreate
	}

	switch req.OperationType {
	case models.BulkCreate:
		result, err := s.bulk.SubmitCreate(r.Context(), user, req.Jobs)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, result)
	case models.BulkCancel:
		op, err := s.bulk.SubmitCancel(r.Context(), user, req.JobIDs)
		if err != nil {
			s.writeError(w, err)
			return
		}
		for _, id := range req.JobIDs {
			s.invalidateJob(r.Context(), id)
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"operation": op})
	case models.BulkUpdate:
		s.writeError(w, apperr.Validation("bulk update is not supported"))
	default:
		s.writeError(w, apperr.Newf(apperr.CodeValidation, "unknown operation type %q", req.OperationType))
	}
}

func (s *Server) handleGetBulkOperation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	if s.cache != nil {
		var cached models.BulkJobOperation
		if found, err := s.cache.Get(ctx, cache.BulkOpKey(id), &cached); err == nil && found {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	op, err := s.bulk.Get(ctx, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	// Only terminal records are cached; in-flight counts keep moving.
	if s.cache != nil && op.CompletedAt != nil {
		if err := s.cache.Set(ctx, cache.BulkOpKey(id), op); err != nil {
			s.log.WithError(err).Warn("cache write failed")
		}
	}
	writeJSON(w, http.StatusOK, op)
}
