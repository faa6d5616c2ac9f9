package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"marketplace-engine/internal/apperr"
	"marketplace-engine/internal/cache"
	"marketplace-engine/internal/models"
	"marketplace-engine/internal/settlement"
	"marketplace-engine/internal/store"
	"marketplace-engine/internal/telemetry"
)

func (s *Server) handleSearchJobs(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r, s.cfg.SearchDefaultLimit, s.cfg.SearchMaxLimit, s.cfg.GeoCandidateLimit)
	if err != nil {
		s.writeError(w, err)
		return
	}

	result, err := s.jobs.SearchJobs(r.Context(), f)
	if err != nil {
		s.writeError(w, err)
		return
	}
	telemetry.JobsSearched.Inc()
	writeJSON(w, http.StatusOK, result)
}

func filterFromQuery(r *http.Request, defaultLimit, maxLimit, geoCandidates int) (store.SearchFilter, error) {
	q := r.URL.Query()
	f := store.SearchFilter{
		Category:          q.Get("category"),
		Query:             q.Get("q"),
		SortBy:            q.Get("sort"),
		Page:              1,
		Limit:             defaultLimit,
		GeoCandidateLimit: geoCandidates,
	}
	switch strings.ToLower(q.Get("order")) {
	case "asc":
		f.SortDesc = false
	case "desc":
		f.SortDesc = true
	default:
		// Distance reads nearest-first unless the caller says otherwise.
		f.SortDesc = f.SortBy != store.SortDistance
	}

	if v := q.Get("status"); v != "" {
		status := models.JobStatus(v)
		if !status.Valid() {
			return store.SearchFilter{}, apperr.Newf(apperr.CodeValidation, "unknown status %q", v)
		}
		f.Status = status
	}
	if v := q.Get("skills"); v != "" {
		for _, skill := range strings.Split(v, ",") {
			if trimmed := strings.TrimSpace(skill); trimmed != "" {
				f.Skills = append(f.Skills, trimmed)
			}
		}
	}

	var err error
	if f.MinPrice, err = optFloat(q.Get("min_price"), "min_price"); err != nil {
		return store.SearchFilter{}, err
	}
	if f.MaxPrice, err = optFloat(q.Get("max_price"), "max_price"); err != nil {
		return store.SearchFilter{}, err
	}
	if f.Lat, err = optFloat(q.Get("lat"), "lat"); err != nil {
		return store.SearchFilter{}, err
	}
	if f.Lng, err = optFloat(q.Get("lng"), "lng"); err != nil {
		return store.SearchFilter{}, err
	}
	if v := q.Get("radius_km"); v != "" {
		radius, err := strconv.ParseFloat(v, 64)
		if err != nil || radius <= 0 {
			return store.SearchFilter{}, apperr.Validation("radius_km must be a positive number")
		}
		f.RadiusKm = radius
	}
	if f.Lat != nil && (*f.Lat < -90 || *f.Lat > 90) {
		return store.SearchFilter{}, apperr.Validation("lat must be within [-90, 90]")
	}
	if f.Lng != nil && (*f.Lng < -180 || *f.Lng > 180) {
		return store.SearchFilter{}, apperr.Validation("lng must be within [-180, 180]")
	}
	if (f.Lat == nil) != (f.Lng == nil) {
		return store.SearchFilter{}, apperr.Validation("lat and lng must be supplied together")
	}

	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return store.SearchFilter{}, apperr.Validation("page must be a positive integer")
		}
		f.Page = page
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return store.SearchFilter{}, apperr.Validation("limit must be a positive integer")
		}
		// Oversized limits are clamped, not rejected.
		if limit > maxLimit {
			limit = maxLimit
		}
		f.Limit = limit
	}
	return f, nil
}

func optFloat(v, name string) (*float64, error) {
	if v == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, apperr.Newf(apperr.CodeValidation, "%s must be a number", name)
	}
	return &parsed, nil
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var spec models.JobSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		s.writeError(w, apperr.Validation("invalid json"))
		return
	}
	if err := spec.Validate(); err != nil {
		s.writeError(w, err)
		return
	}

	job, err := s.jobs.CreateJob(r.Context(), user, spec)
	if err != nil {
		s.writeError(w, err)
		return
	}
	telemetry.JobsCreated.Inc()
	writeJSON(w, http.StatusCreated, job)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	if s.cache != nil {
		var cached models.Job
		if found, err := s.cache.Get(ctx, cache.JobKey(id), &cached); err == nil && found {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	job, err := s.jobs.GetJob(ctx, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cache.JobKey(id), job); err != nil {
			s.log.WithError(err).Warn("cache write failed")
		}
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleUpdateJob(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	var upd models.JobUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		s.writeError(w, apperr.Validation("invalid json"))
		return
	}
	if err := upd.Validate(); err != nil {
		s.writeError(w, err)
		return
	}

	job, err := s.jobs.GetJob(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if job.PosterID != user {
		s.writeError(w, apperr.Forbidden("only the job poster can edit a job"))
		return
	}

	updated, err := s.jobs.UpdateJob(r.Context(), id, upd)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.invalidateJob(r.Context(), id)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.lifecycle.Delete(r.Context(), user, id); err != nil {
		s.writeError(w, err)
		return
	}
	s.invalidateJob(r.Context(), id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.jobTransition(w, r, s.lifecycle.Start, "started")
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.jobTransition(w, r, s.lifecycle.Cancel, "cancelled")
}

func (s *Server) handleDispute(w http.ResponseWriter, r *http.Request) {
	s.jobTransition(w, r, s.lifecycle.Dispute, "disputed")
}

func (s *Server) jobTransition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, actorID, jobID string) error, status string) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := op(r.Context(), user, id); err != nil {
		s.writeError(w, err)
		return
	}
	s.invalidateJob(r.Context(), id)
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

type completeRequest struct {
	CompletionNotes *string `json:"completion_notes"`
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	var req completeRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, apperr.Validation("invalid json"))
			return
		}
	}

	if err := s.lifecycle.Complete(r.Context(), user, id, req.CompletionNotes); err != nil {
		s.writeError(w, err)
		return
	}
	s.invalidateJob(r.Context(), id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "completed"})
}

type reviewRequest struct {
	Rating int    `json:"rating"`
	Review string `json:"review"`
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperr.Validation("invalid json"))
		return
	}
	if err := s.lifecycle.Review(r.Context(), user, id, req.Rating, req.Review); err != nil {
		s.writeError(w, err)
		return
	}
	s.invalidateJob(r.Context(), id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "reviewed"})
}

// handleJobSettlement quotes the fee split for a completed job's price. The
// split is handed to the external payment gateway; nothing is recorded here.
func (s *Server) handleJobSettlement(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := s.jobs.GetJob(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if job.Status != models.JobCompleted {
		s.writeError(w, apperr.InvalidState("job must be completed to settle"))
		return
	}
	split, err := settlement.Compute(job.Price, s.cfg.PlatformFeeRate)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, split)
}

func (s *Server) handleSettlementQuote(w http.ResponseWriter, r *http.Request) {
	amount, err := strconv.ParseFloat(r.URL.Query().Get("amount"), 64)
	if err != nil {
		s.writeError(w, apperr.Validation("amount must be a number"))
		return
	}
	split, err := settlement.Compute(amount, s.cfg.PlatformFeeRate)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, split)
}
