package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"marketplace-engine/internal/apperr"
	"marketplace-engine/internal/bulk"
	"marketplace-engine/internal/cache"
	"marketplace-engine/internal/config"
	"marketplace-engine/internal/lifecycle"
	"marketplace-engine/internal/models"
	"marketplace-engine/internal/store"
	"marketplace-engine/internal/telemetry"
)

// JobStore is the job repository surface the handlers consume.
type JobStore interface {
	CreateJob(ctx context.Context, posterID string, spec models.JobSpec) (models.Job, error)
	GetJob(ctx context.Context, id string) (models.Job, error)
	UpdateJob(ctx context.Context, id string, upd models.JobUpdate) (models.Job, error)
	SearchJobs(ctx context.Context, f store.SearchFilter) (store.SearchResult, error)
}

// Lifecycle is the state machine surface the handlers consume.
type Lifecycle interface {
	Apply(ctx context.Context, p lifecycle.ApplyParams) (models.Application, error)
	Accept(ctx context.Context, posterID, applicationID string) (jobID string, err error)
	Reject(ctx context.Context, posterID, applicationID string) error
	Withdraw(ctx context.Context, workerID, applicationID string) error
	Start(ctx context.Context, actorID, jobID string) error
	Complete(ctx context.Context, actorID, jobID string, notes *string) error
	Cancel(ctx context.Context, posterID, jobID string) error
	Dispute(ctx context.Context, actorID, jobID string) error
	Review(ctx context.Context, actorID, jobID string, rating int, review string) error
	Delete(ctx context.Context, posterID, jobID string) error
	ListJobApplications(ctx context.Context, posterID, jobID string) ([]models.Application, error)
	ListWorkerApplications(ctx context.Context, workerID string) ([]models.Application, error)
}

// BulkService is the batch orchestrator surface the handlers consume.
type BulkService interface {
	SubmitCreate(ctx context.Context, enterpriseID string, specs []models.JobSpec) (bulk.Result, error)
	SubmitCancel(ctx context.Context, enterpriseID string, jobIDs []string) (models.BulkJobOperation, error)
	Get(ctx context.Context, id string) (models.BulkJobOperation, error)
}

// Server wires HTTP handlers for the marketplace API. Authentication lives
// upstream: the identity provider injects the verified user id in the
// X-User-ID header and the handlers trust it.
type Server struct {
	cfg       config.Config
	jobs      JobStore
	lifecycle Lifecycle
	bulk      BulkService
	cache     *cache.Cache
	log       *logrus.Logger
}

// New constructs the API server. cache may be nil.
func New(cfg config.Config, jobs JobStore, lc Lifecycle, bs BulkService, c *cache.Cache, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{cfg: cfg, jobs: jobs, lifecycle: lc, bulk: bs, cache: c, log: log}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Mount("/metrics", telemetry.Handler())

	r.Get("/jobs", s.handleSearchJobs)
	r.Post("/jobs", s.handleCreateJob)
	r.Get("/jobs/{id}", s.handleGetJob)
	r.Patch("/jobs/{id}", s.handleUpdateJob)
	r.Delete("/jobs/{id}", s.handleDeleteJob)

	r.Post("/jobs/{id}/applications", s.handleApply)
	r.Get("/jobs/{id}/applications", s.handleListJobApplications)
	r.Get("/applications", s.handleMyApplications)
	r.Post("/applications/{id}/accept", s.handleAccept)
	r.Post("/applications/{id}/reject", s.handleReject)
	r.Post("/applications/{id}/withdraw", s.handleWithdraw)

	r.Post("/jobs/{id}/start", s.handleStart)
	r.Post("/jobs/{id}/complete", s.handleComplete)
	r.Post("/jobs/{id}/cancel", s.handleCancel)
	r.Post("/jobs/{id}/dispute", s.handleDispute)
	r.Post("/jobs/{id}/review", s.handleReview)
	r.Get("/jobs/{id}/settlement", s.handleJobSettlement)
	r.Get("/settlement/quote", s.handleSettlementQuote)

	r.Post("/bulk/jobs", s.handleBulkSubmit)
	r.Get("/bulk/operations/{id}", s.handleGetBulkOperation)

	return r
}

// userFromRequest extracts the verified actor id injected by the identity
// layer. Empty means the request never passed authentication.
func userFromRequest(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	user := userFromRequest(r)
	if user == "" {
		http.Error(w, "missing X-User-ID", http.StatusUnauthorized)
		return "", false
	}
	return user, true
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps the typed error taxonomy onto HTTP statuses. InvalidState
// and Conflict are expected outcomes under concurrent use, not server
// errors.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := apperr.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case apperr.CodeValidation:
		status = http.StatusBadRequest
	case apperr.CodeNotFound:
		status = http.StatusNotFound
	case apperr.CodeForbidden:
		status = http.StatusForbidden
	case apperr.CodeConflict, apperr.CodeInvalidState:
		status = http.StatusConflict
		telemetry.GuardRejections.Inc()
	}
	if status == http.StatusInternalServerError {
		s.log.WithError(err).Error("request failed")
		writeJSON(w, status, map[string]string{"code": "internal_error", "message": "internal error"})
		return
	}
	writeJSON(w, status, map[string]string{"code": string(code), "message": err.Error()})
}

func (s *Server) invalidateJob(ctx context.Context, jobID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, cache.JobKey(jobID)); err != nil {
		s.log.WithError(err).WithField("job_id", jobID).Warn("cache invalidation failed")
	}
}
