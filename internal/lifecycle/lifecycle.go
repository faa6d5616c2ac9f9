// Package lifecycle is the authoritative state machine for jobs and
// applications. Every mutation of a job or application row goes through one
// of its guarded operations; nothing else bypasses the status preconditions.
package lifecycle

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"marketplace-engine/internal/apperr"
	"marketplace-engine/internal/models"
	"marketplace-engine/internal/store"
)

// Store is the persistence contract the state machine drives. The write
// methods re-check the status guard inside the database so concurrent
// transitions on the same row race safely: the loser observes InvalidState.
type Store interface {
	GetJob(ctx context.Context, id string) (models.Job, error)
	GetApplication(ctx context.Context, id string) (models.Application, error)
	CreateApplication(ctx context.Context, p store.CreateApplicationParams) (models.Application, error)
	ListApplicationsByJob(ctx context.Context, jobID string) ([]models.Application, error)
	ListApplicationsByWorker(ctx context.Context, workerID string) ([]models.Application, error)
	AcceptApplication(ctx context.Context, jobID, applicationID, workerID string, now time.Time) error
	TransitionApplication(ctx context.Context, id string, to models.ApplicationStatus, now time.Time) error
	StartJob(ctx context.Context, id string, now time.Time) error
	CompleteJob(ctx context.Context, id string, notes *string, now time.Time) error
	CancelJob(ctx context.Context, id string, now time.Time) error
	DisputeJob(ctx context.Context, id string, now time.Time) error
	SetPosterReview(ctx context.Context, id string, rating int, review string, now time.Time) error
	SetWorkerReview(ctx context.Context, id string, rating int, review string, now time.Time) error
	DeleteOpenJob(ctx context.Context, id string) error
}

// Service applies actor and state guards before delegating row mutation to
// the store.
type Service struct {
	store Store
	log   *logrus.Logger
}

// NewService constructs the state machine over a store.
func NewService(st Store, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{store: st, log: log}
}

// ApplyParams carries a worker's bid for a job.
type ApplyParams struct {
	WorkerID       string
	JobID          string
	Message        string
	ProposedPrice  *float64
	EstimatedHours *float64
}

// Apply creates a pending application against an open job. A worker gets at
// most one application per job; a duplicate surfaces as Conflict.
func (s *Service) Apply(ctx context.Context, p ApplyParams) (models.Application, error) {
	if p.ProposedPrice != nil && *p.ProposedPrice < 0 {
		return models.Application{}, apperr.Validation("proposed price must be >= 0")
	}
	job, err := s.store.GetJob(ctx, p.JobID)
	if err != nil {
		return models.Application{}, err
	}
	if job.PosterID == p.WorkerID {
		return models.Application{}, apperr.Forbidden("posters cannot apply to their own jobs")
	}
	if job.Status != models.JobOpen {
		return models.Application{}, apperr.InvalidState("job is not open for applications")
	}

	app, err := s.store.CreateApplication(ctx, store.CreateApplicationParams{
		JobID:          p.JobID,
		WorkerID:       p.WorkerID,
		Message:        p.Message,
		ProposedPrice:  p.ProposedPrice,
		EstimatedHours: p.EstimatedHours,
	})
	if err != nil {
		return models.Application{}, err
	}
	s.log.WithFields(logrus.Fields{"job_id": p.JobID, "worker_id": p.WorkerID}).Info("application submitted")
	return app, nil
}

// Accept atomically accepts one application, rejects its pending siblings,
// and assigns the job to the applicant. Only the job's poster may accept,
// and only while the application is pending and the job is open. Of two
// concurrent accepts on the same job exactly one succeeds; the other sees
// InvalidState. The assigned job's id is returned so callers can drop any
// cached copy of it.
func (s *Service) Accept(ctx context.Context, posterID, applicationID string) (string, error) {
	app, err := s.store.GetApplication(ctx, applicationID)
	if err != nil {
		return "", err
	}
	job, err := s.store.GetJob(ctx, app.JobID)
	if err != nil {
		return "", err
	}
	if job.PosterID != posterID {
		return "", apperr.Forbidden("only the job poster can accept applications")
	}
	if app.Status != models.ApplicationPending {
		return "", apperr.InvalidState("application is no longer pending")
	}
	if job.Status != models.JobOpen {
		return "", apperr.InvalidState("job is no longer open")
	}

	if err := s.store.AcceptApplication(ctx, job.ID, app.ID, app.WorkerID, time.Now().UTC()); err != nil {
		return "", err
	}
	s.log.WithFields(logrus.Fields{
		"job_id":         job.ID,
		"application_id": app.ID,
		"worker_id":      app.WorkerID,
	}).Info("application accepted, job assigned")
	return job.ID, nil
}

// Reject moves a pending application to rejected. Poster-only.
func (s *Service) Reject(ctx context.Context, posterID, applicationID string) error {
	app, err := s.store.GetApplication(ctx, applicationID)
	if err != nil {
		return err
	}
	job, err := s.store.GetJob(ctx, app.JobID)
	if err != nil {
		return err
	}
	if job.PosterID != posterID {
		return apperr.Forbidden("only the job poster can reject applications")
	}
	if !app.Status.CanTransition(models.ApplicationRejected) {
		return apperr.InvalidState("application is no longer pending")
	}
	return s.store.TransitionApplication(ctx, applicationID, models.ApplicationRejected, time.Now().UTC())
}

// Withdraw moves a pending application to withdrawn. Applicant-only.
func (s *Service) Withdraw(ctx context.Context, workerID, applicationID string) error {
	app, err := s.store.GetApplication(ctx, applicationID)
	if err != nil {
		return err
	}
	if app.WorkerID != workerID {
		return apperr.Forbidden("only the applicant can withdraw an application")
	}
	if !app.Status.CanTransition(models.ApplicationWithdrawn) {
		return apperr.InvalidState("application is no longer pending")
	}
	return s.store.TransitionApplication(ctx, applicationID, models.ApplicationWithdrawn, time.Now().UTC())
}

// Start moves an assigned job into progress. Allowed to the assigned worker
// or the poster.
func (s *Service) Start(ctx context.Context, actorID, jobID string) error {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if !isPosterOrWorker(job, actorID) {
		return apperr.Forbidden("only the poster or the assigned worker can start a job")
	}
	if !job.Status.CanTransition(models.JobInProgress) {
		return apperr.InvalidState("job must be assigned to start")
	}
	return s.store.StartJob(ctx, jobID, time.Now().UTC())
}

// Complete moves an in-progress job to completed. Allowed to the assigned
// worker or the poster.
func (s *Service) Complete(ctx context.Context, actorID, jobID string, notes *string) error {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if !isPosterOrWorker(job, actorID) {
		return apperr.Forbidden("only the poster or the assigned worker can complete a job")
	}
	if !job.Status.CanTransition(models.JobCompleted) {
		return apperr.InvalidState("job must be in progress to complete")
	}
	if err := s.store.CompleteJob(ctx, jobID, notes, time.Now().UTC()); err != nil {
		return err
	}
	s.log.WithField("job_id", jobID).Info("job completed")
	return nil
}

// Cancel cancels a job that is still open. Poster-only.
func (s *Service) Cancel(ctx context.Context, posterID, jobID string) error {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.PosterID != posterID {
		return apperr.Forbidden("only the job poster can cancel a job")
	}
	if !job.Status.CanTransition(models.JobCancelled) {
		return apperr.InvalidState("job can only be cancelled while open")
	}
	return s.store.CancelJob(ctx, jobID, time.Now().UTC())
}

// Dispute flags an assigned or in-progress job as disputed. Either party.
func (s *Service) Dispute(ctx context.Context, actorID, jobID string) error {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if !isPosterOrWorker(job, actorID) {
		return apperr.Forbidden("only the poster or the assigned worker can dispute a job")
	}
	if !job.Status.CanTransition(models.JobDisputed) {
		return apperr.InvalidState("job must be assigned or in progress to dispute")
	}
	return s.store.DisputeJob(ctx, jobID, time.Now().UTC())
}

// Review records a rating and review on a completed job. The poster's
// submission lands in the poster fields, the worker's in the worker fields.
// Raw values only; no reputation is derived.
func (s *Service) Review(ctx context.Context, actorID, jobID string, rating int, review string) error {
	if rating < 1 || rating > 5 {
		return apperr.Validation("rating must be between 1 and 5")
	}
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status != models.JobCompleted {
		return apperr.InvalidState("job must be completed to review")
	}
	now := time.Now().UTC()
	switch {
	case job.PosterID == actorID:
		return s.store.SetPosterReview(ctx, jobID, rating, review, now)
	case job.WorkerID != nil && *job.WorkerID == actorID:
		return s.store.SetWorkerReview(ctx, jobID, rating, review, now)
	default:
		return apperr.Forbidden("only the poster or the assigned worker can review a job")
	}
}

// Delete hard-deletes a job, permitted only to the poster and only while the
// job is still open.
func (s *Service) Delete(ctx context.Context, posterID, jobID string) error {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.PosterID != posterID {
		return apperr.Forbidden("only the job poster can delete a job")
	}
	if job.Status != models.JobOpen {
		return apperr.InvalidState("job can only be deleted while open")
	}
	return s.store.DeleteOpenJob(ctx, jobID)
}

// ListJobApplications returns a job's applications. Poster-only.
func (s *Service) ListJobApplications(ctx context.Context, posterID, jobID string) ([]models.Application, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.PosterID != posterID {
		return nil, apperr.Forbidden("only the job poster can list applications")
	}
	return s.store.ListApplicationsByJob(ctx, jobID)
}

// ListWorkerApplications returns the worker's own applications.
func (s *Service) ListWorkerApplications(ctx context.Context, workerID string) ([]models.Application, error) {
	return s.store.ListApplicationsByWorker(ctx, workerID)
}

func isPosterOrWorker(job models.Job, actorID string) bool {
	if job.PosterID == actorID {
		return true
	}
	return job.WorkerID != nil && *job.WorkerID == actorID
}
