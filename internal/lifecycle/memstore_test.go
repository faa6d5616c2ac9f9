package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"marketplace-engine/internal/apperr"
	"marketplace-engine/internal/models"
	"marketplace-engine/internal/store"
)

// memStore is an in-memory Store with the same guard semantics as the
// Postgres implementation: every write re-checks the status precondition
// under a single lock, so concurrent transitions serialize.
type memStore struct {
	mu     sync.Mutex
	nextID int
	jobs   map[string]models.Job
	apps   map[string]models.Application
}

func newMemStore() *memStore {
	return &memStore{
		jobs: make(map[string]models.Job),
		apps: make(map[string]models.Application),
	}
}

func (m *memStore) id(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", prefix, m.nextID)
}

func (m *memStore) addJob(posterID string, status models.JobStatus, workerID *string) models.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	job := models.Job{
		ID:        m.id("job"),
		PosterID:  posterID,
		WorkerID:  workerID,
		Title:     "test job",
		Status:    status,
		Price:     100,
		PriceType: models.PriceFixed,
		Urgency:   models.UrgencyNormal,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.jobs[job.ID] = job
	return job
}

func (m *memStore) addApplication(jobID, workerID string, status models.ApplicationStatus) models.Application {
	m.mu.Lock()
	defer m.mu.Unlock()
	app := models.Application{
		ID:        m.id("app"),
		JobID:     jobID,
		WorkerID:  workerID,
		Status:    status,
		AppliedAt: time.Now().UTC(),
	}
	m.apps[app.ID] = app
	return app
}

func (m *memStore) GetJob(_ context.Context, id string) (models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return models.Job{}, apperr.NotFound("job", id)
	}
	return job, nil
}

func (m *memStore) GetApplication(_ context.Context, id string) (models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[id]
	if !ok {
		return models.Application{}, apperr.NotFound("application", id)
	}
	return app, nil
}

func (m *memStore) CreateApplication(_ context.Context, p store.CreateApplicationParams) (models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[p.JobID]; !ok {
		return models.Application{}, apperr.NotFound("job", p.JobID)
	}
	for _, a := range m.apps {
		if a.JobID == p.JobID && a.WorkerID == p.WorkerID {
			return models.Application{}, apperr.Conflict("worker has already applied to this job")
		}
	}
	app := models.Application{
		ID:             m.id("app"),
		JobID:          p.JobID,
		WorkerID:       p.WorkerID,
		Message:        p.Message,
		ProposedPrice:  p.ProposedPrice,
		EstimatedHours: p.EstimatedHours,
		Status:         models.ApplicationPending,
		AppliedAt:      time.Now().UTC(),
	}
	m.apps[app.ID] = app
	return app, nil
}

func (m *memStore) ListApplicationsByJob(_ context.Context, jobID string) ([]models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Application
	for _, a := range m.apps {
		if a.JobID == jobID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) ListApplicationsByWorker(_ context.Context, workerID string) ([]models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Application
	for _, a := range m.apps {
		if a.WorkerID == workerID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) AcceptApplication(_ context.Context, jobID, applicationID, workerID string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Job guard first, matching the SQL transaction: a loser backs off on
	// the job row without touching any application.
	job, ok := m.jobs[jobID]
	if !ok || job.Status != models.JobOpen {
		return apperr.InvalidState("job is no longer open")
	}
	app, ok := m.apps[applicationID]
	if !ok || app.Status != models.ApplicationPending {
		return apperr.InvalidState("application is no longer pending")
	}

	job.Status = models.JobAssigned
	job.WorkerID = &workerID
	job.UpdatedAt = now
	m.jobs[jobID] = job

	app.Status = models.ApplicationAccepted
	app.RespondedAt = &now
	m.apps[applicationID] = app

	for id, sibling := range m.apps {
		if id == applicationID || sibling.JobID != jobID || sibling.Status != models.ApplicationPending {
			continue
		}
		sibling.Status = models.ApplicationRejected
		sibling.RespondedAt = &now
		m.apps[id] = sibling
	}
	return nil
}

func (m *memStore) TransitionApplication(_ context.Context, id string, to models.ApplicationStatus, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[id]
	if !ok || app.Status != models.ApplicationPending {
		return apperr.InvalidState("application is no longer pending")
	}
	app.Status = to
	app.RespondedAt = &now
	m.apps[id] = app
	return nil
}

func (m *memStore) transitionJob(id string, from []models.JobStatus, to models.JobStatus, now time.Time, mutate func(*models.Job)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return apperr.InvalidState("job missing")
	}
	legal := false
	for _, s := range from {
		if job.Status == s {
			legal = true
		}
	}
	if !legal {
		return apperr.InvalidState("job is not in a legal state for this transition")
	}
	job.Status = to
	job.UpdatedAt = now
	if mutate != nil {
		mutate(&job)
	}
	m.jobs[id] = job
	return nil
}

func (m *memStore) StartJob(_ context.Context, id string, now time.Time) error {
	return m.transitionJob(id, []models.JobStatus{models.JobAssigned}, models.JobInProgress, now, func(j *models.Job) {
		j.ActualStart = &now
	})
}

func (m *memStore) CompleteJob(_ context.Context, id string, notes *string, now time.Time) error {
	return m.transitionJob(id, []models.JobStatus{models.JobInProgress}, models.JobCompleted, now, func(j *models.Job) {
		j.ActualEnd = &now
		if notes != nil {
			j.CompletionNotes = notes
		}
	})
}

func (m *memStore) CancelJob(_ context.Context, id string, now time.Time) error {
	return m.transitionJob(id, []models.JobStatus{models.JobOpen}, models.JobCancelled, now, nil)
}

func (m *memStore) DisputeJob(_ context.Context, id string, now time.Time) error {
	return m.transitionJob(id, []models.JobStatus{models.JobAssigned, models.JobInProgress}, models.JobDisputed, now, nil)
}

func (m *memStore) SetPosterReview(_ context.Context, id string, rating int, review string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok || job.Status != models.JobCompleted {
		return apperr.InvalidState("job must be completed to review")
	}
	job.PosterRating = &rating
	job.PosterReview = &review
	job.UpdatedAt = now
	m.jobs[id] = job
	return nil
}

func (m *memStore) SetWorkerReview(_ context.Context, id string, rating int, review string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok || job.Status != models.JobCompleted {
		return apperr.InvalidState("job must be completed to review")
	}
	job.WorkerRating = &rating
	job.WorkerReview = &review
	job.UpdatedAt = now
	m.jobs[id] = job
	return nil
}

func (m *memStore) DeleteOpenJob(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return apperr.NotFound("job", id)
	}
	if job.Status != models.JobOpen {
		return apperr.InvalidState("job can only be deleted while open")
	}
	delete(m.jobs, id)
	return nil
}
