package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"marketplace-engine/internal/apperr"
	"marketplace-engine/internal/models"
)

const applicationColumns = `id, job_id, worker_id, message, proposed_price,
	estimated_completion_hours, status, applied_at, responded_at`

// CreateApplicationParams collects inputs for a worker's application.
type CreateApplicationParams struct {
	JobID          string
	WorkerID       string
	Message        string
	ProposedPrice  *float64
	EstimatedHours *float64
}

// CreateApplication inserts a pending application. The (job, worker) unique
// constraint surfaces a duplicate attempt as a Conflict.
func (s *Store) CreateApplication(ctx context.Context, p CreateApplicationParams) (models.Application, error) {
	app := models.Application{
		ID:             uuid.New().String(),
		JobID:          p.JobID,
		WorkerID:       p.WorkerID,
		Message:        p.Message,
		ProposedPrice:  p.ProposedPrice,
		EstimatedHours: p.EstimatedHours,
		Status:         models.ApplicationPending,
		AppliedAt:      time.Now().UTC(),
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO applications (id, job_id, worker_id, message, proposed_price, estimated_completion_hours, status, applied_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, app.ID, app.JobID, app.WorkerID, app.Message, app.ProposedPrice, app.EstimatedHours, string(app.Status), app.AppliedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return models.Application{}, apperr.Conflict("worker has already applied to this job")
			case "23503":
				return models.Application{}, apperr.NotFound("job", p.JobID)
			}
		}
		return models.Application{}, fmt.Errorf("insert application: %w", err)
	}
	return app, nil
}

// GetApplication fetches an application by id.
func (s *Store) GetApplication(ctx context.Context, id string) (models.Application, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id)
	app, err := scanApplication(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Application{}, apperr.NotFound("application", id)
	}
	if err != nil {
		return models.Application{}, fmt.Errorf("get application: %w", err)
	}
	return app, nil
}

// ListApplicationsByJob returns all applications for a job, newest first.
func (s *Store) ListApplicationsByJob(ctx context.Context, jobID string) ([]models.Application, error) {
	return s.listApplications(ctx, `job_id = $1`, jobID)
}

// ListApplicationsByWorker returns all of a worker's applications, newest first.
func (s *Store) ListApplicationsByWorker(ctx context.Context, workerID string) ([]models.Application, error) {
	return s.listApplications(ctx, `worker_id = $1`, workerID)
}

func (s *Store) listApplications(ctx context.Context, cond string, arg any) ([]models.Application, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE `+cond+` ORDER BY applied_at DESC`, arg)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	apps := make([]models.Application, 0)
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applications: %w", err)
	}
	return apps, nil
}

func scanApplication(row rowScanner) (models.Application, error) {
	var app models.Application
	var status string
	err := row.Scan(&app.ID, &app.JobID, &app.WorkerID, &app.Message, &app.ProposedPrice,
		&app.EstimatedHours, &status, &app.AppliedAt, &app.RespondedAt)
	if err != nil {
		return models.Application{}, err
	}
	app.Status = models.ApplicationStatus(status)
	return app, nil
}
