package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"marketplace-engine/internal/apperr"
	"marketplace-engine/internal/models"
)

const jobColumns = `id, poster_id, worker_id, title, description, category, required_skills,
	address, latitude, longitude, city, state, zip,
	price, price_type, urgency, estimated_duration_hours, scheduled_start, actual_start, actual_end,
	status, completion_notes, poster_rating, worker_rating, poster_review, worker_review,
	created_at, updated_at`

// CreateJob inserts a new open job owned by posterID. The spec must already
// be validated.
func (s *Store) CreateJob(ctx context.Context, posterID string, spec models.JobSpec) (models.Job, error) {
	spec.Normalize()
	now := time.Now().UTC()
	job := models.Job{
		ID:             uuid.New().String(),
		PosterID:       posterID,
		Title:          spec.Title,
		Description:    spec.Description,
		Category:       spec.Category,
		RequiredSkills: spec.RequiredSkills,
		Address:        spec.Address,
		Latitude:       *spec.Latitude,
		Longitude:      *spec.Longitude,
		City:           spec.City,
		State:          spec.State,
		Zip:            spec.Zip,
		Price:          *spec.Price,
		PriceType:      spec.PriceType,
		Urgency:        spec.Urgency,
		EstimatedHours: spec.EstimatedHours,
		ScheduledStart: spec.ScheduledStart,
		Status:         models.JobOpen,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO jobs (id, poster_id, title, description, category, required_skills,
			address, latitude, longitude, city, state, zip,
			price, price_type, urgency, estimated_duration_hours, scheduled_start,
			status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $19)
	`, job.ID, job.PosterID, job.Title, job.Description, job.Category, job.RequiredSkills,
		job.Address, job.Latitude, job.Longitude, job.City, job.State, job.Zip,
		job.Price, string(job.PriceType), string(job.Urgency), job.EstimatedHours, job.ScheduledStart,
		string(job.Status), now)
	if err != nil {
		return models.Job{}, fmt.Errorf("insert job: %w", err)
	}
	return job, nil
}

// GetJob fetches a job by id.
func (s *Store) GetJob(ctx context.Context, id string) (models.Job, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Job{}, apperr.NotFound("job", id)
	}
	if err != nil {
		return models.Job{}, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// UpdateJob applies poster edits to a job that is still open. Zero rows
// affected means the job left open concurrently.
func (s *Store) UpdateJob(ctx context.Context, id string, upd models.JobUpdate) (models.Job, error) {
	sets := []string{}
	args := []any{id}
	add := func(col string, val any) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if upd.Title != nil {
		add("title", *upd.Title)
	}
	if upd.Description != nil {
		add("description", *upd.Description)
	}
	if upd.Category != nil {
		add("category", *upd.Category)
	}
	if upd.RequiredSkills != nil {
		add("required_skills", upd.RequiredSkills)
	}
	if upd.Price != nil {
		add("price", *upd.Price)
	}
	if upd.Urgency != nil {
		add("urgency", string(*upd.Urgency))
	}
	if upd.ScheduledStart != nil {
		add("scheduled_start", *upd.ScheduledStart)
	}
	if len(sets) == 0 {
		return s.GetJob(ctx, id)
	}
	add("updated_at", time.Now().UTC())

	tag, err := s.pool.Exec(ctx, fmt.Sprintf(
		`UPDATE jobs SET %s WHERE id = $1 AND status = 'open'`, strings.Join(sets, ", ")), args...)
	if err != nil {
		return models.Job{}, fmt.Errorf("update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetJob(ctx, id); err != nil {
			return models.Job{}, err
		}
		return models.Job{}, apperr.InvalidState("job can only be edited while open")
	}
	return s.GetJob(ctx, id)
}

// DeleteOpenJob hard-deletes a job, permitted only while it is still open.
func (s *Store) DeleteOpenJob(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1 AND status = 'open'`, id)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetJob(ctx, id); err != nil {
			return err
		}
		return apperr.InvalidState("job can only be deleted while open")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (models.Job, error) {
	var job models.Job
	var priceType, urgency, status string
	err := row.Scan(
		&job.ID, &job.PosterID, &job.WorkerID, &job.Title, &job.Description, &job.Category, &job.RequiredSkills,
		&job.Address, &job.Latitude, &job.Longitude, &job.City, &job.State, &job.Zip,
		&job.Price, &priceType, &urgency, &job.EstimatedHours, &job.ScheduledStart, &job.ActualStart, &job.ActualEnd,
		&status, &job.CompletionNotes, &job.PosterRating, &job.WorkerRating, &job.PosterReview, &job.WorkerReview,
		&job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return models.Job{}, err
	}
	job.PriceType = models.PriceType(priceType)
	job.Urgency = models.Urgency(urgency)
	job.Status = models.JobStatus(status)
	return job, nil
}
