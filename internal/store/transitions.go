package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"marketplace-engine/internal/apperr"
	"marketplace-engine/internal/models"
)

// AcceptApplication performs the assignment transaction: the job becomes
// assigned to the application's worker, the target application becomes
// accepted, and every sibling pending application becomes rejected. All
// three writes commit together or not at all. The job row is locked first
// so concurrent accepts on the same job serialize on it: the loser observes
// zero affected rows and fails with InvalidState before touching any
// application row. Locking application rows first would let two accepts of
// different applications take their target rows in opposite order and
// deadlock on the sibling reject.
func (s *Store) AcceptApplication(ctx context.Context, jobID, applicationID, workerID string, now time.Time) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // safe no-op on commit

	tag, err := tx.Exec(ctx, `
		UPDATE jobs SET status = 'assigned', worker_id = $2, updated_at = $3
		WHERE id = $1 AND status = 'open'
	`, jobID, workerID, now)
	if err != nil {
		return fmt.Errorf("assign job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.InvalidState("job is no longer open")
	}

	tag, err = tx.Exec(ctx, `
		UPDATE applications SET status = 'accepted', responded_at = $2
		WHERE id = $1 AND status = 'pending'
	`, applicationID, now)
	if err != nil {
		return fmt.Errorf("accept application: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.InvalidState("application is no longer pending")
	}

	_, err = tx.Exec(ctx, `
		UPDATE applications SET status = 'rejected', responded_at = $3
		WHERE job_id = $1 AND id <> $2 AND status = 'pending'
	`, jobID, applicationID, now)
	if err != nil {
		return fmt.Errorf("reject sibling applications: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit accept: %w", err)
	}
	return nil
}

// TransitionApplication moves a pending application to a terminal status,
// stamping responded_at. Zero rows affected means the pending guard failed.
func (s *Store) TransitionApplication(ctx context.Context, id string, to models.ApplicationStatus, now time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE applications SET status = $2, responded_at = $3
		WHERE id = $1 AND status = 'pending'
	`, id, string(to), now)
	if err != nil {
		return fmt.Errorf("transition application: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.InvalidState("application is no longer pending")
	}
	return nil
}

// StartJob moves an assigned job into progress and stamps actual_start.
func (s *Store) StartJob(ctx context.Context, id string, now time.Time) error {
	return s.guardedJobUpdate(ctx, `
		UPDATE jobs SET status = 'in_progress', actual_start = $2, updated_at = $2
		WHERE id = $1 AND status = 'assigned'
	`, "job must be assigned to start", id, now)
}

// CompleteJob moves an in-progress job to completed, stamping actual_end and
// recording any completion notes.
func (s *Store) CompleteJob(ctx context.Context, id string, notes *string, now time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE jobs SET status = 'completed', actual_end = $2, completion_notes = COALESCE($3, completion_notes), updated_at = $2
		WHERE id = $1 AND status = 'in_progress'
	`, id, now, notes)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.InvalidState("job must be in progress to complete")
	}
	return nil
}

// CancelJob cancels a job that is still open.
func (s *Store) CancelJob(ctx context.Context, id string, now time.Time) error {
	return s.guardedJobUpdate(ctx, `
		UPDATE jobs SET status = 'cancelled', updated_at = $2
		WHERE id = $1 AND status = 'open'
	`, "job can only be cancelled while open", id, now)
}

// DisputeJob flags an assigned or in-progress job as disputed.
func (s *Store) DisputeJob(ctx context.Context, id string, now time.Time) error {
	return s.guardedJobUpdate(ctx, `
		UPDATE jobs SET status = 'disputed', updated_at = $2
		WHERE id = $1 AND status IN ('assigned', 'in_progress')
	`, "job must be assigned or in progress to dispute", id, now)
}

// SetPosterReview records the poster's rating and review on a completed job.
func (s *Store) SetPosterReview(ctx context.Context, id string, rating int, review string, now time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE jobs SET poster_rating = $2, poster_review = $3, updated_at = $4
		WHERE id = $1 AND status = 'completed'
	`, id, rating, review, now)
	if err != nil {
		return fmt.Errorf("set poster review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.InvalidState("job must be completed to review")
	}
	return nil
}

// SetWorkerReview records the worker's rating and review on a completed job.
func (s *Store) SetWorkerReview(ctx context.Context, id string, rating int, review string, now time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE jobs SET worker_rating = $2, worker_review = $3, updated_at = $4
		WHERE id = $1 AND status = 'completed'
	`, id, rating, review, now)
	if err != nil {
		return fmt.Errorf("set worker review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.InvalidState("job must be completed to review")
	}
	return nil
}

func (s *Store) guardedJobUpdate(ctx context.Context, query, guardMsg string, id string, now time.Time) error {
	tag, err := s.pool.Exec(ctx, query, id, now)
	if err != nil {
		return fmt.Errorf("transition job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.InvalidState(guardMsg)
	}
	return nil
}
