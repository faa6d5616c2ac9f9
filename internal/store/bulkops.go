package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"marketplace-engine/internal/apperr"
	"marketplace-engine/internal/models"
)

// CreateBulkOperation inserts the audit record for a batch submission.
func (s *Store) CreateBulkOperation(ctx context.Context, op models.BulkJobOperation) error {
	details, err := json.Marshal(op.ErrorDetails)
	if err != nil {
		return fmt.Errorf("marshal error details: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO bulk_operations (id, enterprise_id, operation_type, total_jobs, successful_jobs, failed_jobs, status, error_details, created_by, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, op.ID, op.EnterpriseID, string(op.OperationType), op.TotalJobs, op.SuccessfulJobs, op.FailedJobs,
		string(op.Status), details, op.CreatedBy, op.StartedAt)
	if err != nil {
		return fmt.Errorf("insert bulk operation: %w", err)
	}
	return nil
}

// RecordBulkSuccess increments the success counter while the operation is
// still in flight.
func (s *Store) RecordBulkSuccess(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE bulk_operations SET successful_jobs = successful_jobs + 1
		WHERE id = $1 AND completed_at IS NULL
	`, id)
	if err != nil {
		return fmt.Errorf("record bulk success: %w", err)
	}
	return nil
}

// RecordBulkFailure increments the failure counter and appends the row error.
func (s *Store) RecordBulkFailure(ctx context.Context, id string, rowErr models.BulkRowError) error {
	detail, err := json.Marshal(rowErr)
	if err != nil {
		return fmt.Errorf("marshal row error: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		UPDATE bulk_operations
		SET failed_jobs = failed_jobs + 1, error_details = error_details || $2::jsonb
		WHERE id = $1 AND completed_at IS NULL
	`, id, detail)
	if err != nil {
		return fmt.Errorf("record bulk failure: %w", err)
	}
	return nil
}

// FinishBulkOperation sets the terminal status and freezes the counts by
// stamping completed_at.
func (s *Store) FinishBulkOperation(ctx context.Context, id string, status models.BulkOperationStatus, now time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE bulk_operations SET status = $2, completed_at = $3
		WHERE id = $1 AND completed_at IS NULL
	`, id, string(status), now)
	if err != nil {
		return fmt.Errorf("finish bulk operation: %w", err)
	}
	return nil
}

// GetBulkOperation fetches a bulk operation by id for progress polling.
func (s *Store) GetBulkOperation(ctx context.Context, id string) (models.BulkJobOperation, error) {
	var op models.BulkJobOperation
	var opType, status string
	var details []byte
	err := s.pool.QueryRow(ctx, `
		SELECT id, enterprise_id, operation_type, total_jobs, successful_jobs, failed_jobs, status, error_details, created_by, started_at, completed_at
		FROM bulk_operations WHERE id = $1
	`, id).Scan(&op.ID, &op.EnterpriseID, &opType, &op.TotalJobs, &op.SuccessfulJobs, &op.FailedJobs,
		&status, &details, &op.CreatedBy, &op.StartedAt, &op.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.BulkJobOperation{}, apperr.NotFound("bulk operation", id)
	}
	if err != nil {
		return models.BulkJobOperation{}, fmt.Errorf("get bulk operation: %w", err)
	}
	op.OperationType = models.BulkOperationType(opType)
	op.Status = models.BulkOperationStatus(status)
	if err := json.Unmarshal(details, &op.ErrorDetails); err != nil {
		return models.BulkJobOperation{}, fmt.Errorf("unmarshal error details: %w", err)
	}
	return op, nil
}
